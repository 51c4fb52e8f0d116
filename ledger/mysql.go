package ledger

import (
	"database/sql"
	"time"

	"github.com/BurntSushi/migration"
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// This file implements the ledger on MySQL, for exports run from more than
// one machine.

type mysqlLedger struct {
	db *sql.DB
}

var _ Ledger = &mysqlLedger{}

// List of migrations to perform. Add new ones to the end.
// DO NOT change the order of items already in this list.
var mysqlMigrations = []migration.Migrator{
	mysqlschema1,
}

var mysqlVersioning = dbVersion{
	GetSQL:    `SELECT max(version) FROM migration_version`,
	SetSQL:    `INSERT INTO migration_version (version, applied) VALUES (?, now())`,
	CreateSQL: `CREATE TABLE migration_version (version INTEGER, applied datetime)`,
}

func mysqlschema1(tx migration.LimitedTx) error {
	var s = []string{
		`CREATE TABLE IF NOT EXISTS exports (
		id int PRIMARY KEY AUTO_INCREMENT,
		run varchar(64),
		pid varchar(255),
		what varchar(64),
		storekey varchar(1024),
		size bigint,
		md5 varchar(32),
		status varchar(16),
		note text,
		recorded datetime(3))`,
		`CREATE INDEX exports_what ON exports (what)`,
		`CREATE INDEX exports_pid ON exports (pid)`,
	}
	return execlist(tx, s)
}

// NewMysql connects to the MySQL database given by dsn, in the form the
// go-sql-driver/mysql package takes, and brings its schema up to date.
// parseTime is turned on so timestamps can be read back.
func NewMysql(dsn string) (Ledger, error) {
	conf, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open MySQL ledger")
	}
	conf.ParseTime = true
	conf.Loc = time.UTC
	db, err := migration.OpenWith(
		"mysql",
		conf.FormatDSN(),
		mysqlMigrations,
		mysqlVersioning.Get,
		mysqlVersioning.Set)
	if err != nil {
		return nil, errors.Wrap(err, "open MySQL ledger")
	}
	return &mysqlLedger{db: db}, nil
}

func (ms *mysqlLedger) Record(e Entry) error {
	const query = `INSERT INTO exports
		(run, pid, what, storekey, size, md5, status, note, recorded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	_, err := ms.db.Exec(query,
		e.Run, e.PID, e.What, e.Key, e.Size, e.MD5, string(e.Status), e.Note, e.Time.UTC())
	return err
}

func (ms *mysqlLedger) List(what string) ([]Entry, error) {
	const query = `
		SELECT run, pid, what, storekey, size, md5, status, note, recorded
		FROM exports
		WHERE what = ?
		ORDER BY id`
	rows, err := ms.db.Query(query, what)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (ms *mysqlLedger) Failed(what string) ([]string, error) {
	entries, err := ms.List(what)
	if err != nil {
		return nil, err
	}
	return latestFailed(entries), nil
}

func (ms *mysqlLedger) Close() error {
	return ms.db.Close()
}
