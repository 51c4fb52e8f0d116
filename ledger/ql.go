package ledger

import (
	"database/sql"
	"time"

	"github.com/BurntSushi/migration"
	_ "github.com/cznic/ql/driver"
	"github.com/pkg/errors"
)

// This file implements the ledger using the QL embedded database. It needs
// no server, so it is the usual choice for a single workstation.

type qlLedger struct {
	db *sql.DB
}

var _ Ledger = &qlLedger{}

// List of migrations to perform. Add new ones to the end.
// DO NOT change the order of items already in this list.
var qlMigrations = []migration.Migrator{
	qlschema1,
}

var qlVersioning = dbVersion{
	GetSQL:    `SELECT max(version) FROM migration_version`,
	SetSQL:    `INSERT INTO migration_version VALUES (?1, now())`,
	CreateSQL: `CREATE TABLE migration_version (version int, applied time)`,
}

func qlschema1(tx migration.LimitedTx) error {
	_, err := tx.Exec(`
	CREATE TABLE exports (
		run string,
		pid string,
		what string,
		storekey string,
		size int64,
		md5 string,
		status string,
		note string,
		recorded time
	);
	CREATE INDEX exportswhat ON exports (what);
	CREATE INDEX exportspid ON exports (pid);`)
	return err
}

// NewQl opens the QL database in the file filename, creating it if needed.
// The filename "memory" means to keep everything in memory.
func NewQl(filename string) (Ledger, error) {
	driver := "ql"
	if filename == "memory" {
		// every in-memory database needs its own name or they are shared
		driver, filename = "ql-mem", NewRunID()+".db"
	}
	db, err := migration.OpenWith(
		driver,
		filename,
		qlMigrations,
		qlVersioning.Get,
		qlVersioning.Set)
	if err != nil {
		return nil, errors.Wrap(err, "open QL ledger")
	}
	return &qlLedger{db: db}, nil
}

func (ql *qlLedger) Record(e Entry) error {
	const query = `INSERT INTO exports VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9)`
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	_, err := performExec(ql.db, query,
		e.Run, e.PID, e.What, e.Key, e.Size, e.MD5, string(e.Status), e.Note, e.Time)
	return err
}

func (ql *qlLedger) List(what string) ([]Entry, error) {
	const query = `
		SELECT run, pid, what, storekey, size, md5, status, note, recorded
		FROM exports
		WHERE what == ?1
		ORDER BY id()`
	rows, err := ql.db.Query(query, what)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (ql *qlLedger) Failed(what string) ([]string, error) {
	entries, err := ql.List(what)
	if err != nil {
		return nil, err
	}
	return latestFailed(entries), nil
}

func (ql *qlLedger) Close() error {
	return ql.db.Close()
}
