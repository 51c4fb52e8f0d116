package ledger

import (
	"database/sql"
	"log"

	"github.com/BurntSushi/migration"
)

// The migration package assumes a SQL dialect, so the version functions are
// adapted to work with both MySQL and QL.
type dbVersion struct {
	// SQL to get the version of this db, returns one row and one column
	GetSQL string
	// SQL to insert a new version of this db. takes one parameter, the new
	// version
	SetSQL string
	// the SQL to create the version table for this db
	CreateSQL string
}

func (d dbVersion) Get(tx migration.LimitedTx) (int, error) {
	v, err := d.get(tx)
	if err != nil {
		// we assume error means there is no migration table
		log.Println("ledger:", err)
		return 0, nil
	}
	return v, nil
}

func (d dbVersion) Set(tx migration.LimitedTx, version int) error {
	if err := d.set(tx, version); err != nil {
		if err := d.createTable(tx); err != nil {
			return err
		}
		return d.set(tx, version)
	}
	return nil
}

func (d dbVersion) get(tx migration.LimitedTx) (int, error) {
	var version int
	r := tx.QueryRow(d.GetSQL)
	if err := r.Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

func (d dbVersion) set(tx migration.LimitedTx, version int) error {
	_, err := tx.Exec(d.SetSQL, version)
	return err
}

func (d dbVersion) createTable(tx migration.LimitedTx) error {
	_, err := tx.Exec(d.CreateSQL)
	if err == nil {
		err = d.set(tx, 0)
	}
	return err
}

// execlist exec's each statement in order, stopping at the first error.
// The MySQL driver does not handle compound statements.
func execlist(tx migration.LimitedTx, stmts []string) error {
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// performExec runs a single statement inside its own transaction, which QL
// requires for every change.
func performExec(db *sql.DB, query string, args ...interface{}) (sql.Result, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	result, err := tx.Exec(query, args...)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	err = tx.Commit()
	return result, err
}

// scanEntries reads rows of (run, pid, what, storekey, size, md5, status,
// note, recorded).
func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()
	var result []Entry
	for rows.Next() {
		var e Entry
		var status string
		err := rows.Scan(&e.Run, &e.PID, &e.What, &e.Key, &e.Size, &e.MD5, &status, &e.Note, &e.Time)
		if err != nil {
			return nil, err
		}
		e.Status = Status(status)
		result = append(result, e)
	}
	return result, rows.Err()
}
