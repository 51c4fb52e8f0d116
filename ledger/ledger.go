// Package ledger records the outcome of every object an export touches, so
// an interrupted or partly failed export can be retried with only the
// objects which failed.
package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Status of an export attempt.
type Status string

// The possible statuses.
const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// An Entry is one attempt to export one thing from one object.
type Entry struct {
	Run    string // id shared by every entry from one command invocation
	PID    string
	What   string // datastream id, or "FOXML" for an object export
	Key    string // where the result was saved in the store
	Size   int64
	MD5    string // hex encoded
	Status Status
	Note   string // error text for failures
	Time   time.Time
}

// A Ledger saves entries. Implementations are safe for concurrent use.
type Ledger interface {
	// Record saves e. A zero Time is replaced by the current time.
	Record(e Entry) error

	// List returns every entry for what, oldest first.
	List(what string) ([]Entry, error)

	// Failed returns the PIDs whose most recent entry for what has
	// StatusFailed, in the order they were first recorded.
	Failed(what string) ([]string, error)

	Close() error
}

// ErrBadLocation means Open did not understand its argument.
var ErrBadLocation = errors.New("Cannot parse ledger location")

// NewRunID returns a new random run id.
func NewRunID() string {
	return uuid.New().String()
}

// Open returns the ledger described by location:
//
//	""            no ledger, returns nil
//	"memory"      a Memory ledger
//	"ql:memory"   an in-memory QL database
//	"ql:<path>"   a QL database file
//	"mysql:<dsn>" a MySQL database, e.g. "mysql:user:pw@tcp(host:3306)/exports"
func Open(location string) (Ledger, error) {
	switch {
	case location == "":
		return nil, nil
	case location == "memory":
		return NewMemory(), nil
	case strings.HasPrefix(location, "ql:"):
		return NewQl(strings.TrimPrefix(location, "ql:"))
	case strings.HasPrefix(location, "mysql:"):
		return NewMysql(strings.TrimPrefix(location, "mysql:"))
	}
	return nil, errors.Wrap(ErrBadLocation, location)
}

// latestFailed reduces entries, oldest first, to the PIDs whose last entry
// failed.
func latestFailed(entries []Entry) []string {
	var order []string
	last := make(map[string]Status)
	for _, e := range entries {
		if _, ok := last[e.PID]; !ok {
			order = append(order, e.PID)
		}
		last[e.PID] = e.Status
	}
	var result []string
	for _, pid := range order {
		if last[pid] == StatusFailed {
			result = append(result, pid)
		}
	}
	return result
}
