package ledger

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
)

// checkLedger runs the same sequence against any empty ledger.
func checkLedger(t *testing.T, l Ledger) {
	t.Helper()
	run1, run2 := NewRunID(), NewRunID()
	when := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	var table = []Entry{
		{Run: run1, PID: "a:1", What: "OBJ", Key: "OBJ/a:1-OBJ.jpg", Size: 10, MD5: "abc", Status: StatusOK, Time: when},
		{Run: run1, PID: "a:2", What: "OBJ", Status: StatusFailed, Note: "Not found in Fedora", Time: when},
		{Run: run1, PID: "a:3", What: "OBJ", Status: StatusFailed, Note: "timeout", Time: when},
		{Run: run1, PID: "a:2", What: "FOXML", Status: StatusFailed, Time: when},
		{Run: run2, PID: "a:3", What: "OBJ", Key: "OBJ/a:3-OBJ.jpg", Status: StatusOK, Time: when.Add(time.Hour)},
		{Run: run2, PID: "a:1", What: "OBJ", Key: "OBJ/a:1-OBJ.jpg", Status: StatusSkipped},
		{Run: run2, PID: "a:4", What: "OBJ", Status: StatusFailed},
	}
	for _, e := range table {
		if err := l.Record(e); err != nil {
			t.Fatalf("Received %s", err)
		}
	}

	failed, err := l.Failed("OBJ")
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	if strings.Join(failed, " ") != "a:2 a:4" {
		t.Errorf("Received %v, expected [a:2 a:4]", failed)
	}
	failed, _ = l.Failed("FOXML")
	if strings.Join(failed, " ") != "a:2" {
		t.Errorf("Received %v, expected [a:2]", failed)
	}
	failed, _ = l.Failed("MODS")
	if len(failed) != 0 {
		t.Errorf("Received %v, expected none", failed)
	}

	entries, err := l.List("OBJ")
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	if len(entries) != 6 {
		t.Fatalf("Received %d entries, expected 6", len(entries))
	}
	e := entries[0]
	if e.Run != run1 || e.PID != "a:1" || e.Key != "OBJ/a:1-OBJ.jpg" || e.Size != 10 ||
		e.MD5 != "abc" || e.Status != StatusOK || !e.Time.Equal(when) {
		t.Errorf("Received %+v", e)
	}
	if entries[1].Note != "Not found in Fedora" {
		t.Errorf("Received note %q", entries[1].Note)
	}
	if entries[4].Time.IsZero() {
		t.Errorf("zero time was not filled in")
	}
}

func TestMemory(t *testing.T) {
	checkLedger(t, NewMemory())
}

func TestQlMemory(t *testing.T) {
	l, err := NewQl("memory")
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	defer l.Close()
	checkLedger(t, l)

	// a second in-memory ledger starts empty
	l2, err := NewQl("memory")
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	defer l2.Close()
	entries, _ := l2.List("OBJ")
	if len(entries) != 0 {
		t.Errorf("Received %d entries, expected 0", len(entries))
	}
}

func TestQlFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "ledger")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	fname := filepath.Join(dir, "exports.ql")

	l, err := Open("ql:" + fname)
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	l.Record(Entry{Run: "r", PID: "a:1", What: "OBJ", Status: StatusFailed})
	if err := l.Close(); err != nil {
		t.Fatalf("Received %s", err)
	}

	// reopening keeps the entries and does not rerun the migrations
	l, err = Open("ql:" + fname)
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	defer l.Close()
	failed, err := l.Failed("OBJ")
	if err != nil || len(failed) != 1 || failed[0] != "a:1" {
		t.Errorf("Received %v, %v", failed, err)
	}
}

func TestOpen(t *testing.T) {
	l, err := Open("")
	if l != nil || err != nil {
		t.Errorf("Received %v, %v", l, err)
	}
	l, err = Open("memory")
	if _, ok := l.(*Memory); !ok || err != nil {
		t.Errorf("Received %T, %v", l, err)
	}
	_, err = Open("postgres:whatever")
	if errors.Cause(err) != ErrBadLocation {
		t.Errorf("Received %v, expected %v", err, ErrBadLocation)
	}
	_, err = Open("mysql:not a dsn")
	if err == nil {
		t.Errorf("Received nil error for a bad dsn")
	}
}

func TestLatestFailed(t *testing.T) {
	var table = []struct {
		entries []Entry
		output  string
	}{
		{nil, ""},
		{[]Entry{{PID: "x", Status: StatusFailed}, {PID: "x", Status: StatusOK}}, ""},
		{[]Entry{{PID: "x", Status: StatusOK}, {PID: "x", Status: StatusFailed}}, "x"},
		{[]Entry{{PID: "y", Status: StatusFailed}, {PID: "x", Status: StatusFailed}, {PID: "y", Status: StatusSkipped}}, "x"},
	}
	for _, row := range table {
		got := strings.Join(latestFailed(row.entries), " ")
		if got != row.output {
			t.Errorf("Received %q, expected %q", got, row.output)
		}
	}
}
