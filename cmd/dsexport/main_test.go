package main

import (
	"bytes"
	"io/ioutil"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ndlib/foxtools/fedoraapi/fedoratest"
)

func setup(t *testing.T) (*fedoratest.Fake, string, []string, func()) {
	t.Helper()
	dir, err := ioutil.TempDir("", "dsexport")
	if err != nil {
		t.Fatal(err)
	}
	oldhome := os.Getenv("HOME")
	os.Setenv("HOME", dir)

	f := fedoratest.New()
	f.User = "fedoraAdmin"
	f.Password = "secret"
	f.AddDatastream("test:1", "OBJ", "image/jpeg", []byte("one"))
	f.AddDatastream("test:2", "OBJ", "image/jpeg", []byte("two"))
	f.Query = func(query string) fedoratest.Result {
		if !strings.Contains(query, "info:fedora/*/OBJ") {
			return fedoratest.Result{Columns: []string{"obj"}}
		}
		return fedoratest.Result{
			Columns: []string{"obj"},
			Rows: [][]string{
				{"info:fedora/test:1"},
				{"info:fedora/test:2"},
				{"info:fedora/test:1"},
			},
		}
	}
	srv := httptest.NewServer(f)
	args := []string{"-url", srv.URL, "-user", "fedoraAdmin", "-password", "secret", "-q"}
	return f, dir, args, func() {
		srv.Close()
		os.Setenv("HOME", oldhome)
		os.RemoveAll(dir)
	}
}

func TestQueryExport(t *testing.T) {
	_, dir, args, cleanup := setup(t)
	defer cleanup()
	out := filepath.Join(dir, "out")
	var stdout, stderr bytes.Buffer
	code := run(append(args, "-dsid", "OBJ", "-output", out), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("Received %d, expected 0 (%s)", code, stderr.String())
	}
	if !strings.HasPrefix(stdout.String(), "Downloading OBJ from 2 objects\n2 ok, 0 failed, 0 skipped") {
		t.Errorf("Received %q", stdout.String())
	}
	b, err := ioutil.ReadFile(filepath.Join(out, "OBJ", "test:2-OBJ.jpg"))
	if err != nil || string(b) != "two" {
		t.Errorf("Received %q, %v, expected \"two\"", b, err)
	}

	// a second run skips everything
	stdout.Reset()
	code = run(append(args, "-dsid", "OBJ", "-output", out), &stdout, &stderr)
	if code != 0 || !strings.Contains(stdout.String(), "0 ok, 0 failed, 2 skipped") {
		t.Errorf("Received %d %q, expected 2 skipped", code, stdout.String())
	}
}

func TestRetryFailed(t *testing.T) {
	f, dir, args, cleanup := setup(t)
	defer cleanup()
	out := filepath.Join(dir, "out")
	pidfile := filepath.Join(dir, "pids.txt")
	ioutil.WriteFile(pidfile, []byte("test:1\ntest:9 # not there yet\n"), 0644)
	ledger := "ql:" + filepath.Join(dir, "ledger.db")

	var stdout, stderr bytes.Buffer
	code := run(append(args, "-dsid", "OBJ", "-output", out, "-pid-file", pidfile, "-ledger", ledger), &stdout, &stderr)
	if code != 1 {
		t.Errorf("Received %d, expected 1", code)
	}
	if !strings.Contains(stdout.String(), "1 ok, 1 failed") {
		t.Errorf("Received %q", stdout.String())
	}

	f.AddDatastream("test:9", "OBJ", "application/pdf", []byte("nine"))
	stdout.Reset()
	code = run(append(args, "-dsid", "OBJ", "-output", out, "-retry-failed", "-ledger", ledger), &stdout, &stderr)
	if code != 0 {
		t.Errorf("Received %d, expected 0 (%s)", code, stderr.String())
	}
	if !strings.HasPrefix(stdout.String(), "Downloading OBJ from 1 objects\n1 ok") {
		t.Errorf("Received %q", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(out, "OBJ", "test:9-OBJ.pdf")); err != nil {
		t.Errorf("Received %v", err)
	}
}

func TestUsage(t *testing.T) {
	_, dir, args, cleanup := setup(t)
	defer cleanup()
	out := filepath.Join(dir, "out")
	var table = []struct {
		args []string
		code int
	}{
		{[]string{"-output", out}, 2},
		{[]string{"-dsid", "OBJ", "-output", out, "-retry-failed"}, 2},
		{[]string{"-dsid", "OBJ", "-output", out, "-retry-failed", "-pid-file", "x"}, 2},
		{[]string{"-dsid", "OBJ", "-output", out, "-workers", "many"}, 2},
		{[]string{"-dsid", "OBJ", "-output", out, "-ledger", "sqlite:x.db"}, 1},
		{[]string{"-dsid", "OB J", "-output", out}, 2},
		{[]string{"-dsid", "OBJ", "-output", out, "-pid-file", filepath.Join(dir, "missing")}, 1},
	}
	for _, row := range table {
		var stdout, stderr bytes.Buffer
		code := run(append(args, row.args...), &stdout, &stderr)
		if code != row.code {
			t.Errorf("%v: Received %d, expected %d (%s)", row.args, code, row.code, stderr.String())
		}
	}
}
