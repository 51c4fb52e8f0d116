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

func TestExport(t *testing.T) {
	dir, err := ioutil.TempDir("", "foxmlexport")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	oldhome := os.Getenv("HOME")
	os.Setenv("HOME", dir)
	defer os.Setenv("HOME", oldhome)

	f := fedoratest.New()
	f.AddObject("test:1", []byte("<foxml:digitalObject/>"))
	f.AddObject("test:2", []byte("<foxml:digitalObject/>"))
	srv := httptest.NewServer(f)
	defer srv.Close()

	pidfile := filepath.Join(dir, "pids.txt")
	ioutil.WriteFile(pidfile, []byte("test%3A1\ninfo:fedora/test:2\ntest:3\n"), 0644)
	out := filepath.Join(dir, "out")
	ledger := "ql:" + filepath.Join(dir, "ledger.db")
	args := []string{"-url", srv.URL, "-user", "fedoraAdmin", "-output", out, "-ledger", ledger, "-q"}

	var stdout, stderr bytes.Buffer
	code := run(append(args, "-pid-file", pidfile), &stdout, &stderr)
	if code != 1 {
		t.Errorf("Received %d, expected 1", code)
	}
	if !strings.HasPrefix(stdout.String(), "Exporting 3 objects\n2 ok, 1 failed") {
		t.Errorf("Received %q", stdout.String())
	}
	for _, name := range []string{"test:1-FOXML.xml", "test:2-FOXML.xml"} {
		if _, err := os.Stat(filepath.Join(out, "FOXML", name)); err != nil {
			t.Errorf("Received %v", err)
		}
	}

	f.AddObject("test:3", []byte("<foxml:digitalObject/>"))
	stdout.Reset()
	code = run(append(args, "-retry-failed"), &stdout, &stderr)
	if code != 0 {
		t.Errorf("Received %d, expected 0 (%s)", code, stderr.String())
	}
	if !strings.HasPrefix(stdout.String(), "Exporting 1 objects\n1 ok, 0 failed") {
		t.Errorf("Received %q", stdout.String())
	}

	var table = [][]string{
		{},
		{"-pid-file", pidfile, "-retry-failed"},
	}
	for _, extra := range table {
		code = run(append(args, extra...), &stdout, &stderr)
		if code != 2 {
			t.Errorf("%v: Received %d, expected 2", extra, code)
		}
	}
}

func TestExportFromStdin(t *testing.T) {
	dir, err := ioutil.TempDir("", "foxmlexport")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	oldhome := os.Getenv("HOME")
	os.Setenv("HOME", dir)
	defer os.Setenv("HOME", oldhome)

	f := fedoratest.New()
	f.AddObject("test:1", []byte("<foxml:digitalObject/>"))
	srv := httptest.NewServer(f)
	defer srv.Close()

	pidfile := filepath.Join(dir, "pids.txt")
	ioutil.WriteFile(pidfile, []byte("test:1\n"), 0644)
	in, err := os.Open(pidfile)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	oldstdin := os.Stdin
	os.Stdin = in
	defer func() { os.Stdin = oldstdin }()

	out := filepath.Join(dir, "out")
	args := []string{"-url", srv.URL, "-user", "fedoraAdmin", "-output", out, "-q", "-pid-file", "-"}
	var stdout, stderr bytes.Buffer
	if code := run(args, &stdout, &stderr); code != 0 {
		t.Errorf("Received %d, expected 0 (%s)", code, stderr.String())
	}
	if _, err := os.Stat(filepath.Join(out, "FOXML", "test:1-FOXML.xml")); err != nil {
		t.Errorf("Received %v", err)
	}
}
