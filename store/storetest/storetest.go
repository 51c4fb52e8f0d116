// Package storetest provides functions for facilitating the testing of
// anything implementing the Store interface.
package storetest

import (
	"bytes"
	"io"
	"io/ioutil"
	"sort"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/ndlib/foxtools/store"
)

// Run checks the behavior every store must have. The store s should be
// empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	items := map[string]string{
		"OBJ/a:1-OBJ.jpg":      "jpeg one",
		"OBJ/a:2-OBJ.jpg":      "jpeg two",
		"MODS/a:1-MODS.xml":    "<mods/>",
		"FOXML/a:1-FOXML.xml":  "<foxml/>",
		"top-level-file.txt":   "",
		"deep/er/path/key.bin": strings.Repeat("0123456789", 1000),
	}
	for k, v := range items {
		Add(t, s, k, v)
	}

	for k, v := range items {
		if got := Get(t, s, k); got != v {
			t.Errorf("%s: Received %.20q, expected %.20q", k, got, v)
		}
	}

	// keys are immutable
	_, err := s.Create("OBJ/a:1-OBJ.jpg")
	if errors.Cause(err) != store.ErrKeyExists {
		t.Errorf("Received %v, expected %v", err, store.ErrKeyExists)
	}

	var table = []struct {
		prefix string
		keys   []string
	}{
		{"OBJ/", []string{"OBJ/a:1-OBJ.jpg", "OBJ/a:2-OBJ.jpg"}},
		{"OBJ/a:1", []string{"OBJ/a:1-OBJ.jpg"}},
		{"M", []string{"MODS/a:1-MODS.xml"}},
		{"nothing", nil},
	}
	for _, row := range table {
		keys, err := s.ListPrefix(row.prefix)
		if err != nil {
			t.Errorf("%s: Received %s", row.prefix, err)
		}
		sort.Strings(keys)
		if strings.Join(keys, " ") != strings.Join(row.keys, " ") {
			t.Errorf("%s: Received %v, expected %v", row.prefix, keys, row.keys)
		}
	}

	var all []string
	for k := range s.List() {
		all = append(all, k)
	}
	if len(all) != len(items) {
		t.Errorf("List: Received %v", all)
	}

	if !store.Exists(s, "MODS/a:1-MODS.xml") || store.Exists(s, "MODS/a:9-MODS.xml") {
		t.Errorf("Exists gives the wrong answer")
	}
	_, _, err = s.Open("MODS/a:9-MODS.xml")
	if errors.Cause(err) != store.ErrNotExist {
		t.Errorf("Received %v, expected %v", err, store.ErrNotExist)
	}

	// delete and replace
	if err := s.Delete("OBJ/a:1-OBJ.jpg"); err != nil {
		t.Errorf("Received %s", err)
	}
	if err := s.Delete("OBJ/a:1-OBJ.jpg"); err != nil {
		t.Errorf("second delete: Received %s", err)
	}
	Add(t, s, "OBJ/a:1-OBJ.jpg", "replacement")
	if got := Get(t, s, "OBJ/a:1-OBJ.jpg"); got != "replacement" {
		t.Errorf("Received %q", got)
	}

	for _, bad := range []string{"", "/abs", "a//b", "../up", "a/./b", "white space", "tab\tkey", "dir/"} {
		_, err := s.Create(bad)
		if err == nil {
			t.Errorf("%q: Create succeeded", bad)
		}
	}
}

// Add saves data under key, failing the test on any error.
func Add(t *testing.T, s store.Store, key string, data string) {
	t.Helper()
	w, err := s.Create(key)
	if err != nil {
		t.Fatalf("Couldn't make %s, %s", key, err)
	}
	_, err = w.Write([]byte(data))
	if err != nil {
		t.Fatalf("Couldn't make %s, %s", key, err)
	}
	err = w.Close()
	if err != nil {
		t.Fatalf("Couldn't make %s, %s", key, err)
	}
}

// Get returns the contents of key, failing the test on any error.
func Get(t *testing.T, s store.ROStore, key string) string {
	t.Helper()
	r, size, err := s.Open(key)
	if err != nil {
		t.Fatalf("Couldn't open %s, %s", key, err)
	}
	defer r.Close()
	var buf bytes.Buffer
	// small buffer to exercise ReadAt offsets
	n, err := io.CopyBuffer(&buf, store.NewReader(r), make([]byte, 4096))
	if err != nil {
		t.Fatalf("Couldn't read %s, %s", key, err)
	}
	if n != size {
		t.Errorf("%s: read %d bytes, Open said %d", key, n, size)
	}
	return buf.String()
}

// Discard reads key to the end and returns its length.
func Discard(s store.ROStore, key string) (int64, error) {
	r, _, err := s.Open(key)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	return io.Copy(ioutil.Discard, store.NewReader(r))
}
