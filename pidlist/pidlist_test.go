package pidlist

import (
	"bytes"
	"io/ioutil"
	"os"
	"reflect"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	const input = `# exported 2024-01-02
islandora:1
islandora%3A2   # second one
  info:fedora/islandora:3

islandora:1
#islandora:4
islandora%3a5
`
	pids, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	goal := []string{"islandora:1", "islandora:2", "islandora:3", "islandora:5"}
	if strings.Join(pids, " ") != strings.Join(goal, " ") {
		t.Errorf("Received %v, expected %v", pids, goal)
	}
}

func TestClean(t *testing.T) {
	var table = []struct{ input, output string }{
		{"a:1", "a:1"},
		{"  a:1\t", "a:1"},
		{"a%3A1", "a:1"},
		{"# a:1", ""},
		{"", ""},
		{"info:fedora/a:1 # note", "a:1"},
	}
	for _, row := range table {
		if got := Clean(row.input); got != row.output {
			t.Errorf("%q: Received %q, expected %q", row.input, got, row.output)
		}
	}
}

func TestWriteRead(t *testing.T) {
	var buf bytes.Buffer
	pids := []string{"x:1", "y:2"}
	if err := Write(&buf, pids); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "x:1\ny:2\n" {
		t.Errorf("Received %q", buf.String())
	}
	got, _ := Read(&buf)
	if len(got) != 2 || got[0] != "x:1" || got[1] != "y:2" {
		t.Errorf("Received %v", got)
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile("testdata/no-such-file"); err == nil {
		t.Errorf("Received nil error for a missing file")
	}
	if _, err := ReadFile(os.TempDir()); err == nil {
		t.Errorf("Received nil error for a directory")
	}
}

func TestReadFileStdin(t *testing.T) {
	f, err := ioutil.TempFile("", "pidlist")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	defer f.Close()
	f.WriteString("test:1\ninfo:fedora/test:2\n")
	f.Seek(0, 0)

	oldstdin := os.Stdin
	os.Stdin = f
	defer func() { os.Stdin = oldstdin }()

	pids, err := ReadFile(Stdin)
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	expected := []string{"test:1", "test:2"}
	if !reflect.DeepEqual(pids, expected) {
		t.Errorf("Received %v, expected %v", pids, expected)
	}
}

func TestUnique(t *testing.T) {
	list := []string{"info:fedora/test:2", "test:1", "", "test%3A2", "  test:1 "}
	result := Unique(list)
	expected := []string{"test:2", "test:1"}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("Received %v, expected %v", result, expected)
	}
}
