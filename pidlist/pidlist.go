// Package pidlist reads lists of Fedora PIDs.
package pidlist

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Read returns the PIDs listed in r, one per line. Anything after a '#' is
// a comment and blank lines are skipped. URL encoded colons ("%3A") are
// decoded and an "info:fedora/" prefix is removed. A PID is only returned
// the first time it appears.
func Read(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return Unique(lines), scanner.Err()
}

// Unique cleans each entry of list and returns the distinct, non-empty
// results in the order they first appear.
func Unique(list []string) []string {
	var result []string
	seen := make(map[string]bool)
	for _, line := range list {
		pid := Clean(line)
		if pid == "" || seen[pid] {
			continue
		}
		seen[pid] = true
		result = append(result, pid)
	}
	return result
}

// Stdin is the file name ReadFile takes to mean standard input.
const Stdin = "-"

// ReadFile is Read on the contents of the file fname, or of standard input
// if fname is "-".
func ReadFile(fname string) ([]string, error) {
	if fname == Stdin {
		pids, err := Read(os.Stdin)
		if err != nil {
			return nil, errors.Wrap(err, "standard input")
		}
		return pids, nil
	}
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, errors.Errorf("%s is not a regular file", fname)
	}
	pids, err := Read(f)
	if err != nil {
		return nil, errors.Wrap(err, fname)
	}
	return pids, nil
}

// Clean normalizes a single line of a PID list.
func Clean(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	line = strings.Replace(line, "%3A", ":", -1)
	line = strings.Replace(line, "%3a", ":", -1)
	return strings.TrimPrefix(line, "info:fedora/")
}

// Write puts one PID per line to w.
func Write(w io.Writer, pids []string) error {
	bw := bufio.NewWriter(w)
	for _, pid := range pids {
		bw.WriteString(pid)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
