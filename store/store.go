// Package store provides a simple, goroutine safe key-value interface for
// the files an export produces. Instead of values being an opaque array of
// bytes, though, they are a stream. This approach allows large datastreams
// to be saved without holding them in memory.
//
// Keys are slash separated relative paths, such as "OBJ/islandora:42-OBJ.jpg".
// The FileSystem store turns them into directories and files under its
// root; the S3 store uses them as object keys.
package store

import (
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ReadAtCloser combines the io.ReaderAt and io.Closer interfaces.
type ReadAtCloser interface {
	io.ReaderAt
	io.Closer
}

// Store defines the basic stream based key-value store.
// Items are immutable once stored, but they may be deleted and then replaced
// with a new value.
type Store interface {
	ROStore
	Create(key string) (io.WriteCloser, error)
	Delete(key string) error
}

// ROStore is the read-only pieces of a Store. It allows one to list contents,
// and to retrieve data.
type ROStore interface {
	List() <-chan string
	ListPrefix(prefix string) ([]string, error)
	Open(key string) (ReadAtCloser, int64, error)
}

var (
	// ErrKeyExists indicates an attempt to create a key which already exists
	ErrKeyExists = errors.New("Key already exists")

	// ErrNotExist means the key is not in the store
	ErrNotExist = errors.New("Key does not exist")

	// ErrBadKey means the key is empty, is not valid UTF-8, or contains
	// a path element which could escape the store
	ErrBadKey = errors.New("Key is not a valid relative path")

	// ErrKeyContainsWhiteSpace means the key provided contains white space
	ErrKeyContainsWhiteSpace = errors.New("Key contains white space")

	// ErrKeyContainsControlChar means the key provided contains control characters
	ErrKeyContainsControlChar = errors.New("Key contains control characters")
)

// Exists reports whether key is in the store s.
func Exists(s ROStore, key string) bool {
	r, _, err := s.Open(key)
	if err != nil {
		return false
	}
	r.Close()
	return true
}

// CheckKey validates a key. Every store applies the same rules so an export
// can be moved between them.
func CheckKey(key string) error {
	if key == "" || !utf8.ValidString(key) {
		return errors.Wrapf(ErrBadKey, "%q", key)
	}
	for _, elem := range strings.Split(key, "/") {
		if elem == "" || elem == "." || elem == ".." {
			return errors.Wrapf(ErrBadKey, "%q", key)
		}
	}
	for _, r := range key {
		if r == '\\' {
			return errors.Wrapf(ErrBadKey, "%q", key)
		}
		if unicode.IsSpace(r) {
			return errors.Wrapf(ErrKeyContainsWhiteSpace, "%q", key)
		}
		if unicode.IsControl(r) {
			return errors.Wrapf(ErrKeyContainsControlChar, "%q", key)
		}
	}
	return nil
}

// NewReader converts a ReaderAt into a io.Reader. It is here as a utility to
// help work with the ReadAtCloser returned by Open.
func NewReader(r io.ReaderAt) io.Reader {
	return &reader{r: r}
}

type reader struct {
	r   io.ReaderAt
	off int64
}

func (r *reader) Read(p []byte) (n int, err error) {
	n, err = r.r.ReadAt(p, r.off)
	r.off += int64(n)
	if err == io.EOF && n > 0 {
		// reading less than a full buffer is not an error for
		// an io.Reader
		err = nil
	}
	return
}
