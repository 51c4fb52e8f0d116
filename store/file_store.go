package store

import (
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	raven "github.com/getsentry/raven-go"
	"github.com/pkg/errors"
)

// FileSystem implements a store kept in a directory tree. A key such as
// "OBJ/a:1-OBJ.jpg" is saved as the file OBJ/a:1-OBJ.jpg under the root.
// Files being written are kept in a scratch directory and only moved to
// their final place when closed, so a reader never sees a partial file.
type FileSystem struct {
	root string
}

// the subdir to store files while they are being written to.
const scratchdir = ".scratch"

// make sure it implements the Store interface
var _ Store = &FileSystem{}

// NewFileSystem creates a new FileSystem store based at the given root path.
func NewFileSystem(root string) *FileSystem {
	return &FileSystem{root}
}

// Root returns the directory this store keeps its files in.
func (s *FileSystem) Root() string {
	return s.root
}

// List returns a channel listing all the keys in this store, in lexical
// order.
func (s *FileSystem) List() <-chan string {
	c := make(chan string)
	go func() {
		defer close(c)
		err := s.walk(func(key string) { c <- key })
		if err != nil {
			// we have no other way of passing this error back
			log.Println(err)
			raven.CaptureError(err, map[string]string{"Root": s.root})
		}
	}()
	return c
}

// walk calls f with the key of every file in the store.
func (s *FileSystem) walk(f func(key string)) error {
	return filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == s.root {
				return nil
			}
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if rel == scratchdir {
				return filepath.SkipDir
			}
			return nil
		}
		f(filepath.ToSlash(rel))
		return nil
	})
}

// ListPrefix returns a list of all the keys beginning with the given prefix.
func (s *FileSystem) ListPrefix(prefix string) ([]string, error) {
	var result []string
	err := s.walk(func(key string) {
		if strings.HasPrefix(key, prefix) {
			result = append(result, key)
		}
	})
	sort.Strings(result)
	return result, err
}

func (s *FileSystem) path(key string) (string, error) {
	if err := CheckKey(key); err != nil {
		return "", err
	}
	if key == scratchdir || strings.HasPrefix(key, scratchdir+"/") {
		return "", errors.Wrapf(ErrBadKey, "%q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Open returns a reader for the given object along with its size.
func (s *FileSystem) Open(key string) (ReadAtCloser, int64, error) {
	fname, err := s.path(key)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(fname)
	if os.IsNotExist(err) {
		return nil, 0, errors.Wrap(ErrNotExist, key)
	} else if err != nil {
		return nil, 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	if fi.IsDir() {
		f.Close()
		return nil, 0, errors.Wrap(ErrNotExist, key)
	}
	return f, fi.Size(), nil
}

// Create creates a new item with the given key, and a writer to allow for
// saving data into the new item.
func (s *FileSystem) Create(key string) (io.WriteCloser, error) {
	target, err := s.path(key)
	if err != nil {
		return nil, err
	}
	if _, err = os.Stat(target); !os.IsNotExist(err) {
		return nil, errors.Wrap(ErrKeyExists, key)
	}
	// now set up the scratch location we will temporarily save the file to
	dir := filepath.Join(s.root, scratchdir)
	if err = os.MkdirAll(dir, 0775); err != nil {
		return nil, err
	}
	f, err := ioutil.TempFile(dir, filepath.Base(target)+"-")
	if err != nil {
		return nil, err
	}
	return &moveCloser{f: f, target: target, key: key}, nil
}

// track the file so when it is closed, we can move it into the correct place
type moveCloser struct {
	f      *os.File
	target string
	key    string
}

func (w *moveCloser) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

func (w *moveCloser) Close() error {
	source := w.f.Name()
	err := w.f.Close()
	if err == nil {
		err = os.MkdirAll(filepath.Dir(w.target), 0775)
	}
	if err == nil {
		if _, serr := os.Stat(w.target); !os.IsNotExist(serr) {
			err = errors.Wrap(ErrKeyExists, w.key)
		}
	}
	if err == nil {
		err = os.Rename(source, w.target)
	}
	if err != nil {
		os.Remove(source)
	}
	return err
}

// Delete the given key from the store. It is not an error if the key doesn't
// exist.
func (s *FileSystem) Delete(key string) error {
	fname, err := s.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(fname)
	// don't report a missing file as an error
	if err != nil && os.IsNotExist(err) {
		err = nil
	}
	return err
}
