package store

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Memory implements a simple in-memory version of a store. It is intended
// mainly for testing and for dry runs of an export.
type Memory struct {
	m     sync.RWMutex
	store map[string]*buf
}

// ensure Memory satisfies the Store interface
var _ Store = &Memory{}

// NewMemory returns a new, empty memory store.
func NewMemory() *Memory {
	return &Memory{store: make(map[string]*buf)}
}

// keys returns the keys of the finished items in sorted order.
func (ms *Memory) keys(prefix string) []string {
	var result []string
	ms.m.RLock()
	for k, v := range ms.store {
		if v.done && strings.HasPrefix(k, prefix) {
			result = append(result, k)
		}
	}
	ms.m.RUnlock()
	sort.Strings(result)
	return result
}

// List returns a channel giving the key for every item in the store. The
// keys are read when List is called.
func (ms *Memory) List() <-chan string {
	keys := ms.keys("")
	c := make(chan string)
	go func() {
		for _, k := range keys {
			c <- k
		}
		close(c)
	}()
	return c
}

// ListPrefix returns all the keys which begin with the given prefix.
func (ms *Memory) ListPrefix(prefix string) ([]string, error) {
	return ms.keys(prefix), nil
}

// Open returns a ReadAtCloser and the size of the given item. Items being
// written are not visible until they are closed.
func (ms *Memory) Open(key string) (ReadAtCloser, int64, error) {
	ms.m.RLock()
	v, ok := ms.store[key]
	ms.m.RUnlock()
	if !ok || !v.done {
		return nil, 0, errors.Wrap(ErrNotExist, key)
	}
	return &memReader{b: v.b}, int64(len(v.b)), nil
}

// A buf is written by a single goroutine and never changes once done.
type buf struct {
	ms   *Memory
	key  string
	b    []byte
	done bool
}

func (w *buf) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

func (w *buf) Close() error {
	w.ms.m.Lock()
	w.done = true
	w.ms.m.Unlock()
	return nil
}

type memReader struct {
	b []byte
}

func (r *memReader) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r.b)) {
		return 0, io.EOF
	}
	n := copy(p, r.b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (r *memReader) Close() error { return nil }

// Create makes a new entry in the store, and returns a writer to save data
// into it.
func (ms *Memory) Create(key string) (io.WriteCloser, error) {
	if err := CheckKey(key); err != nil {
		return nil, err
	}
	ms.m.Lock()
	defer ms.m.Unlock()
	if _, ok := ms.store[key]; ok {
		return nil, errors.Wrap(ErrKeyExists, key)
	}
	w := &buf{ms: ms, key: key}
	ms.store[key] = w
	return w, nil
}

// Delete the given key from the store. It is not an error if the item does
// not exist in the store.
func (ms *Memory) Delete(key string) error {
	ms.m.Lock()
	delete(ms.store, key)
	ms.m.Unlock()
	return nil
}

// Dump writes a listing of the contents of the store to the given writer.
// This is intended for testing and debugging.
func (ms *Memory) Dump(w io.Writer) {
	for _, k := range ms.keys("") {
		ms.m.RLock()
		s := ms.store[k].b
		ms.m.RUnlock()
		if len(s) > 50 {
			s = s[:50]
		}
		fmt.Fprintf(w, "%s: %s\n", k, string(s))
	}
}
