package storetest

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ndlib/foxtools/store"
)

type blob struct {
	key  string
	hash []byte
	size int64
}

// Stress will spawn goroutines to simultaneously write to and read from the
// given store, the way a pool of export workers does. It is a good test to
// run with the -race flag.
//
// A list of sizes is generated until their sum is >= totalsize. For each
// size a random blob is uploaded under a key of the form "dir/n", then
// downloaded and compared. Every blob is deleted at the end.
func Stress(t *testing.T, s store.Store, totalsize int64) {
	if totalsize == 0 {
		totalsize = 100 * 1000 * 1000
	}
	sizes := make(chan int64)
	dwnld := make(chan blob, 1000)
	var uppool, downpool sync.WaitGroup
	var counter int64

	for i := 0; i < 5; i++ {
		uppool.Add(1)
		go func() {
			uploader(t, s, sizes, dwnld, &counter)
			uppool.Done()
		}()
	}
	for i := 0; i < 10; i++ {
		downpool.Add(1)
		go func() {
			downloader(t, s, dwnld)
			downpool.Done()
		}()
	}

	generatesizes(sizes, totalsize)
	close(sizes)
	uppool.Wait()
	close(dwnld)
	downpool.Wait()
}

// randomReader provides n bytes of data by repeating data.
type randomReader struct {
	n    int64
	data []byte
}

func (r *randomReader) Read(p []byte) (int, error) {
	if r.n <= 0 {
		return 0, io.EOF
	}
	total := 0
	for len(p) > 0 && r.n > 0 {
		data := r.data
		if r.n < int64(len(data)) {
			data = data[:int(r.n)]
		}
		n := copy(p, data)
		p = p[n:]
		r.n -= int64(n)
		total += n
	}
	return total, nil
}

func uploader(t *testing.T, s store.Store, in <-chan int64, out chan<- blob, counter *int64) {
	h := md5.New()
	buffer := make([]byte, 64*1024)
	for size := range in {
		h.Reset()
		rand.Read(buffer)
		n := atomic.AddInt64(counter, 1)
		key := fmt.Sprintf("dir%d/%d.bin", n%7, n)
		w, err := s.Create(key)
		if err != nil {
			t.Error(err)
			continue
		}
		mw := io.MultiWriter(h, w)
		written, err := io.Copy(mw, &randomReader{data: buffer, n: size})
		if written != size {
			t.Error("expected", size, "only wrote", written)
		}
		if err != nil {
			t.Error(err)
		}
		if err = w.Close(); err != nil {
			t.Error(key, size, err)
			continue
		}
		out <- blob{key: key, hash: h.Sum(nil), size: size}
	}
}

func downloader(t *testing.T, s store.Store, in <-chan blob) {
	h := md5.New()
	for blob := range in {
		rac, size, err := s.Open(blob.key)
		if err != nil {
			t.Error(err)
			continue
		}
		if size != blob.size {
			t.Error("Expected", blob.size, "Open() returned", size)
		}
		h.Reset()
		n, err := io.Copy(h, store.NewReader(rac))
		if err != nil {
			t.Error(err)
		}
		if n != size {
			t.Error("Expected", size, "but read", n)
		}
		rac.Close()
		if !bytes.Equal(blob.hash, h.Sum(nil)) {
			t.Errorf("hashes unequal. %#v. Received %x", blob, h.Sum(nil))
		}
		if err := s.Delete(blob.key); err != nil {
			t.Error(err)
		}
	}
}

func generatesizes(out chan<- int64, totalsize int64) {
	// We want a wide range of sizes, so generate the exponent of the size
	// uniformly at random.
	for totalsize > 0 {
		x := 16 * rand.Float64()
		size := int64(math.Trunc(math.Exp(x)))
		out <- size
		totalsize -= size
	}
}
