package util

import (
	"bytes"
	"io"
	"io/ioutil"
	"testing"
	"time"
)

func TestRateCounterLimits(t *testing.T) {
	// 10 KB at 20 KB/s with a small read buffer should take around half
	// a second
	rc := NewRateCounterInterval(20000, 50*time.Millisecond)
	defer rc.Stop()
	src := bytes.NewReader(make([]byte, 10000))
	start := time.Now()
	n, err := io.CopyBuffer(ioutil.Discard, rc.Wrap(src), make([]byte, 500))
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	if n != 10000 {
		t.Errorf("Received %d bytes, expected %d", n, 10000)
	}
	if elapsed < 200*time.Millisecond {
		t.Errorf("Copy took %v, expected at least 200ms", elapsed)
	}
}

func TestRateCounterStop(t *testing.T) {
	rc := NewRateCounterInterval(1, time.Hour)
	rc.Use(10000)
	r := rc.Wrap(bytes.NewReader(make([]byte, 100)))
	done := make(chan error)
	go func() {
		buf := make([]byte, 10)
		for {
			if _, err := r.Read(buf); err != nil {
				done <- err
				return
			}
		}
	}()
	time.Sleep(10 * time.Millisecond)
	rc.Stop()
	select {
	case err := <-done:
		if err != ErrStopped {
			t.Errorf("Received %v, expected %v", err, ErrStopped)
		}
	case <-time.After(time.Second):
		t.Errorf("Read did not return after Stop")
	}
}
