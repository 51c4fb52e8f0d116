package util

import (
	"errors"
	"io"
	"sync"
	"time"
)

// A RateCounter keeps the number of bytes read by a group of readers under
// a limit. Credits are added to a pool every interval, and readers remove
// credits as they read. If the pool goes negative readers wait until it is
// refilled.
type RateCounter struct {
	c       chan struct{} // receives when credits are positive
	stop    chan struct{} // closed to tell the adder goroutine to exit
	m       sync.Mutex    // protects below
	credits int64
}

// DefaultRateInterval is the time between refills of the credit pool. The
// shorter it is the more often readers wake, the longer it is the burstier
// the transfer.
const DefaultRateInterval = 250 * time.Millisecond

// NewRateCounter returns a counter allowing about rate bytes per second.
func NewRateCounter(rate float64) *RateCounter {
	return NewRateCounterInterval(rate, DefaultRateInterval)
}

// NewRateCounterInterval returns a counter allowing about rate bytes per
// second, with credits added every interval.
func NewRateCounterInterval(rate float64, interval time.Duration) *RateCounter {
	amount := int64(rate * interval.Seconds())
	if amount < 1 {
		amount = 1
	}
	r := &RateCounter{
		c:       make(chan struct{}),
		stop:    make(chan struct{}),
		credits: amount,
	}
	go r.adder(amount, interval)
	return r
}

// Use some number of credits. It is okay if it takes this counter negative.
func (r *RateCounter) Use(count int64) {
	r.m.Lock()
	r.credits -= count
	r.m.Unlock()
}

// OK returns a channel which receives an empty struct when it is fine to
// continue reading. The channel is closed once the RateCounter is stopped.
func (r *RateCounter) OK() <-chan struct{} {
	return r.c
}

// Stop the background goroutine refilling the RateCounter. Will panic if
// called twice.
func (r *RateCounter) Stop() {
	close(r.stop)
}

func (r *RateCounter) adder(amount int64, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		var signal chan struct{}
		r.m.Lock()
		if r.credits > 0 {
			signal = r.c
		}
		r.m.Unlock()
		select {
		case <-tick.C:
			r.m.Lock()
			// don't let an idle counter bank more than one refill
			r.credits += amount
			if r.credits > amount {
				r.credits = amount
			}
			r.m.Unlock()
		case signal <- struct{}{}:
		case <-r.stop:
			close(r.c)
			return
		}
	}
}

// Wrap returns a reader whose reads are limited by this RateCounter. More than
// one goroutine may share the same RateCounter. Once the RateCounter is
// stopped reads fail with ErrStopped.
func (r *RateCounter) Wrap(reader io.Reader) io.Reader {
	return rateReader{reader: reader, rate: r}
}

// ErrStopped means a read failed because the governing rate counter was stopped.
var ErrStopped = errors.New("RateCounter stopped")

type rateReader struct {
	reader io.Reader
	rate   *RateCounter
}

func (r rateReader) Read(p []byte) (int, error) {
	_, ok := <-r.rate.OK()
	if !ok {
		return 0, ErrStopped
	}
	n, err := r.reader.Read(p)
	r.rate.Use(int64(n))
	return n, err
}
