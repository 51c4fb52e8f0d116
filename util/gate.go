package util

import "sync"

// A Gate limits concurrency. Every gate has a maximum number of goroutines
// to allow through at a time. Goroutines enter the gate by calling Enter(),
// and signal that they are done by calling Leave(). A gate may be stopped,
// after which every pending and future Enter fails.
type Gate struct {
	c    chan struct{}
	stop chan struct{}
	once sync.Once
}

// NewGate returns a Gate which accepts at most n entries at a time.
func NewGate(n int) *Gate {
	if n < 1 {
		n = 1
	}
	return &Gate{
		c:    make(chan struct{}, n),
		stop: make(chan struct{}),
	}
}

// Enter blocks the calling goroutine until there are less than n goroutines
// inside the gate. It returns false without entering if the gate was stopped.
// It is safe to call this from multiple goroutines.
func (g *Gate) Enter() bool {
	select {
	case <-g.stop:
		return false
	default:
	}
	select {
	case g.c <- struct{}{}:
		return true
	case <-g.stop:
		return false
	}
}

// Leave marks a goroutine outside the critical section. Each successful call
// to Enter must be balanced with a call to Leave, though not necessarily
// from the same goroutine.
func (g *Gate) Leave() {
	<-g.c
}

// Stop fails every goroutine waiting to enter and then waits for the
// goroutines inside the gate to leave. It may be called more than once.
func (g *Gate) Stop() {
	g.once.Do(func() {
		close(g.stop)
		for i := 0; i < cap(g.c); i++ {
			g.c <- struct{}{}
		}
	})
}

// Stopped reports whether Stop has been called.
func (g *Gate) Stopped() bool {
	select {
	case <-g.stop:
		return true
	default:
		return false
	}
}
