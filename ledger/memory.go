package ledger

import (
	"sync"
	"time"
)

// Memory is a Ledger kept in memory. It is lost when the process exits.
type Memory struct {
	m       sync.Mutex
	entries []Entry
}

var _ Ledger = &Memory{}

// NewMemory returns an empty Memory ledger.
func NewMemory() *Memory {
	return &Memory{}
}

func (ml *Memory) Record(e Entry) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	ml.m.Lock()
	ml.entries = append(ml.entries, e)
	ml.m.Unlock()
	return nil
}

func (ml *Memory) List(what string) ([]Entry, error) {
	var result []Entry
	ml.m.Lock()
	for _, e := range ml.entries {
		if e.What == what {
			result = append(result, e)
		}
	}
	ml.m.Unlock()
	return result, nil
}

func (ml *Memory) Failed(what string) ([]string, error) {
	entries, _ := ml.List(what)
	return latestFailed(entries), nil
}

func (ml *Memory) Close() error { return nil }
