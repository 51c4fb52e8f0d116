package export

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/facebookgo/clock"
)

// Progress is a stats.Client which keeps a one line status of an export
// up to date on a terminal. It only looks at the export counters and
// ignores other keys.
type Progress struct {
	Out   io.Writer
	Total int // number of jobs, if known
	Clock clock.Clock

	m       sync.Mutex
	start   time.Time
	ok      int
	failed  int
	skipped int
	bytes   int64
}

// NewProgress returns a Progress writing to out for a run of total jobs.
func NewProgress(out io.Writer, total int) *Progress {
	return &Progress{Out: out, Total: total}
}

func (p *Progress) now() time.Time {
	if p.Clock == nil {
		return time.Now()
	}
	return p.Clock.Now()
}

// BumpSum updates the counter for key and redraws the status line.
func (p *Progress) BumpSum(key string, val float64) {
	p.m.Lock()
	defer p.m.Unlock()
	if p.start.IsZero() {
		p.start = p.now()
	}
	switch key {
	case StatOK:
		p.ok += int(val)
	case StatFailed:
		p.failed += int(val)
	case StatSkipped:
		p.skipped += int(val)
	case StatBytes:
		p.bytes += int64(val)
		return
	default:
		return
	}
	fmt.Fprint(p.Out, "\r", p.line())
}

// BumpAvg does nothing.
func (p *Progress) BumpAvg(key string, val float64) {}

// BumpHistogram does nothing.
func (p *Progress) BumpHistogram(key string, val float64) {}

// BumpTime starts the clock on the first call.
func (p *Progress) BumpTime(key string) interface {
	End()
} {
	p.m.Lock()
	if p.start.IsZero() {
		p.start = p.now()
	}
	p.m.Unlock()
	return nopEnd{}
}

type nopEnd struct{}

func (nopEnd) End() {}

// Finish ends the status line.
func (p *Progress) Finish() {
	p.m.Lock()
	defer p.m.Unlock()
	fmt.Fprint(p.Out, "\r", p.line(), "\n")
}

// line must be called with p.m held.
func (p *Progress) line() string {
	done := p.ok + p.failed + p.skipped
	s := fmt.Sprintf("%d", done)
	if p.Total > 0 {
		s = fmt.Sprintf("%d/%d", done, p.Total)
	}
	s += fmt.Sprintf(" done, %d failed, %d skipped, %s",
		p.failed, p.skipped, humanize.Bytes(uint64(p.bytes)))
	if !p.start.IsZero() {
		elapsed := p.now().Sub(p.start).Seconds()
		if elapsed >= 1 {
			s += fmt.Sprintf(" (%s/s)", humanize.Bytes(uint64(float64(p.bytes)/elapsed)))
		}
	}
	return s
}

// String describes the summary in one line.
func (s Summary) String() string {
	return fmt.Sprintf("%d ok, %d failed, %d skipped, %s in %s",
		s.OK, s.Failed, s.Skipped,
		humanize.Bytes(uint64(s.Bytes)), s.Elapsed.Round(time.Millisecond))
}
