package analyzer

import (
	"sync/atomic"
)

// ProgressFunc is called to report analysis progress.
// current is the number of snapshots compared, total is the number known so
// far, and source is the source the last snapshot came from.
type ProgressFunc func(current, total int, source string)

// Tracker tracks progress across sources read in parallel.
// It is safe for concurrent use from multiple goroutines.
type Tracker struct {
	total    atomic.Int32
	current  atomic.Int32
	callback ProgressFunc
}

// NewTracker creates a new progress tracker with the given callback.
// A nil callback is allowed.
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Add increments the total count by n. Sources call this once they know
// how many snapshots they will compare.
func (t *Tracker) Add(n int) {
	t.total.Add(int32(n))
}

// Tick marks one snapshot of source as compared and invokes the callback.
func (t *Tracker) Tick(source string) {
	current := int(t.current.Add(1))
	total := int(t.total.Load())
	if t.callback != nil {
		t.callback(current, total, source)
	}
}

// Current returns the current progress count.
func (t *Tracker) Current() int {
	return int(t.current.Load())
}

// Total returns the total count.
func (t *Tracker) Total() int {
	return int(t.total.Load())
}
