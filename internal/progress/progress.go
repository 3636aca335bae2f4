package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Tracker wraps a progress bar for history reads.
type Tracker struct {
	mu    sync.Mutex
	bar   *progressbar.ProgressBar
	label string
	out   io.Writer
	max   int
}

// NewSpinner creates a spinner that turns into a bar once Update reports a
// total.
func NewSpinner(label string) *Tracker {
	return newTracker(os.Stderr, label)
}

func newTracker(out io.Writer, label string) *Tracker {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return &Tracker{bar: bar, label: label, out: out, max: -1}
}

// Update reports that current of total snapshots are done, the last from
// source. It matches analyzer.ProgressFunc and is safe for concurrent use.
func (t *Tracker) Update(current, total int, source string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if total > 0 && total != t.max {
		t.bar.ChangeMax(total)
		t.max = total
	}
	t.bar.Describe(t.label + " " + filepath.Base(source))
	_ = t.bar.Set(current)
}

// FinishSuccess clears the bar completely (no output).
func (t *Tracker) FinishSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.bar.Finish()
	_ = t.bar.Clear()
}

// FinishError clears the bar and prints an error message.
func (t *Tracker) FinishError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.bar.Finish()
	_ = t.bar.Clear()
	fmt.Fprintf(t.out, "  %s error: %v\n", t.label, err)
}
