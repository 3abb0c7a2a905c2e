package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Ning0612/drivemirror/internal/domain"
)

// Reporter tracks file-level job completion across the whole walk
// Implementations must be safe for concurrent use by download workers
type Reporter interface {
	// AddTotal announces files that were scheduled for one folder level
	AddTotal(files int)
	// FileDone records one job reaching a terminal state
	FileDone(outcome domain.FetchOutcome)
}

// Callback is a function that receives progress updates
type Callback func(snapshot Snapshot)

// Snapshot is a point-in-time view of the counters
type Snapshot struct {
	Total      int64
	Completed  int64
	Downloaded int64
	Skipped    int64
	Failed     int64
}

// Tracker implements Reporter with atomic counters
// Snapshots handed to the callback are taken and delivered under one lock,
// so the callback sees non-decreasing counts
type Tracker struct {
	notifyMu   sync.Mutex
	total      atomic.Int64
	completed  atomic.Int64
	downloaded atomic.Int64
	skipped    atomic.Int64
	failed     atomic.Int64
	callback   Callback
}

// NewTracker creates a tracker; callback may be nil
func NewTracker(callback Callback) *Tracker {
	return &Tracker{callback: callback}
}

// AddTotal grows the expected file count
func (t *Tracker) AddTotal(files int) {
	if files <= 0 {
		return
	}
	t.total.Add(int64(files))
	t.notify()
}

// FileDone increments the completion counter exactly once per call
func (t *Tracker) FileDone(outcome domain.FetchOutcome) {
	switch outcome {
	case domain.OutcomeDownloaded:
		t.downloaded.Add(1)
	case domain.OutcomeSkipped:
		t.skipped.Add(1)
	default:
		t.failed.Add(1)
	}
	t.completed.Add(1)
	t.notify()
}

// Snapshot returns the current counter values
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Total:      t.total.Load(),
		Completed:  t.completed.Load(),
		Downloaded: t.downloaded.Load(),
		Skipped:    t.skipped.Load(),
		Failed:     t.failed.Load(),
	}
}

func (t *Tracker) notify() {
	if t.callback == nil {
		return
	}
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()
	t.callback(t.Snapshot())
}

// Bar renders snapshots as a single terminal progress line
type Bar struct {
	mu       sync.Mutex
	out      io.Writer
	width    int
	label    string
	lastLine string
}

// NewBar creates a bar writing to out
func NewBar(out io.Writer, label string, width int) *Bar {
	if width <= 0 {
		width = 30
	}
	return &Bar{out: out, label: label, width: width}
}

// Render redraws the bar; identical consecutive lines are not rewritten
func (b *Bar) Render(s Snapshot) {
	line := fmt.Sprintf("%s %s %d/%d files", b.label, FormatProgress(s.Completed, s.Total, b.width), s.Completed, s.Total)
	if s.Failed > 0 {
		line += fmt.Sprintf(" (%d failed)", s.Failed)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if line == b.lastLine {
		return
	}
	// Pad so a shorter line fully overwrites the previous one
	pad := ""
	if len(b.lastLine) > len(line) {
		pad = strings.Repeat(" ", len(b.lastLine)-len(line))
	}
	fmt.Fprintf(b.out, "\r%s%s", line, pad)
	b.lastLine = line
}

// Finish terminates the progress line
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastLine != "" {
		fmt.Fprintln(b.out)
		b.lastLine = ""
	}
}

// NullReporter is a no-op reporter
type NullReporter struct{}

func (NullReporter) AddTotal(files int)                   {}
func (NullReporter) FileDone(outcome domain.FetchOutcome) {}

// FormatBytes formats bytes into human-readable string
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatProgress returns a progress bar string
func FormatProgress(current, total int64, width int) string {
	if total == 0 {
		return ""
	}

	percent := float64(current) / float64(total)
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}

	bar := make([]byte, width)
	for i := 0; i < width; i++ {
		if i < filled {
			bar[i] = '='
		} else if i == filled {
			bar[i] = '>'
		} else {
			bar[i] = ' '
		}
	}

	return fmt.Sprintf("[%s] %5.1f%%", string(bar), percent*100)
}
