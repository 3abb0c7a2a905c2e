package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ning0612/drivemirror/internal/domain"
)

// gaugeHandler records how many handlers run at the same time
type gaugeHandler struct {
	delay   time.Duration
	current atomic.Int64
	peak    atomic.Int64

	mu   sync.Mutex
	seen map[string]int
}

func newGaugeHandler(delay time.Duration) *gaugeHandler {
	return &gaugeHandler{delay: delay, seen: make(map[string]int)}
}

func (g *gaugeHandler) handle(ctx context.Context, job domain.DownloadJob) domain.FetchResult {
	n := g.current.Add(1)
	for {
		peak := g.peak.Load()
		if n <= peak || g.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(g.delay)
	g.current.Add(-1)

	g.mu.Lock()
	g.seen[job.FileID]++
	g.mu.Unlock()

	return domain.FetchResult{Job: job, Outcome: domain.OutcomeDownloaded, Bytes: 1}
}

func makeJobs(n int) []domain.DownloadJob {
	jobs := make([]domain.DownloadJob, n)
	for i := range jobs {
		jobs[i] = domain.DownloadJob{FileID: fmt.Sprintf("f%d", i), FileName: fmt.Sprintf("file%d.bin", i)}
	}
	return jobs
}

func TestNew_NormalizesConcurrency(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: 0, want: DefaultConcurrency},
		{in: -3, want: DefaultConcurrency},
		{in: 1, want: 1},
		{in: 16, want: 16},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.in), func(t *testing.T) {
			if got := New(tt.in, nil).Concurrency(); got != tt.want {
				t.Errorf("Concurrency() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRunLevel_BoundsConcurrency(t *testing.T) {
	for _, limit := range []int{1, 2, 4} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			s := New(limit, nil)
			h := newGaugeHandler(20 * time.Millisecond)

			results := s.RunLevel(context.Background(), makeJobs(12), h.handle)

			if len(results) != 12 {
				t.Fatalf("got %d results, want 12", len(results))
			}
			if peak := h.peak.Load(); peak > int64(limit) {
				t.Errorf("peak concurrency = %d, limit %d", peak, limit)
			}
			if limit > 1 && h.peak.Load() < 2 {
				t.Errorf("jobs never overlapped (peak %d)", h.peak.Load())
			}
		})
	}
}

func TestRunLevel_EveryJobRunsOnce(t *testing.T) {
	s := New(3, nil)
	h := newGaugeHandler(time.Millisecond)
	jobs := makeJobs(25)

	s.RunLevel(context.Background(), jobs, h.handle)

	if h.current.Load() != 0 {
		t.Errorf("RunLevel returned with %d handlers still running", h.current.Load())
	}
	for _, job := range jobs {
		if h.seen[job.FileID] != 1 {
			t.Errorf("job %s ran %d times", job.FileID, h.seen[job.FileID])
		}
	}
}

func TestRunLevel_Empty(t *testing.T) {
	s := New(2, nil)
	called := false

	results := s.RunLevel(context.Background(), nil, func(ctx context.Context, job domain.DownloadJob) domain.FetchResult {
		called = true
		return domain.FetchResult{}
	})

	if results != nil || called {
		t.Errorf("empty level produced results=%v called=%v", results, called)
	}
	if s.Status().Levels != 0 {
		t.Error("empty level counted in status")
	}
}

func TestRunLevel_Status(t *testing.T) {
	s := New(2, nil)
	outcomes := []domain.FetchOutcome{domain.OutcomeDownloaded, domain.OutcomeSkipped, domain.OutcomeFailed}
	handler := func(ctx context.Context, job domain.DownloadJob) domain.FetchResult {
		var i int
		fmt.Sscanf(job.FileID, "f%d", &i)
		return domain.FetchResult{Job: job, Outcome: outcomes[i%3]}
	}

	s.RunLevel(context.Background(), makeJobs(3), handler)
	s.RunLevel(context.Background(), makeJobs(6), handler)

	status := s.Status()
	if status.Levels != 2 || status.Jobs != 9 {
		t.Errorf("Levels=%d Jobs=%d, want 2 and 9", status.Levels, status.Jobs)
	}
	if status.Downloaded != 3 || status.Skipped != 3 || status.Failed != 3 {
		t.Errorf("status = %+v", status)
	}
	if status.Concurrency != 2 {
		t.Errorf("Concurrency = %d", status.Concurrency)
	}
}

func TestSummarize(t *testing.T) {
	results := []domain.FetchResult{
		{Outcome: domain.OutcomeDownloaded, Bytes: 10},
		{Outcome: domain.OutcomeDownloaded, Bytes: 5},
		{Outcome: domain.OutcomeSkipped},
		{Outcome: domain.OutcomeFailed, Err: domain.ErrFetchFailed},
	}

	got := Summarize(results)
	want := LevelSummary{Jobs: 4, Downloaded: 2, Skipped: 1, Failed: 1, Bytes: 15}
	if got != want {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}
}
