// Package scheduler runs the download jobs of one folder level on a bounded worker pool.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/Ning0612/drivemirror/internal/domain"
	"github.com/Ning0612/drivemirror/internal/logger"
)

// DefaultConcurrency is the worker count used when none (or a non-positive one) is given
const DefaultConcurrency = 4

// Handler performs one job and always returns a terminal result
type Handler func(ctx context.Context, job domain.DownloadJob) domain.FetchResult

// Status represents the cumulative state of a scheduler
type Status struct {
	Concurrency   int
	Levels        int
	Jobs          int
	Downloaded    int
	Skipped       int
	Failed        int
	LastLevelTime time.Duration
}

// LevelSummary folds the results of one level
type LevelSummary struct {
	Jobs       int
	Downloaded int
	Skipped    int
	Failed     int
	Bytes      int64
}

// Scheduler bounds how many jobs of a level are in flight at once
type Scheduler struct {
	concurrency int
	log         logger.Logger

	mu    sync.RWMutex
	stats Status
}

// New creates a scheduler; concurrency < 1 falls back to DefaultConcurrency
func New(concurrency int, log logger.Logger) *Scheduler {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Scheduler{
		concurrency: concurrency,
		log:         logger.OrNull(log),
		stats:       Status{Concurrency: concurrency},
	}
}

// Concurrency returns the worker limit
func (s *Scheduler) Concurrency() int {
	return s.concurrency
}

// RunLevel executes every job and blocks until all of them reached a terminal state
// Submission blocks while the pool is saturated. Results are not ordered.
func (s *Scheduler) RunLevel(ctx context.Context, jobs []domain.DownloadJob, handler Handler) []domain.FetchResult {
	if len(jobs) == 0 {
		return nil
	}

	start := time.Now()
	s.log.Debug("dispatching level", "jobs", len(jobs), "workers", s.concurrency)

	p := pool.NewWithResults[domain.FetchResult]().WithMaxGoroutines(s.concurrency)
	for _, job := range jobs {
		p.Go(func() domain.FetchResult {
			return handler(ctx, job)
		})
	}
	results := p.Wait()

	summary := Summarize(results)
	elapsed := time.Since(start)

	s.mu.Lock()
	s.stats.Levels++
	s.stats.Jobs += summary.Jobs
	s.stats.Downloaded += summary.Downloaded
	s.stats.Skipped += summary.Skipped
	s.stats.Failed += summary.Failed
	s.stats.LastLevelTime = elapsed
	s.mu.Unlock()

	s.log.Debug("level finished",
		"jobs", summary.Jobs,
		"downloaded", summary.Downloaded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"duration", elapsed)

	return results
}

// Status returns the cumulative counters across all levels run so far
func (s *Scheduler) Status() *Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := s.stats
	return &status
}

// Summarize counts results by outcome
func Summarize(results []domain.FetchResult) LevelSummary {
	summary := LevelSummary{Jobs: len(results)}
	for _, r := range results {
		switch r.Outcome {
		case domain.OutcomeDownloaded:
			summary.Downloaded++
			summary.Bytes += r.Bytes
		case domain.OutcomeSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}
	return summary
}
