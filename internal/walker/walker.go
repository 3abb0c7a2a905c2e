// Package walker mirrors a remote folder tree level by level.
//
// Every folder moves through Listing, Dispatching and DescendingChildren before
// it is Done. The files of one folder are downloaded concurrently by the
// scheduler and the walker waits for all of them before descending. Child
// folders are visited depth-first from an explicit stack, so arbitrarily deep
// trees never grow the goroutine stack.
package walker

import (
	"context"
	"errors"
	"time"

	"github.com/Ning0612/drivemirror/internal/adapter"
	"github.com/Ning0612/drivemirror/internal/adapter/local"
	"github.com/Ning0612/drivemirror/internal/domain"
	"github.com/Ning0612/drivemirror/internal/fetcher"
	"github.com/Ning0612/drivemirror/internal/logger"
	"github.com/Ning0612/drivemirror/internal/progress"
	"github.com/Ning0612/drivemirror/internal/scheduler"
)

// State is the lifecycle stage of one folder
type State int

const (
	StateListing State = iota
	StateDispatching
	StateDescendingChildren
	StateDone
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateListing:
		return "listing"
	case StateDispatching:
		return "dispatching"
	case StateDescendingChildren:
		return "descending_children"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Summary aggregates a whole walk
type Summary struct {
	Folders       int
	FailedFolders int
	Files         int
	Downloaded    int
	Skipped       int
	Failed        int
	Bytes         int64
	Duration      time.Duration
}

// Walker drives the traversal
type Walker struct {
	lister    adapter.Lister
	fetcher   *fetcher.Fetcher
	scheduler *scheduler.Scheduler
	store     *local.Store
	reporter  progress.Reporter
	log       logger.Logger
}

// Option configures a Walker
type Option func(*Walker)

// WithReporter sets the reporter whose total grows as folders are listed
// It should be the same reporter the fetcher completes files on
func WithReporter(r progress.Reporter) Option {
	return func(w *Walker) {
		if r != nil {
			w.reporter = r
		}
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(w *Walker) {
		w.log = logger.OrNull(l)
	}
}

// New creates a walker
func New(lister adapter.Lister, f *fetcher.Fetcher, s *scheduler.Scheduler, store *local.Store, opts ...Option) *Walker {
	w := &Walker{
		lister:    lister,
		fetcher:   f,
		scheduler: s,
		store:     store,
		reporter:  progress.NullReporter{},
		log:       &logger.NullLogger{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Walk mirrors the folder rootID into localRoot
// Failures are contained to the job or subtree they occur in and only show up in the summary.
// The one exception is rejected credentials: they would fail every remaining listing,
// so the walk stops and returns a *domain.AuthError.
func (w *Walker) Walk(ctx context.Context, rootID, localRoot string) (Summary, error) {
	start := time.Now()
	var summary Summary

	stack := []domain.TraversalTask{{FolderID: rootID, LocalPath: localRoot}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			w.log.Warn("walk interrupted", "pending_folders", len(stack), "error", err)
			break
		}

		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := w.visit(ctx, task, &summary)
		if err != nil {
			w.log.Error("credentials rejected, stopping walk", "folder_id", task.FolderID, "pending_folders", len(stack), "error", err)
			summary.Duration = time.Since(start)
			return summary, &domain.AuthError{Err: err}
		}

		// Reverse order so the first listed child is popped first
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

// visit runs one folder through its states and returns the child folders to descend into
// The error is non-nil only for an authentication failure
func (w *Walker) visit(ctx context.Context, task domain.TraversalTask, summary *Summary) ([]domain.TraversalTask, error) {
	log := w.log.With("folder_id", task.FolderID, "path", task.LocalPath, "depth", task.Depth)
	summary.Folders++

	if err := w.store.EnsureDir(task.LocalPath); err != nil {
		log.Error("cannot create local directory", "error", err)
		summary.FailedFolders++
		return nil, nil
	}

	state := StateListing
	transition := func(next State) {
		log.Debug("folder state", "from", state, "to", next)
		state = next
	}

	entries, err := w.lister.List(ctx, task.FolderID)
	if err != nil {
		summary.FailedFolders++
		transition(StateDone)
		if isAuthFailure(err) {
			return nil, err
		}
		log.Error("failed to list folder", "error", err)
		return nil, nil
	}
	if len(entries) == 0 {
		log.Info("folder is empty")
		transition(StateDone)
		return nil, nil
	}

	files, folders := domain.Partition(entries)

	transition(StateDispatching)
	w.dispatch(ctx, task, files, summary, log)

	transition(StateDescendingChildren)
	children := make([]domain.TraversalTask, 0, len(folders))
	for _, folder := range folders {
		path, err := w.store.Join(task.LocalPath, folder.Name)
		if err != nil {
			log.Error("skipping folder with unsafe name", "name", folder.Name, "error", err)
			summary.Folders++
			summary.FailedFolders++
			continue
		}
		children = append(children, domain.TraversalTask{
			FolderID:  folder.ID,
			LocalPath: path,
			Depth:     task.Depth + 1,
		})
	}

	transition(StateDone)
	return children, nil
}

func isAuthFailure(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrAuth)
}

// dispatch downloads the files of one folder and blocks until all are terminal
func (w *Walker) dispatch(ctx context.Context, task domain.TraversalTask, files []domain.RemoteEntry, summary *Summary, log logger.Logger) {
	if len(files) == 0 {
		return
	}

	summary.Files += len(files)
	w.reporter.AddTotal(len(files))

	jobs := make([]domain.DownloadJob, 0, len(files))
	claimed := make(map[string]bool, len(files))
	for _, file := range files {
		path, err := w.store.Join(task.LocalPath, file.Name)
		if err != nil {
			log.Error("skipping file with unsafe name", "file_id", file.ID, "name", file.Name, "error", err)
			summary.Failed++
			w.reporter.FileDone(domain.OutcomeFailed)
			continue
		}

		// Two remote files mapping to the same local name: the first one wins
		if claimed[path] {
			log.Warn("duplicate name in folder, skipping", "file_id", file.ID, "name", file.Name)
			summary.Skipped++
			w.reporter.FileDone(domain.OutcomeSkipped)
			continue
		}
		claimed[path] = true

		jobs = append(jobs, domain.NewDownloadJob(file, path))
	}

	results := w.scheduler.RunLevel(ctx, jobs, w.fetcher.Fetch)
	level := scheduler.Summarize(results)

	summary.Downloaded += level.Downloaded
	summary.Skipped += level.Skipped
	summary.Failed += level.Failed
	summary.Bytes += level.Bytes
}
