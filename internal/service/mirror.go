// Package service wires the mirror components into a single run.
package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/Ning0612/drivemirror/internal/adapter"
	"github.com/Ning0612/drivemirror/internal/adapter/gdrive"
	"github.com/Ning0612/drivemirror/internal/adapter/local"
	"github.com/Ning0612/drivemirror/internal/fetcher"
	"github.com/Ning0612/drivemirror/internal/lock"
	"github.com/Ning0612/drivemirror/internal/logger"
	"github.com/Ning0612/drivemirror/internal/progress"
	"github.com/Ning0612/drivemirror/internal/scheduler"
	"github.com/Ning0612/drivemirror/internal/state"
	"github.com/Ning0612/drivemirror/internal/walker"
)

// Options configures a MirrorService
type Options struct {
	// Verify enables MD5 verification of downloads
	Verify bool

	// Reporter receives file totals and completions; nil disables progress
	Reporter progress.Reporter

	// History records finished runs; nil disables history
	History *state.Manager

	Logger logger.Logger
}

// Result describes one finished run
type Result struct {
	RunID       string
	FolderID    string
	Destination string
	Status      string
	Summary     walker.Summary
}

// MirrorService orchestrates mirror runs against one remote
type MirrorService struct {
	remote   adapter.Remote
	verify   bool
	reporter progress.Reporter
	history  *state.Manager
	log      logger.Logger
}

// NewMirrorService creates a service that mirrors from remote
func NewMirrorService(remote adapter.Remote, opts Options) (*MirrorService, error) {
	if remote == nil {
		return nil, fmt.Errorf("remote cannot be nil")
	}

	reporter := opts.Reporter
	if reporter == nil {
		reporter = progress.NullReporter{}
	}

	return &MirrorService{
		remote:   remote,
		verify:   opts.Verify,
		reporter: reporter,
		history:  opts.History,
		log:      logger.OrNull(opts.Logger),
	}, nil
}

// Run mirrors the folder behind ref into dest using at most workers concurrent downloads
//
// Fatal problems (malformed reference, unusable destination, destination locked,
// rejected credentials, interruption) are returned as errors. Individual file and folder failures are
// not: they are logged and counted in the result.
func (s *MirrorService) Run(ctx context.Context, ref, dest string, workers int) (*Result, error) {
	folderID, err := gdrive.ParseFolderReference(ref)
	if err != nil {
		s.log.Error("invalid folder reference", "reference", ref, "error", err)
		return nil, err
	}

	result := &Result{
		RunID:    uuid.NewString(),
		FolderID: folderID,
	}
	log := s.log.With("run_id", result.RunID, "folder_id", folderID)
	start := time.Now()

	store, err := local.New(dest)
	if err != nil {
		return nil, s.abort(log, result, start, fmt.Errorf("invalid destination: %w", err))
	}
	result.Destination = store.Root()

	if err := store.EnsureDir(store.Root()); err != nil {
		return nil, s.abort(log, result, start, fmt.Errorf("failed to create destination: %w", err))
	}

	destLock, err := lock.New(store.Root())
	if err != nil {
		return nil, s.abort(log, result, start, fmt.Errorf("failed to create destination lock: %w", err))
	}
	if err := destLock.Acquire(result.RunID, folderID); err != nil {
		return nil, s.abort(log, result, start, err)
	}
	defer func() {
		if err := destLock.Release(); err != nil {
			log.Warn("failed to release destination lock", "error", err)
		}
	}()

	sched := scheduler.New(workers, log)
	f := fetcher.New(s.remote, store,
		fetcher.WithReporter(s.reporter),
		fetcher.WithLogger(log),
		fetcher.WithVerify(s.verify),
	)
	w := walker.New(s.remote, f, sched, store,
		walker.WithReporter(s.reporter),
		walker.WithLogger(log),
	)

	log.Info("mirror started", "destination", store.Root(), "workers", sched.Concurrency(), "verify", s.verify)

	summary, walkErr := w.Walk(ctx, folderID, store.Root())
	result.Summary = summary

	var runErr error
	switch {
	case walkErr != nil:
		runErr = walkErr
	case ctx.Err() != nil:
		runErr = fmt.Errorf("mirror interrupted: %w", ctx.Err())
	}

	switch {
	case runErr != nil:
		result.Status = state.StatusFailed
	case result.Summary.Failed > 0 || result.Summary.FailedFolders > 0:
		result.Status = state.StatusPartial
	default:
		result.Status = state.StatusSuccess
	}

	s.record(log, result, start, runErr)

	log.Info("mirror complete",
		"status", result.Status,
		"folders", result.Summary.Folders,
		"failed_folders", result.Summary.FailedFolders,
		"files", result.Summary.Files,
		"downloaded", result.Summary.Downloaded,
		"skipped", result.Summary.Skipped,
		"failed", result.Summary.Failed,
		"bytes", progress.FormatBytes(result.Summary.Bytes),
		"duration", result.Summary.Duration.Round(time.Millisecond),
	)

	return result, runErr
}

// abort records a run that could not start walking
func (s *MirrorService) abort(log logger.Logger, result *Result, start time.Time, err error) error {
	log.Error("mirror aborted", "error", err)
	result.Status = state.StatusFailed
	s.record(log, result, start, err)
	return err
}

func (s *MirrorService) record(log logger.Logger, result *Result, start time.Time, runErr error) {
	if s.history == nil {
		return
	}

	record := &state.RunRecord{
		ID:            result.RunID,
		FolderID:      result.FolderID,
		Destination:   result.Destination,
		StartTime:     start,
		EndTime:       time.Now(),
		Status:        result.Status,
		FilesTotal:    result.Summary.Files,
		Downloaded:    result.Summary.Downloaded,
		Skipped:       result.Summary.Skipped,
		Failed:        result.Summary.Failed,
		FoldersFailed: result.Summary.FailedFolders,
		Bytes:         result.Summary.Bytes,
	}
	if runErr != nil {
		record.Error = runErr.Error()
	}

	if err := s.history.SaveRun(record); err != nil {
		log.Warn("failed to record run history", "error", err)
	}
}

// Close releases the remote and the history database
func (s *MirrorService) Close() error {
	var lastErr error
	if err := s.remote.Close(); err != nil {
		lastErr = err
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

var _ io.Closer = (*MirrorService)(nil)
