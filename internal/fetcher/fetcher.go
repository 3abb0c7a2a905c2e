// Package fetcher downloads a single remote file into the destination tree.
package fetcher

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/Ning0612/drivemirror/internal/adapter"
	"github.com/Ning0612/drivemirror/internal/adapter/local"
	"github.com/Ning0612/drivemirror/internal/core/checksum"
	"github.com/Ning0612/drivemirror/internal/domain"
	"github.com/Ning0612/drivemirror/internal/logger"
	"github.com/Ning0612/drivemirror/internal/progress"
)

// Failure reasons recorded on domain.FetchError
const (
	ReasonMissingParent   = "parent directory missing"
	ReasonNameCollision   = "path is a directory"
	ReasonNotDownloadable = "not downloadable"
	ReasonOpen            = "download request failed"
	ReasonTransfer        = "transfer failed"
	ReasonCanceled        = "canceled"
)

// Fetcher transfers one DownloadJob at a time and is safe for concurrent use
type Fetcher struct {
	remote   adapter.Opener
	store    *local.Store
	reporter progress.Reporter
	log      logger.Logger
	verify   bool
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithReporter sets the progress reporter notified after every job
func WithReporter(r progress.Reporter) Option {
	return func(f *Fetcher) {
		if r != nil {
			f.reporter = r
		}
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) {
		f.log = logger.OrNull(l)
	}
}

// WithVerify toggles MD5 verification of downloaded content
func WithVerify(verify bool) Option {
	return func(f *Fetcher) {
		f.verify = verify
	}
}

// New creates a fetcher writing through store
func New(remote adapter.Opener, store *local.Store, opts ...Option) *Fetcher {
	f := &Fetcher{
		remote:   remote,
		store:    store,
		reporter: progress.NullReporter{},
		log:      &logger.NullLogger{},
		verify:   true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads job to job.LocalPath unless a file is already there
// The reporter is notified exactly once, whatever the outcome
func (f *Fetcher) Fetch(ctx context.Context, job domain.DownloadJob) (result domain.FetchResult) {
	result = domain.FetchResult{Job: job, Outcome: domain.OutcomeFailed}
	defer func() {
		f.reporter.FileDone(result.Outcome)
	}()

	log := f.log.With("file_id", job.FileID, "path", job.LocalPath)

	fail := func(reason string, err error) domain.FetchResult {
		fetchErr := &domain.FetchError{FileID: job.FileID, Path: job.LocalPath, Reason: reason, Err: err}
		log.Error("download failed", "reason", reason, "error", err)
		return domain.FetchResult{Job: job, Outcome: domain.OutcomeFailed, Err: fetchErr}
	}

	if err := ctx.Err(); err != nil {
		return fail(ReasonCanceled, err)
	}

	parentExists, err := f.store.IsDir(filepath.Dir(job.LocalPath))
	if err != nil {
		return fail(ReasonMissingParent, err)
	}
	if !parentExists {
		return fail(ReasonMissingParent, domain.ErrNotFound)
	}

	exists, err := f.store.FileExists(job.LocalPath)
	if err != nil {
		if errors.Is(err, domain.ErrNotFile) {
			return fail(ReasonNameCollision, err)
		}
		return fail(ReasonTransfer, err)
	}
	if exists {
		log.Debug("file already exists, skipping")
		return domain.FetchResult{Job: job, Outcome: domain.OutcomeSkipped}
	}

	if domain.IsWorkspaceDocument(job.MimeType) {
		return fail(ReasonNotDownloadable, domain.ErrNotDownloadable)
	}

	body, err := f.remote.Open(ctx, job.FileID)
	if err != nil {
		return fail(ReasonOpen, err)
	}
	defer body.Close()

	expected := ""
	if f.verify {
		expected = job.MD5
	}
	verifier := checksum.NewVerifier(body, expected)

	written, err := f.store.WriteAtomic(job.LocalPath, verifier, verifier.Verify)
	if err != nil {
		if ctx.Err() != nil {
			return fail(ReasonCanceled, err)
		}
		return fail(ReasonTransfer, err)
	}

	log.Info("downloaded", "name", job.FileName, "bytes", written)
	return domain.FetchResult{Job: job, Outcome: domain.OutcomeDownloaded, Bytes: written}
}
