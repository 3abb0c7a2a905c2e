package adapter

import (
	"context"
	"io"

	"github.com/Ning0612/drivemirror/internal/domain"
)

// Lister returns the immediate children of a remote folder
type Lister interface {
	// List returns every child of folderID, following pagination until exhausted
	// Failures are returned as *domain.RemoteListError
	List(ctx context.Context, folderID string) ([]domain.RemoteEntry, error)
}

// Opener streams the content of a remote file
type Opener interface {
	// Open returns the file body; caller is responsible for closing it
	// Returns domain.ErrNotFound if the file doesn't exist
	Open(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// Remote is an authenticated storage backend the mirror reads from
// Implementations must be safe for concurrent use by the download workers
type Remote interface {
	Lister
	Opener

	// Close releases any resources held by the remote
	Close() error
}
