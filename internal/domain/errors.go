package domain

import (
	"errors"
	"fmt"
)

// Adapter errors
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrPermissionDenied indicates insufficient permissions
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnauthorized indicates missing or expired credentials
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates the provider throttled the request
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNotDirectory indicates expected a directory but got a file
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotFile indicates expected a file but got a directory
	ErrNotFile = errors.New("not a file")

	// ErrUnsafeName indicates a remote name that cannot be mapped to a local path
	ErrUnsafeName = errors.New("unsafe entry name")
)

// Mirror errors
var (
	// ErrAuth indicates the remote client could not be authenticated
	ErrAuth = errors.New("authentication failed")

	// ErrInvalidReference indicates a malformed folder reference
	ErrInvalidReference = errors.New("invalid folder reference")

	// ErrListFailed indicates a folder listing failed
	ErrListFailed = errors.New("folder listing failed")

	// ErrFetchFailed indicates a file transfer failed
	ErrFetchFailed = errors.New("file fetch failed")

	// ErrNotDownloadable indicates a Google-native document without binary content
	ErrNotDownloadable = errors.New("not downloadable")

	// ErrChecksumMismatch indicates the downloaded content does not match the remote checksum
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrMirrorInProgress indicates another run holds the destination
	ErrMirrorInProgress = errors.New("mirror already in progress")
)

// Config errors
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")
)

// AuthError is returned when credentials cannot be loaded or exchanged
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() []error {
	return []error{ErrAuth, e.Err}
}

// InvalidReferenceError is returned when a folder reference cannot be parsed
type InvalidReferenceError struct {
	Reference string
	Reason    string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid folder reference %q: %s", e.Reference, e.Reason)
}

func (e *InvalidReferenceError) Unwrap() error {
	return ErrInvalidReference
}

// RemoteListError is returned when a folder cannot be listed
// The walker abandons that subtree only
type RemoteListError struct {
	FolderID string
	Err      error
}

func (e *RemoteListError) Error() string {
	return fmt.Sprintf("list folder %s: %v", e.FolderID, e.Err)
}

func (e *RemoteListError) Unwrap() []error {
	return []error{ErrListFailed, e.Err}
}

// FetchError is returned when a single file cannot be transferred
type FetchError struct {
	FileID string
	Path   string
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s to %s: %s: %v", e.FileID, e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s to %s: %s", e.FileID, e.Path, e.Reason)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetchFailed}
	}
	return []error{ErrFetchFailed, e.Err}
}
