package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/Ning0612/drivemirror/internal/adapter"
	"github.com/Ning0612/drivemirror/internal/domain"
)

const (
	// MimeTypeFolder is the MIME type for Google Drive folders
	MimeTypeFolder = domain.MimeTypeFolder
	// PageSize is the number of files to fetch per request
	PageSize = 100

	listFields = "nextPageToken, files(id, name, mimeType, size, md5Checksum)"
)

// Adapter implements adapter.Remote for Google Drive
// The underlying drive.Service wraps a net/http client and is shared by all workers
type Adapter struct {
	service  *drive.Service
	pageSize int64
}

// New creates a Drive adapter from client options (credentials, endpoint, HTTP client)
func New(ctx context.Context, opts ...option.ClientOption) (*Adapter, error) {
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return NewWithService(service), nil
}

// NewWithService wraps an already-built Drive service
func NewWithService(service *drive.Service) *Adapter {
	return &Adapter{
		service:  service,
		pageSize: PageSize,
	}
}

// List returns all files and folders directly under folderID
func (a *Adapter) List(ctx context.Context, folderID string) ([]domain.RemoteEntry, error) {
	var result []domain.RemoteEntry
	pageToken := ""

	query := fmt.Sprintf("'%s' in parents and trashed = false", escapeQueryString(folderID))

	for {
		call := a.service.Files.List().
			Q(query).
			PageSize(a.pageSize).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Fields(listFields)

		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		fileList, err := call.Context(ctx).Do()
		if err != nil {
			return nil, &domain.RemoteListError{FolderID: folderID, Err: a.mapError(err)}
		}

		for _, f := range fileList.Files {
			result = append(result, entryFromDrive(f))
		}

		pageToken = fileList.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return result, nil
}

// Open streams the content of a file
func (a *Adapter) Open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := a.service.Files.Get(fileID).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		return nil, a.mapError(err)
	}

	return resp.Body, nil
}

// Close releases any resources
func (a *Adapter) Close() error {
	return nil
}

// escapeQueryString escapes special characters in Drive query strings
func escapeQueryString(s string) string {
	// Escape backslash first, then single quote
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	return s
}

// entryFromDrive converts a Drive file to domain.RemoteEntry
func entryFromDrive(file *drive.File) domain.RemoteEntry {
	kind := domain.KindFile
	if file.MimeType == MimeTypeFolder {
		kind = domain.KindFolder
	}

	return domain.RemoteEntry{
		ID:       file.Id,
		Name:     file.Name,
		Kind:     kind,
		MimeType: file.MimeType,
		Size:     file.Size,
		MD5:      file.Md5Checksum, // Drive provides MD5 for binary content only
	}
}

// mapError converts Google API errors to domain errors
func (a *Adapter) mapError(err error) error {
	if err == nil {
		return nil
	}

	// A refused token exchange (revoked key, expired refresh token) surfaces on
	// the first request, wrapped in *url.Error by the HTTP transport
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	// Use Google API error types for more reliable error detection
	var apiErr *googleapi.Error
	if ok := errors.As(err, &apiErr); ok {
		switch apiErr.Code {
		case http.StatusNotFound:
			return domain.ErrNotFound
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", domain.ErrUnauthorized, apiErr.Message)
		case http.StatusForbidden:
			if isRateLimitReason(apiErr) {
				return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
			}
			return domain.ErrPermissionDenied
		case http.StatusTooManyRequests:
			// Rate limit - return original error with context
			return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
		}
	}

	// Fallback to string matching for non-googleapi errors
	errStr := err.Error()
	if strings.Contains(errStr, "notFound") {
		return domain.ErrNotFound
	}

	return err
}

// isRateLimitReason detects Drive's 403 flavour of throttling
func isRateLimitReason(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded":
			return true
		}
	}
	return false
}

// Compile-time interface check
var _ adapter.Remote = (*Adapter)(nil)
