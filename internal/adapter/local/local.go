package local

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/Ning0612/drivemirror/internal/domain"
)

const (
	// PartSuffix marks in-flight downloads; such files never survive a failed transfer
	PartSuffix = ".drivemirror.part"

	// LockFileName is the run lock kept in the destination root
	LockFileName = ".drivemirror.lock"
)

// Store is the destination side of a mirror
// All paths handed to it are absolute host paths under Root
type Store struct {
	fs   afero.Fs
	root string
}

// New creates a store rooted at root on the host filesystem
func New(root string) (*Store, error) {
	return NewWithFs(afero.NewOsFs(), root)
}

// NewWithFs creates a store on an arbitrary afero filesystem (tests use MemMapFs)
func NewWithFs(fs afero.Fs, root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("destination root cannot be empty")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	return &Store{fs: fs, root: absRoot}, nil
}

// Root returns the absolute destination root
func (s *Store) Root() string {
	return s.root
}

// Fs exposes the underlying filesystem
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Join maps a remote entry name to a path inside dir
// Returns domain.ErrUnsafeName if the name cannot be a single path component
// or the result would escape the root
func (s *Store) Join(dir, name string) (string, error) {
	clean, err := SanitizeName(name)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(dir, clean)

	// Use filepath.Rel to safely verify the path is within root
	rel, err := filepath.Rel(s.root, fullPath)
	if err != nil {
		return "", domain.ErrUnsafeName
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.ErrUnsafeName
	}

	return fullPath, nil
}

// SanitizeName turns a remote display name into a single safe path component
// Separators and NUL bytes are replaced; "", "." and ".." are rejected, as are
// names drivemirror itself writes (the run lock and temporary download files)
func SanitizeName(name string) (string, error) {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "\x00", "_")
	clean := replacer.Replace(name)

	switch clean {
	case "", ".", "..":
		return "", fmt.Errorf("%w: %q", domain.ErrUnsafeName, name)
	}

	// Compared case-insensitively for macOS and Windows destinations
	lower := strings.ToLower(clean)
	if lower == LockFileName || strings.HasSuffix(lower, PartSuffix) {
		return "", fmt.Errorf("%w: %q is reserved by drivemirror", domain.ErrUnsafeName, name)
	}
	return clean, nil
}

// EnsureDir creates a directory and any necessary parents
// No error if directory already exists
func (s *Store) EnsureDir(path string) error {
	info, err := s.fs.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s: %w", path, domain.ErrNotDirectory)
		}
		return nil
	}

	if err := s.fs.MkdirAll(path, 0755); err != nil {
		return s.mapError(err)
	}
	return nil
}

// IsDir reports whether path is an existing directory
func (s *Store) IsDir(path string) (bool, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, s.mapError(err)
	}
	return info.IsDir(), nil
}

// FileExists reports whether a regular file is present at path
// Returns domain.ErrNotFile if path is a directory
func (s *Store) FileExists(path string) (bool, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, s.mapError(err)
	}
	if info.IsDir() {
		return false, domain.ErrNotFile
	}
	return info.Mode().IsRegular(), nil
}

// WriteAtomic streams r into path through a temporary sibling and renames on success
// The temporary file is removed on any failure, so path is either complete or absent
// commit runs after the copy and before the rename; a non-nil error aborts the write
func (s *Store) WriteAtomic(path string, r io.Reader, commit func() error) (int64, error) {
	tempPath := path + PartSuffix
	file, err := s.fs.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return 0, s.mapError(err)
	}

	written, copyErr := io.Copy(file, r)
	closeErr := file.Close()

	if copyErr != nil {
		s.fs.Remove(tempPath)
		return written, copyErr
	}
	if closeErr != nil {
		s.fs.Remove(tempPath)
		return written, closeErr
	}

	if commit != nil {
		if err := commit(); err != nil {
			s.fs.Remove(tempPath)
			return written, err
		}
	}

	if err := s.fs.Rename(tempPath, path); err != nil {
		s.fs.Remove(tempPath)
		return written, s.mapError(err)
	}

	return written, nil
}

// mapError converts OS errors to domain errors, keeping the original in the chain
func (s *Store) mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case os.IsPermission(err):
		return fmt.Errorf("%w: %w", domain.ErrPermissionDenied, err)
	case os.IsExist(err):
		return fmt.Errorf("%w: %w", domain.ErrAlreadyExists, err)
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && strings.Contains(pathErr.Err.Error(), "not a directory") {
		return fmt.Errorf("%w: %w", domain.ErrNotDirectory, err)
	}

	return err
}
