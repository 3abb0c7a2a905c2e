// Package lock keeps two drivemirror runs from writing into the same destination.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Ning0612/drivemirror/internal/adapter/local"
	"github.com/Ning0612/drivemirror/internal/domain"
)

const (
	// LockFileName is created in the destination root for the duration of a run
	LockFileName = local.LockFileName
	// DefaultStaleTimeout applies only to locks written by another host
	DefaultStaleTimeout = 30 * time.Minute
)

// LockInfo is the content of the lock file
type LockInfo struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartTime time.Time `json:"start_time"`
	RunID     string    `json:"run_id"`
	FolderID  string    `json:"folder_id,omitempty"`
}

// DestinationLock is a file lock in a destination root
type DestinationLock struct {
	lockPath     string
	staleTimeout time.Duration
	info         *LockInfo
}

// New creates a lock for an existing destination directory
func New(destination string) (*DestinationLock, error) {
	if destination == "" {
		return nil, fmt.Errorf("destination cannot be empty")
	}

	st, err := os.Stat(destination)
	if err != nil {
		return nil, fmt.Errorf("failed to stat destination: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%s: %w", destination, domain.ErrNotDirectory)
	}

	return &DestinationLock{
		lockPath:     filepath.Join(destination, LockFileName),
		staleTimeout: DefaultStaleTimeout,
	}, nil
}

// Path returns the lock file location
func (l *DestinationLock) Path() string {
	return l.lockPath
}

// SetStaleTimeout sets the age after which a foreign-host lock is considered stale
func (l *DestinationLock) SetStaleTimeout(d time.Duration) {
	l.staleTimeout = d
}

// Acquire takes the lock for runID mirroring folderID
// Returns *LockError if another live run holds it
func (l *DestinationLock) Acquire(runID, folderID string) error {
	// Already ours: re-point the lock at the new run
	if l.info != nil {
		existing, err := l.readLockInfo()
		if err == nil && l.ownedBy(existing) {
			existing.RunID = runID
			existing.FolderID = folderID
			if err := l.writeLockInfo(existing); err != nil {
				return err
			}
			l.info = existing
			return nil
		}
		l.info = nil
	}

	if existing, err := l.readLockInfo(); err == nil {
		if !l.isStale(existing) {
			return &LockError{Holder: existing, Reason: "destination is being mirrored by another process"}
		}
		if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale lock: %w", err)
		}
	}

	hostname, _ := os.Hostname()
	info := &LockInfo{
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartTime: time.Now(),
		RunID:     runID,
		FolderID:  folderID,
	}

	// O_EXCL makes creation atomic between competing processes
	file, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			holder, readErr := l.readLockInfo()
			if readErr != nil {
				return &LockError{Reason: "lock created concurrently by another process"}
			}
			return &LockError{Holder: holder, Reason: "lock acquired by another process during acquisition"}
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(info); err != nil {
		os.Remove(l.lockPath)
		return fmt.Errorf("failed to write lock info: %w", err)
	}

	l.info = info
	return nil
}

// Release removes the lock if this instance still owns it
func (l *DestinationLock) Release() error {
	if l.info == nil {
		return nil
	}

	existing, err := l.readLockInfo()
	if err != nil {
		// Lock file is gone, nothing to remove
		l.info = nil
		return nil
	}

	owned := l.ownedBy(existing)
	l.info = nil
	if !owned {
		return fmt.Errorf("lock was taken over by run %s", existing.RunID)
	}

	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// IsLocked reports whether a live lock exists
func (l *DestinationLock) IsLocked() bool {
	info, err := l.readLockInfo()
	if err != nil {
		return false
	}
	return !l.isStale(info)
}

// Holder returns information about the current lock holder
func (l *DestinationLock) Holder() (*LockInfo, error) {
	info, err := l.readLockInfo()
	if err != nil {
		return nil, err
	}
	if l.isStale(info) {
		return nil, fmt.Errorf("lock is stale")
	}
	return info, nil
}

func (l *DestinationLock) readLockInfo() (*LockInfo, error) {
	data, err := os.ReadFile(l.lockPath)
	if err != nil {
		return nil, err
	}

	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("invalid lock file format: %w", err)
	}
	return &info, nil
}

func (l *DestinationLock) writeLockInfo(info *LockInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.lockPath, data, 0644)
}

// isStale: on this host a lock is stale only when its process is gone;
// locks from other hosts fall back to the timeout
func (l *DestinationLock) isStale(info *LockInfo) bool {
	hostname, _ := os.Hostname()
	if info.Hostname == hostname {
		return !processAlive(info.PID)
	}
	return time.Since(info.StartTime) > l.staleTimeout
}

// ownedBy reports whether info describes the lock this instance wrote
func (l *DestinationLock) ownedBy(info *LockInfo) bool {
	if l.info == nil {
		return false
	}
	hostname, _ := os.Hostname()
	return info.PID == os.Getpid() &&
		info.Hostname == hostname &&
		info.RunID == l.info.RunID &&
		info.StartTime.Equal(l.info.StartTime)
}

// LockError is returned when the destination is locked by another run
type LockError struct {
	Holder *LockInfo
	Reason string
}

func (e *LockError) Error() string {
	if e.Holder != nil {
		return fmt.Sprintf("cannot lock destination: %s (held by PID %d on %s since %s, folder: %s)",
			e.Reason,
			e.Holder.PID,
			e.Holder.Hostname,
			e.Holder.StartTime.Format(time.RFC3339),
			e.Holder.FolderID,
		)
	}
	return fmt.Sprintf("cannot lock destination: %s", e.Reason)
}

// Unwrap lets callers match domain.ErrMirrorInProgress
func (e *LockError) Unwrap() error {
	return domain.ErrMirrorInProgress
}

// IsLockError checks if an error is a LockError
func IsLockError(err error) bool {
	var lockErr *LockError
	return errors.As(err, &lockErr)
}
