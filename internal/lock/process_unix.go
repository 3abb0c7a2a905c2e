//go:build !windows

package lock

import (
	"errors"
	"os"
	"syscall"
)

// processAlive reports whether pid is a running process
// FindProcess always succeeds on Unix, so signal 0 does the probing
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	switch err := process.Signal(syscall.Signal(0)); {
	case err == nil:
		return true
	case errors.Is(err, syscall.EPERM):
		// Exists, owned by another user
		return true
	default:
		return false
	}
}
