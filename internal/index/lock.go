//go:build !windows

package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"ctxengine/internal/errors"
)

// Lock represents the exclusive cross-process writer lock described in
// spec.md §5: within one project's data directory, at most one indexing
// pass may hold it at a time.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock retries a non-blocking flock attempt every retryInterval
// until it succeeds or timeout elapses, at which point it gives up with
// errors.Busy — the contract spec.md §5 and §6 scenario 6 describe for
// concurrent writers.
func AcquireLock(dataDir string, timeout, retryInterval time.Duration) (*Lock, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, errors.Wrap(errors.Io, "create data directory", err).WithPath(dataDir)
	}
	path := filepath.Join(dataDir, lockFileName)

	deadline := time.Now().Add(timeout)
	for {
		lock, err := tryAcquireLock(path)
		if err == nil {
			return lock, nil
		}
		if time.Now().After(deadline) {
			return nil, errors.Wrap(errors.Busy, describeHolder(path), err).WithPath(path)
		}
		time.Sleep(retryInterval)
	}
}

const lockFileName = "watcher.lock"

func tryAcquireLock(path string) (*Lock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("lock held: %w", err)
	}

	if err := file.Truncate(0); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, fmt.Errorf("truncating lock file: %w", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, fmt.Errorf("seeking lock file: %w", err)
	}
	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, fmt.Errorf("writing PID to lock file: %w", err)
	}

	return &Lock{path: path, file: file}, nil
}

func describeHolder(path string) string {
	content, err := os.ReadFile(path)
	if err != nil || len(content) == 0 {
		return "index is locked by another process"
	}
	return fmt.Sprintf("index is locked by another process (PID %s)", strings.TrimSpace(string(content)))
}

// Release releases the lock and removes the lock file.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
	_ = os.Remove(l.path)
}
