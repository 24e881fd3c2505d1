//go:build windows

package index

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"ctxengine/internal/errors"
)

const lockFileName = "watcher.lock"

// Lock represents the writer lock file. On Windows no exclusion is
// enforced: a PID file is written, but a second AcquireLock succeeds
// while the first lock is held, and Busy is never returned.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock mirrors the Unix API but makes a single attempt and never
// waits; timeout and retryInterval are unused on this platform.
func AcquireLock(dataDir string, timeout, retryInterval time.Duration) (*Lock, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, errors.Wrap(errors.Io, "create data directory", err).WithPath(dataDir)
	}
	path := filepath.Join(dataDir, lockFileName)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Wrap(errors.Io, "open lock file", err).WithPath(path)
	}
	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		_ = file.Close()
		return nil, errors.Wrap(errors.Io, "write lock pid", err).WithPath(path)
	}

	return &Lock{path: path, file: file}, nil
}

// Release releases the lock and removes the lock file.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = l.file.Close()
	_ = os.Remove(l.path)
}
