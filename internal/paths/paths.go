// Package paths resolves a project's canonical path and the on-disk
// layout of its per-project data directory.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// DataDirEnvVar overrides the per-project data directory's parent,
// bypassing the XDG-style default.
const DataDirEnvVar = "CTXENGINE_DATA_DIR"

// DefaultDataHome is the fallback parent directory when neither
// DataDirEnvVar nor $XDG_DATA_HOME is set.
const DefaultDataHome = ".local/share/ctxengine"

// StoreFile is the SQLite database file name within a project's data
// directory.
const StoreFile = "store.db"

// ActivityLogFile is the append-only audit log file name.
const ActivityLogFile = "activity.jsonl"

// LockFile is the cross-process writer lock file name.
const LockFile = "watcher.lock"

// dataHome resolves the parent directory under which every project's
// per-hash data directory lives.
func dataHome() (string, error) {
	if v := os.Getenv(DataDirEnvVar); v != "" {
		return v, nil
	}
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return filepath.Join(v, "ctxengine"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultDataHome), nil
}

// DataDir returns the per-project data directory for a project with the
// given project hash (the hash of its canonical root path), creating it
// if necessary.
func DataDir(projectHash string) (string, error) {
	home, err := dataHome()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, projectHash)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// StorePath returns the SQLite database path for a project's data dir.
func StorePath(dataDir string) string {
	return filepath.Join(dataDir, StoreFile)
}

// ActivityLogPath returns the activity journal path for a project's data dir.
func ActivityLogPath(dataDir string) string {
	return filepath.Join(dataDir, ActivityLogFile)
}

// LockPath returns the writer lock path for a project's data dir.
func LockPath(dataDir string) string {
	return filepath.Join(dataDir, LockFile)
}

// CanonicalizePath converts an absolute path to a project-relative
// canonical path: symlinks resolved, made relative to projectRoot, and
// expressed with forward slashes regardless of platform.
func CanonicalizePath(absolutePath string, projectRoot string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(projectRoot)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = projectRoot
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(relativePath), nil
}

// IsWithinProject reports whether path resolves to somewhere under
// projectRoot.
func IsWithinProject(path string, projectRoot string) bool {
	canonical, err := CanonicalizePath(path, projectRoot)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(canonical, "..")
}

// NormalizePath converts backslashes to forward slashes.
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}

// JoinProjectPath joins a project root with a canonical (forward-slash)
// relative path, producing an OS-native path.
func JoinProjectPath(projectRoot string, canonicalPath string) string {
	normalized := strings.ReplaceAll(canonicalPath, "\\", "/")
	parts := strings.Split(normalized, "/")
	return filepath.Join(append([]string{projectRoot}, parts...)...)
}
