package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDataDir_EnvOverride(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "ctxengine-paths-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tempDir) })

	original := os.Getenv(DataDirEnvVar)
	_ = os.Setenv(DataDirEnvVar, tempDir)
	t.Cleanup(func() { _ = os.Setenv(DataDirEnvVar, original) })

	dir, err := DataDir("abc123")
	if err != nil {
		t.Fatalf("DataDir failed: %v", err)
	}
	expectedPrefix := filepath.Join(tempDir, "abc123")
	if dir != expectedPrefix {
		t.Errorf("expected %s, got %s", expectedPrefix, dir)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("DataDir did not create directory: %v", err)
	}
}

func TestStorePathActivityLogPathLockPath(t *testing.T) {
	dataDir := "/data/abc123"
	if StorePath(dataDir) != filepath.Join(dataDir, "store.db") {
		t.Errorf("unexpected StorePath: %s", StorePath(dataDir))
	}
	if ActivityLogPath(dataDir) != filepath.Join(dataDir, "activity.jsonl") {
		t.Errorf("unexpected ActivityLogPath: %s", ActivityLogPath(dataDir))
	}
	if LockPath(dataDir) != filepath.Join(dataDir, "watcher.lock") {
		t.Errorf("unexpected LockPath: %s", LockPath(dataDir))
	}
}

func TestCanonicalizePath(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "ctxengine-paths-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tempDir) })

	testFile := filepath.Join(tempDir, "subdir", "test.go")
	if err := os.MkdirAll(filepath.Dir(testFile), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(testFile, []byte("package test"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	canonical, err := CanonicalizePath(testFile, tempDir)
	if err != nil {
		t.Fatalf("CanonicalizePath failed: %v", err)
	}
	if canonical != "subdir/test.go" {
		t.Errorf("expected subdir/test.go, got %s", canonical)
	}
}

func TestNormalizePath(t *testing.T) {
	if got := NormalizePath("path/to/file"); got != "path/to/file" {
		t.Errorf("NormalizePath: expected path/to/file, got %s", got)
	}
}

func TestJoinProjectPath(t *testing.T) {
	got := JoinProjectPath("/repo/root", "path/to/file.go")
	expected := filepath.Join("/repo/root", "path", "to", "file.go")
	if got != expected {
		t.Errorf("JoinProjectPath: expected %s, got %s", expected, got)
	}
}

func TestIsWithinProject(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "ctxengine-paths-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tempDir) })

	testFile := filepath.Join(tempDir, "subdir", "test.go")
	if err := os.MkdirAll(filepath.Dir(testFile), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(testFile, []byte("package test"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if !IsWithinProject(testFile, tempDir) {
		t.Error("expected file to be within project")
	}

	outside := filepath.Join(os.TempDir(), "outside-ctxengine-test.go")
	if IsWithinProject(outside, tempDir) {
		t.Error("expected file outside project to return false")
	}
}

func TestDataHome_XDGOverride(t *testing.T) {
	original := os.Getenv(DataDirEnvVar)
	_ = os.Unsetenv(DataDirEnvVar)
	t.Cleanup(func() { _ = os.Setenv(DataDirEnvVar, original) })

	originalXDG := os.Getenv("XDG_DATA_HOME")
	_ = os.Setenv("XDG_DATA_HOME", "/xdg/data")
	t.Cleanup(func() { _ = os.Setenv("XDG_DATA_HOME", originalXDG) })

	home, err := dataHome()
	if err != nil {
		t.Fatalf("dataHome failed: %v", err)
	}
	if !strings.HasSuffix(home, filepath.Join("xdg", "data", "ctxengine")) {
		t.Errorf("expected xdg-derived path, got %s", home)
	}
}
