package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ctxengine/internal/logging"
	"ctxengine/internal/storage"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel, Output: os.Stderr})
}

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	t.Setenv("CTXENGINE_DATA_DIR", t.TempDir())
	db, err := storage.Open("testproject", 2000, testLogger())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPass_Run_ScansParsesAndPersists(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {\n}\n")
	writeFile(t, root, "util.go", "package main\n\nfunc helper() {\n}\n")

	db := openTestDB(t)
	pass := NewPass(root, db, testLogger())

	summary, err := pass.Run(context.Background(), Options{MaxFileSizeBytes: 1 << 20, GitEnabled: false})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.FilesTotal != 2 {
		t.Errorf("FilesTotal = %d, want 2", summary.FilesTotal)
	}
	if summary.FilesChanged != 2 {
		t.Errorf("FilesChanged = %d, want 2 (first pass, nothing stored yet)", summary.FilesChanged)
	}
	if pass.State() != StateDone {
		t.Errorf("State = %v, want %v", pass.State(), StateDone)
	}

	stats, err := db.AggregateStats()
	if err != nil {
		t.Fatalf("AggregateStats: %v", err)
	}
	if stats.Files != 2 {
		t.Errorf("stored Files = %d, want 2", stats.Files)
	}
}

func TestPass_Run_SecondPassSkipsUnchangedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {\n}\n")

	db := openTestDB(t)
	pass := NewPass(root, db, testLogger())

	if _, err := pass.Run(context.Background(), Options{MaxFileSizeBytes: 1 << 20}); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	second := NewPass(root, db, testLogger())
	summary, err := second.Run(context.Background(), Options{MaxFileSizeBytes: 1 << 20})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.FilesChanged != 0 {
		t.Errorf("FilesChanged = %d, want 0 (content unchanged)", summary.FilesChanged)
	}
}

func TestPass_Run_ReconcilesDeletedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.go", "package main\n\nfunc Keep() {}\n")
	writeFile(t, root, "gone.go", "package main\n\nfunc Gone() {}\n")

	db := openTestDB(t)
	if _, err := NewPass(root, db, testLogger()).Run(context.Background(), Options{MaxFileSizeBytes: 1 << 20}); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	if err := os.Remove(filepath.Join(root, "gone.go")); err != nil {
		t.Fatal(err)
	}

	summary, err := NewPass(root, db, testLogger()).Run(context.Background(), Options{MaxFileSizeBytes: 1 << 20})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.FilesChanged != 1 {
		t.Errorf("FilesChanged = %d, want 1 (one removal, nothing else changed)", summary.FilesChanged)
	}

	stats, err := db.AggregateStats()
	if err != nil {
		t.Fatalf("AggregateStats: %v", err)
	}
	if stats.Files != 1 {
		t.Errorf("Files = %d, want 1 after reconciliation", stats.Files)
	}
}

func TestPass_Run_RenameCountsAsRemovalPlusAddition(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "old.go", "package main\n\nfunc Thing() {}\n")

	db := openTestDB(t)
	if _, err := NewPass(root, db, testLogger()).Run(context.Background(), Options{MaxFileSizeBytes: 1 << 20}); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	if err := os.Rename(filepath.Join(root, "old.go"), filepath.Join(root, "new.go")); err != nil {
		t.Fatal(err)
	}

	summary, err := NewPass(root, db, testLogger()).Run(context.Background(), Options{MaxFileSizeBytes: 1 << 20})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.FilesChanged != 2 {
		t.Errorf("FilesChanged = %d, want 2 (one removal, one addition)", summary.FilesChanged)
	}
}
