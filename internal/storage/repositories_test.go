package storage

import (
	"os"
	"testing"
	"time"

	"ctxengine/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel, Output: os.Stderr})
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	t.Setenv("CTXENGINE_DATA_DIR", t.TempDir())
	db, err := Open("testproject", 2000, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustUpsertFile(t *testing.T, db *DB, path string, lineCount int) int64 {
	t.Helper()
	id, err := db.UpsertFile(&File{
		Path:               path,
		Language:           "go",
		SizeBytes:          int64(lineCount * 20),
		Hash:               "deadbeef",
		LineCount:          lineCount,
		LastSeenGeneration: 1,
		LastAnalyzed:       time.Now(),
	})
	if err != nil {
		t.Fatalf("UpsertFile(%s): %v", path, err)
	}
	return id
}

func TestUpsertFile_IsIdempotentByPath(t *testing.T) {
	db := openTestDB(t)

	id1 := mustUpsertFile(t, db, "a.go", 10)
	id2 := mustUpsertFile(t, db, "a.go", 20)
	if id1 != id2 {
		t.Fatalf("expected same row id on re-upsert, got %d then %d", id1, id2)
	}

	f, err := db.FileByPath("a.go")
	if err != nil {
		t.Fatalf("FileByPath: %v", err)
	}
	if f == nil || f.LineCount != 20 {
		t.Fatalf("expected updated line count 20, got %+v", f)
	}
}

func TestFileByPath_MissingReturnsNilNoError(t *testing.T) {
	db := openTestDB(t)

	f, err := db.FileByPath("nope.go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != nil {
		t.Fatalf("expected nil for untracked path, got %+v", f)
	}
}

func TestSymbolCounts_GroupsByFile(t *testing.T) {
	db := openTestDB(t)

	id := mustUpsertFile(t, db, "a.go", 10)
	if err := db.ReplaceSymbolsForFile(id, "a.go", []Symbol{
		{Name: "Foo", Kind: "func", StartLine: 1, EndLine: 3, Signature: "func Foo()"},
		{Name: "Bar", Kind: "func", StartLine: 5, EndLine: 8, Signature: "func Bar()"},
	}); err != nil {
		t.Fatalf("ReplaceSymbolsForFile: %v", err)
	}

	counts, err := db.SymbolCounts()
	if err != nil {
		t.Fatalf("SymbolCounts: %v", err)
	}
	if counts[id] != 2 {
		t.Errorf("SymbolCounts[%d] = %d, want 2", id, counts[id])
	}
}

func TestDecisions_NewestFirst(t *testing.T) {
	db := openTestDB(t)

	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	if _, err := db.InsertDecision(&Decision{Timestamp: older, Source: "commit", Kind: "fix", Subject: "old fix"}); err != nil {
		t.Fatalf("InsertDecision: %v", err)
	}
	if _, err := db.InsertDecision(&Decision{Timestamp: newer, Source: "manual", Kind: "note", Subject: "new note"}); err != nil {
		t.Fatalf("InsertDecision: %v", err)
	}

	decisions, err := db.Decisions()
	if err != nil {
		t.Fatalf("Decisions: %v", err)
	}
	if len(decisions) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(decisions))
	}
	if decisions[0].Subject != "new note" {
		t.Errorf("expected newest decision first, got %q", decisions[0].Subject)
	}
}

func TestGrepSymbols_MatchesSubstringFTSWouldMiss(t *testing.T) {
	db := openTestDB(t)

	id := mustUpsertFile(t, db, "a.go", 10)
	if err := db.ReplaceSymbolsForFile(id, "a.go", []Symbol{
		{Name: "HandleRequest", Kind: "func", StartLine: 1, EndLine: 3, Signature: "func HandleRequest(ctx context.Context) error"},
	}); err != nil {
		t.Fatalf("ReplaceSymbolsForFile: %v", err)
	}

	results, err := db.GrepSymbols("context.Context", 10)
	if err != nil {
		t.Fatalf("GrepSymbols: %v", err)
	}
	if len(results) != 1 || results[0].Name != "HandleRequest" {
		t.Fatalf("GrepSymbols = %+v, want one match for HandleRequest", results)
	}
}

func TestGrepSymbols_EmptyTermReturnsNothing(t *testing.T) {
	db := openTestDB(t)

	results, err := db.GrepSymbols("   ", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results for blank term, got %d", len(results))
	}
}

func TestAggregateStats_CountsAcrossTables(t *testing.T) {
	db := openTestDB(t)

	id := mustUpsertFile(t, db, "a.go", 100)
	if err := db.ReplaceSymbolsForFile(id, "a.go", []Symbol{
		{Name: "Foo", Kind: "func", StartLine: 1, EndLine: 3, Signature: "func Foo()"},
	}); err != nil {
		t.Fatalf("ReplaceSymbolsForFile: %v", err)
	}
	if _, err := db.InsertDecision(&Decision{Timestamp: time.Now(), Source: "manual", Kind: "note", Subject: "s"}); err != nil {
		t.Fatalf("InsertDecision: %v", err)
	}
	if _, err := db.InsertNote("remember this", nil); err != nil {
		t.Fatalf("InsertNote: %v", err)
	}

	stats, err := db.AggregateStats()
	if err != nil {
		t.Fatalf("AggregateStats: %v", err)
	}
	if stats.Files != 1 || stats.Symbols != 1 || stats.Decisions != 1 || stats.Notes != 1 {
		t.Errorf("AggregateStats = %+v, want 1 each", stats)
	}
	if stats.ByLanguage["go"] != 1 {
		t.Errorf("AggregateStats.ByLanguage[go] = %d, want 1", stats.ByLanguage["go"])
	}
}

func TestDeleteFile_RemovesRow(t *testing.T) {
	db := openTestDB(t)

	id := mustUpsertFile(t, db, "a.go", 10)
	if err := db.DeleteFile(id); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}

	f, err := db.FileByPath("a.go")
	if err != nil {
		t.Fatalf("FileByPath: %v", err)
	}
	if f != nil {
		t.Fatalf("expected file gone after delete, got %+v", f)
	}
}
