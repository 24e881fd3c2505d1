package query

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ctxengine/internal/logging"
	"ctxengine/internal/storage"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel, Output: os.Stderr})
}

func newTestEngine(t *testing.T) (*Engine, *storage.DB) {
	t.Helper()
	t.Setenv("CTXENGINE_DATA_DIR", t.TempDir())
	db, err := storage.Open("testproject", 2000, testLogger())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, t.TempDir()), db
}

func mustUpsertFile(t *testing.T, db *storage.DB, path string, lineCount int) int64 {
	t.Helper()
	id, err := db.UpsertFile(&storage.File{
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

func TestDirectoryMap_GroupsFilesByDirectory(t *testing.T) {
	e, db := newTestEngine(t)

	a := mustUpsertFile(t, db, "internal/storage/db.go", 50)
	mustUpsertFile(t, db, "main.go", 5)
	if err := db.ReplaceSymbolsForFile(a, "internal/storage/db.go", []storage.Symbol{
		{Name: "Open", Kind: "func", StartLine: 1, EndLine: 10, Signature: "func Open()"},
	}); err != nil {
		t.Fatalf("ReplaceSymbolsForFile: %v", err)
	}

	dirs, err := e.DirectoryMap()
	if err != nil {
		t.Fatalf("DirectoryMap: %v", err)
	}

	byPath := make(map[string]DirStat)
	for _, d := range dirs {
		byPath[d.Path] = d
	}

	if got := byPath["internal/storage"]; got.Files != 1 || got.Symbols != 1 {
		t.Errorf("internal/storage = %+v, want 1 file / 1 symbol", got)
	}
	if got := byPath["(root)"]; got.Files != 1 {
		t.Errorf("(root) = %+v, want 1 file", got)
	}
}

func TestLearnAndFileByPath(t *testing.T) {
	e, db := newTestEngine(t)
	mustUpsertFile(t, db, "a.go", 10)

	path := "a.go"
	note, err := e.Learn("prefer errgroup here", &path)
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if note.Body != "prefer errgroup here" || note.RelatedFile == nil || *note.RelatedFile != "a.go" {
		t.Errorf("Learn returned unexpected note: %+v", note)
	}

	f, err := e.FileByPath("a.go")
	if err != nil {
		t.Fatalf("FileByPath: %v", err)
	}
	if f == nil {
		t.Fatal("expected file to be found")
	}

	missing, err := e.FileByPath("missing.go")
	if err != nil {
		t.Fatalf("FileByPath(missing): %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for untracked path, got %+v", missing)
	}
}

func TestDecisions_DelegatesToStore(t *testing.T) {
	e, db := newTestEngine(t)
	if _, err := db.InsertDecision(&storage.Decision{
		Timestamp: time.Now(), Source: "manual", Kind: "note", Subject: "hello",
	}); err != nil {
		t.Fatalf("InsertDecision: %v", err)
	}

	decisions, err := e.Decisions()
	if err != nil {
		t.Fatalf("Decisions: %v", err)
	}
	if len(decisions) != 1 || decisions[0].Subject != "hello" {
		t.Errorf("Decisions = %+v, want one decision with subject hello", decisions)
	}
}

func TestGrepSymbols_FindsLiteralSubstring(t *testing.T) {
	e, db := newTestEngine(t)
	id := mustUpsertFile(t, db, "a.go", 10)
	if err := db.ReplaceSymbolsForFile(id, "a.go", []storage.Symbol{
		{Name: "HandleRequest", Kind: "func", StartLine: 1, EndLine: 3, Signature: "func HandleRequest(ctx context.Context) error"},
	}); err != nil {
		t.Fatalf("ReplaceSymbolsForFile: %v", err)
	}

	results, err := e.GrepSymbols("context.Context", 10)
	if err != nil {
		t.Fatalf("GrepSymbols: %v", err)
	}
	if len(results) != 1 || results[0].Name != "HandleRequest" {
		t.Fatalf("GrepSymbols = %+v, want one match", results)
	}
}

func TestSearchSymbols_FallsBackToFileContentsOnZeroFTSHits(t *testing.T) {
	t.Setenv("CTXENGINE_DATA_DIR", t.TempDir())
	db, err := storage.Open("testproject", 2000, testLogger())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	root := t.TempDir()
	e := New(db, root)

	const rel = "README.md"
	if err := os.WriteFile(filepath.Join(root, rel), []byte("intro\na TODO marker line\nend"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	mustUpsertFile(t, db, rel, 3)

	results, err := e.SearchSymbols("TODO marker", 10)
	if err != nil {
		t.Fatalf("SearchSymbols: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("SearchSymbols = %+v, want one file/line match", results)
	}
	got := results[0]
	if got.MatchType != "file" || got.Line != 2 || got.Path != rel {
		t.Errorf("SearchSymbols result = %+v, want file match at %s:2", got, rel)
	}
}

func TestIsEntryPoint(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"cmd/ctxengine/main.go", true},
		{"src/index.ts", true},
		{"src/index.js", true},
		{"crate/src/mod.rs", true},
		{"crate/src/lib.rs", true},
		{"pkg/__init__.py", true},
		{"internal/storage/db.go", false},
		{"internal/scanner/scanner.go", false},
	}
	for _, c := range cases {
		if got := isEntryPoint(c.path); got != c.want {
			t.Errorf("isEntryPoint(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}
