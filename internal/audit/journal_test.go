package audit

import (
	"path/filepath"
	"testing"
)

func TestRecord_AppendsLineAtATime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.jsonl")

	Record(path, "cli", "scan", "myproject", []string{"--json", "/secret/path/x", "short"})
	Record(path, "cli", "status", "myproject", nil)

	entries, err := Entries(path)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Tool != "scan" || entries[1].Tool != "status" {
		t.Errorf("entries out of order: %+v", entries)
	}
}

func TestSummarizeArgs_DropsPathShapedValues(t *testing.T) {
	got := summarizeArgs([]string{"--json", "/home/user/secret.txt", "short", "this-is-a-very-long-argument-value-that-exceeds-the-length-cutoff"})
	want := []string{"--json", "short"}
	if len(got) != len(want) {
		t.Fatalf("summarizeArgs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("summarizeArgs[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEntries_MissingFileIsNotError(t *testing.T) {
	entries, err := Entries(filepath.Join(t.TempDir(), "nonexistent.jsonl"))
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if entries != nil {
		t.Errorf("expected nil entries for missing file, got %v", entries)
	}
}
