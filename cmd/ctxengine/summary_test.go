package main

import (
	"strings"
	"testing"

	"ctxengine/internal/index"
)

func TestFormatSummaryHuman_IncludesGitLineOnlyWhenPresent(t *testing.T) {
	withoutGit := &index.Summary{FilesTotal: 3, FilesChanged: 1, Symbols: 5, ElapsedMs: 12}
	out := formatSummaryHuman("Scanned", withoutGit)
	if strings.Contains(out, "commits analyzed") {
		t.Errorf("expected no git line when Commits/Decisions are 0, got: %s", out)
	}

	withGit := &index.Summary{FilesTotal: 3, FilesChanged: 1, Symbols: 5, Commits: 4, Decisions: 2, ElapsedMs: 12}
	out = formatSummaryHuman("Initialized", withGit)
	if !strings.Contains(out, "4 commits analyzed, 2 decisions recorded") {
		t.Errorf("expected git line, got: %s", out)
	}
}
