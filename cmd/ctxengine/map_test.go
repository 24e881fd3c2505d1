package main

import (
	"strings"
	"testing"

	"ctxengine/internal/query"
)

func TestFormatMapHuman_EmptyIsExplicit(t *testing.T) {
	out := formatMapHuman(nil)
	if out != "(no tracked files)" {
		t.Errorf("formatMapHuman(nil) = %q", out)
	}
}

func TestFormatMapHuman_ListsEachDirectory(t *testing.T) {
	dirs := []query.DirStat{
		{Path: "internal/storage", Files: 3, Symbols: 20},
		{Path: "(root)", Files: 1, Symbols: 2},
	}
	out := formatMapHuman(dirs)
	if !strings.Contains(out, "internal/storage") || !strings.Contains(out, "(root)") {
		t.Errorf("formatMapHuman missing a directory: %s", out)
	}
}
