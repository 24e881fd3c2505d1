package main

import (
	"strings"
	"testing"
	"time"

	"ctxengine/internal/storage"
)

func TestFormatDecisionsHuman_Empty(t *testing.T) {
	out := formatDecisionsHuman(nil)
	if out != "(no decisions recorded)" {
		t.Errorf("formatDecisionsHuman(nil) = %q", out)
	}
}

func TestFormatDecisionsHuman_IncludesKindAndSubject(t *testing.T) {
	ref := "abcdef0123456789"
	decisions := []storage.Decision{
		{Kind: "breaking", Subject: "token leak", Timestamp: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), Reference: &ref},
	}
	out := formatDecisionsHuman(decisions)
	if !strings.Contains(out, "[breaking]") || !strings.Contains(out, "token leak") {
		t.Errorf("formatDecisionsHuman missing kind/subject: %s", out)
	}
	if !strings.Contains(out, "(abcdef012345)") {
		t.Errorf("formatDecisionsHuman should truncate long refs to 12 chars: %s", out)
	}
}

func TestShortRef_TruncatesLongHashes(t *testing.T) {
	if got := shortRef("abcdefabcdefabcdef"); got != "(abcdefabcdef)" {
		t.Errorf("shortRef long = %q", got)
	}
	if got := shortRef("abc"); got != "(abc)" {
		t.Errorf("shortRef short = %q", got)
	}
}
