package main

import (
	"fmt"
	"strings"

	"ctxengine/internal/index"
)

// formatSummaryHuman renders an index.Summary the way init and scan
// both report their pass result, verb distinguishing the two ("Initialized"
// vs "Scanned").
func formatSummaryHuman(verb string, s *index.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d files (%d changed), %d symbols\n", verb, s.FilesTotal, s.FilesChanged, s.Symbols)
	fmt.Fprintf(&b, "  edges: %d resolved, %d unresolved\n", s.EdgesResolved, s.EdgesUnresolved)
	if s.Commits > 0 || s.Decisions > 0 {
		fmt.Fprintf(&b, "  git: %d commits analyzed, %d decisions recorded\n", s.Commits, s.Decisions)
	}
	fmt.Fprintf(&b, "  elapsed: %dms\n", s.ElapsedMs)
	return b.String()
}
