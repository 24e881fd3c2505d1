package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"ctxengine/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show aggregate counts for the indexed project",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	sess, err := openSession(false)
	if err != nil {
		fail(err)
		return nil
	}
	defer sess.Close()

	stats, err := sess.engine.Stats()
	if err != nil {
		fail(err)
		return nil
	}
	sess.recordActivity("status", args)

	output, err := FormatResponse(stats, outputFormat(), func() string { return formatStatusHuman(stats) })
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}

func formatStatusHuman(s *storage.AggregateStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Files: %d   Lines: %d   Symbols: %d\n", s.Files, s.Lines, s.Symbols)
	fmt.Fprintf(&b, "Dependencies: %d (%d unresolved)\n", s.Dependencies, s.UnresolvedEdges)
	fmt.Fprintf(&b, "Decisions: %d   Notes: %d\n", s.Decisions, s.Notes)

	if len(s.ByLanguage) > 0 {
		b.WriteString("\nBy language:\n")
		langs := make([]string, 0, len(s.ByLanguage))
		for l := range s.ByLanguage {
			langs = append(langs, l)
		}
		sort.Strings(langs)
		for _, l := range langs {
			fmt.Fprintf(&b, "  %-12s %d\n", l, s.ByLanguage[l])
		}
	}
	return b.String()
}
