package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ctxengine/internal/storage"
)

var warningsCmd = &cobra.Command{
	Use:   "warnings",
	Short: "Show fragile, large, and dead-code health warnings",
	RunE:  runWarnings,
}

func init() {
	rootCmd.AddCommand(warningsCmd)
}

func runWarnings(cmd *cobra.Command, args []string) error {
	sess, err := openSession(false)
	if err != nil {
		fail(err)
		return nil
	}
	defer sess.Close()

	warnings, err := sess.engine.HealthWarnings()
	if err != nil {
		fail(err)
		return nil
	}
	sess.recordActivity("warnings", args)

	output, err := FormatResponse(warnings, outputFormat(), func() string { return formatWarningsHuman(warnings) })
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}

func formatWarningsHuman(w *storage.HealthWarnings) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Fragile (%d):\n", len(w.Fragile))
	for _, f := range w.Fragile {
		fmt.Fprintf(&b, "  %s  (churn %.2f)\n", f.Path, f.ChurnScore)
	}

	fmt.Fprintf(&b, "\nLarge (%d):\n", len(w.Large))
	for _, f := range w.Large {
		fmt.Fprintf(&b, "  %s  (%d lines)\n", f.Path, f.LineCount)
	}

	fmt.Fprintf(&b, "\nDead (%d):\n", len(w.Dead))
	for _, f := range w.Dead {
		fmt.Fprintf(&b, "  %s\n", f.Path)
	}

	return b.String()
}
