package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ctxengine/internal/storage"
)

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "List recorded decisions, newest first",
	RunE:  runDecisions,
}

func init() {
	rootCmd.AddCommand(decisionsCmd)
}

func runDecisions(cmd *cobra.Command, args []string) error {
	sess, err := openSession(false)
	if err != nil {
		fail(err)
		return nil
	}
	defer sess.Close()

	decisions, err := sess.engine.Decisions()
	if err != nil {
		fail(err)
		return nil
	}
	sess.recordActivity("decisions", args)

	output, err := FormatResponse(decisions, outputFormat(), func() string { return formatDecisionsHuman(decisions) })
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}

func formatDecisionsHuman(decisions []storage.Decision) string {
	if len(decisions) == 0 {
		return "(no decisions recorded)"
	}
	var b strings.Builder
	for _, d := range decisions {
		ref := ""
		if d.Reference != nil && *d.Reference != "" {
			ref = " " + shortRef(*d.Reference)
		}
		fmt.Fprintf(&b, "[%s]%s %s: %s\n", d.Kind, ref, d.Timestamp.Format("2006-01-02"), d.Subject)
	}
	return b.String()
}

func shortRef(ref string) string {
	if len(ref) > 12 {
		return "(" + ref[:12] + ")"
	}
	return "(" + ref + ")"
}
