package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ctxengine/internal/index"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run an incremental indexing pass",
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	sess, err := openSession(true)
	if err != nil {
		fail(err)
		return nil
	}
	defer sess.Close()

	pass := index.NewPass(sess.proj.CanonicalRoot, sess.db, sess.logger)
	summary, err := pass.Run(context.Background(), index.Options{
		ExtraIgnore:      sess.cfg.Scanner.ExtraIgnore,
		MaxFileSizeBytes: sess.cfg.Scanner.MaxFileSizeBytes,
		GitEnabled:       sess.cfg.Git.Enabled,
	})
	if err != nil {
		fail(err)
		return nil
	}
	sess.recordActivity("scan", args)

	output, err := FormatResponse(summary, outputFormat(), func() string { return formatSummaryHuman("Scanned", summary) })
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}
