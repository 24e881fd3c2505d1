package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ctxengine/internal/config"
	"ctxengine/internal/errors"
	"ctxengine/internal/index"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a project's store and run the first full indexing pass",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := resolveProjectRoot()
	if err != nil {
		fail(err)
		return nil
	}
	if err := ensureConfig(root); err != nil {
		fail(errors.Wrap(errors.Io, "write default config", err))
		return nil
	}

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
	sess.recordActivity("init", args)

	output, err := FormatResponse(summary, outputFormat(), func() string { return formatSummaryHuman("Initialized", summary) })
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}

// ensureConfig writes a default .ctxengine/config.json if one isn't
// already present, mirroring the teacher's init idempotence (already
// initialized is success, not an error).
func ensureConfig(root string) error {
	path := filepath.Join(root, ".ctxengine", "config.json")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return config.DefaultConfig().Save(root)
}
