package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ctxengine/internal/errors"
	"ctxengine/internal/index"
	"ctxengine/internal/scanner"
	"ctxengine/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the project tree, running an incremental pass on every debounced batch of changes",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	sess, err := openSession(true)
	if err != nil {
		fail(err)
		return nil
	}
	defer sess.Close()

	root := sess.proj.CanonicalRoot
	cfg := sess.cfg

	runPass := func(projectRoot string, events []watcher.Event) {
		sess.logger.Info("watch: change batch observed, running incremental pass", map[string]interface{}{
			"events": len(events),
		})
		pass := index.NewPass(projectRoot, sess.db, sess.logger)
		summary, err := pass.Run(context.Background(), index.Options{
			ExtraIgnore:      cfg.Scanner.ExtraIgnore,
			MaxFileSizeBytes: cfg.Scanner.MaxFileSizeBytes,
			GitEnabled:       cfg.Git.Enabled,
		})
		if err != nil {
			sess.logger.Error("watch: incremental pass failed", map[string]interface{}{"error": err.Error()})
			return
		}
		sess.logger.Info("watch: incremental pass complete", map[string]interface{}{
			"files_changed": summary.FilesChanged,
			"elapsed_ms":    summary.ElapsedMs,
		})
	}

	w, err := watcher.New(root, watcher.Config{DebounceMs: cfg.Watcher.DebounceMs}, watchIgnoreFunc, sess.logger, runPass)
	if err != nil {
		fail(errors.Wrap(errors.Io, "start watcher", err))
		return nil
	}

	// An initial pass brings the store up to date before watching
	// begins, matching scan's own incrementality rule.
	initialPass := index.NewPass(root, sess.db, sess.logger)
	if _, err := initialPass.Run(context.Background(), index.Options{
		ExtraIgnore:      cfg.Scanner.ExtraIgnore,
		MaxFileSizeBytes: cfg.Scanner.MaxFileSizeBytes,
		GitEnabled:       cfg.Git.Enabled,
	}); err != nil {
		fail(err)
		return nil
	}

	if err := w.Start(); err != nil {
		fail(errors.Wrap(errors.Io, "start watcher", err))
		return nil
	}
	defer w.Stop()

	sess.recordActivity("watch", args)
	fmt.Printf("watching %s (Ctrl+C to stop)\n", root)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nstopping watch...")
	time.Sleep(50 * time.Millisecond) // let an in-flight debounced batch flush
	return nil
}

// watchIgnoreFunc mirrors the scanner's always-exclude precedence so
// the watcher never re-adds a watch on a directory the indexer would
// skip during a scan anyway.
func watchIgnoreFunc(path string) bool {
	return scanner.IsAlwaysExcluded(filepath.Base(path))
}
