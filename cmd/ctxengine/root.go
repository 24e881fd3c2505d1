package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	projectFlag string
	jsonFlag    bool
)

var rootCmd = &cobra.Command{
	Use:   "ctxengine",
	Short: "ctxengine - local, offline code intelligence engine",
	Long: `ctxengine indexes a codebase's symbols, imports, and git history into a
local SQLite store, so a CLI or agent collaborator can query structure,
blast radius, and decision history without a network round trip.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "p", "", "project root (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "machine-readable JSON output")
}

// resolveProjectRoot applies --project's precedence over the current
// directory, mirroring the teacher's flag-then-env-then-default chain
// in cmd/ckb/root.go (this engine has no config-file-level project
// root to consult, since the config lives inside the project itself).
func resolveProjectRoot() (string, error) {
	if projectFlag != "" {
		return projectFlag, nil
	}
	return os.Getwd()
}

func outputFormat() OutputFormat {
	if jsonFlag {
		return FormatJSON
	}
	return FormatHuman
}
