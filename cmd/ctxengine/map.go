package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ctxengine/internal/query"
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Show directory-aggregated file and symbol counts",
	RunE:  runMap,
}

func init() {
	rootCmd.AddCommand(mapCmd)
}

func runMap(cmd *cobra.Command, args []string) error {
	sess, err := openSession(false)
	if err != nil {
		fail(err)
		return nil
	}
	defer sess.Close()

	dirs, err := sess.engine.DirectoryMap()
	if err != nil {
		fail(err)
		return nil
	}
	sess.recordActivity("map", args)

	output, err := FormatResponse(dirs, outputFormat(), func() string { return formatMapHuman(dirs) })
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}

func formatMapHuman(dirs []query.DirStat) string {
	if len(dirs) == 0 {
		return "(no tracked files)"
	}
	var b strings.Builder
	for _, d := range dirs {
		fmt.Fprintf(&b, "%-40s  %4d files  %5d symbols\n", d.Path, d.Files, d.Symbols)
	}
	return b.String()
}
