package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ctxengine/internal/errors"
	"ctxengine/internal/graph"
)

var blastRadiusCmd = &cobra.Command{
	Use:   "blast-radius <file>",
	Short: "Show a file's imports, direct and transitive dependents, and risk level",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlastRadius,
}

func init() {
	rootCmd.AddCommand(blastRadiusCmd)
}

// blastRadiusResponse is the machine envelope returned for --json,
// bundling the outgoing imports alongside the graph's blast radius
// (spec.md §6's "imports, direct dependents, transitive set, risk").
type blastRadiusResponse struct {
	Path    string             `json:"path"`
	Imports []importView       `json:"imports"`
	Radius  *graph.BlastRadius `json:"blastRadius"`
}

type importView struct {
	Raw      string `json:"raw"`
	Kind     string `json:"kind"`
	Resolved bool   `json:"resolved"`
}

func runBlastRadius(cmd *cobra.Command, args []string) error {
	path := args[0]

	sess, err := openSession(false)
	if err != nil {
		fail(err)
		return nil
	}
	defer sess.Close()

	file, err := sess.engine.FileByPath(path)
	if err != nil {
		fail(err)
		return nil
	}
	if file == nil {
		fail(errors.New(errors.NotFound, "file not tracked").WithPath(path))
		return nil
	}

	imports, err := sess.engine.ImportsOf(file.ID)
	if err != nil {
		fail(err)
		return nil
	}
	views := make([]importView, 0, len(imports))
	for _, imp := range imports {
		views = append(views, importView{Raw: imp.ToPath, Kind: imp.Kind, Resolved: imp.Resolved()})
	}

	radius, err := sess.engine.BlastRadius(file.ID, file.ChurnScore)
	if err != nil {
		fail(err)
		return nil
	}
	sess.recordActivity("blast-radius", args)

	resp := &blastRadiusResponse{Path: path, Imports: views, Radius: radius}
	output, err := FormatResponse(resp, outputFormat(), func() string { return formatBlastRadiusHuman(resp) })
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}

func formatBlastRadiusHuman(r *blastRadiusResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Blast radius: %s\n", r.Path)
	fmt.Fprintf(&b, "Risk: %s\n\n", r.Radius.Risk)

	fmt.Fprintf(&b, "Imports (%d):\n", len(r.Imports))
	for _, imp := range r.Imports {
		status := "unresolved"
		if imp.Resolved {
			status = "resolved"
		}
		fmt.Fprintf(&b, "  %s (%s, %s)\n", imp.Raw, imp.Kind, status)
	}

	fmt.Fprintf(&b, "\nDirect dependents (%d):\n", len(r.Radius.Direct))
	for _, d := range r.Radius.Direct {
		fmt.Fprintf(&b, "  %s\n", d.Path)
	}

	fmt.Fprintf(&b, "\nTransitive dependents (%d, max depth %d):\n", len(r.Radius.Transitive), r.Radius.MaxDepth)
	for _, d := range r.Radius.Transitive {
		fmt.Fprintf(&b, "  %s (depth %d)\n", d.Path, d.Depth)
	}

	return b.String()
}
