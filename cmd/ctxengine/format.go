package main

import (
	"encoding/json"
	"fmt"
)

// OutputFormat is the output mode every command's --json flag toggles
// between, mirroring the teacher's OutputFormat/FormatResponse pair in
// cmd/ckb/format.go.
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse marshals resp as indented JSON, or calls human to
// render the same data as text. Unlike the teacher's type-switch over
// every CLI response struct, each command supplies its own human
// renderer directly: this engine's response shapes don't share a
// common envelope (no Provenance/Drilldowns wrapper) worth switching
// on centrally.
func FormatResponse(resp interface{}, format OutputFormat, human func() string) (string, error) {
	if format == FormatJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal json: %w", err)
		}
		return string(data), nil
	}
	return human(), nil
}
