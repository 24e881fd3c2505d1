package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ctxengine/internal/errors"
	"ctxengine/internal/query"
)

var queryLimit int

var queryCmd = &cobra.Command{
	Use:   "query <term>",
	Short: "Search tracked symbols by name or signature",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "maximum matches to return (default: config search.maxResults)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	term := args[0]
	if term == "" {
		fail(errors.New(errors.Usage, "query term must not be empty"))
		return nil
	}

	sess, err := openSession(false)
	if err != nil {
		fail(err)
		return nil
	}
	defer sess.Close()

	limit := queryLimit
	if limit <= 0 {
		limit = sess.cfg.Search.MaxResults
	}

	results, err := sess.engine.SearchSymbols(term, limit)
	if err != nil {
		fail(err)
		return nil
	}
	sess.recordActivity("query", args)

	output, err := FormatResponse(results, outputFormat(), func() string { return formatQueryHuman(term, results) })
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}

func formatQueryHuman(term string, results []query.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("no matches for %q", term)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d match(es) for %q:\n\n", len(results), term)
	for _, r := range results {
		if r.MatchType == "file" {
			fmt.Fprintf(&b, "%s:%d\n  %s\n\n", r.Path, r.Line, r.Name)
			continue
		}
		fmt.Fprintf(&b, "%s (%s)  [%s]\n", r.Name, r.Kind, r.MatchType)
		fmt.Fprintf(&b, "  %s\n", r.Path)
		if r.Signature != "" {
			fmt.Fprintf(&b, "  %s\n", r.Signature)
		}
		b.WriteString("\n")
	}
	return b.String()
}
