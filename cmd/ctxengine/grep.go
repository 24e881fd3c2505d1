package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ctxengine/internal/errors"
)

var grepLimit int

var grepCmd = &cobra.Command{
	Use:   "grep <term>",
	Short: "Literal-substring search over symbol names and signatures, bypassing FTS ranking",
	Args:  cobra.ExactArgs(1),
	RunE:  runGrep,
}

func init() {
	grepCmd.Flags().IntVar(&grepLimit, "max-results", 50, "maximum matches to return")
	rootCmd.AddCommand(grepCmd)
}

func runGrep(cmd *cobra.Command, args []string) error {
	term := args[0]
	if term == "" {
		fail(errors.New(errors.Usage, "grep term must not be empty"))
		return nil
	}

	sess, err := openSession(false)
	if err != nil {
		fail(err)
		return nil
	}
	defer sess.Close()

	results, err := sess.engine.GrepSymbols(term, grepLimit)
	if err != nil {
		fail(err)
		return nil
	}
	sess.recordActivity("grep", args)

	output, err := FormatResponse(results, outputFormat(), func() string { return formatQueryHuman(term, results) })
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}
