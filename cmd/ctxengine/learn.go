package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ctxengine/internal/errors"
)

var learnFile string

var learnCmd = &cobra.Command{
	Use:   "learn <body>",
	Short: "Record a manual knowledge note, optionally anchored to a tracked file",
	Args:  cobra.ExactArgs(1),
	RunE:  runLearn,
}

func init() {
	learnCmd.Flags().StringVar(&learnFile, "file", "", "project-relative path this note concerns")
	rootCmd.AddCommand(learnCmd)
}

func runLearn(cmd *cobra.Command, args []string) error {
	body := args[0]
	if body == "" {
		fail(errors.New(errors.Usage, "note body must not be empty"))
		return nil
	}

	sess, err := openSession(false)
	if err != nil {
		fail(err)
		return nil
	}
	defer sess.Close()

	var relatedFile *string
	if learnFile != "" {
		relatedFile = &learnFile
	}

	note, err := sess.engine.Learn(body, relatedFile)
	if err != nil {
		fail(err)
		return nil
	}
	sess.recordActivity("learn", args)

	output, err := FormatResponse(note, outputFormat(), func() string {
		return fmt.Sprintf("Recorded note #%d at %s\n  %s\n", note.ID, note.Timestamp.Format("2006-01-02T15:04:05Z"), note.Body)
	})
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}
