package main

import (
	"os"

	"ctxengine/internal/errors"
	"ctxengine/internal/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel, Output: os.Stderr})
		logger.Error("command failed", map[string]interface{}{"error": err.Error()})
		os.Exit(errors.ExitCode(errors.CodeOf(err)))
	}
}
