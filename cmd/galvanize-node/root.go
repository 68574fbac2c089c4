package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logFormat string
	logger    *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "galvanize-node",
	Short: "Call-for-service button node control core",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("galvanize-node: %w", err)
		}
		logger = log.New(os.Stderr)
		logger.SetLevel(level)
		switch logFormat {
		case "json":
			logger.SetFormatter(log.JSONFormatter)
		case "text":
			logger.SetFormatter(log.TextFormatter)
		default:
			return fmt.Errorf("galvanize-node: unknown --log-format %q", logFormat)
		}
		return nil
	},
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log output format (text, json)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(diagCmd)
}
