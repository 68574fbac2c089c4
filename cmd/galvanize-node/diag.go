package main

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"

	"github.com/ContinuumBridge/galvanize-test-node-app/internal/diag"
)

var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Inspect the node's diagnostic ring buffer",
}

var diagDumpPath string

var diagDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the last recorded state transitions from a diag snapshot file",
	RunE:  diagDump,
}

func init() {
	diagDumpCmd.Flags().StringVar(&diagDumpPath, "diag-file", "", "Path to a diag snapshot file written by `run --diag-file`")
	diagDumpCmd.MarkFlagRequired("diag-file")
	diagCmd.AddCommand(diagDumpCmd)
}

func diagDump(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(diagDumpPath)
	if err != nil {
		return fmt.Errorf("diag dump: read %s: %w", diagDumpPath, err)
	}
	var transitions []diag.Transition
	if err := cbor.Unmarshal(data, &transitions); err != nil {
		return fmt.Errorf("diag dump: decode %s: %w", diagDumpPath, err)
	}
	for _, t := range transitions {
		fmt.Printf("%s  %-6s %s -> %s\n", t.At.Format("2006-01-02T15:04:05.000Z07:00"), t.Source, t.From, t.To)
	}
	return nil
}
