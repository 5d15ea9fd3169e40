package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	roomsync "github.com/groblegark/roomstore/internal/sync"
)

var exportCmd = &cobra.Command{
	Use:     "export [file]",
	Short:   "Export the event journal as JSONL",
	Long: `Export the event journal as JSONL.

Writes every room and every event, including the byte-preserved
original payloads, to the given file or to stdout.`,
	GroupID: "system",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		out := os.Stdout
		if len(args) == 1 {
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		if err := roomsync.ExportJSONL(context.Background(), s, out); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		return nil
	},
}
