package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"sailperf/internal/replay"
)

func newSummarizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <capture>",
		Short: "Summarize a recorded capture log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printCaptureSummary(cmd.OutOrStdout(), args[0])
		},
	}
}

func printCaptureSummary(w io.Writer, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	recs, err := replay.ReadFile(path)
	if err != nil {
		return err
	}

	s := replay.Summarize(recs)
	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "lines: %d\n", s.Lines)
	fmt.Fprintf(w, "invalid_lines: %d\n", s.Invalid)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)
	fmt.Fprintf(w, "identifier_counts:\n")
	for _, id := range s.SortedIdentifiers() {
		fmt.Fprintf(w, "  %s: %d\n", id, s.Identifiers[id])
	}
	return nil
}
