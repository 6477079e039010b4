package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	success   = color.New(color.FgGreen, color.Bold).SprintFunc()
	warning   = color.New(color.FgYellow).SprintFunc()
	negative  = color.New(color.FgRed).SprintFunc()
	highlight = color.New(color.FgCyan).SprintFunc()
)

// summaryWriter keeps stdout clean when the export itself goes there
func summaryWriter(cmd *cobra.Command, output string) io.Writer {
	if output == "" {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

// writeOutput writes rendered data to path, or to stdout when path is empty
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", success("Wrote"), path)
	return nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
