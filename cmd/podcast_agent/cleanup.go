package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/podcast-agent/internal/config"
	"github.com/jonathan/podcast-agent/internal/observability"
	"github.com/jonathan/podcast-agent/internal/output"
)

var cleanupCommand = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete session directories older than a maximum age",
	RunE:  runCleanupCmd,
}

var (
	cleanupOutputDir string
	cleanupMaxAge    time.Duration
)

func init() {
	cleanupCommand.Flags().StringVarP(&cleanupOutputDir, "output-dir", "o", config.Defaults().OutputDir, "Directory holding session folders")
	cleanupCommand.Flags().DurationVar(&cleanupMaxAge, "max-age", output.DefaultMaxAge, "Delete sessions last modified longer ago than this")
	rootCmd.AddCommand(cleanupCommand)
}

func runCleanupCmd(cmd *cobra.Command, _ []string) error {
	if cleanupMaxAge <= 0 {
		return fmt.Errorf("--max-age must be positive")
	}
	if _, err := os.Stat(cleanupOutputDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to access %s: %w", cleanupOutputDir, err)
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	stats, err := output.Cleanup(cleanupOutputDir, cleanupMaxAge, time.Now())
	if err != nil {
		return err
	}

	if stats.DeletedDirs == 0 {
		printer.PrintNotice("nothing older than %s in %s", cleanupMaxAge, cleanupOutputDir)
		return nil
	}
	printer.PrintNotice("cleanup of %s: %s", cleanupOutputDir, stats)
	return nil
}
