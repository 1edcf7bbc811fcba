package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/podcast-agent/internal/db"
	"github.com/jonathan/podcast-agent/internal/observability"
)

var historyCommand = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded runs, or show one run's script",
	Long:  "Reads the run history recorded in PostgreSQL (--db-url or DATABASE_URL).",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistoryCmd,
}

var (
	historyDatabaseURL string
	historyLimit       int
)

func init() {
	historyCommand.Flags().StringVar(&historyDatabaseURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL env var)")
	historyCommand.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list")
	rootCmd.AddCommand(historyCommand)
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	dbURL := historyDatabaseURL
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	store, err := db.Connect(ctx, dbURL)
	if err != nil {
		return err
	}
	defer store.Close()

	printer := observability.NewPrinter(cmd.OutOrStdout())
	if len(args) == 1 {
		return showRun(ctx, cmd, store, printer, args[0])
	}

	runs, err := store.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		printer.PrintNotice("no runs recorded")
		return nil
	}
	for _, run := range runs {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), formatRun(run))
	}
	return nil
}

func showRun(ctx context.Context, cmd *cobra.Command, store *db.DB, printer *observability.Printer, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid run id: %w", err)
	}
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run not found: %s", id)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), formatRun(*run))

	script, err := store.GetScript(ctx, id)
	if err != nil {
		return err
	}
	printer.PrintScript(script)
	return nil
}

// formatRun renders one history line
func formatRun(run db.Run) string {
	line := fmt.Sprintf("%s  %s  %-9s  %d parts", run.ID, run.CreatedAt.Local().Format("2006-01-02 15:04"), run.Status, run.PartCount)
	if run.UseSearch {
		line += ", search"
	}
	line += "  " + run.Topic
	if run.SessionDir != nil {
		line += "  (" + *run.SessionDir + ")"
	}
	return line
}
