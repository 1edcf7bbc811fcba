package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/podcast-agent/internal/output"
	"github.com/jonathan/podcast-agent/internal/types"
)

var batchCommand = &cobra.Command{
	Use:   "batch [topic...]",
	Short: "Generate several podcast episodes concurrently",
	Long: `Runs the full pipeline for every topic given as arguments or listed in --topics-file
(one topic per line, '#' starts a comment). Runs are independent: a failure in one
never affects another.`,
	RunE: runBatchCmd,
}

var (
	batchFlags       generationFlags
	batchTopicsFile  string
	batchConcurrency int
)

func init() {
	addGenerationFlags(batchCommand, &batchFlags)
	batchCommand.Flags().StringVarP(&batchTopicsFile, "topics-file", "f", "", "File with one topic per line")
	batchCommand.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 2, "Number of runs in flight")
	rootCmd.AddCommand(batchCommand)
}

// batchOutcome is what one batch entry produced
type batchOutcome struct {
	topic   string
	result  *types.PipelineResult
	session *output.Session
	err     error
}

func runBatchCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(cmd.Flags(), &batchFlags)
	if err != nil {
		return err
	}

	topics := append([]string(nil), args...)
	if batchTopicsFile != "" {
		f, err := os.Open(batchTopicsFile)
		if err != nil {
			return fmt.Errorf("failed to open topics file: %w", err)
		}
		fromFile, err := readTopics(f)
		_ = f.Close()
		if err != nil {
			return err
		}
		topics = append(topics, fromFile...)
	}
	if len(topics) == 0 {
		return fmt.Errorf("no topics given (pass them as arguments or use --topics-file)")
	}
	if batchConcurrency <= 0 {
		batchConcurrency = 1
	}

	a, err := newApp(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	// Build every request up front so bad input fails before any model call
	requests := make([]types.GenerationRequest, len(topics))
	for i, topic := range topics {
		if requests[i], err = a.request(topic); err != nil {
			return fmt.Errorf("topic %d (%q): %w", i+1, topic, err)
		}
	}

	bar := progressbar.NewOptions(len(requests),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("Generating podcasts"),
		progressbar.OptionSetWidth(18),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	outcomes := make([]batchOutcome, len(requests))
	var barMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, req := range requests {
		g.Go(func() error {
			result, session, err := a.Execute(gctx, req, nil)
			outcomes[i] = batchOutcome{topic: req.Topic, result: result, session: session, err: err}

			barMu.Lock()
			_ = bar.Add(1)
			barMu.Unlock()
			// Per-run failures are reported below; only cancellation stops the batch
			return gctx.Err()
		})
	}
	waitErr := g.Wait()
	_ = bar.Finish()
	a.flushMetrics()

	failed := 0
	for _, o := range outcomes {
		switch {
		case o.result == nil && o.err == nil:
			a.printer.PrintWarning("%s: not started", o.topic)
			failed++
			continue
		case o.result == nil:
			a.printer.PrintWarning("%s: %v", o.topic, o.err)
			failed++
			continue
		}
		a.printer.PrintResult(o.result)
		if o.session != nil {
			a.printer.PrintSession(o.session.Dir, nil)
		}
		if o.err != nil || !o.result.Succeeded() {
			failed++
		}
	}

	if waitErr != nil {
		return fmt.Errorf("batch interrupted: %w", waitErr)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d runs did not fully succeed", failed, len(outcomes))
	}
	a.printer.PrintNotice("all %d runs succeeded", len(outcomes))
	return nil
}

// readTopics reads one topic per line, skipping blanks and '#' comments
func readTopics(r io.Reader) ([]string, error) {
	var topics []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		topics = append(topics, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read topics: %w", err)
	}
	return topics, nil
}
