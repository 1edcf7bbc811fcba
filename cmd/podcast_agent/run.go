package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/jonathan/podcast-agent/internal/observability"
	"github.com/jonathan/podcast-agent/internal/pipeline"
	"github.com/jonathan/podcast-agent/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run [topic]",
	Short: "Generate one podcast episode end-to-end",
	Long: `Runs the image, script and video stages for a topic and saves the results.

Configuration can be loaded from a JSON or YAML file using --config. Command-line
arguments override config file values. Without a topic argument the command asks
for one on standard input.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPodcastCmd,
}

var (
	runFlags generationFlags
	runTopic string
)

func init() {
	addGenerationFlags(runCommand, &runFlags)
	runCommand.Flags().StringVarP(&runTopic, "topic", "t", "", "Podcast topic (alternative to the positional argument)")
	rootCmd.AddCommand(runCommand)
}

func runPodcastCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(cmd.Flags(), &runFlags)
	if err != nil {
		return err
	}

	topic := cfg.Topic
	if runTopic != "" {
		topic = runTopic
	}
	if len(args) == 1 {
		topic = args[0]
	}
	if strings.TrimSpace(topic) == "" {
		topic, err = promptTopic(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
	}

	a, err := newApp(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := a.request(topic)
	if err != nil {
		return err
	}

	progress := newProgressView(a.printer, cfg.Verbose)
	result, session, err := a.Execute(ctx, req, progress.handle)
	progress.stop()
	a.flushMetrics()
	if err != nil && result == nil {
		return err
	}

	a.printer.PrintResult(result)
	a.printer.PrintScript(result.Script)
	a.printer.PrintGrounding(result.Grounding)
	if session != nil {
		a.printer.PrintSession(session.Dir, sessionFiles(session))
	}
	if err != nil {
		return err
	}
	if !result.Succeeded() {
		return fmt.Errorf("%d stage(s) failed", len(result.Errors)+countSkipped(result))
	}
	return nil
}

// promptTopic asks for a topic interactively
func promptTopic(in io.Reader, out io.Writer) (string, error) {
	_, _ = fmt.Fprint(out, "Enter the topic for your podcast episode: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read topic: %w", err)
	}
	topic := strings.TrimSpace(line)
	if topic == "" {
		return "", fmt.Errorf("no topic provided")
	}
	return topic, nil
}

func countSkipped(result *types.PipelineResult) int {
	n := 0
	for _, o := range result.Stages {
		if o.Status == types.StatusSkipped {
			n++
		}
	}
	return n
}

// progressView renders pipeline events: a spinner while the video job is
// polled, and one line per stage transition.
type progressView struct {
	printer *observability.Printer
	verbose bool
	spin    *spinner.Spinner
}

func newProgressView(printer *observability.Printer, verbose bool) *progressView {
	return &progressView{
		printer: printer,
		verbose: verbose,
		spin:    spinner.New(spinner.CharSets[14], 120*time.Millisecond),
	}
}

func (v *progressView) handle(event pipeline.ProgressEvent) {
	if event.Category == pipeline.CategoryPoll {
		if v.verbose {
			v.printer.PrintEvent(event.Step, event.Category, event.Message)
			return
		}
		suffix := " " + event.Message
		if p, ok := event.Content.(types.VideoProgress); ok && p.NextDelay > 0 {
			suffix += fmt.Sprintf(", next check in %s", p.NextDelay.Round(time.Second))
		}
		v.spin.Lock()
		v.spin.Suffix = suffix
		v.spin.Unlock()
		v.spin.Start()
		return
	}

	v.spin.Stop()
	if event.Step == pipeline.StepRun && event.Category == pipeline.CategoryFinished && !v.verbose {
		return
	}
	v.printer.PrintEvent(event.Step, event.Category, event.Message)
	if event.Step == string(types.StageVideo) && event.Category == pipeline.CategoryStarted && !v.verbose {
		v.spin.Suffix = " Submitting video job..."
		v.spin.Start()
	}
}

func (v *progressView) stop() {
	v.spin.Stop()
}
