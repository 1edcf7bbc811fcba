package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/podcast-agent/internal/config"
	"github.com/jonathan/podcast-agent/internal/db"
	"github.com/jonathan/podcast-agent/internal/llm"
	"github.com/jonathan/podcast-agent/internal/logging"
	"github.com/jonathan/podcast-agent/internal/metrics"
	"github.com/jonathan/podcast-agent/internal/observability"
	"github.com/jonathan/podcast-agent/internal/output"
	"github.com/jonathan/podcast-agent/internal/pipeline"
	"github.com/jonathan/podcast-agent/internal/segment"
	"github.com/jonathan/podcast-agent/internal/server"
	"github.com/jonathan/podcast-agent/internal/stages"
	"github.com/jonathan/podcast-agent/internal/tracing"
	"github.com/jonathan/podcast-agent/internal/types"
)

// app holds everything a command needs to run and persist podcasts
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	printer *observability.Printer
	runner  *pipeline.Runner
	writer  *output.Writer
	store   *db.DB

	closers []func(context.Context) error
}

// newApp builds the model clients, stages and optional integrations for cfg
func newApp(ctx context.Context, cfg config.Config, out io.Writer) (*app, error) {
	level := cfg.LogLevel
	if cfg.Verbose {
		level = "debug"
	}
	logger := logging.NewLogger(level, cfg.LogFormat)
	a := &app{
		cfg:     cfg,
		logger:  logger,
		printer: observability.NewPrinter(out),
		writer:  output.NewWriter(cfg.OutputDir, logger),
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GOOGLE_AI_API_KEY environment variable or --api-key flag is required")
	}
	logger.Debug("model access configured", "api_key", logging.SanitizeKey(cfg.APIKey), "backend", cfg.Backend)

	llmCfg := cfg.LLMConfig()
	rest, err := llm.NewRESTClient(ctx, llmCfg, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}
	text, err := llm.NewTextModel(ctx, llmCfg, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create text model: %w", err)
	}
	if c, ok := text.(io.Closer); ok {
		a.closers = append(a.closers, func(context.Context) error { return c.Close() })
	}

	a.runner = &pipeline.Runner{
		Image: stages.NewImageStage(rest, stages.ImageConfig{
			Model:          llmCfg.GetModel(llm.RoleImage),
			RequestTimeout: cfg.RequestTimeout.Std(),
		}, logger),
		Script: stages.NewScriptStage(text, stages.ScriptConfig{
			Model:          llmCfg.GetModel(llm.RoleText),
			RequestTimeout: cfg.RequestTimeout.Std(),
		}, segment.New(), logger),
		Video: stages.NewVideoStage(rest, stages.VideoConfig{
			Model:          llmCfg.GetModel(llm.RoleVideo),
			MaxWait:        cfg.VideoMaxWait.Std(),
			RequestTimeout: cfg.RequestTimeout.Std(),
			Poll:           cfg.PollPolicy(),
		}, logger),
		Logger: logger,
	}

	if cfg.TracingEndpoint != "" {
		shutdown, err := tracing.Setup(ctx, tracing.Config{
			Enabled:  true,
			Endpoint: cfg.TracingEndpoint,
		}, logger)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			a.closers = append(a.closers, shutdown)
		}
	}

	if cfg.DatabaseURL != "" {
		a.connectStore(ctx)
	}

	return a, nil
}

// connectStore opens the run history database. The store is optional, so
// connection problems only produce a warning.
func (a *app) connectStore(ctx context.Context) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := db.Connect(connectCtx, a.cfg.DatabaseURL)
	if err != nil {
		a.printer.PrintWarning("run history disabled: %v", err)
		return
	}
	if err := store.EnsureSchema(connectCtx); err != nil {
		store.Close()
		a.printer.PrintWarning("run history disabled: %v", err)
		return
	}
	a.store = store
	a.closers = append(a.closers, func(context.Context) error {
		store.Close()
		return nil
	})
}

// Close releases clients, exporters and the database pool
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("shutdown failed", "error", err)
		}
	}
}

// request builds the generation request for topic from the configuration
func (a *app) request(topic string) (types.GenerationRequest, error) {
	opts := []types.RequestOption{
		types.WithPartCount(a.cfg.Parts),
		types.WithSearch(a.cfg.UseSearch),
		types.WithImagePrompt(a.cfg.ImagePrompt),
		types.WithStages(a.cfg.StageNames()...),
	}
	if a.cfg.SeedImage != "" {
		data, mimeType, err := loadSeedImage(a.cfg.SeedImage)
		if err != nil {
			return types.GenerationRequest{}, err
		}
		opts = append(opts, types.WithSeedImage(data, mimeType))
	}
	return types.NewGenerationRequest(topic, opts...)
}

// loadSeedImage reads an image file and sniffs its MIME type
func loadSeedImage(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read seed image: %w", err)
	}
	mimeType, err := output.DetectImageType(data)
	if err != nil {
		return nil, "", fmt.Errorf("seed image %s: %w", path, err)
	}
	return data, mimeType, nil
}

// trackRuns returns a progress callback that records each run in the store as it starts
func (a *app) trackRuns(ctx context.Context, req types.GenerationRequest, next pipeline.ProgressCallback) pipeline.ProgressCallback {
	if a.store == nil {
		return next
	}
	return func(event pipeline.ProgressEvent) {
		if event.Step == pipeline.StepRun && event.Category == pipeline.CategoryStarted {
			if id, err := uuid.Parse(event.RunID); err == nil {
				if err := a.store.CreateRun(ctx, id, req.Topic, req.PartCount, req.UseSearch); err != nil {
					a.logger.Warn("failed to record run start", "run_id", event.RunID, "error", err)
				}
			}
		}
		if next != nil {
			next(event)
		}
	}
}

// Execute runs one request through the pipeline and persists the result
func (a *app) Execute(ctx context.Context, req types.GenerationRequest, onProgress pipeline.ProgressCallback) (*types.PipelineResult, *output.Session, error) {
	runner := *a.runner
	runner.OnProgress = a.trackRuns(ctx, req, onProgress)

	result, err := runner.Run(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	session, err := a.writer.WriteSession(result)
	if err != nil {
		return result, nil, fmt.Errorf("failed to save session: %w", err)
	}

	if a.store != nil {
		if err := a.store.SaveResult(ctx, result, session.Dir); err != nil {
			a.printer.PrintWarning("failed to record run %s: %v", result.RunID, err)
		}
	}
	return result, session, nil
}

// serverConfig maps the loaded configuration onto the API server settings
func (a *app) serverConfig(port int) server.Config {
	return server.Config{
		Port:          port,
		DefaultParts:  a.cfg.Parts,
		DefaultSearch: a.cfg.UseSearch,
		Logger:        a.logger,
	}
}

// history returns the run store, or nil when none is configured
func (a *app) history() server.History {
	if a.store == nil {
		return nil
	}
	return a.store
}

var metricsMu sync.Mutex

// flushMetrics writes the Prometheus textfile if one is configured
func (a *app) flushMetrics() {
	if a.cfg.MetricsFile == "" {
		return
	}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if err := metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
		a.printer.PrintWarning("metrics file not written: %v", err)
	}
}

// sessionFiles lists the written files of a session for display
func sessionFiles(s *output.Session) []string {
	files := s.Manifest.Files
	var out []string
	for _, f := range []string{files.Image, files.Script, files.Video} {
		if f != "" {
			out = append(out, f)
		}
	}
	out = append(out, files.ScriptParts...)
	return append(out, output.ManifestFile)
}
