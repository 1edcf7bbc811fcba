package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jonathan/podcast-agent/internal/config"
)

// generationFlags are shared by the run and batch commands
type generationFlags struct {
	configPath      string
	parts           int
	useSearch       bool
	imagePrompt     string
	seedImage       string
	stages          []string
	apiKey          string
	backend         string
	imageModel      string
	textModel       string
	videoModel      string
	requestTimeout  time.Duration
	videoMaxWait    time.Duration
	pollKind        string
	pollBase        time.Duration
	pollMax         time.Duration
	outputDir       string
	databaseURL     string
	metricsFile     string
	tracingEndpoint string
	logLevel        string
	verbose         bool
}

func addGenerationFlags(cmd *cobra.Command, f *generationFlags) {
	fs := cmd.Flags()
	// Config file flag (processed first)
	fs.StringVar(&f.configPath, "config", "", "Path to a JSON or YAML config file (values can be overridden by other flags)")

	fs.IntVarP(&f.parts, "parts", "p", 0, "Number of script parts (1-10, default 3)")
	fs.BoolVarP(&f.useSearch, "search", "s", false, "Ground the script in web search results")
	fs.StringVar(&f.imagePrompt, "image-prompt", "", "Custom prompt for the cover image")
	fs.StringVar(&f.seedImage, "seed-image", "", "Image file used as the video's first frame instead of the generated cover")
	fs.StringSliceVar(&f.stages, "stages", nil, "Stages to run (image,script,video; default all)")

	// API key can be passed as a flag, or read from GOOGLE_AI_API_KEY / GEMINI_API_KEY
	fs.StringVar(&f.apiKey, "api-key", "", "Google AI API key (optional, defaults to GOOGLE_AI_API_KEY env var)")
	fs.StringVar(&f.backend, "backend", "", "Text model backend: rest or sdk")
	fs.StringVar(&f.imageModel, "image-model", "", "Image model name (defaults to IMAGEN_MODEL env var)")
	fs.StringVar(&f.textModel, "text-model", "", "Script model name (defaults to GEMINI_MODEL env var)")
	fs.StringVar(&f.videoModel, "video-model", "", "Video model name (defaults to VEO_MODEL env var)")

	fs.DurationVar(&f.requestTimeout, "request-timeout", 0, "Timeout for each model request")
	fs.DurationVar(&f.videoMaxWait, "video-max-wait", 0, "Maximum time to wait for a video job")
	fs.StringVar(&f.pollKind, "poll", "", "Video poll schedule: fixed, linear, exponential, exp_equal_jitter, exp_full_jitter")
	fs.DurationVar(&f.pollBase, "poll-base", 0, "First video poll interval")
	fs.DurationVar(&f.pollMax, "poll-max", 0, "Longest video poll interval")

	fs.StringVarP(&f.outputDir, "output-dir", "o", "", "Directory that receives session folders (default tmp)")
	// Database URL for run history
	fs.StringVar(&f.databaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
	fs.StringVar(&f.tracingEndpoint, "otlp-endpoint", "", "Export traces to this OTLP gRPC endpoint")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Print every progress event and debug logs")
}

// loadConfig resolves the effective configuration: flags, then config file,
// then environment, then built-in defaults.
func loadConfig(fs *pflag.FlagSet, f *generationFlags) (config.Config, error) {
	var cfg config.Config
	if f.configPath != "" {
		loaded, err := config.LoadConfig(f.configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		// Validate loaded config
		if err := loaded.Validate(); err != nil {
			return config.Config{}, err
		}
		cfg = *loaded
	}

	applyOverrides(fs, &cfg, f)

	cfg = cfg.MergeWithDefaults(config.FromEnv())
	cfg = cfg.MergeWithDefaults(config.Defaults())

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// applyOverrides copies explicitly set flags onto cfg
func applyOverrides(fs *pflag.FlagSet, cfg *config.Config, f *generationFlags) {
	// Only override if the flag was explicitly set
	if fs.Changed("parts") {
		cfg.Parts = f.parts
	}
	if fs.Changed("search") {
		cfg.UseSearch = f.useSearch
	}
	if fs.Changed("image-prompt") {
		cfg.ImagePrompt = f.imagePrompt
	}
	if fs.Changed("seed-image") {
		cfg.SeedImage = f.seedImage
	}
	if fs.Changed("stages") {
		cfg.Stages = f.stages
	}
	if fs.Changed("api-key") {
		cfg.APIKey = f.apiKey
	}
	if fs.Changed("backend") {
		cfg.Backend = f.backend
	}
	if fs.Changed("image-model") {
		cfg.ImageModel = f.imageModel
	}
	if fs.Changed("text-model") {
		cfg.TextModel = f.textModel
	}
	if fs.Changed("video-model") {
		cfg.VideoModel = f.videoModel
	}
	if fs.Changed("request-timeout") {
		cfg.RequestTimeout = config.Duration(f.requestTimeout)
	}
	if fs.Changed("video-max-wait") {
		cfg.VideoMaxWait = config.Duration(f.videoMaxWait)
	}
	if fs.Changed("poll") {
		cfg.PollKind = f.pollKind
	}
	if fs.Changed("poll-base") {
		cfg.PollBase = config.Duration(f.pollBase)
	}
	if fs.Changed("poll-max") {
		cfg.PollMax = config.Duration(f.pollMax)
	}
	if fs.Changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
	if fs.Changed("db-url") {
		cfg.DatabaseURL = f.databaseURL
	}
	if fs.Changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if fs.Changed("otlp-endpoint") {
		cfg.TracingEndpoint = f.tracingEndpoint
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if fs.Changed("verbose") {
		cfg.Verbose = f.verbose
	}
}
