// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/podcast-agent/internal/backoff"
	"github.com/jonathan/podcast-agent/internal/llm"
	"github.com/jonathan/podcast-agent/internal/types"
)

// Config represents the CLI configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Generation
	Topic       string   `json:"topic,omitempty" yaml:"topic,omitempty"`
	Parts       int      `json:"parts,omitempty" yaml:"parts,omitempty" validate:"omitempty,min=1,max=10"`
	UseSearch   bool     `json:"use_search,omitempty" yaml:"use_search,omitempty"`
	ImagePrompt string   `json:"image_prompt,omitempty" yaml:"image_prompt,omitempty"`
	SeedImage   string   `json:"seed_image,omitempty" yaml:"seed_image,omitempty"` // Path to an image used as the video's first frame
	Stages      []string `json:"stages,omitempty" yaml:"stages,omitempty" validate:"dive,oneof=image script video"`

	// Models
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Backend    string `json:"backend,omitempty" yaml:"backend,omitempty" validate:"omitempty,oneof=rest sdk"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
	ImageModel string `json:"image_model,omitempty" yaml:"image_model,omitempty"`
	TextModel  string `json:"text_model,omitempty" yaml:"text_model,omitempty"`
	VideoModel string `json:"video_model,omitempty" yaml:"video_model,omitempty"`

	// Timing
	RequestTimeout Duration `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty" validate:"gte=0"`
	VideoMaxWait   Duration `json:"video_max_wait,omitempty" yaml:"video_max_wait,omitempty" validate:"gte=0"`
	PollKind       string   `json:"poll_kind,omitempty" yaml:"poll_kind,omitempty" validate:"omitempty,oneof=fixed linear exponential exp_equal_jitter exp_full_jitter"`
	PollBase       Duration `json:"poll_base,omitempty" yaml:"poll_base,omitempty" validate:"gte=0"`
	PollMax        Duration `json:"poll_max,omitempty" yaml:"poll_max,omitempty" validate:"gte=0"`

	// Output and observability
	OutputDir       string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	DatabaseURL     string `json:"database_url,omitempty" yaml:"database_url,omitempty"` // PostgreSQL connection URL
	MetricsFile     string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty"`
	TracingEndpoint string `json:"tracing_endpoint,omitempty" yaml:"tracing_endpoint,omitempty"`
	LogLevel        string `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat       string `json:"log_format,omitempty" yaml:"log_format,omitempty" validate:"omitempty,oneof=json text"`
	Verbose         bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// Defaults returns the built-in configuration
func Defaults() Config {
	models := llm.DefaultConfig()
	poll := backoff.DefaultPolicy()
	return Config{
		Parts:          types.DefaultPartCount,
		Backend:        string(llm.BackendREST),
		ImageModel:     models.GetModel(llm.RoleImage),
		TextModel:      models.GetModel(llm.RoleText),
		VideoModel:     models.GetModel(llm.RoleVideo),
		RequestTimeout: Duration(DefaultRequestTimeout),
		VideoMaxWait:   Duration(DefaultVideoMaxWait),
		PollKind:       string(poll.Kind),
		PollBase:       Duration(poll.Base),
		PollMax:        Duration(poll.Max),
		OutputDir:      "tmp",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// FromEnv reads the settings that conventionally live in the environment
func FromEnv() Config {
	apiKey := os.Getenv("GOOGLE_AI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	return Config{
		APIKey:      apiKey,
		ImageModel:  os.Getenv("IMAGEN_MODEL"),
		TextModel:   os.Getenv("GEMINI_MODEL"),
		VideoModel:  os.Getenv("VEO_MODEL"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
	}
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if err := configValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("config error: invalid value for '%s' (%s)", verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.PollBase > 0 && c.PollMax > 0 && c.PollMax < c.PollBase {
		return fmt.Errorf("config error: 'poll_max' must not be shorter than 'poll_base'")
	}

	for _, stage := range c.Stages {
		if stage == string(types.StageVideo) && !contains(c.Stages, string(types.StageScript)) {
			return fmt.Errorf("config error: the video stage needs the script stage")
		}
	}

	// Validate file paths exist (if specified)
	if c.SeedImage != "" {
		if _, err := os.Stat(c.SeedImage); os.IsNotExist(err) {
			return fmt.Errorf("config error: seed image not found: %s", c.SeedImage)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	mergeString(&result.Topic, defaults.Topic)
	mergeString(&result.ImagePrompt, defaults.ImagePrompt)
	mergeString(&result.SeedImage, defaults.SeedImage)
	mergeString(&result.APIKey, defaults.APIKey)
	mergeString(&result.Backend, defaults.Backend)
	mergeString(&result.BaseURL, defaults.BaseURL)
	mergeString(&result.ImageModel, defaults.ImageModel)
	mergeString(&result.TextModel, defaults.TextModel)
	mergeString(&result.VideoModel, defaults.VideoModel)
	mergeString(&result.PollKind, defaults.PollKind)
	mergeString(&result.OutputDir, defaults.OutputDir)
	mergeString(&result.DatabaseURL, defaults.DatabaseURL)
	mergeString(&result.MetricsFile, defaults.MetricsFile)
	mergeString(&result.TracingEndpoint, defaults.TracingEndpoint)
	mergeString(&result.LogLevel, defaults.LogLevel)
	mergeString(&result.LogFormat, defaults.LogFormat)

	if len(result.Stages) == 0 {
		result.Stages = defaults.Stages
	}

	// Numeric fields: use default if zero
	if result.Parts == 0 {
		result.Parts = defaults.Parts
	}
	if result.RequestTimeout == 0 {
		result.RequestTimeout = defaults.RequestTimeout
	}
	if result.VideoMaxWait == 0 {
		result.VideoMaxWait = defaults.VideoMaxWait
	}
	if result.PollBase == 0 {
		result.PollBase = defaults.PollBase
	}
	if result.PollMax == 0 {
		result.PollMax = defaults.PollMax
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// LLMConfig returns the model client configuration
func (c *Config) LLMConfig() *llm.Config {
	cfg := llm.DefaultConfig()
	if c.Backend != "" {
		cfg.Backend = llm.Backend(c.Backend)
	}
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	for role, model := range map[llm.ModelRole]string{
		llm.RoleImage: c.ImageModel,
		llm.RoleText:  c.TextModel,
		llm.RoleVideo: c.VideoModel,
	} {
		if model != "" {
			cfg = cfg.WithModel(role, model)
		}
	}
	return cfg
}

// PollPolicy returns the video polling schedule
func (c *Config) PollPolicy() backoff.Policy {
	return backoff.Policy{
		Kind: backoff.Kind(c.PollKind),
		Base: c.PollBase.Std(),
		Max:  c.PollMax.Std(),
	}
}

// StageNames converts the configured stage list
func (c *Config) StageNames() []types.StageName {
	out := make([]types.StageName, 0, len(c.Stages))
	for _, s := range c.Stages {
		out = append(out, types.StageName(s))
	}
	return out
}

func mergeString(dst *string, fallback string) {
	if *dst == "" {
		*dst = fallback
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// configValidator reports fields by their file key rather than the Go name
func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}
