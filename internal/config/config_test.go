package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/podcast-agent/internal/backoff"
	"github.com/jonathan/podcast-agent/internal/llm"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"topic": "Ocean tides",
		"parts": 4,
		"use_search": true,
		"stages": ["script", "video"],
		"video_max_wait": "15m",
		"poll_base": 2,
		"verbose": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "Ocean tides", cfg.Topic)
	assert.Equal(t, 4, cfg.Parts)
	assert.True(t, cfg.UseSearch)
	assert.Equal(t, []string{"script", "video"}, cfg.Stages)
	assert.Equal(t, 15*time.Minute, cfg.VideoMaxWait.Std())
	assert.Equal(t, 2*time.Second, cfg.PollBase.Std())
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
topic: Volcanoes
parts: 2
backend: sdk
request_timeout: 90s
poll_max: 45
log_format: json
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Volcanoes", cfg.Topic)
	assert.Equal(t, 2, cfg.Parts)
	assert.Equal(t, "sdk", cfg.Backend)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout.Std())
	assert.Equal(t, 45*time.Second, cfg.PollMax.Std())
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{ invalid json }`)

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	path := writeFile(t, "config.yml", "video_max_wait: soon\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_AI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "fallback-key")
	t.Setenv("GEMINI_MODEL", "gemini-test")
	t.Setenv("DATABASE_URL", "postgres://localhost/podcasts")

	cfg := FromEnv()
	assert.Equal(t, "fallback-key", cfg.APIKey)
	assert.Equal(t, "gemini-test", cfg.TextModel)
	assert.Equal(t, "postgres://localhost/podcasts", cfg.DatabaseURL)

	t.Setenv("GOOGLE_AI_API_KEY", "primary-key")
	assert.Equal(t, "primary-key", FromEnv().APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults", cfg: Defaults()},
		{name: "empty", cfg: Config{}},
		{name: "too many parts", cfg: Config{Parts: 11}, wantErr: "'parts'"},
		{name: "unknown backend", cfg: Config{Backend: "grpc"}, wantErr: "'backend'"},
		{name: "unknown stage", cfg: Config{Stages: []string{"audio"}}, wantErr: "stages"},
		{name: "bad log level", cfg: Config{LogLevel: "loud"}, wantErr: "'log_level'"},
		{name: "bad base url", cfg: Config{BaseURL: "not a url"}, wantErr: "'base_url'"},
		{name: "negative wait", cfg: Config{VideoMaxWait: Duration(-time.Second)}, wantErr: "'video_max_wait'"},
		{name: "poll max below base", cfg: Config{PollBase: Duration(time.Minute), PollMax: Duration(time.Second)}, wantErr: "poll_max"},
		{name: "video without script", cfg: Config{Stages: []string{"image", "video"}}, wantErr: "needs the script stage"},
		{name: "missing seed image", cfg: Config{SeedImage: "/nonexistent/seed.png"}, wantErr: "seed image not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, err.Error(), "config error")
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{
		Topic:     "Ocean tides",
		Parts:     5,
		TextModel: "gemini-custom",
	}

	merged := cfg.MergeWithDefaults(Defaults())

	// Set values are kept
	assert.Equal(t, "Ocean tides", merged.Topic)
	assert.Equal(t, 5, merged.Parts)
	assert.Equal(t, "gemini-custom", merged.TextModel)

	// Empty values are filled
	assert.Equal(t, "imagen-3.0-generate-002", merged.ImageModel)
	assert.Equal(t, "rest", merged.Backend)
	assert.Equal(t, DefaultVideoMaxWait, merged.VideoMaxWait.Std())
	assert.Equal(t, "tmp", merged.OutputDir)

	// Original untouched
	assert.Empty(t, cfg.ImageModel)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{Topic: "x"}
	merged := cfg.MergeWithDefaults(Config{})
	assert.Equal(t, cfg, merged)
}

func TestLLMConfigAndPollPolicy(t *testing.T) {
	cfg := Defaults()
	cfg.VideoModel = "veo-custom"
	cfg.TextModel = ""
	cfg.Backend = "sdk"

	models := cfg.LLMConfig()
	assert.Equal(t, llm.BackendSDK, models.Backend)
	assert.Equal(t, "veo-custom", models.GetModel(llm.RoleVideo))
	assert.Equal(t, llm.DefaultConfig().GetModel(llm.RoleText), models.GetModel(llm.RoleText))

	assert.Equal(t, backoff.DefaultPolicy(), cfg.PollPolicy())
}

func TestDuration_JSONRoundTrip(t *testing.T) {
	d := Duration(90 * time.Second)
	data, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(data))

	var back Duration
	require.NoError(t, back.UnmarshalJSON(data))
	assert.Equal(t, d, back)
	assert.Error(t, back.UnmarshalJSON([]byte(`true`)))
}
