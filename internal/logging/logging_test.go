package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_JSONWithAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := WithRunID(WithComponent(New(&buf, "info", "json"), "pipeline"), "run-1")
	logger.Debug("hidden")
	logger.Info("stage finished", "stage", "script")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "stage finished", entry["msg"])
	assert.Equal(t, "pipeline", entry["component"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "script", entry["stage"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	WithStage(New(&buf, "debug", "text"), "video").Debug("poll")
	assert.Contains(t, buf.String(), "stage=video")
	assert.Contains(t, buf.String(), "msg=poll")
}

func TestOrDefault(t *testing.T) {
	assert.Same(t, slog.Default(), OrDefault(nil))
	l := Discard()
	assert.Same(t, l, OrDefault(l))
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "****", SanitizeKey(""))
	assert.Equal(t, "****", SanitizeKey("12345678"))
	assert.Equal(t, "AIza...wxyz", SanitizeKey("AIzaSyABCDEFGHwxyz"))
}

func TestSanitizePath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" || home == "/" {
		t.Skip("no home directory")
	}
	assert.Equal(t, filepath.Join("~", "tmp", "x"), SanitizePath(filepath.Join(home, "tmp", "x")))
	assert.Equal(t, "/elsewhere", SanitizePath("/elsewhere"))
}
