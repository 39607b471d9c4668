package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"temudesign/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.Config{LogLevel: "warn"}, &buf)

	logger.Info("dropped")
	logger.Warn("kept", "mode", "auto_design")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "auto_design", rec["mode"])
}

func TestNewStudioWiresEverything(t *testing.T) {
	s := NewStudio(config.Config{GeminiAPIKey: "k", MaxConcurrent: 2}, slog.Default())
	assert.NotNil(t, s.HTTPClient)
	assert.NotNil(t, s.Service)
	assert.NotNil(t, s.Orchestrator)
	assert.NotNil(t, s.Gate)
}
