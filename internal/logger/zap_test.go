package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(Config{Level: "debug", Format: "json", Output: path}, SentryConfig{})
	require.NoError(t, err)

	log.Component("query").Info("hello", zap.String("k", "v"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
	assert.Contains(t, string(data), `"logger":"query"`)
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	log, err := New(Config{Level: "loud", Format: "console", Output: "stderr"}, SentryConfig{})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}

func TestNew_SentryWithoutDSNDisabled(t *testing.T) {
	log, err := New(Config{Level: "info"}, SentryConfig{Enabled: true})
	require.NoError(t, err)

	assert.False(t, log.sentryEnabled)
}

func TestZapLevelToSentry(t *testing.T) {
	tests := []struct {
		level    zapcore.Level
		expected sentry.Level
	}{
		{zapcore.DebugLevel, sentry.LevelDebug},
		{zapcore.InfoLevel, sentry.LevelInfo},
		{zapcore.WarnLevel, sentry.LevelWarning},
		{zapcore.ErrorLevel, sentry.LevelError},
		{zapcore.FatalLevel, sentry.LevelFatal},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, zapLevelToSentry(tt.level))
		})
	}
}

func TestFieldsToMap(t *testing.T) {
	m := fieldsToMap([]zapcore.Field{
		zap.String("key", "post_type"),
		zap.Int64("found", 12),
		zap.Float64("ratio", 0.5),
		zap.Bool("sticky", true),
		zap.Duration("elapsed", 1500*time.Millisecond),
		zap.Error(errors.New("engine down")),
	})

	assert.Equal(t, "post_type", m["key"])
	assert.Equal(t, int64(12), m["found"])
	assert.Equal(t, 0.5, m["ratio"])
	assert.Equal(t, true, m["sticky"])
	assert.Equal(t, "1.5s", m["elapsed"])
	assert.Equal(t, "engine down", m["error"])
}

func TestBuildEvent(t *testing.T) {
	entry := zapcore.Entry{
		Level:      zapcore.ErrorLevel,
		Message:    "query engine failed",
		LoggerName: "query",
		Time:       time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	event := buildEvent(entry, []zapcore.Field{
		zap.String("request_id", "abc"),
		zap.Error(errors.New("connection refused")),
		zap.Int("found", 0),
	})

	assert.Equal(t, sentry.LevelError, event.Level)
	assert.Equal(t, "query engine failed", event.Message)
	assert.Equal(t, "query", event.Logger)
	assert.Equal(t, "abc", event.Tags["request_id"])
	assert.NotContains(t, event.Extra, "request_id")
	assert.Equal(t, int64(0), event.Extra["found"])
	require.NotEmpty(t, event.Exception)
	assert.Equal(t, "connection refused", event.Exception[len(event.Exception)-1].Value)
}
