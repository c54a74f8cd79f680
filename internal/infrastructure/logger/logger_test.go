package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ressKim-io/stance-classifier/internal/infrastructure/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("creates logger with JSON format", func(t *testing.T) {
		logger, err := NewLogger(&config.LogConfig{Level: "info", Format: "json"})

		assert.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("creates logger with console format", func(t *testing.T) {
		logger, err := NewLogger(&config.LogConfig{Level: "debug", Format: "console"})

		assert.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		_, err := NewLogger(&config.LogConfig{Level: "info", Format: "xml"})

		assert.Error(t, err)
	})
}

func TestNewLoggerTo(t *testing.T) {
	t.Run("writes json with the configured keys", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewLoggerTo(&config.LogConfig{Level: "info", Format: "json"}, &buf)
		require.NoError(t, err)

		logger.Info("Loaded input", zap.Int("rows", 3))

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "info", entry["level"])
		assert.Equal(t, "Loaded input", entry["message"])
		assert.Equal(t, "stance", entry["logger"])
		assert.Equal(t, float64(3), entry["rows"])
		assert.Contains(t, entry, "timestamp")
	})

	t.Run("defaults to info level for invalid level", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewLoggerTo(&config.LogConfig{Level: "invalid", Format: "json"}, &buf)
		require.NoError(t, err)

		logger.Debug("hidden")
		logger.Info("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("warn level filters info", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewLoggerTo(&config.LogConfig{Level: "warn", Format: "console"}, &buf)
		require.NoError(t, err)

		logger.Info("hidden")
		logger.Warn("cache unavailable")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "cache unavailable")
	})
}
