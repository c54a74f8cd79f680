package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default configuration", func(t *testing.T) {
		cfg, err := Load()

		require.NoError(t, err)
		assert.NotNil(t, cfg)

		// Check input and output defaults
		assert.Equal(t, "/russell_tweets_oct2424.csv", cfg.Input.Path)
		assert.Equal(t, "text", cfg.Input.TextColumn)
		assert.Equal(t, "/russeltweets_zeroshot_classified_deblarge_oct2424.csv", cfg.Output.Path)
		assert.True(t, cfg.Output.WriteIndex)
		assert.Equal(t, "predicted_label", cfg.Output.LabelColumn)
		assert.Equal(t, "score", cfg.Output.ScoreColumn)

		// Check classifier defaults
		assert.Equal(t, "MoritzLaurer/deberta-v3-large-zeroshot-v2.0", cfg.Classifier.Model)
		assert.Equal(t, "auto", cfg.Classifier.Device)
		assert.Equal(t, 32, cfg.Classifier.BatchSize)
		assert.Equal(t, "truncate", cfg.Classifier.Truncation)
		assert.Equal(t, 5*time.Minute, cfg.Classifier.Timeout)
		assert.False(t, cfg.Classifier.NormalizeUnicode, "premises reach the model unchanged by default")

		// Optional sinks are off
		assert.False(t, cfg.Cache.Enabled)
		assert.False(t, cfg.Database.Enabled)
		assert.Equal(t, 6379, cfg.Cache.Port)
		assert.Equal(t, 5432, cfg.Database.Port)

		// Check log defaults
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "json", cfg.Log.Format)
	})

	t.Run("reads from environment variables", func(t *testing.T) {
		t.Setenv("STANCE_CLASSIFIER_BATCH_SIZE", "8")
		t.Setenv("STANCE_CLASSIFIER_DEVICE", "cuda")
		t.Setenv("STANCE_INPUT_PATH", "/data/in.csv")
		t.Setenv("STANCE_LOG_LEVEL", "debug")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, 8, cfg.Classifier.BatchSize)
		assert.Equal(t, "cuda", cfg.Classifier.Device)
		assert.Equal(t, "/data/in.csv", cfg.Input.Path)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("rejects invalid environment values", func(t *testing.T) {
		t.Setenv("STANCE_CLASSIFIER_BATCH_SIZE", "0")

		_, err := Load()

		assert.Error(t, err)
	})
}

func TestLoadFrom(t *testing.T) {
	t.Run("reads a yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "stance.yaml")
		content := "input:\n  path: tweets.tsv\nclassifier:\n  truncation: reject\n  max_tokens: 256\ncache:\n  enabled: true\n  ttl: 1h\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := LoadFrom(path)

		require.NoError(t, err)
		assert.Equal(t, "tweets.tsv", cfg.Input.Path)
		assert.Equal(t, "reject", cfg.Classifier.Truncation)
		assert.Equal(t, 256, cfg.Classifier.MaxTokens)
		assert.True(t, cfg.Cache.Enabled)
		assert.Equal(t, time.Hour, cfg.Cache.TTL)
		assert.Equal(t, 32, cfg.Classifier.BatchSize)
	})

	t.Run("explicit missing file is an error", func(t *testing.T) {
		_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))

		assert.Error(t, err)
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty input path", func(c *Config) { c.Input.Path = "" }},
		{"empty output path", func(c *Config) { c.Output.Path = "" }},
		{"zero batch size", func(c *Config) { c.Classifier.BatchSize = 0 }},
		{"unknown device", func(c *Config) { c.Classifier.Device = "tpu" }},
		{"unknown truncation", func(c *Config) { c.Classifier.Truncation = "drop" }},
		{"same output columns", func(c *Config) { c.Output.ScoreColumn = c.Output.LabelColumn }},
		{"negative max tokens", func(c *Config) { c.Classifier.MaxTokens = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, valid().Validate())
}
