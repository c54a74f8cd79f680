package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ressKim-io/stance-classifier/internal/domain/service"
)

// Config holds all configuration for a classification run
type Config struct {
	Input      InputConfig      `mapstructure:"input"`
	Output     OutputConfig     `mapstructure:"output"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`
	Progress   ProgressConfig   `mapstructure:"progress"`
}

// InputConfig describes the tweet table to classify
type InputConfig struct {
	Path       string   `mapstructure:"path"`
	TextColumn string   `mapstructure:"text_column"`
	NAValues   []string `mapstructure:"na_values"`
}

// OutputConfig describes where annotated rows are written
type OutputConfig struct {
	Path        string `mapstructure:"path"`
	WriteIndex  bool   `mapstructure:"write_index"`
	ParquetPath string `mapstructure:"parquet_path"`
	LabelColumn string `mapstructure:"label_column"`
	ScoreColumn string `mapstructure:"score_column"`
}

// ClassifierConfig configures the model service and the classifier adapter
type ClassifierConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	Model            string        `mapstructure:"model"`
	Device           string        `mapstructure:"device"`
	BatchSize        int           `mapstructure:"batch_size"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	Truncation       string        `mapstructure:"truncation"`
	TokenizerFile    string        `mapstructure:"tokenizer_file"`
	NormalizeUnicode bool          `mapstructure:"normalize_unicode"`
}

// CacheConfig holds Redis result cache configuration
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// DatabaseConfig holds the Postgres result sink configuration
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// MetricsConfig holds the status listener and textfile export settings
type MetricsConfig struct {
	ListenAddr   string `mapstructure:"listen_addr"`
	TextfilePath string `mapstructure:"textfile_path"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProgressConfig controls the terminal progress bar
type ProgressConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Width   int  `mapstructure:"width"`
}

// Load reads configuration from stance.yaml and STANCE_* environment variables
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads configuration from the given file, or searches the
// default locations when path is empty
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("stance")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("STANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Input defaults
	v.SetDefault("input.path", "/russell_tweets_oct2424.csv")
	v.SetDefault("input.text_column", "text")
	v.SetDefault("input.na_values", []string{})

	// Output defaults
	v.SetDefault("output.path", "/russeltweets_zeroshot_classified_deblarge_oct2424.csv")
	v.SetDefault("output.write_index", true)
	v.SetDefault("output.parquet_path", "")
	v.SetDefault("output.label_column", "predicted_label")
	v.SetDefault("output.score_column", "score")

	// Classifier defaults
	v.SetDefault("classifier.base_url", "http://localhost:8000")
	v.SetDefault("classifier.model", "MoritzLaurer/deberta-v3-large-zeroshot-v2.0")
	v.SetDefault("classifier.device", string(service.DeviceAuto))
	v.SetDefault("classifier.batch_size", 32)
	v.SetDefault("classifier.timeout", 5*time.Minute)
	v.SetDefault("classifier.max_tokens", 0)
	v.SetDefault("classifier.truncation", string(service.TruncationTruncate))
	v.SetDefault("classifier.tokenizer_file", "")
	v.SetDefault("classifier.normalize_unicode", false)

	// Cache defaults
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.host", "localhost")
	v.SetDefault("cache.port", 6379)
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 7*24*time.Hour)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "stance")
	v.SetDefault("database.password", "stance")
	v.SetDefault("database.dbname", "stance")
	v.SetDefault("database.sslmode", "disable")

	// Metrics defaults
	v.SetDefault("metrics.listen_addr", "")
	v.SetDefault("metrics.textfile_path", "")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Progress defaults
	v.SetDefault("progress.enabled", false)
	v.SetDefault("progress.width", 64)
}

// Validate rejects settings no run could succeed with
func (c *Config) Validate() error {
	if c.Input.Path == "" {
		return errors.New("input.path must not be empty")
	}
	if c.Input.TextColumn == "" {
		return errors.New("input.text_column must not be empty")
	}
	if c.Output.Path == "" {
		return errors.New("output.path must not be empty")
	}
	if c.Output.LabelColumn == "" || c.Output.ScoreColumn == "" {
		return errors.New("output label and score columns must not be empty")
	}
	if c.Output.LabelColumn == c.Output.ScoreColumn {
		return fmt.Errorf("output label and score columns must differ, both are %q", c.Output.LabelColumn)
	}
	if c.Classifier.BatchSize < 1 {
		return fmt.Errorf("classifier.batch_size must be at least 1, got %d", c.Classifier.BatchSize)
	}
	if c.Classifier.MaxTokens < 0 {
		return fmt.Errorf("classifier.max_tokens must not be negative, got %d", c.Classifier.MaxTokens)
	}
	if _, err := service.ParseDevice(c.Classifier.Device); err != nil {
		return fmt.Errorf("classifier.device: %w", err)
	}
	if _, err := service.ParseTruncationPolicy(c.Classifier.Truncation); err != nil {
		return fmt.Errorf("classifier.truncation: %w", err)
	}
	return nil
}
