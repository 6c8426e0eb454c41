package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prismfin/prism/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	Render    RenderConfig    `mapstructure:"render"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	History   HistoryConfig   `mapstructure:"history"`
	Insight   InsightConfig   `mapstructure:"insight"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Synth     SynthConfig     `mapstructure:"synth"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// OptimizerConfig points at the upstream optimization service.
type OptimizerConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RenderConfig sizes the chart render targets.
type RenderConfig struct {
	Width         int      `mapstructure:"width"`
	Height        int      `mapstructure:"height"`
	DisabledSlots []string `mapstructure:"disabled_slots"`
}

// ArchiveConfig controls persistence of rendered artifacts.
type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// HistoryConfig controls the optimization history store.
type HistoryConfig struct {
	DSN           string `mapstructure:"dsn"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// InsightConfig selects the commentary provider.
type InsightConfig struct {
	Provider string       `mapstructure:"provider"`
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// SynthConfig controls the synthetic generators. A zero seed keeps the
// default time-seeded, non-reproducible behavior.
type SynthConfig struct {
	Seed int64 `mapstructure:"seed"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Optimizer: OptimizerConfig{
			BaseURL: "http://localhost:5000",
			Timeout: 120 * time.Second,
		},
		Render: RenderConfig{
			Width:  800,
			Height: 600,
		},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "artifacts",
		},
		History: HistoryConfig{
			DSN:           "prism.db",
			RetentionDays: 90,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// Optimizer validation
	if c.Optimizer.BaseURL == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("optimizer base_url is required"))
	}
	if c.Optimizer.Timeout < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("optimizer timeout cannot be negative, got %s", c.Optimizer.Timeout))
	}

	// Render validation
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("render dimensions must be positive, got %dx%d", c.Render.Width, c.Render.Height))
	}
	for _, slot := range c.Render.DisabledSlots {
		if !validSlot(slot) {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown render slot %q", slot))
		}
	}

	// Archive validation
	if c.Archive.Enabled {
		switch c.Archive.Type {
		case "localfs":
			if c.Archive.Path == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive path required for localfs"))
			}
		case "s3":
			if c.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("s3 bucket required when archive type is s3"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown archive type %q", c.Archive.Type))
		}
	}

	// Insight validation - if provider set, check config exists
	if c.Insight.Provider != "" {
		switch c.Insight.Provider {
		case "claude":
			if c.Insight.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.Insight.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown insight provider %q", c.Insight.Provider))
		}
	}

	return nil
}

func validSlot(s string) bool {
	for _, slot := range core.Slots() {
		if string(slot) == s {
			return true
		}
	}
	return false
}
