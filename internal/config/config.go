// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// APIKey, when non-empty, is required in the X-API-Key header of
	// every processing request.
	APIKey string `env:"API_KEY" json:"-"` // Masked in JSON

	// Workspace settings
	TmpDir    string `env:"TMP_DIR" json:"tmp_dir"` // defaults to os.TempDir()
	TmpPrefix string `env:"TMP_PREFIX, default=ffmix_" json:"tmp_prefix"`

	// Download limits
	HTTPTimeoutSec int `env:"HTTP_TIMEOUT_SEC, default=300" json:"http_timeout_sec"`
	MaxDownloadMB  int `env:"MAX_DOWNLOAD_MB, default=500" json:"max_download_mb"`

	// External tool paths
	FFmpegBin  string `env:"FFMPEG_BIN, default=ffmpeg" json:"ffmpeg_bin"`
	FFprobeBin string `env:"FFPROBE_BIN, default=ffprobe" json:"ffprobe_bin"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.TmpDir == "" {
		cfg.TmpDir = os.TempDir()
	}

	return cfg, nil
}

// MaxDownloadBytes returns the per-fetch byte ceiling.
func (c *Config) MaxDownloadBytes() int64 {
	return int64(c.MaxDownloadMB) * 1024 * 1024
}

// AuthEnabled returns true if API key authentication is configured.
func (c *Config) AuthEnabled() bool {
	return c.APIKey != ""
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, TmpDir: %s, TmpPrefix: %s, HTTPTimeoutSec: %d, MaxDownloadMB: %d, FFmpegBin: %s, FFprobeBin: %s, LogFormat: %s, LogLevel: %s, AuthEnabled: %t}",
		c.Port,
		c.TmpDir,
		c.TmpPrefix,
		c.HTTPTimeoutSec,
		c.MaxDownloadMB,
		c.FFmpegBin,
		c.FFprobeBin,
		c.LogFormat,
		c.LogLevel,
		c.AuthEnabled(),
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
