// Package config loads settings for the simplecache binary.
package config

import (
	"os"
	"time"

	"github.com/jmgilman/go/errors"
	"gopkg.in/yaml.v3"
)

// Config mirrors the YAML file. Durations use Go syntax, e.g. "90s".
type Config struct {
	TTL             time.Duration `yaml:"ttl"`
	MaxEntries      int           `yaml:"max_entries"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	LogLevel        string        `yaml:"log_level"`
	MetricsAddr     string        `yaml:"metrics_addr"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		TTL:             time.Minute,
		MaxEntries:      2,
		CleanupInterval: 100 * time.Millisecond,
		LogLevel:        "info",
	}
}

// Load reads path and overlays it on Default.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.WithContext(
			errors.Wrap(err, errors.CodeInvalidConfig, "failed to read config"),
			"path", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.WithContext(
			errors.Wrap(err, errors.CodeInvalidConfig, "failed to parse config"),
			"path", path)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values the cache would refuse.
func (c Config) Validate() error {
	switch {
	case c.TTL < 0:
		return errors.Newf(errors.CodeInvalidConfig, "ttl must not be negative: %s", c.TTL)
	case c.MaxEntries < 0:
		return errors.Newf(errors.CodeInvalidConfig, "max_entries must not be negative: %d", c.MaxEntries)
	case c.CleanupInterval < 0:
		return errors.Newf(errors.CodeInvalidConfig, "cleanup_interval must not be negative: %s", c.CleanupInterval)
	}
	return nil
}
