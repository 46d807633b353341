// Package config loads the composing application's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Database string     `yaml:"database"`
	API      APIConfig  `yaml:"api"`
	Sync     SyncConfig `yaml:"sync"`
	Feed     FeedConfig `yaml:"feed"`
}

type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// StreamURL is the realtime count-update websocket endpoint;
	// empty disables the stream in watch mode.
	StreamURL string `yaml:"stream_url"`
}

type SyncConfig struct {
	// Schedule is a cron spec; empty disables periodic sync.
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	MaxRows       int    `yaml:"max_rows"`
}

type FeedConfig struct {
	PageSize int `yaml:"page_size"`
	// PolicyFile optionally points at a CUE degradation-policy file.
	PolicyFile string `yaml:"policy_file"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: "postr.db",
		Sync: SyncConfig{
			Schedule:      "*/5 * * * *",
			RetentionDays: 30,
			MaxRows:       5000,
		},
		Feed: FeedConfig{
			PageSize: 20,
		},
	}
}

// Load reads a YAML config file over the defaults. A missing file is
// not an error; the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.Feed.PageSize <= 0 {
		return fmt.Errorf("feed.page_size must be positive, got %d", c.Feed.PageSize)
	}
	if c.Sync.RetentionDays < 0 {
		return fmt.Errorf("sync.retention_days must not be negative, got %d", c.Sync.RetentionDays)
	}
	return nil
}
