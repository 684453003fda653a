// Package config loads scanbridge.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"scanbridge/internal/api"
	"scanbridge/internal/discovery"
	"scanbridge/internal/logger"
	"scanbridge/internal/service"
	"scanbridge/internal/session"
)

// DefaultPath is used when no -config flag is given.
const DefaultPath = "scanbridge.yaml"

// Config is the on-disk configuration.
type Config struct {
	LogLevel    string           `yaml:"log_level"`
	SnapshotTTL time.Duration    `yaml:"snapshot_ttl"`
	Discovery   discovery.Config `yaml:"discovery"`
	Scan        session.Config   `yaml:"scan"`
	API         api.Config       `yaml:"api"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:    "info",
		SnapshotTTL: service.DefaultSnapshotTTL,
		Discovery:   discovery.DefaultConfig(),
		Scan:        session.DefaultConfig(),
		API:         api.DefaultConfig(),
	}
}

// Load reads path over the defaults. A missing file is created with the
// defaults so users have something to edit.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := Default()

	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if writeErr := Write(path, cfg); writeErr != nil {
			return cfg, fmt.Errorf("config file not found, and failed to generate default config: %w", writeErr)
		}
		logger.DefaultLogger.Infof("Created default config at %s", path)
		return cfg, nil
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Write stores cfg as YAML, creating parent directories as needed.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks every section.
func (c Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.SnapshotTTL < 0 {
		return fmt.Errorf("snapshot_ttl cannot be negative")
	}
	if err := c.Discovery.Validate(); err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	if err := c.Scan.Validate(); err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
