package session

import (
	"errors"
	"time"

	"scanbridge/internal/acquisition"
)

// Config holds scan defaults and the network pre-check settings.
type Config struct {
	OutputDir          string                `yaml:"output_dir"`
	LocalDPI           int                   `yaml:"local_dpi"`
	NetworkDPI         int                   `yaml:"network_dpi"`
	NetworkBufferBytes int                   `yaml:"network_buffer_bytes"`
	ColorMode          acquisition.ColorMode `yaml:"color_mode"`
	Format             acquisition.Format    `yaml:"format"`
	Ping               bool                  `yaml:"ping"`
	PrecheckPorts      []int                 `yaml:"precheck_ports"`
	PrecheckTimeout    time.Duration         `yaml:"precheck_timeout"`
}

// DefaultConfig returns the built-in scan defaults.
func DefaultConfig() Config {
	return Config{
		OutputDir:          "scans",
		LocalDPI:           acquisition.LocalResolutionDPI,
		NetworkDPI:         acquisition.NetworkResolutionDPI,
		NetworkBufferBytes: acquisition.NetworkBufferBytes,
		ColorMode:          acquisition.ColorModeColor,
		Format:             acquisition.FormatBMP,
		Ping:               true,
		PrecheckPorts:      []int{80, 443, 631, 5357},
		PrecheckTimeout:    2 * time.Second,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.LocalDPI <= 0 || c.NetworkDPI <= 0 {
		return errors.New("scan resolutions must be greater than 0")
	}
	if c.NetworkBufferBytes < 0 {
		return errors.New("network_buffer_bytes cannot be negative")
	}
	if c.PrecheckTimeout <= 0 {
		return errors.New("precheck_timeout must be greater than 0")
	}
	if _, err := acquisition.ParseColorMode(string(c.ColorMode)); err != nil {
		return err
	}
	if _, err := acquisition.ParseFormat(string(c.Format)); err != nil {
		return err
	}
	return nil
}

// Defaults returns the settings applied when a caller supplies none.
func (c Config) Defaults(isNetwork bool) acquisition.Settings {
	s := acquisition.Settings{
		ResolutionDPI: c.LocalDPI,
		ColorMode:     c.ColorMode,
		OutputFormat:  c.Format,
	}
	if isNetwork {
		s.ResolutionDPI = c.NetworkDPI
		s.BufferSizeBytes = c.NetworkBufferBytes
	}
	return s
}

// Merge fills unset fields of override from the defaults for the device kind
// and returns canonical names for colour mode and format.
func (c Config) Merge(override *acquisition.Settings, isNetwork bool) acquisition.Settings {
	s := c.Defaults(isNetwork)
	if override == nil {
		return s.Canonical()
	}
	if override.ResolutionDPI > 0 {
		s.ResolutionDPI = override.ResolutionDPI
	}
	if override.ColorMode != "" {
		s.ColorMode = override.ColorMode
	}
	if override.OutputFormat != "" {
		s.OutputFormat = override.OutputFormat
	}
	if override.BufferSizeBytes > 0 {
		s.BufferSizeBytes = override.BufferSizeBytes
	}
	return s.Canonical()
}
