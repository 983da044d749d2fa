// Package config loads and validates screencapture settings from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/entrhq/screencapture/pkg/eligibility"
	"github.com/entrhq/screencapture/pkg/exporter"
	"gopkg.in/yaml.v3"
)

// Config represents the configuration for a capture run
type Config struct {
	// Browser launch settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Capture session timing
	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// URL eligibility patterns
	Eligibility EligibilityConfig `yaml:"eligibility" json:"eligibility"`

	// Output file settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig controls the browser the capture runs in
type BrowserConfig struct {
	Headless          bool          `yaml:"headless" json:"headless"`
	ViewportWidth     int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight    int           `yaml:"viewport_height" json:"viewport_height"`
	DeviceScaleFactor float64       `yaml:"device_scale_factor" json:"device_scale_factor"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"` // Navigation and operation timeout
}

// CaptureConfig controls session timing
type CaptureConfig struct {
	InjectionTimeout time.Duration `yaml:"injection_timeout" json:"injection_timeout"`
	TileTimeout      time.Duration `yaml:"tile_timeout" json:"tile_timeout"`
	SettleDelay      time.Duration `yaml:"settle_delay" json:"settle_delay"` // Pause after each scroll before capturing
}

// EligibilityConfig holds glob patterns for pages that may be captured
type EligibilityConfig struct {
	Allow []string `yaml:"allow" json:"allow"`
	Deny  []string `yaml:"deny" json:"deny"`
}

// OutputConfig defines where and how results are written
type OutputConfig struct {
	Dir             string `yaml:"dir" json:"dir"`
	Format          string `yaml:"format" json:"format"`
	OpenResult      bool   `yaml:"open_result" json:"open_result"`
	CopyToClipboard bool   `yaml:"copy_to_clipboard" json:"copy_to_clipboard"`

	// Summary writes capture-summary.json next to the output
	Summary bool `yaml:"summary" json:"summary"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls console output: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`

	// File enables the per-run log file under ~/.screencapture/logs
	File bool `yaml:"file" json:"file"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.Browser.ViewportWidth, c.Browser.ViewportHeight)
	}

	if c.Browser.DeviceScaleFactor <= 0 {
		return fmt.Errorf("device_scale_factor must be positive, got %v", c.Browser.DeviceScaleFactor)
	}

	if c.Browser.Timeout < 0 {
		return fmt.Errorf("browser timeout cannot be negative")
	}

	if c.Capture.InjectionTimeout <= 0 {
		return fmt.Errorf("injection_timeout must be positive")
	}

	if c.Capture.TileTimeout <= 0 {
		return fmt.Errorf("tile_timeout must be positive")
	}

	if c.Capture.SettleDelay < 0 {
		return fmt.Errorf("settle_delay cannot be negative")
	}

	if _, err := eligibility.NewPolicy(c.Eligibility.Allow, c.Eligibility.Deny); err != nil {
		return err
	}

	if _, err := exporter.ParseFormat(c.Output.Format); err != nil {
		return err
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// Policy compiles the eligibility patterns.
func (c *Config) Policy() (*eligibility.Policy, error) {
	return eligibility.NewPolicy(c.Eligibility.Allow, c.Eligibility.Deny)
}

// DefaultConfig returns a default configuration suitable for most use cases
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:          true,
			ViewportWidth:     1280,
			ViewportHeight:    720,
			DeviceScaleFactor: 1,
			Timeout:           30 * time.Second,
		},
		Capture: CaptureConfig{
			InjectionTimeout: 1000 * time.Millisecond,
			TileTimeout:      5 * time.Second,
			SettleDelay:      100 * time.Millisecond,
		},
		Eligibility: EligibilityConfig{
			Allow: append([]string(nil), eligibility.DefaultAllowPatterns...),
			Deny:  append([]string(nil), eligibility.DefaultDenyPatterns...),
		},
		Output: OutputConfig{
			Format:     string(exporter.FormatPNG),
			OpenResult: true,
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
			File:      true,
		},
	}
}

// Load reads a YAML file over DefaultConfig. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}
