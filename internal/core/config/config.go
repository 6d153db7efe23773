// Package config handles configuration loading and validation for lectern.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lecternapp/lectern/internal/core/layout"
	"github.com/lecternapp/lectern/internal/core/paginate"
)

// ImageProtocol selects the terminal graphics transport for inline images.
type ImageProtocol string

const (
	// ProtocolAuto probes the terminal and uses kitty graphics when it
	// advertises support.
	ProtocolAuto ImageProtocol = "auto"
	// ProtocolKitty forces the kitty graphics protocol on.
	ProtocolKitty ImageProtocol = "kitty"
	// ProtocolOff renders images as text placeholders.
	ProtocolOff ImageProtocol = "off"
)

// Valid reports whether the protocol is one of the supported values.
func (p ImageProtocol) Valid() bool {
	switch p {
	case ProtocolAuto, ProtocolKitty, ProtocolOff:
		return true
	default:
		return false
	}
}

// Config holds the application configuration.
type Config struct {
	Reading Reading `yaml:"reading"`
	Images  Images  `yaml:"images"`
	Library Library `yaml:"library"`
	Cache   Cache   `yaml:"cache"`
	Theme   string  `yaml:"theme"`
	DataDir string  `yaml:"-"` // set by caller, not from config file
}

// Reading holds the defaults applied when a book is opened without a
// saved position. A saved position always wins over these.
type Reading struct {
	Mode        paginate.Mode   `yaml:"mode"`         // dynamic | absolute
	ViewMode    layout.ViewMode `yaml:"view_mode"`    // single | split
	LineSpacing layout.Spacing  `yaml:"line_spacing"` // compact | normal | relaxed
	Justify     bool            `yaml:"justify"`
}

// Images controls inline image rendering.
type Images struct {
	Enabled  bool          `yaml:"enabled"`
	Protocol ImageProtocol `yaml:"protocol"` // auto | kitty | off
}

// Library configures which directories are scanned for books.
type Library struct {
	// Paths are the root directories scanned for books.
	Paths []string `yaml:"paths"`
	// Include are doublestar glob patterns matched against paths
	// relative to each root.
	Include []string `yaml:"include"`
}

// Cache controls the persisted pagination cache.
type Cache struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Reading: Reading{
			Mode:        paginate.ModeDynamic,
			ViewMode:    layout.ViewSingle,
			LineSpacing: layout.SpacingNormal,
		},
		Images: Images{
			Enabled:  true,
			Protocol: ProtocolAuto,
		},
		Library: Library{
			Include: []string{"**/*.epub", "**/*.md"},
		},
		Cache: Cache{Enabled: true},
		Theme: "default",
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := Default()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	// Apply defaults for zero values
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := Default()
	if c.Reading.Mode == "" {
		c.Reading.Mode = defaults.Reading.Mode
	}
	if c.Reading.ViewMode == "" {
		c.Reading.ViewMode = defaults.Reading.ViewMode
	}
	if c.Reading.LineSpacing == "" {
		c.Reading.LineSpacing = defaults.Reading.LineSpacing
	}
	if c.Images.Protocol == "" {
		c.Images.Protocol = defaults.Images.Protocol
	}
	if len(c.Library.Include) == 0 {
		c.Library.Include = defaults.Library.Include
	}
	if c.Theme == "" {
		c.Theme = defaults.Theme
	}
}

// Save writes the configuration as YAML, creating parent directories as
// needed. DataDir is not written; it is supplied by the caller at load.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// LogFile returns the path of the log file inside the data directory.
func (c *Config) LogFile() string {
	return filepath.Join(c.DataDir, "lectern.log")
}
