package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file name inside the data directory.
const DefaultConfigFile = "config.yaml"

// Config holds the settings read from config.yaml.
type Config struct {
	Database  DatabaseConfig  `yaml:"database,omitempty"`
	Archive   ArchiveConfig   `yaml:"archive,omitempty"`
	Normalize NormalizeConfig `yaml:"normalize,omitempty"`
	Render    RenderConfig    `yaml:"render,omitempty"`
	Log       LogConfig       `yaml:"log,omitempty"`
	Records   []RecordSource  `yaml:"records,omitempty"`
}

// DatabaseConfig locates the snapshot database.
type DatabaseConfig struct {
	// Path to the SQLite file. Empty means GetDBPath(); ":memory:" keeps
	// everything in process.
	Path string `yaml:"path,omitempty"`
}

// ArchiveConfig controls the raw markup archive.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir,omitempty"`
}

// NormalizeConfig tunes text normalization.
type NormalizeConfig struct {
	MinContentRunes int `yaml:"min_content_runes,omitempty"`
}

// RenderConfig sets terminal output defaults.
type RenderConfig struct {
	Width        int `yaml:"width,omitempty"`
	Context      int `yaml:"context,omitempty"`
	ChangesLimit int `yaml:"changes_limit,omitempty"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// RecordSource seeds the source URL of a tracked norm.
type RecordSource struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Archive: ArchiveConfig{Enabled: false},
		Normalize: NormalizeConfig{
			MinContentRunes: 32,
		},
		Render: RenderConfig{
			Context:      4,
			ChangesLimit: 200,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the config file at path on top of the defaults. An empty path
// means GetConfigPath(); a missing default file is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = GetConfigPath()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that Load cannot fix up.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Normalize.MinContentRunes < 0 {
		return fmt.Errorf("normalize.min_content_runes must not be negative")
	}
	if c.Render.Context < 0 {
		return fmt.Errorf("render.context must not be negative")
	}
	seen := make(map[string]bool, len(c.Records))
	for _, r := range c.Records {
		if r.ID == "" {
			return fmt.Errorf("records: entry with empty id")
		}
		if seen[r.ID] {
			return fmt.Errorf("records: duplicate id %q", r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}

// DBPath returns the configured database path or the default one.
func (c *Config) DBPath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return GetDBPath()
}

// ObjectsDir returns the configured archive directory or the default one.
func (c *Config) ObjectsDir() string {
	if c.Archive.Dir != "" {
		return c.Archive.Dir
	}
	return GetObjectsDir()
}

// SourceURL returns the configured URL for a record id.
func (c *Config) SourceURL(recordID string) (string, bool) {
	for _, r := range c.Records {
		if r.ID == recordID {
			return r.URL, true
		}
	}
	return "", false
}
