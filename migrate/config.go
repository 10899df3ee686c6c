package migrate

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the migration engine configuration.
type Config struct {
	// DataRoot is the current live data root with category subfolders.
	DataRoot string `yaml:"data_root"`
	// LegacyRoots are older data roots from earlier directory layouts,
	// searched after DataRoot.
	LegacyRoots []string `yaml:"legacy_roots"`
	// StoreDir is where tenant store databases live. Defaults to
	// <data_root>/db.
	StoreDir string `yaml:"store_dir"`
}

// DefaultConfig returns sane defaults relative to dataRoot.
func DefaultConfig(dataRoot string) *Config {
	return &Config{
		DataRoot: dataRoot,
		StoreDir: filepath.Join(dataRoot, "db"),
	}
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.StoreDir == "" && cfg.DataRoot != "" {
		cfg.StoreDir = filepath.Join(cfg.DataRoot, "db")
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c.DataRoot == "" {
		return fmt.Errorf("data_root is required")
	}
	if c.StoreDir == "" {
		return fmt.Errorf("store_dir is required")
	}
	return nil
}
