// Package config loads and validates the qestudio configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all qestudio configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Pseudopotential library
	Pseudo PseudoConfig `yaml:"pseudo"`

	// Density-of-states defaults
	DOS DOSConfig `yaml:"dos"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DOSConfig configures the broadening defaults used when no width was ever
// entered for a smearing scheme.
type DOSConfig struct {
	DefaultDegauss float64 `yaml:"default_degauss" validate:"gt=0"`
	DefaultNgauss  int     `yaml:"default_ngauss" validate:"oneof=-99 -1 0 1"`
}

var validate = validator.New()

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "qestudio",
		Version: "0.4.0",
		Pseudo:  DefaultPseudoConfig(),
		DOS: DOSConfig{
			DefaultDegauss: 0.01,
			DefaultNgauss:  0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns the config file location for a workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, ".qestudio", "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("QESTUDIO_PSEUDO_DIR"); dir != "" {
		dirs := []string{dir}
		for _, d := range c.Pseudo.Dirs {
			if d != dir {
				dirs = append(dirs, d)
			}
		}
		c.Pseudo.Dirs = dirs
	}
	if path := os.Getenv("QESTUDIO_PSEUDO_DB"); path != "" {
		c.Pseudo.IndexPath = path
	}
	if v := os.Getenv("QESTUDIO_DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
