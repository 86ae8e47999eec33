// Package config loads nqbench run configuration from YAML or JSON5 files.
package config

import (
	"fmt"
	"strings"

	"github.com/haasonsaas/nqbench/internal/publish"
)

// Config is the root configuration.
type Config struct {
	Version       int                 `yaml:"version"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
	Convert       ConvertConfig       `yaml:"convert"`
	Evaluate      EvaluateConfig      `yaml:"evaluate"`
	Publish       publish.Config      `yaml:"publish"`
}

// ConfigValidationError collects every problem found in a configuration.
type ConfigValidationError struct {
	Issues []string
}

func (e *ConfigValidationError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "invalid config"
	}
	return "invalid config: " + strings.Join(e.Issues, "; ")
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the configuration at path together with the files it
// includes, applies defaults and validates the result. Relative paths in
// each file are taken relative to that file's directory.
func Load(path string) (*Config, error) {
	raw, err := readLayers(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := decodeLayers(raw)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := ValidateVersion(cfg.Version); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	applyLoggingDefaults(&cfg.Logging)
	applyObservabilityDefaults(&cfg.Observability)
	applyConvertDefaults(&cfg.Convert)
	applyEvaluateDefaults(&cfg.Evaluate)
	if cfg.Publish.Region == "" {
		cfg.Publish.Region = "us-east-1"
	}
}

// Validate checks values that defaults cannot repair. Required paths are
// not checked here because command-line flags may still supply them.
func (c *Config) Validate() error {
	var issues []string
	issues = append(issues, validateLogging(c.Logging)...)
	issues = append(issues, validateConvert(c.Convert)...)
	issues = append(issues, validateEvaluate(c.Evaluate)...)
	if len(issues) > 0 {
		return &ConfigValidationError{Issues: issues}
	}
	return nil
}
