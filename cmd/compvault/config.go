// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional file-based configuration for the compvault
// command. Flags override config values; the config file is found via
// the COMPVAULT_CONFIG environment variable or the --config flag,
// with no other discovery. This keeps capture runs deterministic and
// auditable with no hidden overrides.
type Config struct {
	// Output is the default archive output path.
	Output string `yaml:"output"`

	// LogLevel is "debug", "info", "warn", or "error".
	LogLevel string `yaml:"log_level"`

	// Strict makes the command exit nonzero when the capture finished
	// with diagnostics.
	Strict bool `yaml:"strict"`
}

// defaultConfig returns the base configuration used before any file
// or flag is applied.
func defaultConfig() *Config {
	return &Config{
		LogLevel: "info",
	}
}

// loadConfig resolves the configuration: explicit flag path first,
// then COMPVAULT_CONFIG, then defaults when neither is set.
func loadConfig(flagPath string) (*Config, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv("COMPVAULT_CONFIG")
	}
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
