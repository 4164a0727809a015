// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

// Package config loads server configuration from a YAML file and
// command-line flags. Flag values take precedence over file values.
package config

import (
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Defaults for server configuration.
const (
	DefaultListenAddr  = ":2747"
	DefaultMetricsAddr = "127.0.0.1:9100"
	DefaultLogFormat   = "json"
	DefaultMaxParallel = 16
)

// Config holds the full server configuration.
type Config struct {
	ListenAddr  string `koanf:"listen-addr"`
	DatabaseURL string `koanf:"database-url"`
	MetricsAddr string `koanf:"metrics-addr"`
	LogFormat   string `koanf:"log-format"`
	MaxParallel int    `koanf:"max-parallel"`
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database-url is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			With("log_format", c.LogFormat).
			Errorf("log-format must be 'json' or 'text'")
	}
	if c.MaxParallel < 1 {
		return oops.Code("CONFIG_INVALID").
			With("max_parallel", c.MaxParallel).
			Errorf("max-parallel must be at least 1")
	}
	return nil
}

// Load reads configuration from the optional YAML file at path, then
// overlays any flags the user set. An empty path skips the file layer.
// When neither supplies a database URL, the DATABASE_URL environment
// variable is consulted before validation.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := &Config{
		ListenAddr:  DefaultListenAddr,
		MetricsAddr: DefaultMetricsAddr,
		LogFormat:   DefaultLogFormat,
		MaxParallel: DefaultMaxParallel,
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
