// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

// Package config loads the service configuration from an optional YAML
// file with command-line flag overrides, in that order of precedence.
package config

import (
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the root service configuration.
type Config struct {
	Log      Log      `koanf:"log"`
	Database Database `koanf:"database"`
	Discord  Discord  `koanf:"discord"`
}

// Log configures structured logging.
type Log struct {
	// Format is "json" or "text".
	Format string `koanf:"format"`
	// Level is "debug", "info", "warn", or "error".
	Level string `koanf:"level"`
}

// Database configures the PostgreSQL connection.
type Database struct {
	URL      string `koanf:"url"`
	MaxConns int32  `koanf:"max_conns"`
}

// Discord configures the Discord OAuth application. Linking is disabled
// when the client id is empty.
type Discord struct {
	ClientID         string `koanf:"client_id"`
	ClientSecret     string `koanf:"client_secret"`
	LoginRedirectURL string `koanf:"login_redirect_url"`
	LinkRedirectURL  string `koanf:"link_redirect_url"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Log: Log{
			Format: "json",
			Level:  "info",
		},
		Database: Database{
			MaxConns: 8,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (if non-empty), then flag overrides (if non-nil). Flag names use dots as
// section separators, e.g. --database.url.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()
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

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}
	return &cfg, nil
}
