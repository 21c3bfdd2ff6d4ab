// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fanportal/fanportal/internal/config"
	"github.com/fanportal/fanportal/internal/logging"
)

// serviceName appears in every log record.
const serviceName = "fanportal"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the fanportal CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fanportal",
		Short: "Fanportal account service",
		Long: `Fanportal is the account and authentication backend of the fan site:
account records, hashed credentials, sessions, and external OAuth linking.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().String("log.format", "", "log format (json or text)")
	cmd.PersistentFlags().String("log.level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("database.url", "", "PostgreSQL connection URL")
	cmd.PersistentFlags().Int32("database.max_conns", 0, "connection pool size")

	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// loadConfig resolves configuration for a command invocation: defaults,
// then the --config file, then flag overrides. It also installs the
// default logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logging.SetDefault(serviceName, cmd.Root().Version, cfg.Log.Format, cfg.Log.Level)
	slog.Debug("configuration loaded", "config_file", configFile)
	return cfg, nil
}
