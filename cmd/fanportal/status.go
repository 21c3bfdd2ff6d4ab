// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/fanportal/fanportal/internal/account"
	"github.com/fanportal/fanportal/internal/account/discord"
	"github.com/fanportal/fanportal/internal/config"
	"github.com/fanportal/fanportal/internal/store"
	"github.com/fanportal/fanportal/pkg/errutil"
)

// NewStatusCmd creates the status command: database connectivity, schema
// version, and account count.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show database connectivity and schema status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return oops.Code("CONFIG_MISSING_DATABASE_URL").Errorf("database.url is required")
			}

			ctx := cmd.Context()
			pool, err := store.Open(ctx, cfg.Database.URL, cfg.Database.MaxConns)
			if err != nil {
				errutil.LogError(slog.Default(), "database connect failed", err)
				return err
			}
			defer pool.Close()
			cmd.Println("database: reachable")

			m, err := store.NewMigrator(cfg.Database.URL)
			if err != nil {
				return err
			}
			defer m.Close() //nolint:errcheck

			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			cmd.Printf("schema: version %d, dirty %v\n", version, dirty)

			var count int64
			if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
				return oops.Code("STATUS_COUNT_FAILED").Wrap(err)
			}
			cmd.Printf("accounts: %d\n", count)

			if provider := discordProvider(cfg); provider != nil {
				cmd.Printf("discord linking: configured (%s)\n", provider.Name())
			} else {
				cmd.Println("discord linking: not configured")
			}
			return nil
		},
	}
}

// discordProvider builds the Discord identity provider from config, or nil
// when linking is not configured.
func discordProvider(cfg *config.Config) account.IdentityProvider {
	if cfg.Discord.ClientID == "" {
		return nil
	}
	provider, err := discord.New(discord.Config{
		ClientID:         cfg.Discord.ClientID,
		ClientSecret:     cfg.Discord.ClientSecret,
		LoginRedirectURL: cfg.Discord.LoginRedirectURL,
		LinkRedirectURL:  cfg.Discord.LinkRedirectURL,
	})
	if err != nil {
		errutil.LogError(slog.Default(), "discord provider init failed", err)
		return nil
	}
	return provider
}
