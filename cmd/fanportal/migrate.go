// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/fanportal/fanportal/internal/store"
	"github.com/fanportal/fanportal/pkg/errutil"
)

// NewMigrateCmd creates the migrate command with up/down/status
// subcommands.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *store.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Println("migrations applied")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *store.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("migrations rolled back")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *store.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				cmd.Printf("version: %d, dirty: %v\n", version, dirty)
				return nil
			})
		},
	})

	return cmd
}

// withMigrator loads config, builds a migrator, runs fn, and closes it.
func withMigrator(cmd *cobra.Command, fn func(*store.Migrator) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_MISSING_DATABASE_URL").Errorf("database.url is required")
	}

	m, err := store.NewMigrator(cfg.Database.URL)
	if err != nil {
		errutil.LogError(slog.Default(), "migrator init failed", err)
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			errutil.LogError(slog.Default(), "migrator close failed", closeErr)
		}
	}()

	return fn(m)
}
