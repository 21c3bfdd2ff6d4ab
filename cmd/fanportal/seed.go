// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

package main

import (
	"errors"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/fanportal/fanportal/internal/account"
	"github.com/fanportal/fanportal/internal/account/postgres"
	"github.com/fanportal/fanportal/internal/store"
	"github.com/fanportal/fanportal/pkg/errutil"
)

// NewSeedCmd creates the seed command, which bootstraps an initial
// account. Re-running it against an existing account is a no-op.
func NewSeedCmd() *cobra.Command {
	var (
		name     string
		password string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create an initial account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return oops.Code("CONFIG_MISSING_DATABASE_URL").Errorf("database.url is required")
			}
			if password == "" {
				return oops.Code("SEED_PASSWORD_REQUIRED").Errorf("--password is required")
			}

			ctx := cmd.Context()
			pool, err := store.Open(ctx, cfg.Database.URL, cfg.Database.MaxConns)
			if err != nil {
				errutil.LogError(slog.Default(), "database connect failed", err)
				return err
			}
			defer pool.Close()

			svc, err := buildService(pool, nil)
			if err != nil {
				return err
			}

			acct, err := svc.CreateAccount(ctx, name, password)
			if err != nil {
				if errors.Is(err, account.ErrConflict) {
					cmd.Printf("account %q already exists, skipping seed\n", name)
					return nil
				}
				errutil.LogError(slog.Default(), "seed failed", err)
				return err
			}

			cmd.Printf("created account %q (%s)\n", acct.Name, acct.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "admin", "account name")
	cmd.Flags().StringVar(&password, "password", "", "account password")

	return cmd
}

// buildService wires the account service over a connection pool. The
// provider may be nil when linking is not configured.
func buildService(pool postgres.DB, provider account.IdentityProvider) (*account.Service, error) {
	accounts := postgres.NewAccountRepository(pool)
	credentials := postgres.NewCredentialRepository(pool)
	identities := postgres.NewLinkedIdentityRepository(pool)
	sessions := postgres.NewSessionRepository(pool)
	hasher := account.NewArgon2idHasher()

	credStore, err := account.NewCredentialStore(accounts, credentials, hasher)
	if err != nil {
		return nil, err
	}
	registry, err := account.NewRegistry(identities)
	if err != nil {
		return nil, err
	}
	return account.NewService(accounts, credStore, registry, sessions, hasher, provider)
}
