// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/fanportal/fanportal/internal/account"
)

// CredentialRepository implements account.CredentialRepository using
// PostgreSQL. Credential rows are created by AccountRepository.Create and
// removed by the cascade on account deletion; this repository only reads
// and rotates the hash.
type CredentialRepository struct {
	db DB
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(db DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// HashByAccountID returns the stored password hash for an account.
func (r *CredentialRepository) HashByAccountID(ctx context.Context, accountID ulid.ULID) (string, error) {
	var hash string
	err := r.db.QueryRow(ctx, `
		SELECT hash FROM credentials WHERE account_id = $1
	`, accountID.String()).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", oops.Code("CREDENTIAL_NOT_FOUND").
			With("account_id", accountID.String()).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return "", oops.Code("CREDENTIAL_GET_FAILED").
			With("operation", "get credential hash").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return hash, nil
}

// UpdateHash overwrites the stored password hash for an account.
func (r *CredentialRepository) UpdateHash(ctx context.Context, accountID ulid.ULID, hash string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE credentials SET hash = $2 WHERE account_id = $1
	`, accountID.String(), hash)
	if err != nil {
		return oops.Code("CREDENTIAL_UPDATE_FAILED").
			With("operation", "update credential hash").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("CREDENTIAL_NOT_FOUND").
			With("account_id", accountID.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// Compile-time interface check.
var _ account.CredentialRepository = (*CredentialRepository)(nil)
