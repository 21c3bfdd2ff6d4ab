// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

package postgres

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/fanportal/fanportal/internal/account"
)

// LinkedIdentityRepository implements account.LinkedIdentityRepository
// using PostgreSQL. The schema's two unique constraints settle concurrent
// link attempts; this repository only names the loser's error.
type LinkedIdentityRepository struct {
	db DB
}

// NewLinkedIdentityRepository creates a new LinkedIdentityRepository.
func NewLinkedIdentityRepository(db DB) *LinkedIdentityRepository {
	return &LinkedIdentityRepository{db: db}
}

// ListByAccount returns all linked identities for an account.
func (r *LinkedIdentityRepository) ListByAccount(ctx context.Context, accountID ulid.ULID) ([]account.LinkedIdentity, error) {
	rows, err := r.db.Query(ctx, `
		SELECT account_id, provider, external_id, display_name, created_at
		FROM linked_identities
		WHERE account_id = $1
	`, accountID.String())
	if err != nil {
		return nil, oops.Code("IDENTITY_LIST_FAILED").
			With("operation", "query linked identities").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var idents []account.LinkedIdentity
	for rows.Next() {
		var (
			ident        account.LinkedIdentity
			accountIDStr string
		)
		if err := rows.Scan(&accountIDStr, &ident.Provider, &ident.ExternalID, &ident.DisplayName, &ident.CreatedAt); err != nil {
			return nil, oops.Code("IDENTITY_SCAN_FAILED").
				With("operation", "scan linked identity").
				Wrap(err)
		}
		id, err := ulid.Parse(accountIDStr)
		if err != nil {
			return nil, oops.Code("IDENTITY_INVALID_ACCOUNT_ID").
				With("account_id", accountIDStr).
				Wrap(err)
		}
		ident.AccountID = id
		idents = append(idents, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("IDENTITY_LIST_FAILED").
			With("operation", "iterate linked identities").
			Wrap(err)
	}
	return idents, nil
}

// Insert stores a linked identity. A violation of the per-account provider
// constraint maps to ErrAlreadyLinked; a violation of the global external
// identity constraint maps to ErrConflict.
func (r *LinkedIdentityRepository) Insert(ctx context.Context, ident account.LinkedIdentity) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO linked_identities (account_id, provider, external_id, display_name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		ident.AccountID.String(),
		ident.Provider,
		ident.ExternalID,
		ident.DisplayName,
		ident.CreatedAt,
	)
	if err != nil {
		switch {
		case uniqueViolation(err, constraintIdentityProvider):
			return oops.Code("IDENTITY_ALREADY_LINKED").
				With("account_id", ident.AccountID.String()).
				With("provider", ident.Provider).
				Wrap(account.ErrAlreadyLinked)
		case uniqueViolation(err, constraintIdentityExternal):
			return oops.Code("IDENTITY_CLAIMED").
				With("provider", ident.Provider).
				With("external_id", ident.ExternalID).
				Wrap(account.ErrConflict)
		default:
			return oops.Code("IDENTITY_INSERT_FAILED").
				With("operation", "insert linked identity").
				With("account_id", ident.AccountID.String()).
				With("provider", ident.Provider).
				Wrap(err)
		}
	}
	return nil
}

// Delete removes the account's link for a provider.
func (r *LinkedIdentityRepository) Delete(ctx context.Context, accountID ulid.ULID, provider string) error {
	result, err := r.db.Exec(ctx, `
		DELETE FROM linked_identities WHERE account_id = $1 AND provider = $2
	`, accountID.String(), provider)
	if err != nil {
		return oops.Code("IDENTITY_DELETE_FAILED").
			With("operation", "delete linked identity").
			With("account_id", accountID.String()).
			With("provider", provider).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("IDENTITY_NOT_FOUND").
			With("account_id", accountID.String()).
			With("provider", provider).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// Compile-time interface check.
var _ account.LinkedIdentityRepository = (*LinkedIdentityRepository)(nil)
