// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/fanportal/fanportal/internal/account"
)

// selectAccount is the shared projection for account reads. Roles come
// back as a text array, ordered by title.
const selectAccount = `
	SELECT a.id, a.name, a.avatar_url, a.enabled, a.created_at, a.updated_at,
	       COALESCE(
	           (SELECT array_agg(r.title ORDER BY r.title)
	            FROM account_roles r WHERE r.account_id = a.id),
	           '{}')
	FROM accounts a
`

// AccountRepository implements account.Repository using PostgreSQL.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create stores the account, its credential hash, and its roles in a single
// transaction. A duplicate name yields account.ErrConflict; caller-side
// cancellation rolls the whole unit back, never leaving a half-created
// account.
func (r *AccountRepository) Create(ctx context.Context, acct *account.Account, credentialHash string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.Exec(ctx, `
		INSERT INTO accounts (id, name, avatar_url, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		acct.ID.String(),
		acct.Name,
		acct.AvatarURL,
		acct.Enabled,
		acct.CreatedAt,
		acct.UpdatedAt,
	)
	if err != nil {
		if uniqueViolation(err, constraintAccountName) {
			return oops.Code("ACCOUNT_NAME_TAKEN").
				With("name", acct.Name).
				Wrap(account.ErrConflict)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("name", acct.Name).
			Wrap(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO credentials (account_id, hash) VALUES ($1, $2)
	`, acct.ID.String(), credentialHash)
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert credential").
			Wrap(err)
	}

	for _, role := range acct.Roles {
		_, err = tx.Exec(ctx, `
			INSERT INTO account_roles (account_id, title) VALUES ($1, $2)
		`, acct.ID.String(), role)
		if err != nil {
			return oops.Code("ACCOUNT_CREATE_FAILED").
				With("operation", "insert role").
				With("role", role).
				Wrap(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*account.Account, error) {
	row := r.db.QueryRow(ctx, selectAccount+`WHERE a.id = $1`, id.String())

	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("id", id.String()).
			Wrap(err)
	}
	return acct, nil
}

// GetByName retrieves an account by its exact name.
func (r *AccountRepository) GetByName(ctx context.Context, name string) (*account.Account, error) {
	row := r.db.QueryRow(ctx, selectAccount+`WHERE a.name = $1`, name)

	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("name", name).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_NAME_FAILED").
			With("operation", "get account by name").
			With("name", name).
			Wrap(err)
	}
	return acct, nil
}

// GetByNameOrID retrieves an account whose ID or name equals token.
func (r *AccountRepository) GetByNameOrID(ctx context.Context, token string) (*account.Account, error) {
	row := r.db.QueryRow(ctx, selectAccount+`WHERE a.id = $1 OR a.name = $1`, token)

	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("token", token).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_NAME_OR_ID_FAILED").
			With("operation", "get account by name or id").
			With("token", token).
			Wrap(err)
	}
	return acct, nil
}

// Update applies a partial update. Nil fields keep their stored value;
// updated_at is stored verbatim as supplied by the caller.
func (r *AccountRepository) Update(ctx context.Context, id ulid.ULID, upd account.Update) error {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts SET
			name = COALESCE($2, name),
			avatar_url = COALESCE($3, avatar_url),
			enabled = COALESCE($4, enabled),
			updated_at = $5
		WHERE id = $1
	`,
		id.String(),
		upd.Name,
		upd.AvatarURL,
		upd.Enabled,
		upd.UpdatedAt,
	)
	if err != nil {
		if uniqueViolation(err, constraintAccountName) {
			return oops.Code("ACCOUNT_NAME_TAKEN").
				With("id", id.String()).
				Wrap(account.ErrConflict)
		}
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update account").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// DeleteByID removes an account. Credentials, linked identities, sessions,
// and roles go with it via the schema's ON DELETE CASCADE.
func (r *AccountRepository) DeleteByID(ctx context.Context, id ulid.ULID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("operation", "delete account").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// DeleteByName removes an account by its exact name.
func (r *AccountRepository) DeleteByName(ctx context.Context, name string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE name = $1`, name)
	if err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("operation", "delete account by name").
			With("name", name).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("name", name).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// scanAccount scans a single account row.
// Callers are responsible for handling pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*account.Account, error) {
	var (
		idStr     string
		name      string
		avatarURL *string
		enabled   bool
		createdAt time.Time
		updatedAt time.Time
		roles     []string
	)

	err := row.Scan(&idStr, &name, &avatarURL, &enabled, &createdAt, &updatedAt, &roles)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to wrap with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck
		}
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "scan account").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").
			With("operation", "parse account id").
			With("id", idStr).
			Wrap(err)
	}

	return &account.Account{
		ID:        id,
		Name:      name,
		AvatarURL: avatarURL,
		Enabled:   enabled,
		Roles:     roles,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// Compile-time interface check.
var _ account.Repository = (*AccountRepository)(nil)
