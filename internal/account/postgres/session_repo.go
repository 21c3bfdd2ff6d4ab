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

// SessionRepository implements account.SessionRepository using PostgreSQL.
type SessionRepository struct {
	db DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *account.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (id, account_id, token_hash, expires_at, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		session.ID.String(),
		session.AccountID.String(),
		session.TokenHash,
		session.ExpiresAt,
		session.CreatedAt,
		session.LastSeenAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("account_id", session.AccountID.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*account.Session, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, account_id, token_hash, expires_at, created_at, last_seen_at
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	return session, nil
}

// UpdateLastSeen sets the session's last-seen timestamp.
func (r *SessionRepository) UpdateLastSeen(ctx context.Context, id ulid.ULID, at time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE sessions SET last_seen_at = $2 WHERE id = $1
	`, id.String(), at)
	if err != nil {
		return oops.Code("SESSION_UPDATE_FAILED").
			With("operation", "update last seen").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// Delete removes a session.
func (r *SessionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// scanSession scans a single session row.
// Callers are responsible for handling pgx.ErrNoRows.
func scanSession(row pgx.Row) (*account.Session, error) {
	var (
		idStr        string
		accountIDStr string
		session      account.Session
	)

	err := row.Scan(&idStr, &accountIDStr, &session.TokenHash, &session.ExpiresAt, &session.CreatedAt, &session.LastSeenAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck
		}
		return nil, oops.Code("SESSION_SCAN_FAILED").
			With("operation", "scan session").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	accountID, err := ulid.Parse(accountIDStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT_ID").
			With("account_id", accountIDStr).
			Wrap(err)
	}

	session.ID = id
	session.AccountID = accountID
	return &session, nil
}

// Compile-time interface check.
var _ account.SessionRepository = (*SessionRepository)(nil)
