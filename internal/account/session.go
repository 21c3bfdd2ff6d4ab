// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

package account

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes  = 32                 // 32 bytes = 64 hex chars
	SessionTokenExpiry = 7 * 24 * time.Hour // one week
)

// Session is a logged-in browser session. The plaintext token goes to the
// client cookie; only its SHA-256 hash is stored.
type Session struct {
	ID         ulid.ULID
	AccountID  ulid.ULID
	TokenHash  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// NewSession creates a validated Session instance.
func NewSession(accountID ulid.ULID, tokenHash string, expiresAt time.Time) (*Session, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	now := time.Now()
	return &Session{
		ID:         ulid.Make(),
		AccountID:  accountID,
		TokenHash:  tokenHash,
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
		LastSeenAt: now,
	}, nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsExpiredAt reports whether the session would be expired at the given
// time. Useful for deterministic tests.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash.
	// Returns ErrNotFound when no session matches.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// UpdateLastSeen sets the session's last-seen timestamp.
	UpdateLastSeen(ctx context.Context, id ulid.ULID, at time.Time) error

	// Delete removes a session. Returns ErrNotFound when absent.
	Delete(ctx context.Context, id ulid.ULID) error
}

// GenerateSessionToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error). The plaintext token is
// handed to the client; the hash is what gets persisted.
func GenerateSessionToken() (token, hash string, err error) {
	buf := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			Wrap(err)
	}
	token = hex.EncodeToString(buf)
	return token, HashSessionToken(token), nil
}

// HashSessionToken returns the hex-encoded SHA-256 hash of a token.
func HashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
