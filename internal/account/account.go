// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

package account

import (
	"context"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// RoleDefault is granted to every account on creation.
const RoleDefault = "DEFAULT"

// Name validation constraints.
const (
	MinNameLength = 3
	MaxNameLength = 32
)

// nameRegex matches handles that start with a letter and contain only
// letters, numbers, and underscores.
var nameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// Account is a user's persistent identity record. The password hash lives
// in a separate credential row and is never carried on this struct.
type Account struct {
	ID        ulid.ULID
	Name      string
	AvatarURL *string
	Enabled   bool
	Roles     []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasRole reports whether the account carries the given role label.
func (a *Account) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ValidateName validates a human-chosen account handle.
// Requirements:
// - Length: MinNameLength to MaxNameLength characters
// - Must start with a letter
// - Can contain only letters (a-z, A-Z), numbers (0-9), and underscores (_)
func ValidateName(name string) error {
	if name == "" {
		return oops.Code("ACCOUNT_INVALID_NAME").Errorf("name cannot be empty")
	}
	if len(name) < MinNameLength {
		return oops.Code("ACCOUNT_INVALID_NAME").
			With("min", MinNameLength).
			Errorf("name must be at least %d characters", MinNameLength)
	}
	if len(name) > MaxNameLength {
		return oops.Code("ACCOUNT_INVALID_NAME").
			With("max", MaxNameLength).
			Errorf("name must be at most %d characters", MaxNameLength)
	}
	if !nameRegex.MatchString(name) {
		return oops.Code("ACCOUNT_INVALID_NAME").
			Errorf("name must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// Update describes a partial account update. Nil fields are left unchanged.
// UpdatedAt is always supplied by the caller and stored verbatim; the
// repository never reads a clock, which keeps writes deterministic in tests.
type Update struct {
	Name      *string
	AvatarURL *string
	Enabled   *bool
	UpdatedAt time.Time
}

// Repository manages account persistence.
//
// Lookup methods return ErrNotFound (wrapped) when no row matches.
// Mutations targeting a missing row also return ErrNotFound; deletes are
// not idempotent no-ops.
type Repository interface {
	// Create stores a new account together with its credential hash and
	// the DEFAULT role in a single transaction. A duplicate name yields
	// ErrConflict and leaves zero rows behind.
	Create(ctx context.Context, acct *Account, credentialHash string) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByName retrieves an account by its exact name.
	GetByName(ctx context.Context, name string) (*Account, error)

	// GetByNameOrID retrieves an account whose ID or name equals token.
	GetByNameOrID(ctx context.Context, token string) (*Account, error)

	// Update applies a partial update to an account.
	Update(ctx context.Context, id ulid.ULID, upd Update) error

	// DeleteByID removes an account. The store cascades the delete to the
	// credential, linked identities, sessions, and roles.
	DeleteByID(ctx context.Context, id ulid.ULID) error

	// DeleteByName removes an account by its exact name.
	DeleteByName(ctx context.Context, name string) error
}
