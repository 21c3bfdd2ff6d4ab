// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

package account

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// LinkedIdentity maps an external OAuth provider identity to an account.
// (provider, external_id) is unique globally; (account_id, provider) is
// unique per account.
type LinkedIdentity struct {
	AccountID   ulid.ULID
	Provider    string
	ExternalID  string
	DisplayName string
	CreatedAt   time.Time
}

// LinkedIdentityRepository manages linked identity persistence.
type LinkedIdentityRepository interface {
	// ListByAccount returns all linked identities for an account.
	// Order is not significant.
	ListByAccount(ctx context.Context, accountID ulid.ULID) ([]LinkedIdentity, error)

	// Insert stores a linked identity. The store's unique constraints
	// surface as ErrAlreadyLinked when the account already holds a link
	// for the provider, and ErrConflict when the external identity is
	// claimed by a different account.
	Insert(ctx context.Context, ident LinkedIdentity) error

	// Delete removes the account's link for a provider.
	// Returns ErrNotFound when no link exists.
	Delete(ctx context.Context, accountID ulid.ULID, provider string) error
}

// Registry enforces the linking rules on top of a LinkedIdentityRepository.
type Registry struct {
	identities LinkedIdentityRepository
}

// NewRegistry creates a new Registry.
func NewRegistry(identities LinkedIdentityRepository) (*Registry, error) {
	if identities == nil {
		return nil, oops.Code("REGISTRY_INVALID").Errorf("linked identity repository is required")
	}
	return &Registry{identities: identities}, nil
}

// ListByAccount returns the account's linked identities.
func (r *Registry) ListByAccount(ctx context.Context, accountID ulid.ULID) ([]LinkedIdentity, error) {
	idents, err := r.identities.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, oops.Code("IDENTITY_LIST_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return idents, nil
}

// Link records an external identity for the account.
//
// The existing-link check runs first so a repeat call for the same
// (account, provider) deterministically returns ErrAlreadyLinked; an
// existing link is never silently overwritten. The insert still races the
// store's unique constraints, which settle concurrent attempts: a lost race
// against the account's own per-provider constraint also reports
// ErrAlreadyLinked, and a lost race for the external identity reports
// ErrConflict.
func (r *Registry) Link(ctx context.Context, accountID ulid.ULID, provider, externalID, displayName string) (*LinkedIdentity, error) {
	existing, err := r.identities.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, oops.Code("IDENTITY_LINK_FAILED").
			With("operation", "list existing links").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	for _, ident := range existing {
		if ident.Provider == provider {
			return nil, oops.Code("IDENTITY_ALREADY_LINKED").
				With("account_id", accountID.String()).
				With("provider", provider).
				Wrap(ErrAlreadyLinked)
		}
	}

	ident := LinkedIdentity{
		AccountID:   accountID,
		Provider:    provider,
		ExternalID:  externalID,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.identities.Insert(ctx, ident); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyLinked):
			return nil, oops.Code("IDENTITY_ALREADY_LINKED").
				With("account_id", accountID.String()).
				With("provider", provider).
				Wrap(err)
		case errors.Is(err, ErrConflict):
			return nil, oops.Code("IDENTITY_CLAIMED").
				With("provider", provider).
				With("external_id", externalID).
				Wrap(err)
		default:
			return nil, oops.Code("IDENTITY_LINK_FAILED").
				With("operation", "insert link").
				With("account_id", accountID.String()).
				With("provider", provider).
				Wrap(err)
		}
	}
	return &ident, nil
}

// Unlink removes the account's link for a provider.
// Returns ErrNotFound (wrapped) when no link exists.
func (r *Registry) Unlink(ctx context.Context, accountID ulid.ULID, provider string) error {
	if err := r.identities.Delete(ctx, accountID, provider); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("IDENTITY_NOT_FOUND").
				With("account_id", accountID.String()).
				With("provider", provider).
				Wrap(err)
		}
		return oops.Code("IDENTITY_UNLINK_FAILED").
			With("account_id", accountID.String()).
			With("provider", provider).
			Wrap(err)
	}
	return nil
}
