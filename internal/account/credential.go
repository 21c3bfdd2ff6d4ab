// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

package account

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// CredentialRepository manages the hashed-password row owned one-to-one by
// an account. The row is created inside Repository.Create and removed by the
// store's cascade on account deletion.
type CredentialRepository interface {
	// HashByAccountID returns the stored password hash for an account.
	// Returns ErrNotFound when no credential row exists.
	HashByAccountID(ctx context.Context, accountID ulid.ULID) (string, error)

	// UpdateHash overwrites the stored password hash for an account.
	// Returns ErrNotFound when no credential row exists.
	UpdateHash(ctx context.Context, accountID ulid.ULID, hash string) error
}

// dummyCredentialHash is verified when the account or its credential is
// absent, keeping Verify's response time flat so callers cannot enumerate
// account names. It is not a real credential and matches no password.
//
//nolint:gosec // G101: intentionally fake hash for timing hardening, not a credential.
const dummyCredentialHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// CredentialStore verifies name+password pairs and rotates passwords.
type CredentialStore struct {
	accounts    Repository
	credentials CredentialRepository
	hasher      PasswordHasher
}

// NewCredentialStore creates a new CredentialStore.
func NewCredentialStore(accounts Repository, credentials CredentialRepository, hasher PasswordHasher) (*CredentialStore, error) {
	if accounts == nil {
		return nil, oops.Code("CREDENTIAL_STORE_INVALID").Errorf("account repository is required")
	}
	if credentials == nil {
		return nil, oops.Code("CREDENTIAL_STORE_INVALID").Errorf("credential repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("CREDENTIAL_STORE_INVALID").Errorf("password hasher is required")
	}
	return &CredentialStore{accounts: accounts, credentials: credentials, hasher: hasher}, nil
}

// Verify checks a name+password pair and returns the matching account.
//
// Every authentication failure collapses into (nil, nil): absent account,
// absent credential, hash mismatch, and disabled account are deliberately
// indistinguishable to the caller. A dummy hash is verified on the absent
// paths so the response time does not reveal which check failed. Only
// infrastructure failures return an error.
func (s *CredentialStore) Verify(ctx context.Context, name, password string) (*Account, error) {
	acct, lookupErr := s.accounts.GetByName(ctx, name)

	targetHash := dummyCredentialHash
	exists := false

	switch {
	case lookupErr == nil:
		hash, credErr := s.credentials.HashByAccountID(ctx, acct.ID)
		if credErr == nil {
			targetHash = hash
			exists = true
		} else if !errors.Is(credErr, ErrNotFound) {
			return nil, oops.Code("CREDENTIAL_VERIFY_FAILED").
				With("operation", "get credential hash").
				Wrap(credErr)
		}
	case errors.Is(lookupErr, ErrNotFound):
		// Fall through to dummy verification.
	default:
		return nil, oops.Code("CREDENTIAL_VERIFY_FAILED").
			With("operation", "get account by name").
			Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !exists {
			return nil, nil
		}
		return nil, oops.Code("CREDENTIAL_VERIFY_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	// The enabled check comes after the hash comparison so disabled and
	// mismatched attempts take the same path.
	if !exists || !valid || !acct.Enabled {
		return nil, nil
	}
	return acct, nil
}

// ChangePassword rehashes and overwrites the account's credential.
// Returns ErrNotFound (wrapped) when no credential row exists.
func (s *CredentialStore) ChangePassword(ctx context.Context, accountID ulid.ULID, newPassword string) error {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("CREDENTIAL_CHANGE_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}
	if err := s.credentials.UpdateHash(ctx, accountID, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("CREDENTIAL_NOT_FOUND").
				With("account_id", accountID.String()).
				Wrap(err)
		}
		return oops.Code("CREDENTIAL_CHANGE_FAILED").
			With("operation", "update credential hash").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return nil
}
