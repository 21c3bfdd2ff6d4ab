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

// LinkOutcome is the terminal state of an external linking flow. Only
// upstream or infrastructure failures abort the flow with an error;
// ALREADY_LINKED and CONFLICT are ordinary end states reported distinctly.
type LinkOutcome string

// Terminal linking outcomes.
const (
	LinkOutcomeLinked        LinkOutcome = "LINKED"
	LinkOutcomeAlreadyLinked LinkOutcome = "ALREADY_LINKED"
	LinkOutcomeConflict      LinkOutcome = "CONFLICT"
)

// LinkResult reports how a linking flow ended. Identity is set only when
// the outcome is LinkOutcomeLinked.
type LinkResult struct {
	Outcome  LinkOutcome
	Identity *LinkedIdentity
}

// Service orchestrates account creation, login, session issuance, and
// external account linking. It composes the account repository, credential
// store, and linked-identity registry; route handlers call it directly.
type Service struct {
	accounts    Repository
	credentials *CredentialStore
	registry    *Registry
	sessions    SessionRepository
	hasher      PasswordHasher
	provider    IdentityProvider
}

// NewService creates a new Service. The identity provider may be nil when
// external linking is not configured; every other dependency is required.
func NewService(
	accounts Repository,
	credentials *CredentialStore,
	registry *Registry,
	sessions SessionRepository,
	hasher PasswordHasher,
	provider IdentityProvider,
) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("account repository is required")
	}
	if credentials == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("credential store is required")
	}
	if registry == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("linked identity registry is required")
	}
	if sessions == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("session repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("password hasher is required")
	}
	return &Service{
		accounts:    accounts,
		credentials: credentials,
		registry:    registry,
		sessions:    sessions,
		hasher:      hasher,
		provider:    provider,
	}, nil
}

// CreateAccount validates the name, hashes the password, and persists the
// account, its credential, and the DEFAULT role in one transaction.
// A taken name reports ErrConflict.
func (s *Service) CreateAccount(ctx context.Context, name, password string) (*Account, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	now := time.Now().UTC()
	acct := &Account{
		ID:        ulid.Make(),
		Name:      name,
		Enabled:   true,
		Roles:     []string{RoleDefault},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.accounts.Create(ctx, acct, hash); err != nil {
		if errors.Is(err, ErrConflict) {
			recordAccountCreate("conflict")
			return nil, oops.Code("ACCOUNT_NAME_TAKEN").
				With("name", name).
				Wrap(err)
		}
		recordAccountCreate("error")
		return nil, oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("name", name).
			Wrap(err)
	}

	recordAccountCreate("created")
	return acct, nil
}

// Login verifies a name+password pair. It is stateless and single-step:
// (account, nil) on success, (nil, nil) on any authentication failure, and
// an error only for infrastructure problems. Session issuance is the
// caller's move, via IssueSession.
func (s *Service) Login(ctx context.Context, name, password string) (*Account, error) {
	acct, err := s.credentials.Verify(ctx, name, password)
	if err != nil {
		recordLogin("error")
		return nil, err
	}
	if acct == nil {
		recordLogin("rejected")
		return nil, nil
	}
	recordLogin("success")
	return acct, nil
}

// ChangePassword rotates the account's password.
func (s *Service) ChangePassword(ctx context.Context, accountID ulid.ULID, newPassword string) error {
	return s.credentials.ChangePassword(ctx, accountID, newPassword)
}

// LinkExternal runs the external-account linking flow for an authenticated
// account holding an authorization code:
//
//	code exchange → profile fetch → link attempt
//
// Each external call is attempted exactly once; upstream failures abort the
// flow with an error wrapping ErrUpstream and persist nothing. The link
// attempt's three terminal states come back as a LinkResult.
func (s *Service) LinkExternal(ctx context.Context, accountID ulid.ULID, code string) (*LinkResult, error) {
	if s.provider == nil {
		return nil, oops.Code("LINK_NO_PROVIDER").Errorf("no identity provider configured")
	}
	if code == "" {
		return nil, oops.Code("LINK_CODE_EMPTY").Errorf("authorization code cannot be empty")
	}

	token, err := s.provider.ExchangeCode(ctx, code, FlowLink)
	if err != nil {
		recordLink("upstream_error")
		return nil, oops.Code("LINK_CODE_EXCHANGE_FAILED").
			With("provider", s.provider.Name()).
			Wrap(err)
	}

	profile, err := s.provider.FetchProfile(ctx, token)
	if err != nil {
		recordLink("upstream_error")
		return nil, oops.Code("LINK_PROFILE_FETCH_FAILED").
			With("provider", s.provider.Name()).
			Wrap(err)
	}

	ident, err := s.registry.Link(ctx, accountID, s.provider.Name(), profile.ExternalID, profile.DisplayName)
	switch {
	case err == nil:
		recordLink(string(LinkOutcomeLinked))
		return &LinkResult{Outcome: LinkOutcomeLinked, Identity: ident}, nil
	case errors.Is(err, ErrAlreadyLinked):
		recordLink(string(LinkOutcomeAlreadyLinked))
		return &LinkResult{Outcome: LinkOutcomeAlreadyLinked}, nil
	case errors.Is(err, ErrConflict):
		recordLink(string(LinkOutcomeConflict))
		return &LinkResult{Outcome: LinkOutcomeConflict}, nil
	default:
		recordLink("error")
		return nil, err
	}
}

// LinkedIdentities returns the account's linked identities.
func (s *Service) LinkedIdentities(ctx context.Context, accountID ulid.ULID) ([]LinkedIdentity, error) {
	return s.registry.ListByAccount(ctx, accountID)
}

// Unlink removes the account's link for a provider.
func (s *Service) Unlink(ctx context.Context, accountID ulid.ULID, provider string) error {
	return s.registry.Unlink(ctx, accountID, provider)
}

// IssueSession creates a session for an account and returns it with the
// plaintext token for the cookie.
func (s *Service) IssueSession(ctx context.Context, accountID ulid.ULID) (*Session, string, error) {
	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", oops.Code("SESSION_ISSUE_FAILED").
			With("operation", "generate token").
			Wrap(err)
	}

	session, err := NewSession(accountID, tokenHash, time.Now().Add(SessionTokenExpiry))
	if err != nil {
		return nil, "", oops.Code("SESSION_ISSUE_FAILED").
			With("operation", "build session").
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", oops.Code("SESSION_ISSUE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}
	return session, token, nil
}

// ValidateSession resolves a plaintext token to a live session and bumps
// its last-seen timestamp.
func (s *Service) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code("SESSION_TOKEN_EMPTY").Errorf("session token cannot be empty")
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Errorf("invalid session token")
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpired() {
		return nil, oops.Code("SESSION_EXPIRED").Errorf("session has expired")
	}

	// Best effort; validation succeeds regardless.
	_ = s.sessions.UpdateLastSeen(ctx, session.ID, time.Now()) //nolint:errcheck

	return session, nil
}

// RevokeSession deletes a session.
func (s *Service) RevokeSession(ctx context.Context, sessionID ulid.ULID) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("SESSION_NOT_FOUND").
				With("session_id", sessionID.String()).
				Wrap(err)
		}
		return oops.Code("SESSION_REVOKE_FAILED").
			With("session_id", sessionID.String()).
			Wrap(err)
	}
	return nil
}
