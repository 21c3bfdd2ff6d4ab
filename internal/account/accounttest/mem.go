// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

// Package accounttest provides in-memory fakes for the account core's
// repository interfaces. The fakes enforce the same uniqueness rules the
// real store enforces with constraints, so service-level tests observe the
// same sentinel errors.
package accounttest

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fanportal/fanportal/internal/account"
)

// MemStore backs all fake repositories with shared in-memory state, so
// a create through the account repository is visible to the credential
// repository, and deletes cascade like the real schema's foreign keys.
type MemStore struct {
	mu          sync.Mutex
	accounts    map[ulid.ULID]*account.Account
	credentials map[ulid.ULID]string
	identities  []account.LinkedIdentity
	sessions    map[ulid.ULID]*account.Session
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		accounts:    make(map[ulid.ULID]*account.Account),
		credentials: make(map[ulid.ULID]string),
		sessions:    make(map[ulid.ULID]*account.Session),
	}
}

// Accounts returns the fake account repository view of the store.
func (m *MemStore) Accounts() account.Repository { return (*memAccounts)(m) }

// Credentials returns the fake credential repository view of the store.
func (m *MemStore) Credentials() account.CredentialRepository { return (*memCredentials)(m) }

// Identities returns the fake linked-identity repository view of the store.
func (m *MemStore) Identities() account.LinkedIdentityRepository { return (*memIdentities)(m) }

// Sessions returns the fake session repository view of the store.
func (m *MemStore) Sessions() account.SessionRepository { return (*memSessions)(m) }

func clone(a *account.Account) *account.Account {
	cp := *a
	cp.Roles = append([]string(nil), a.Roles...)
	if a.AvatarURL != nil {
		u := *a.AvatarURL
		cp.AvatarURL = &u
	}
	return &cp
}

type memAccounts MemStore

func (m *memAccounts) Create(_ context.Context, acct *account.Account, credentialHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Name == acct.Name {
			return account.ErrConflict
		}
	}
	m.accounts[acct.ID] = clone(acct)
	m.credentials[acct.ID] = credentialHash
	return nil
}

func (m *memAccounts) GetByID(_ context.Context, id ulid.ULID) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return clone(acct), nil
}

func (m *memAccounts) GetByName(_ context.Context, name string) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acct := range m.accounts {
		if acct.Name == name {
			return clone(acct), nil
		}
	}
	return nil, account.ErrNotFound
}

func (m *memAccounts) GetByNameOrID(ctx context.Context, token string) (*account.Account, error) {
	if id, err := ulid.Parse(token); err == nil {
		if acct, err := m.GetByID(ctx, id); err == nil {
			return acct, nil
		}
	}
	return m.GetByName(ctx, token)
}

func (m *memAccounts) Update(_ context.Context, id ulid.ULID, upd account.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[id]
	if !ok {
		return account.ErrNotFound
	}
	if upd.Name != nil {
		for otherID, other := range m.accounts {
			if otherID != id && other.Name == *upd.Name {
				return account.ErrConflict
			}
		}
		acct.Name = *upd.Name
	}
	if upd.AvatarURL != nil {
		u := *upd.AvatarURL
		acct.AvatarURL = &u
	}
	if upd.Enabled != nil {
		acct.Enabled = *upd.Enabled
	}
	acct.UpdatedAt = upd.UpdatedAt
	return nil
}

func (m *memAccounts) DeleteByID(_ context.Context, id ulid.ULID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(id)
}

func (m *memAccounts) DeleteByName(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, acct := range m.accounts {
		if acct.Name == name {
			return m.deleteLocked(id)
		}
	}
	return account.ErrNotFound
}

// deleteLocked mimics the schema's ON DELETE CASCADE.
func (m *memAccounts) deleteLocked(id ulid.ULID) error {
	if _, ok := m.accounts[id]; !ok {
		return account.ErrNotFound
	}
	delete(m.accounts, id)
	delete(m.credentials, id)
	kept := m.identities[:0]
	for _, ident := range m.identities {
		if ident.AccountID != id {
			kept = append(kept, ident)
		}
	}
	m.identities = kept
	for sid, sess := range m.sessions {
		if sess.AccountID == id {
			delete(m.sessions, sid)
		}
	}
	return nil
}

type memCredentials MemStore

func (m *memCredentials) HashByAccountID(_ context.Context, accountID ulid.ULID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, ok := m.credentials[accountID]
	if !ok {
		return "", account.ErrNotFound
	}
	return hash, nil
}

func (m *memCredentials) UpdateHash(_ context.Context, accountID ulid.ULID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.credentials[accountID]; !ok {
		return account.ErrNotFound
	}
	m.credentials[accountID] = hash
	return nil
}

type memIdentities MemStore

func (m *memIdentities) ListByAccount(_ context.Context, accountID ulid.ULID) ([]account.LinkedIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []account.LinkedIdentity
	for _, ident := range m.identities {
		if ident.AccountID == accountID {
			out = append(out, ident)
		}
	}
	return out, nil
}

func (m *memIdentities) Insert(_ context.Context, ident account.LinkedIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.identities {
		if existing.Provider == ident.Provider && existing.ExternalID == ident.ExternalID {
			return account.ErrConflict
		}
		if existing.AccountID == ident.AccountID && existing.Provider == ident.Provider {
			return account.ErrAlreadyLinked
		}
	}
	m.identities = append(m.identities, ident)
	return nil
}

func (m *memIdentities) Delete(_ context.Context, accountID ulid.ULID, provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ident := range m.identities {
		if ident.AccountID == accountID && ident.Provider == provider {
			m.identities = append(m.identities[:i], m.identities[i+1:]...)
			return nil
		}
	}
	return account.ErrNotFound
}

type memSessions MemStore

func (m *memSessions) Create(_ context.Context, session *account.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.sessions[session.ID] = &cp
	return nil
}

func (m *memSessions) GetByTokenHash(_ context.Context, tokenHash string) (*account.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sess := range m.sessions {
		if sess.TokenHash == tokenHash {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, account.ErrNotFound
}

func (m *memSessions) UpdateLastSeen(_ context.Context, id ulid.ULID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return account.ErrNotFound
	}
	sess.LastSeenAt = at
	return nil
}

func (m *memSessions) Delete(_ context.Context, id ulid.ULID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return account.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// StaticProvider is an IdentityProvider for tests: it returns fixed values
// and records the codes and tokens it saw.
type StaticProvider struct {
	ProviderName string
	Token        string
	Profile      account.Profile
	ExchangeErr  error
	FetchErr     error

	ExchangedCodes []string
	FetchedTokens  []string
}

// Name returns the provider label.
func (p *StaticProvider) Name() string {
	if p.ProviderName == "" {
		return "discord"
	}
	return p.ProviderName
}

// ExchangeCode returns the configured token or error.
func (p *StaticProvider) ExchangeCode(_ context.Context, code string, _ account.LinkFlow) (string, error) {
	p.ExchangedCodes = append(p.ExchangedCodes, code)
	if p.ExchangeErr != nil {
		return "", p.ExchangeErr
	}
	return p.Token, nil
}

// FetchProfile returns the configured profile or error.
func (p *StaticProvider) FetchProfile(_ context.Context, token string) (*account.Profile, error) {
	p.FetchedTokens = append(p.FetchedTokens, token)
	if p.FetchErr != nil {
		return nil, p.FetchErr
	}
	profile := p.Profile
	return &profile, nil
}
