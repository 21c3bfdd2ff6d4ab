// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

package account_test

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanportal/fanportal/internal/account"
)

func TestGenerateSessionToken(t *testing.T) {
	token, hash, err := account.GenerateSessionToken()
	require.NoError(t, err)

	assert.Len(t, token, account.SessionTokenBytes*2)
	assert.Len(t, hash, 64)
	assert.NotEqual(t, token, hash)
	assert.Equal(t, account.HashSessionToken(token), hash)

	other, _, err := account.GenerateSessionToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestHashSessionToken_Deterministic(t *testing.T) {
	assert.Equal(t, account.HashSessionToken("abc"), account.HashSessionToken("abc"))
	assert.NotEqual(t, account.HashSessionToken("abc"), account.HashSessionToken("abd"))
}

func TestNewSession(t *testing.T) {
	accountID := ulid.Make()
	expiry := time.Now().Add(time.Hour)

	t.Run("valid", func(t *testing.T) {
		session, err := account.NewSession(accountID, "hash", expiry)
		require.NoError(t, err)
		assert.Equal(t, accountID, session.AccountID)
		assert.Equal(t, "hash", session.TokenHash)
		assert.False(t, session.ID.Compare(ulid.ULID{}) == 0)
		assert.False(t, session.CreatedAt.IsZero())
		assert.Equal(t, session.CreatedAt, session.LastSeenAt)
	})

	t.Run("zero account ID", func(t *testing.T) {
		_, err := account.NewSession(ulid.ULID{}, "hash", expiry)
		assert.Error(t, err)
	})

	t.Run("empty token hash", func(t *testing.T) {
		_, err := account.NewSession(accountID, "", expiry)
		assert.Error(t, err)
	})

	t.Run("zero expiry", func(t *testing.T) {
		_, err := account.NewSession(accountID, "hash", time.Time{})
		assert.Error(t, err)
	})
}

func TestSession_IsExpiredAt(t *testing.T) {
	expiry := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	session, err := account.NewSession(ulid.Make(), "hash", expiry)
	require.NoError(t, err)

	assert.False(t, session.IsExpiredAt(expiry.Add(-time.Second)))
	assert.False(t, session.IsExpiredAt(expiry))
	assert.True(t, session.IsExpiredAt(expiry.Add(time.Second)))
}
