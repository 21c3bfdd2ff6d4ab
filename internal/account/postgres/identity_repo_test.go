// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanportal/fanportal/internal/account"
)

func testIdentity() account.LinkedIdentity {
	return account.LinkedIdentity{
		AccountID:   ulid.Make(),
		Provider:    "discord",
		ExternalID:  "d-42",
		DisplayName: "AliceD",
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestLinkedIdentityRepository_Insert(t *testing.T) {
	ident := testIdentity()

	tests := []struct {
		name       string
		constraint string
		execErr    error
		wantErr    error
		errMsg     string
	}{
		{
			name: "successful insert",
		},
		{
			name:       "provider constraint maps to already linked",
			constraint: constraintIdentityProvider,
			wantErr:    account.ErrAlreadyLinked,
		},
		{
			name:       "external identity constraint maps to conflict",
			constraint: constraintIdentityExternal,
			wantErr:    account.ErrConflict,
		},
		{
			name:    "other database error is not translated",
			execErr: errors.New("connection lost"),
			errMsg:  "connection lost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			expect := mock.ExpectExec(`INSERT INTO linked_identities`).
				WithArgs(ident.AccountID.String(), ident.Provider, ident.ExternalID, ident.DisplayName, ident.CreatedAt)
			switch {
			case tt.constraint != "":
				expect.WillReturnError(&pgconn.PgError{
					Code:           pgerrcode.UniqueViolation,
					ConstraintName: tt.constraint,
				})
			case tt.execErr != nil:
				expect.WillReturnError(tt.execErr)
			default:
				expect.WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}

			repo := NewLinkedIdentityRepository(mock)
			err = repo.Insert(context.Background(), ident)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.NotErrorIs(t, err, account.ErrAlreadyLinked)
				assert.NotErrorIs(t, err, account.ErrConflict)
			default:
				require.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestLinkedIdentityRepository_ListByAccount(t *testing.T) {
	accountID := ulid.Make()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("returns all rows for the account", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"account_id", "provider", "external_id", "display_name", "created_at"}).
			AddRow(accountID.String(), "discord", "d-42", "AliceD", created).
			AddRow(accountID.String(), "github", "gh-7", "alice", created)
		mock.ExpectQuery(`FROM linked_identities`).
			WithArgs(accountID.String()).
			WillReturnRows(rows)

		repo := NewLinkedIdentityRepository(mock)
		got, err := repo.ListByAccount(context.Background(), accountID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "discord", got[0].Provider)
		assert.Equal(t, accountID, got[0].AccountID)
		assert.Equal(t, "gh-7", got[1].ExternalID)

		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("no links yields empty slice without error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectQuery(`FROM linked_identities`).
			WithArgs(accountID.String()).
			WillReturnRows(pgxmock.NewRows([]string{"account_id", "provider", "external_id", "display_name", "created_at"}))

		repo := NewLinkedIdentityRepository(mock)
		got, err := repo.ListByAccount(context.Background(), accountID)
		require.NoError(t, err)
		assert.Empty(t, got)

		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("row iteration error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"account_id", "provider", "external_id", "display_name", "created_at"}).
			AddRow(accountID.String(), "discord", "d-42", "AliceD", created).
			RowError(0, errors.New("row iteration error"))
		mock.ExpectQuery(`FROM linked_identities`).
			WithArgs(accountID.String()).
			WillReturnRows(rows)

		repo := NewLinkedIdentityRepository(mock)
		_, err = repo.ListByAccount(context.Background(), accountID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "row iteration error")

		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestLinkedIdentityRepository_Delete(t *testing.T) {
	accountID := ulid.Make()

	t.Run("successful delete", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM linked_identities`).
			WithArgs(accountID.String(), "discord").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		repo := NewLinkedIdentityRepository(mock)
		require.NoError(t, repo.Delete(context.Background(), accountID, "discord"))

		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("missing link reports not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM linked_identities`).
			WithArgs(accountID.String(), "discord").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		repo := NewLinkedIdentityRepository(mock)
		err = repo.Delete(context.Background(), accountID, "discord")
		assert.ErrorIs(t, err, account.ErrNotFound)

		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}
