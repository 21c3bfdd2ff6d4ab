// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

// Package postgres implements the account core's repositories on
// PostgreSQL via pgx. Constraint violations are translated into the
// account package's sentinel errors here and nowhere else.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repositories need. pgxmock's pool
// interface satisfies it too, which keeps the repositories unit-testable
// without a database.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Unique constraint names from the schema in internal/store/migrations.
const (
	constraintAccountName      = "accounts_name_key"
	constraintIdentityExternal = "linked_identities_provider_external_id_key"
	constraintIdentityProvider = "linked_identities_account_id_provider_key"
)

// uniqueViolation reports whether err is a unique-constraint violation on
// the named constraint.
func uniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		pgErr.ConstraintName == constraint
}
