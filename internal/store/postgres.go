// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

// Package store owns the PostgreSQL connection lifecycle and schema
// migrations. The pool is constructed once at process start, injected into
// the repositories, and closed on shutdown; there is no package-level
// singleton.
package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
)

// DefaultMaxConns bounds the pool when the configuration does not.
const DefaultMaxConns = 8

// Open connects a pgx pool to the database and verifies connectivity with
// a ping. The caller owns the returned pool and must Close it.
func Open(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("STORE_BAD_DSN").Wrap(err)
	}
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("STORE_CONNECT_FAILED").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code("STORE_PING_FAILED").Wrap(err)
	}
	return pool, nil
}
