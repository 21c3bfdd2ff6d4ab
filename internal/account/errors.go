// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

package account

import "errors"

// Sentinel errors for the account core. Store adapters translate low-level
// failures (pgx.ErrNoRows, SQLSTATE unique violations) into these at the
// repository boundary; nothing below that boundary leaks to callers.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a uniqueness constraint is violated:
	// a duplicate account name, or an external identity already claimed
	// by a different account.
	ErrConflict = errors.New("conflict")

	// ErrAlreadyLinked is returned when the account itself already holds
	// a link for the given provider. Distinct from ErrConflict.
	ErrAlreadyLinked = errors.New("already linked")

	// ErrUpstream is returned when an external provider call fails.
	// Calls are never retried inside this core.
	ErrUpstream = errors.New("upstream provider failure")
)
