// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

// Package account is the user/account data-access and authentication core
// of the fan site: account records and lookups, hashed credentials, session
// issuance, and external OAuth identity linking. Persistence lives behind
// repository interfaces implemented in the postgres subpackage; route
// handlers are external collaborators that call into the Service.
package account
