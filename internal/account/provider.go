// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

package account

import "context"

// LinkFlow tags which flow an authorization code came from. Providers may
// register distinct redirect URIs per flow.
type LinkFlow string

// Known link flows.
const (
	FlowLogin LinkFlow = "login"
	FlowLink  LinkFlow = "link"
)

// Profile is the stable identity a provider reports for its user.
type Profile struct {
	ExternalID  string
	DisplayName string
}

// IdentityProvider is an external OAuth provider collaborator. Failures are
// reported wrapping ErrUpstream and are never retried by this core.
type IdentityProvider interface {
	// Name returns the provider label stored on linked identities,
	// e.g. "discord".
	Name() string

	// ExchangeCode exchanges an authorization code for an access token.
	ExchangeCode(ctx context.Context, code string, flow LinkFlow) (string, error)

	// FetchProfile fetches the external account's stable id and display
	// name using an access token.
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}
