// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

// Package discord implements account.IdentityProvider for Discord OAuth2.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/samber/oops"
	"golang.org/x/oauth2"

	"github.com/fanportal/fanportal/internal/account"
)

// Default Discord endpoints. Overridable for tests.
const (
	defaultAuthURL  = "https://discord.com/oauth2/authorize"
	defaultTokenURL = "https://discord.com/api/oauth2/token"
	defaultAPIBase  = "https://discord.com/api/v10"
)

const requestTimeout = 10 * time.Second

// Scopes requested during the linking flow. "identify" covers id, username,
// and global name; no email or guild access is requested.
var Scopes = []string{"identify"}

// Config holds the application's Discord OAuth credentials. Redirect URLs
// may differ per flow since Discord validates them against the registered
// set.
type Config struct {
	ClientID         string
	ClientSecret     string
	LoginRedirectURL string
	LinkRedirectURL  string

	// AuthURL, TokenURL, and APIBase default to Discord's public
	// endpoints when empty.
	AuthURL  string
	TokenURL string
	APIBase  string
}

// Provider implements account.IdentityProvider against the Discord API.
type Provider struct {
	cfg    Config
	client *http.Client
}

// New creates a Discord Provider.
func New(cfg Config) (*Provider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, oops.Code("DISCORD_CONFIG_INVALID").Errorf("client id and secret are required")
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: requestTimeout},
	}, nil
}

// Name returns "discord".
func (p *Provider) Name() string { return "discord" }

// oauthConfig builds the oauth2 config for a flow.
func (p *Provider) oauthConfig(flow account.LinkFlow) *oauth2.Config {
	redirect := p.cfg.LoginRedirectURL
	if flow == account.FlowLink {
		redirect = p.cfg.LinkRedirectURL
	}
	return &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		RedirectURL:  redirect,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.cfg.AuthURL,
			TokenURL: p.cfg.TokenURL,
		},
	}
}

// AuthCodeURL returns the URL to send a user to for the given flow.
func (p *Provider) AuthCodeURL(state string, flow account.LinkFlow) string {
	return p.oauthConfig(flow).AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for an access token.
// The exchange is attempted exactly once; failures wrap account.ErrUpstream.
func (p *Provider) ExchangeCode(ctx context.Context, code string, flow account.LinkFlow) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	token, err := p.oauthConfig(flow).Exchange(ctx, code)
	if err != nil {
		return "", oops.Code("DISCORD_EXCHANGE_FAILED").
			With("flow", string(flow)).
			Wrapf(account.ErrUpstream, "code exchange: %v", err)
	}
	return token.AccessToken, nil
}

// discordUser is the subset of Discord's /users/@me response we read.
type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

// FetchProfile fetches the Discord account's stable id and display name.
func (p *Provider) FetchProfile(ctx context.Context, accessToken string) (*account.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.APIBase+"/users/@me", nil)
	if err != nil {
		return nil, oops.Code("DISCORD_PROFILE_FAILED").
			With("operation", "build request").
			Wrap(err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, oops.Code("DISCORD_PROFILE_FAILED").
			Wrapf(account.ErrUpstream, "fetch profile: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, oops.Code("DISCORD_PROFILE_FAILED").
			With("status", resp.StatusCode).
			Wrapf(account.ErrUpstream, "fetch profile: unexpected status %d", resp.StatusCode)
	}

	var user discordUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, oops.Code("DISCORD_PROFILE_FAILED").
			Wrapf(account.ErrUpstream, "decode profile: %v", err)
	}
	if user.ID == "" {
		return nil, oops.Code("DISCORD_PROFILE_FAILED").
			Wrapf(account.ErrUpstream, "profile response missing id")
	}

	display := user.GlobalName
	if display == "" {
		display = user.Username
	}
	return &account.Profile{ExternalID: user.ID, DisplayName: display}, nil
}

// Compile-time interface check.
var _ account.IdentityProvider = (*Provider)(nil)

// String implements fmt.Stringer without exposing the client secret.
func (p *Provider) String() string {
	return fmt.Sprintf("discord provider (client_id=%s)", p.cfg.ClientID)
}
