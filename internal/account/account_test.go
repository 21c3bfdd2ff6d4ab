// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

package account_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fanportal/fanportal/internal/account"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "alice", false},
		{"valid with underscore and digits", "alice_42", false},
		{"valid minimum length", "abc", false},
		{"valid maximum length", strings.Repeat("a", account.MaxNameLength), false},
		{"empty", "", true},
		{"too short", "ab", true},
		{"too long", strings.Repeat("a", account.MaxNameLength+1), true},
		{"starts with digit", "1alice", true},
		{"starts with underscore", "_alice", true},
		{"contains space", "alice smith", true},
		{"contains hyphen", "alice-smith", true},
		{"contains unicode", "alìce", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := account.ValidateName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAccountHasRole(t *testing.T) {
	acct := &account.Account{Roles: []string{"DEFAULT", "EDITOR"}}

	assert.True(t, acct.HasRole("DEFAULT"))
	assert.True(t, acct.HasRole("EDITOR"))
	assert.False(t, acct.HasRole("ADMIN"))
	assert.False(t, (&account.Account{}).HasRole("DEFAULT"))
}
