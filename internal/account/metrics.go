// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

package account

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the account core.
var (
	// loginAttempts counts login attempts by result.
	// result: success | rejected | error
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "account_login_attempts_total",
		Help: "Total number of login attempts",
	}, []string{"result"})

	// linkAttempts counts external linking flows by terminal state.
	linkAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "account_link_attempts_total",
		Help: "Total number of external account linking attempts",
	}, []string{"outcome"})

	// accountCreates counts account creation attempts by result.
	// result: created | conflict | error
	accountCreates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "account_creates_total",
		Help: "Total number of account creation attempts",
	}, []string{"result"})
)

func recordLogin(result string)   { loginAttempts.WithLabelValues(result).Inc() }
func recordLink(outcome string)   { linkAttempts.WithLabelValues(outcome).Inc() }
func recordAccountCreate(r string) { accountCreates.WithLabelValues(r).Inc() }
