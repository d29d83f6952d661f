// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

// Package models defines the core data types shared across Booksync:
// the remote-service credential record, the per-period report cache entry,
// and the resolved caller identity.
package models

import (
	"time"
)

// Environment identifies which remote deployment a credential belongs to.
type Environment string

const (
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentProduction Environment = "production"
)

// Valid reports whether e is a known environment.
func (e Environment) Valid() bool {
	return e == EnvironmentSandbox || e == EnvironmentProduction
}

// CredentialRecord is the singleton OAuth credential for one environment.
//
// ExpiresAt always reflects the currently valid access token; a refresh
// replaces AccessToken, RefreshToken and ExpiresAt together, never
// piecemeal. Version increments on every persisted refresh and backs the
// conditional write that prevents two overlapping refreshes from clobbering
// each other's rotated refresh token.
type CredentialRecord struct {
	// AccessToken is the bearer token for report requests.
	AccessToken string `json:"access_token"`

	// RefreshToken is exchanged for a new token pair when the access
	// token nears expiry. The remote rotates it on every exchange.
	RefreshToken string `json:"refresh_token"`

	// ExpiresAt is the access token expiry as epoch seconds.
	ExpiresAt int64 `json:"expires_at"`

	// Environment scopes the record to sandbox or production.
	Environment Environment `json:"environment"`

	// AccountID is the remote tenant/company identifier.
	AccountID string `json:"account_id"`

	// Version is the optimistic-concurrency counter for refresh writes.
	Version int64 `json:"version"`
}

// Expired reports whether the access token is already past its expiry.
func (c *CredentialRecord) Expired(now time.Time) bool {
	return now.Unix() >= c.ExpiresAt
}

// TimeToExpiry returns the remaining validity of the access token.
// Negative when already expired.
func (c *CredentialRecord) TimeToExpiry(now time.Time) time.Duration {
	return time.Duration(c.ExpiresAt-now.Unix()) * time.Second
}
