// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

package models

// Caller is the resolved identity of whoever triggered an invocation.
// Interactive callers come from the authentication collaborator; scheduled
// invocations carry the synthetic identity returned by ScheduledCaller.
type Caller struct {
	// ID is the user identifier. Empty for scheduled callers.
	ID string `json:"id"`

	// IsAdmin grants the gate-bypass privilege to interactive callers.
	IsAdmin bool `json:"is_admin"`

	// Scheduled marks the unattended cron identity. Scheduled callers
	// are always privileged and their syncs record no user attribution.
	Scheduled bool `json:"scheduled"`
}

// Privileged reports whether the caller may force a sync past the gate.
func (c Caller) Privileged() bool {
	return c.IsAdmin || c.Scheduled
}

// ScheduledCaller returns the synthetic privileged identity used for
// unattended (cron) invocations.
func ScheduledCaller() Caller {
	return Caller{Scheduled: true}
}
