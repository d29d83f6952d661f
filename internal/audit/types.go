// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

// Package audit records one append-only entry per unattended sync
// invocation. Entries are advisory: they back operator debugging and an
// admin endpoint, and are never read by the sync engine itself.
package audit

import (
	"time"
)

// Status is the terminal outcome of an orchestrator invocation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Entry is one audit log record.
type Entry struct {
	// ID is a unique identifier for the entry.
	ID string `json:"id"`

	// Status is the invocation outcome.
	Status Status `json:"status"`

	// Details carries structured outcome data: period, requested range,
	// duration, error kind and message on failure, bypass flag.
	Details map[string]interface{} `json:"details,omitempty"`

	// ExecutedAt is when the invocation finished.
	ExecutedAt time.Time `json:"executed_at"`
}
