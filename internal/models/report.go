// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// ReportBundle is the full set of report payloads fetched in one sync
// invocation. Payloads are opaque: their shape is owned by the remote
// accounting service and Booksync stores and forwards them untouched.
//
// A bundle is all-or-nothing. The fetcher never returns a partially
// populated bundle, and the cache commits all fields in a single write.
type ReportBundle struct {
	// DailyReport is the daily-granularity transaction summary.
	DailyReport json.RawMessage `json:"daily_report"`

	// ClassReport is the category-segmented summary for the same range.
	ClassReport json.RawMessage `json:"class_report"`

	// BalanceSheetReport is the point-in-time balance report.
	BalanceSheetReport json.RawMessage `json:"balance_sheet_report"`

	// LedgerDetails holds one sub-ledger payload per tracked sub-account
	// discovered from the balance sheet, keyed by remote account ID.
	// Nil when no tracked accounts were discovered.
	LedgerDetails map[string]json.RawMessage `json:"ledger_details,omitempty"`
}

// CacheEntry is the committed form of one sync, keyed by reporting period
// (calendar year). Entries are overwritten wholesale on each successful
// sync and never partially patched; a reader always observes a
// LastSyncTimestamp that matches the payloads beside it.
type CacheEntry struct {
	// Period is the calendar year the bundle covers.
	Period int `json:"period"`

	// LastSyncTimestamp is when the bundle was committed.
	LastSyncTimestamp time.Time `json:"last_sync_timestamp"`

	// RangeStart and RangeEnd are the date range requested from the
	// remote service, as YYYY-MM-DD.
	RangeStart string `json:"range_start"`
	RangeEnd   string `json:"range_end"`

	// Bundle holds the report payloads.
	Bundle ReportBundle `json:"bundle"`

	// SyncedBy is the triggering user ID, or nil for unattended runs.
	SyncedBy *string `json:"synced_by,omitempty"`

	// Forced records that a privileged caller bypassed the sync gate.
	Forced bool `json:"forced,omitempty"`
}
