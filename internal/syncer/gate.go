// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

// Package syncer is the sync scheduling, credential-lifecycle and
// cache-consistency engine. The Gate decides whether a refresh may run,
// the CredentialManager keeps the OAuth credential valid, the Fetcher
// drives the dependent report calls with fail-fast semantics, and the
// Orchestrator ties them together with an atomic cache commit.
package syncer

import (
	"time"

	"github.com/jmheld/booksync/internal/config"
)

// Gate reasons returned in Decision.Reason.
const (
	ReasonFirstSync      = "first_sync"
	ReasonWindowElapsed  = "window_elapsed"
	ReasonAlreadySynced  = "already_synced"
	ReasonNonBusinessDay = "non_business_day"
	ReasonFuturePeriod   = "future_period"
	ReasonForced         = "forced"
)

// Decision is the gate's verdict for one sync request.
type Decision struct {
	// Allowed reports whether the sync may proceed.
	Allowed bool

	// Forced is set when a privileged caller bypassed a failing window
	// check. Bypasses are logged and recorded in the cache entry.
	Forced bool

	// Reason explains the verdict.
	Reason string

	// RangeStart and RangeEnd are the date range to request (YYYY-MM-DD,
	// inclusive). Populated regardless of Allowed so skip responses can
	// report the window.
	RangeStart string
	RangeEnd   string

	// SettlementDay is the day implied by now under the cutoff rule.
	SettlementDay time.Time
}

// Gate decides whether a sync is due. It is a pure function of its
// inputs: all clock and policy state arrives via NewGate or Decide
// parameters, never from globals.
type Gate struct {
	cutoffHour int
	loc        *time.Location
	holidays   map[string]bool
}

// NewGate builds a gate from the sync configuration.
func NewGate(cfg *config.SyncConfig) *Gate {
	holidays := make(map[string]bool, len(cfg.Holidays))
	for _, h := range cfg.Holidays {
		holidays[h] = true
	}
	return &Gate{
		cutoffHour: cfg.CutoffHour,
		loc:        cfg.Location(),
		holidays:   holidays,
	}
}

// Decide determines whether a sync for period may run at now.
//
// lastSync is the period's last successful sync time, nil if the period
// has never synced. scheduled selects the unattended business-day rules:
// scheduled runs honor the holiday calendar, interactive runs check the
// weekday only. The two rule sets intentionally differ; see DESIGN.md.
// force is only honored by the caller-side privilege check in the
// orchestrator and bypasses a failing window check, never silently.
//
// The settlement day is the most recent day whose data the remote
// considers finalized: before the cutoff hour only the prior business
// day is settled, at or after it the current day is.
func (g *Gate) Decide(period int, lastSync *time.Time, now time.Time, scheduled, force bool) Decision {
	settlement := g.SettlementDay(now, scheduled)

	d := Decision{
		SettlementDay: settlement,
		RangeStart:    time.Date(period, time.January, 1, 0, 0, 0, 0, g.loc).Format("2006-01-02"),
		RangeEnd:      settlement.Format("2006-01-02"),
	}

	// A historical period is bounded by its own year end.
	if period < settlement.Year() {
		d.RangeEnd = time.Date(period, time.December, 31, 0, 0, 0, 0, g.loc).Format("2006-01-02")
	}

	// A period past the settlement year has no settled data to request.
	// Force cannot manufacture data, so it does not apply here.
	if period > settlement.Year() {
		d.RangeEnd = time.Date(period, time.December, 31, 0, 0, 0, 0, g.loc).Format("2006-01-02")
		d.Reason = ReasonFuturePeriod
		return d
	}

	nowLocal := now.In(g.loc)
	today := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), 0, 0, 0, 0, g.loc)

	// Requests on a non-business day are rejected outright for normal
	// callers; the range still ends on the prior business day.
	if !g.businessDay(today, scheduled) {
		if force {
			d.Allowed = true
			d.Forced = true
			d.Reason = ReasonForced
			return d
		}
		d.Reason = ReasonNonBusinessDay
		return d
	}

	if lastSync == nil {
		d.Allowed = true
		d.Reason = ReasonFirstSync
		return d
	}

	lastSettlement := g.SettlementDay(*lastSync, scheduled)
	if lastSettlement.Before(settlement) {
		d.Allowed = true
		d.Reason = ReasonWindowElapsed
		return d
	}

	if force {
		d.Allowed = true
		d.Forced = true
		d.Reason = ReasonForced
		return d
	}

	d.Reason = ReasonAlreadySynced
	return d
}

// SettlementDay returns the most recent settled day implied by t: the
// calendar day when t is at or past the cutoff hour, otherwise the day
// before, rolled back to the nearest business day either way.
func (g *Gate) SettlementDay(t time.Time, scheduled bool) time.Time {
	local := t.In(g.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, g.loc)
	if local.Hour() < g.cutoffHour {
		day = day.AddDate(0, 0, -1)
	}
	for !g.businessDay(day, scheduled) {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

// businessDay reports whether day counts as a business day. The holiday
// calendar applies to scheduled runs only.
func (g *Gate) businessDay(day time.Time, scheduled bool) bool {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if scheduled && g.holidays[day.Format("2006-01-02")] {
		return false
	}
	return true
}
