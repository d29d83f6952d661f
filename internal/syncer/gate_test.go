// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

package syncer

import (
	"testing"
	"time"

	"github.com/jmheld/booksync/internal/config"
)

func newTestGate(t *testing.T, holidays ...string) *Gate {
	t.Helper()
	return NewGate(&config.SyncConfig{
		CutoffHour: 17,
		Timezone:   "UTC",
		Holidays:   holidays,
	})
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts
}

func TestSettlementDay_CutoffBoundary(t *testing.T) {
	g := newTestGate(t)

	tests := []struct {
		name string
		now  string
		want string
	}{
		// 2024-06-12 is a Wednesday.
		{"before cutoff uses prior day", "2024-06-12T16:59:59Z", "2024-06-11"},
		{"at cutoff uses current day", "2024-06-12T17:00:00Z", "2024-06-12"},
		{"after cutoff uses current day", "2024-06-12T23:30:00Z", "2024-06-12"},
		// Monday before cutoff rolls back over the weekend to Friday.
		{"monday morning rolls to friday", "2024-06-10T09:00:00Z", "2024-06-07"},
		// Saturday and Sunday settle on Friday regardless of hour.
		{"saturday after cutoff", "2024-06-08T18:00:00Z", "2024-06-07"},
		{"sunday before cutoff", "2024-06-09T10:00:00Z", "2024-06-07"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.SettlementDay(mustTime(t, tt.now), false)
			if got.Format("2006-01-02") != tt.want {
				t.Errorf("SettlementDay(%s) = %s, want %s", tt.now, got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestSettlementDay_HolidaysScheduledOnly(t *testing.T) {
	// 2024-07-04 is a Thursday.
	g := newTestGate(t, "2024-07-04")
	now := mustTime(t, "2024-07-04T18:00:00Z")

	scheduled := g.SettlementDay(now, true)
	if got := scheduled.Format("2006-01-02"); got != "2024-07-03" {
		t.Errorf("scheduled settlement = %s, want 2024-07-03", got)
	}

	interactive := g.SettlementDay(now, false)
	if got := interactive.Format("2006-01-02"); got != "2024-07-04" {
		t.Errorf("interactive settlement = %s, want 2024-07-04", got)
	}
}

func TestDecide_SkipAndAllowAroundCutoff(t *testing.T) {
	g := newTestGate(t)

	// Last sync ran Monday 2024-06-10 at 16:30 UTC, so its settlement
	// day is Friday 2024-06-07.
	lastSync := mustTime(t, "2024-06-10T16:30:00Z")

	t.Run("same settlement window skips", func(t *testing.T) {
		d := g.Decide(2024, &lastSync, mustTime(t, "2024-06-10T16:59:00Z"), false, false)
		if d.Allowed {
			t.Fatalf("Decide allowed, want skip: %+v", d)
		}
		if d.Reason != ReasonAlreadySynced {
			t.Errorf("Reason = %q, want %q", d.Reason, ReasonAlreadySynced)
		}
		if d.RangeEnd != "2024-06-07" {
			t.Errorf("RangeEnd = %s, want 2024-06-07", d.RangeEnd)
		}
	})

	t.Run("cutoff advances the window", func(t *testing.T) {
		d := g.Decide(2024, &lastSync, mustTime(t, "2024-06-10T18:00:00Z"), false, false)
		if !d.Allowed {
			t.Fatalf("Decide skipped, want allow: %+v", d)
		}
		if d.Reason != ReasonWindowElapsed {
			t.Errorf("Reason = %q, want %q", d.Reason, ReasonWindowElapsed)
		}
		if d.RangeStart != "2024-01-01" || d.RangeEnd != "2024-06-10" {
			t.Errorf("range = %s..%s, want 2024-01-01..2024-06-10", d.RangeStart, d.RangeEnd)
		}
	})
}

func TestDecide_FirstSync(t *testing.T) {
	g := newTestGate(t)

	d := g.Decide(2024, nil, mustTime(t, "2024-06-12T09:00:00Z"), false, false)
	if !d.Allowed || d.Reason != ReasonFirstSync {
		t.Fatalf("first sync not allowed: %+v", d)
	}
	if d.Forced {
		t.Error("first sync marked forced")
	}
}

func TestDecide_NonBusinessDay(t *testing.T) {
	g := newTestGate(t)
	saturday := mustTime(t, "2024-06-08T12:00:00Z")

	d := g.Decide(2024, nil, saturday, false, false)
	if d.Allowed {
		t.Fatalf("weekend sync allowed: %+v", d)
	}
	if d.Reason != ReasonNonBusinessDay {
		t.Errorf("Reason = %q, want %q", d.Reason, ReasonNonBusinessDay)
	}
	// A privileged force proceeds anyway and is flagged.
	forced := g.Decide(2024, nil, saturday, false, true)
	if !forced.Allowed || !forced.Forced || forced.Reason != ReasonForced {
		t.Errorf("forced weekend sync = %+v, want allowed and forced", forced)
	}
}

func TestDecide_HolidayScheduledOnly(t *testing.T) {
	g := newTestGate(t, "2024-07-04")
	now := mustTime(t, "2024-07-04T10:00:00Z")

	if d := g.Decide(2024, nil, now, true, false); d.Allowed {
		t.Errorf("scheduled holiday sync allowed: %+v", d)
	}
	if d := g.Decide(2024, nil, now, false, false); !d.Allowed {
		t.Errorf("interactive holiday sync rejected: %+v", d)
	}
}

func TestDecide_ForceOnAlreadySynced(t *testing.T) {
	g := newTestGate(t)
	lastSync := mustTime(t, "2024-06-12T18:00:00Z")
	now := mustTime(t, "2024-06-12T19:00:00Z")

	d := g.Decide(2024, &lastSync, now, false, true)
	if !d.Allowed || !d.Forced || d.Reason != ReasonForced {
		t.Fatalf("forced re-sync = %+v, want allowed and forced", d)
	}
}

func TestDecide_HistoricalPeriodRange(t *testing.T) {
	g := newTestGate(t)

	d := g.Decide(2023, nil, mustTime(t, "2024-06-12T18:00:00Z"), false, false)
	if !d.Allowed {
		t.Fatalf("historical first sync rejected: %+v", d)
	}
	if d.RangeStart != "2023-01-01" || d.RangeEnd != "2023-12-31" {
		t.Errorf("range = %s..%s, want 2023-01-01..2023-12-31", d.RangeStart, d.RangeEnd)
	}
}

func TestDecide_FuturePeriodRejected(t *testing.T) {
	g := newTestGate(t)
	now := mustTime(t, "2024-06-12T18:00:00Z")

	for _, force := range []bool{false, true} {
		d := g.Decide(2030, nil, now, false, force)
		if d.Allowed {
			t.Fatalf("future period allowed (force=%v): %+v", force, d)
		}
		if d.Reason != ReasonFuturePeriod {
			t.Errorf("reason = %q, want %q", d.Reason, ReasonFuturePeriod)
		}
		if d.RangeStart > d.RangeEnd {
			t.Errorf("inverted range %s..%s", d.RangeStart, d.RangeEnd)
		}
	}
}

// Once a sync has run, no skip decision flips back to allowed until the
// settlement day actually advances. Scoped to business-day timestamps;
// non-business days reject for an unrelated reason.
func TestDecide_MonotonicWithinWindow(t *testing.T) {
	g := newTestGate(t)
	lastSync := mustTime(t, "2024-06-11T17:05:00Z")

	probes := []string{
		"2024-06-11T17:10:00Z",
		"2024-06-11T23:59:59Z",
		"2024-06-12T00:00:00Z",
		"2024-06-12T16:59:59Z",
	}
	for _, p := range probes {
		if d := g.Decide(2024, &lastSync, mustTime(t, p), false, false); d.Allowed {
			t.Errorf("Decide at %s allowed within settled window: %+v", p, d)
		}
	}

	d := g.Decide(2024, &lastSync, mustTime(t, "2024-06-12T17:00:00Z"), false, false)
	if !d.Allowed {
		t.Errorf("Decide at window boundary rejected: %+v", d)
	}
}

func TestDecide_TimezoneRespectsLocation(t *testing.T) {
	g := NewGate(&config.SyncConfig{
		CutoffHour: 17,
		Timezone:   "America/New_York",
	})

	// 21:30 UTC on Wednesday 2024-06-12 is 17:30 in New York, past the
	// cutoff there even though a UTC gate would also be past it; the
	// interesting case is 20:30 UTC = 16:30 local, still before cutoff.
	before := g.SettlementDay(mustTime(t, "2024-06-12T20:30:00Z"), false)
	if got := before.Format("2006-01-02"); got != "2024-06-11" {
		t.Errorf("settlement before local cutoff = %s, want 2024-06-11", got)
	}
	after := g.SettlementDay(mustTime(t, "2024-06-12T21:30:00Z"), false)
	if got := after.Format("2006-01-02"); got != "2024-06-12" {
		t.Errorf("settlement after local cutoff = %s, want 2024-06-12", got)
	}
}
