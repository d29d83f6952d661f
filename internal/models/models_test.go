// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestEnvironment_Valid(t *testing.T) {
	if !EnvironmentSandbox.Valid() {
		t.Error("sandbox should be valid")
	}
	if !EnvironmentProduction.Valid() {
		t.Error("production should be valid")
	}
	if Environment("staging").Valid() {
		t.Error("unknown environment should be invalid")
	}
}

func TestCredentialRecord_Expired(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	rec := &CredentialRecord{ExpiresAt: now.Unix() + 60}

	if rec.Expired(now) {
		t.Error("token with 60s remaining should not be expired")
	}
	if !rec.Expired(now.Add(61 * time.Second)) {
		t.Error("token past expiry should be expired")
	}
	if !rec.Expired(now.Add(60 * time.Second)) {
		t.Error("token at exact expiry should be expired")
	}
}

func TestCredentialRecord_TimeToExpiry(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	rec := &CredentialRecord{ExpiresAt: now.Unix() + 300}

	if got := rec.TimeToExpiry(now); got != 5*time.Minute {
		t.Errorf("TimeToExpiry = %v, want 5m", got)
	}

	rec.ExpiresAt = now.Unix() - 10
	if got := rec.TimeToExpiry(now); got != -10*time.Second {
		t.Errorf("TimeToExpiry = %v, want -10s", got)
	}
}

func TestCaller_Privileged(t *testing.T) {
	tests := []struct {
		name   string
		caller Caller
		want   bool
	}{
		{"regular user", Caller{ID: "u1"}, false},
		{"admin", Caller{ID: "u2", IsAdmin: true}, true},
		{"scheduled", ScheduledCaller(), true},
	}

	for _, tt := range tests {
		if got := tt.caller.Privileged(); got != tt.want {
			t.Errorf("%s: Privileged() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestScheduledCaller_NoUserID(t *testing.T) {
	c := ScheduledCaller()
	if c.ID != "" {
		t.Errorf("scheduled caller should have no user ID, got %q", c.ID)
	}
	if !c.Scheduled {
		t.Error("scheduled caller should be marked scheduled")
	}
}

func TestCacheEntry_RoundTrip(t *testing.T) {
	user := "u-42"
	entry := CacheEntry{
		Period:            2024,
		LastSyncTimestamp: time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC),
		RangeStart:        "2024-01-01",
		RangeEnd:          "2024-06-10",
		Bundle: ReportBundle{
			DailyReport:        json.RawMessage(`{"rows":[1,2]}`),
			ClassReport:        json.RawMessage(`{"rows":[]}`),
			BalanceSheetReport: json.RawMessage(`{"total":100}`),
			LedgerDetails: map[string]json.RawMessage{
				"acct-9": json.RawMessage(`{"txns":[]}`),
			},
		},
		SyncedBy: &user,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got CacheEntry
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.Period != 2024 {
		t.Errorf("period = %d, want 2024", got.Period)
	}
	if !got.LastSyncTimestamp.Equal(entry.LastSyncTimestamp) {
		t.Errorf("timestamp = %v, want %v", got.LastSyncTimestamp, entry.LastSyncTimestamp)
	}
	if got.SyncedBy == nil || *got.SyncedBy != "u-42" {
		t.Errorf("synced_by = %v, want u-42", got.SyncedBy)
	}
	if string(got.Bundle.DailyReport) != `{"rows":[1,2]}` {
		t.Errorf("daily payload altered: %s", got.Bundle.DailyReport)
	}
	if string(got.Bundle.LedgerDetails["acct-9"]) != `{"txns":[]}` {
		t.Errorf("ledger payload altered: %s", got.Bundle.LedgerDetails["acct-9"])
	}
}
