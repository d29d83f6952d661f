// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSyncRuns_Labels(t *testing.T) {
	before := testutil.ToFloat64(SyncRuns.WithLabelValues("success", "interactive"))
	SyncRuns.WithLabelValues("success", "interactive").Inc()
	after := testutil.ToFloat64(SyncRuns.WithLabelValues("success", "interactive"))

	if after != before+1 {
		t.Errorf("counter did not increment: before=%v after=%v", before, after)
	}
}

func TestRecordFetchError(t *testing.T) {
	before := testutil.ToFloat64(FetchErrors.WithLabelValues("balance_sheet", "502"))
	RecordFetchError("balance_sheet", 502)
	after := testutil.ToFloat64(FetchErrors.WithLabelValues("balance_sheet", "502"))

	if after != before+1 {
		t.Errorf("fetch error counter did not increment: before=%v after=%v", before, after)
	}
}

func TestObserveHTTPRequest(t *testing.T) {
	// Histograms can't be read with ToFloat64; just exercise the path.
	ObserveHTTPRequest("POST", "/api/v1/sync", 200, 150*time.Millisecond)
}

func TestCircuitBreakerState_Gauge(t *testing.T) {
	CircuitBreakerState.WithLabelValues("books-api").Set(2)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("books-api")); got != 2 {
		t.Errorf("gauge = %v, want 2", got)
	}
	CircuitBreakerState.WithLabelValues("books-api").Set(0)
}
