// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

// Package metrics exposes Prometheus collectors for sync operations,
// remote report fetches, credential refreshes, cache access and the HTTP
// surface. Everything is registered via promauto at package load.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync orchestration metrics
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booksync_sync_runs_total",
			Help: "Total sync invocations by outcome (success, skipped, error)",
		},
		[]string{"outcome", "trigger"}, // trigger: interactive, scheduled
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booksync_sync_duration_seconds",
			Help:    "End-to-end duration of sync invocations",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	GateBypass = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booksync_gate_bypass_total",
			Help: "Syncs forced past the gate by a privileged caller",
		},
	)

	// Remote report API metrics
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booksync_report_fetch_duration_seconds",
			Help:    "Duration of individual report fetch steps",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booksync_report_fetch_errors_total",
			Help: "Report fetch failures by step and HTTP status",
		},
		[]string{"step", "status"},
	)

	// Credential lifecycle metrics
	CredentialRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booksync_credential_refreshes_total",
			Help: "OAuth refresh-token exchanges by outcome",
		},
		[]string{"outcome"},
	)

	// Circuit breaker metrics (books API client)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "booksync_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booksync_circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by result",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	// Cache metrics
	CacheReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booksync_cache_reads_total",
			Help: "Cache entry reads by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booksync_cache_writes_total",
			Help: "Cache entry upserts by result (ok, error)",
		},
		[]string{"result"},
	)

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booksync_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "booksync_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// ObserveHTTPRequest records one completed HTTP request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// RecordFetchError records a failed report fetch step.
func RecordFetchError(step string, status int) {
	FetchErrors.WithLabelValues(step, strconv.Itoa(status)).Inc()
}
