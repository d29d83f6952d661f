// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jmheld/booksync/internal/audit"
	"github.com/jmheld/booksync/internal/logging"
	"github.com/jmheld/booksync/internal/metrics"
	"github.com/jmheld/booksync/internal/models"
	"github.com/jmheld/booksync/internal/store"
)

// Collaborator slices, narrowed for testability.
type credentialManager interface {
	Load(ctx context.Context) (*models.CredentialRecord, error)
	EnsureValid(ctx context.Context, rec *models.CredentialRecord) (*models.CredentialRecord, error)
}

type reportFetcher interface {
	FetchAll(ctx context.Context, cred *models.CredentialRecord, start, end string) (*models.ReportBundle, error)
}

// Request is one sync invocation.
type Request struct {
	// Caller is the resolved identity. A zero-value caller (no ID, not
	// scheduled) is rejected as unauthorized.
	Caller models.Caller

	// Period is the reporting year to sync. Zero selects the current
	// settlement year.
	Period int

	// Force asks to bypass a failing gate check. Honored only for
	// privileged callers; others get an unauthorized error.
	Force bool
}

// Result is the outcome of a completed or skipped invocation.
type Result struct {
	// Synced is true when reports were fetched and committed, false when
	// the gate skipped the run.
	Synced bool `json:"synced"`

	// Reason is the gate's verdict reason.
	Reason string `json:"reason"`

	// Forced records a privilege bypass of the gate.
	Forced bool `json:"forced,omitempty"`

	Period     int    `json:"period"`
	RangeStart string `json:"range_start"`
	RangeEnd   string `json:"range_end"`

	// LastSyncTimestamp is the commit time of the period's cache entry:
	// this run's for a synced result, the prior run's for a skip. Zero
	// when the period has never synced.
	LastSyncTimestamp time.Time `json:"last_sync_timestamp"`
}

// Orchestrator runs the sync pipeline: authorize, gate, refresh, fetch,
// commit, audit. Concurrent invocations for the same period are
// serialized so the fetch-and-commit sequence never interleaves.
type Orchestrator struct {
	gate        *Gate
	credentials credentialManager
	fetcher     reportFetcher
	store       *store.Store
	audit       audit.Store

	now func() time.Time

	mu      sync.Mutex
	periods map[int]*sync.Mutex
}

// NewOrchestrator wires the pipeline.
func NewOrchestrator(gate *Gate, credentials credentialManager, fetcher reportFetcher, s *store.Store, auditStore audit.Store) *Orchestrator {
	return &Orchestrator{
		gate:        gate,
		credentials: credentials,
		fetcher:     fetcher,
		store:       s,
		audit:       auditStore,
		now:         time.Now,
		periods:     make(map[int]*sync.Mutex),
	}
}

// Run executes one sync invocation.
//
// A gate skip is not an error: Run returns a Result with Synced=false
// and the existing entry's timestamp. Scheduled invocations append an
// audit entry for every terminal outcome; audit failures are logged and
// swallowed, never surfaced to the sync result.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	started := o.now()
	trigger := "interactive"
	if req.Caller.Scheduled {
		trigger = "scheduled"
	}

	result, err := o.run(ctx, req, started)

	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case !result.Synced:
		outcome = "skipped"
	}
	metrics.SyncRuns.WithLabelValues(outcome, trigger).Inc()
	metrics.SyncDuration.Observe(o.now().Sub(started).Seconds())

	if req.Caller.Scheduled {
		o.appendAudit(ctx, req, result, err, started)
	}
	return result, err
}

func (o *Orchestrator) run(ctx context.Context, req Request, started time.Time) (*Result, error) {
	if req.Caller.ID == "" && !req.Caller.Scheduled {
		return nil, newError(KindUnauthorized, "caller identity not resolved", nil)
	}
	if req.Force && !req.Caller.Privileged() {
		return nil, newError(KindUnauthorized, "forced sync requires a privileged caller", nil)
	}

	period := req.Period
	if period == 0 {
		period = o.gate.SettlementDay(started, req.Caller.Scheduled).Year()
	}

	lock := o.periodLock(period)
	lock.Lock()
	defer lock.Unlock()

	entry, err := o.store.GetCacheEntry(ctx, period)
	if err != nil && !errors.Is(err, store.ErrCacheMiss) {
		return nil, newError(KindStorage, "read cache entry", err)
	}
	var lastSync *time.Time
	if entry != nil {
		lastSync = &entry.LastSyncTimestamp
	}

	decision := o.gate.Decide(period, lastSync, started, req.Caller.Scheduled, req.Force)

	res := &Result{
		Reason:     decision.Reason,
		Forced:     decision.Forced,
		Period:     period,
		RangeStart: decision.RangeStart,
		RangeEnd:   decision.RangeEnd,
	}
	if entry != nil {
		res.LastSyncTimestamp = entry.LastSyncTimestamp
	}

	if !decision.Allowed {
		logging.Ctx(ctx).Info().
			Int("period", period).
			Str("reason", decision.Reason).
			Msg("sync skipped by gate")
		return res, nil
	}
	if decision.Forced {
		metrics.GateBypass.Inc()
		logging.Ctx(ctx).Warn().
			Int("period", period).
			Str("caller_id", req.Caller.ID).
			Bool("scheduled", req.Caller.Scheduled).
			Msg("sync gate bypassed by privileged caller")
	}

	cred, err := o.credentials.Load(ctx)
	if err != nil {
		return nil, err
	}
	cred, err = o.credentials.EnsureValid(ctx, cred)
	if err != nil {
		return nil, err
	}

	bundle, err := o.fetcher.FetchAll(ctx, cred, decision.RangeStart, decision.RangeEnd)
	if err != nil {
		return nil, err
	}

	committed := o.now()
	newEntry := &models.CacheEntry{
		Period:            period,
		LastSyncTimestamp: committed,
		RangeStart:        decision.RangeStart,
		RangeEnd:          decision.RangeEnd,
		Bundle:            *bundle,
		Forced:            decision.Forced,
	}
	if !req.Caller.Scheduled && req.Caller.ID != "" {
		id := req.Caller.ID
		newEntry.SyncedBy = &id
	}
	if err := o.store.PutCacheEntry(ctx, newEntry); err != nil {
		return nil, newError(KindStorage, "commit report bundle", err)
	}

	res.Synced = true
	res.LastSyncTimestamp = committed
	logging.Ctx(ctx).Info().
		Int("period", period).
		Str("range_start", decision.RangeStart).
		Str("range_end", decision.RangeEnd).
		Bool("forced", decision.Forced).
		Dur("duration", o.now().Sub(started)).
		Msg("sync committed")
	return res, nil
}

// appendAudit records the outcome of a scheduled invocation. Audit
// failures never fail the sync.
func (o *Orchestrator) appendAudit(ctx context.Context, req Request, result *Result, runErr error, started time.Time) {
	if o.audit == nil {
		return
	}

	entry := &audit.Entry{
		Status:     audit.StatusSuccess,
		ExecutedAt: o.now(),
		Details: map[string]interface{}{
			"duration_ms": o.now().Sub(started).Milliseconds(),
		},
	}
	switch {
	case runErr != nil:
		entry.Status = audit.StatusError
		entry.Details["error_kind"] = string(KindOf(runErr))
		entry.Details["error"] = runErr.Error()
		if req.Period != 0 {
			entry.Details["period"] = req.Period
		}
	case !result.Synced:
		entry.Status = audit.StatusSkipped
		entry.Details["period"] = result.Period
		entry.Details["reason"] = result.Reason
	default:
		entry.Details["period"] = result.Period
		entry.Details["range_start"] = result.RangeStart
		entry.Details["range_end"] = result.RangeEnd
		entry.Details["forced"] = result.Forced
	}

	if err := o.audit.Append(ctx, entry); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("audit append failed, outcome not recorded")
	}
}

func (o *Orchestrator) periodLock(period int) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.periods[period]
	if !ok {
		lock = &sync.Mutex{}
		o.periods[period] = lock
	}
	return lock
}
