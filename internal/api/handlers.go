// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/jmheld/booksync/internal/audit"
	"github.com/jmheld/booksync/internal/auth"
	"github.com/jmheld/booksync/internal/store"
	"github.com/jmheld/booksync/internal/syncer"
	"github.com/jmheld/booksync/internal/validation"
)

// syncRunner is the orchestrator slice the handlers need.
type syncRunner interface {
	Run(ctx context.Context, req syncer.Request) (*syncer.Result, error)
}

// Handlers holds the API endpoint implementations.
type Handlers struct {
	orch      syncRunner
	store     *store.Store
	audit     audit.Store
	startedAt time.Time
}

// NewHandlers wires the endpoint implementations.
func NewHandlers(orch syncRunner, s *store.Store, auditStore audit.Store) *Handlers {
	return &Handlers{
		orch:      orch,
		store:     s,
		audit:     auditStore,
		startedAt: time.Now(),
	}
}

// syncRequestBody is the optional JSON body of POST /api/v1/sync.
type syncRequestBody struct {
	// Period is the reporting year; zero selects the current one.
	Period int `json:"period" validate:"omitempty,gte=2000,lte=2100"`

	// Force bypasses the gate. Privileged callers only.
	Force bool `json:"force"`
}

// syncResult is the data payload for sync responses.
type syncResult struct {
	Period            int        `json:"period"`
	Reason            string     `json:"reason,omitempty"`
	Forced            bool       `json:"forced,omitempty"`
	RangeStart        string     `json:"range_start,omitempty"`
	RangeEnd          string     `json:"range_end,omitempty"`
	LastSyncTimestamp *time.Time `json:"last_sync_timestamp,omitempty"`
}

// Sync triggers a sync run for the caller resolved by the auth
// middleware. A gate skip returns 200 with success=true and the
// already_synced code: not-yet-due is an expected answer, not a failure.
func (h *Handlers) Sync(w http.ResponseWriter, r *http.Request) {
	var body syncRequestBody
	if err := decodeOptionalBody(r, &body); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "request body is not valid JSON", nil)
		return
	}
	if verr := validation.Struct(&body); verr != nil {
		respondError(w, r, http.StatusBadRequest, "validation_error", verr.Error(), verr.Fields)
		return
	}

	caller, _ := auth.CallerFrom(r.Context())
	result, err := h.orch.Run(r.Context(), syncer.Request{
		Caller: caller,
		Period: body.Period,
		Force:  body.Force,
	})
	if err != nil {
		respondSyncError(w, r, err)
		return
	}

	data := syncResult{
		Period:     result.Period,
		Reason:     result.Reason,
		Forced:     result.Forced,
		RangeStart: result.RangeStart,
		RangeEnd:   result.RangeEnd,
	}
	if !result.LastSyncTimestamp.IsZero() {
		ts := result.LastSyncTimestamp
		data.LastSyncTimestamp = &ts
	}

	if !result.Synced {
		respondJSON(w, r, http.StatusOK, APIResponse{
			Success: true,
			Data:    data,
			Error:   &APIError{Code: "already_synced", Message: "sync not yet due"},
		})
		return
	}
	respondData(w, r, http.StatusOK, data)
}

// Reports returns the cached report bundle for one period.
func (h *Handlers) Reports(w http.ResponseWriter, r *http.Request) {
	period, ok := periodParam(w, r)
	if !ok {
		return
	}

	entry, err := h.store.GetCacheEntry(r.Context(), period)
	if errors.Is(err, store.ErrCacheMiss) {
		respondError(w, r, http.StatusNotFound, "not_found", "no cached reports for period", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "storage_error", "read cache entry", nil)
		return
	}
	respondData(w, r, http.StatusOK, entry)
}

// syncStatus is the bundle-free view of a cache entry.
type syncStatus struct {
	Period            int       `json:"period"`
	LastSyncTimestamp time.Time `json:"last_sync_timestamp"`
	RangeStart        string    `json:"range_start"`
	RangeEnd          string    `json:"range_end"`
	SyncedBy          *string   `json:"synced_by,omitempty"`
	Forced            bool      `json:"forced,omitempty"`
	LedgerAccounts    int       `json:"ledger_accounts"`
}

// SyncStatus returns sync metadata for one period without the payloads,
// which can run to megabytes.
func (h *Handlers) SyncStatus(w http.ResponseWriter, r *http.Request) {
	period, ok := periodParam(w, r)
	if !ok {
		return
	}

	entry, err := h.store.GetCacheEntry(r.Context(), period)
	if errors.Is(err, store.ErrCacheMiss) {
		respondError(w, r, http.StatusNotFound, "not_found", "period has never synced", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "storage_error", "read cache entry", nil)
		return
	}

	respondData(w, r, http.StatusOK, syncStatus{
		Period:            entry.Period,
		LastSyncTimestamp: entry.LastSyncTimestamp,
		RangeStart:        entry.RangeStart,
		RangeEnd:          entry.RangeEnd,
		SyncedBy:          entry.SyncedBy,
		Forced:            entry.Forced,
		LedgerAccounts:    len(entry.Bundle.LedgerDetails),
	})
}

// Audit returns recent audit entries, newest first. Admin only; the
// route wiring enforces that.
func (h *Handlers) Audit(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			respondError(w, r, http.StatusBadRequest, "validation_error", "limit must be between 1 and 500", nil)
			return
		}
		limit = parsed
	}

	entries, err := h.audit.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "storage_error", "read audit log", nil)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	respondData(w, r, http.StatusOK, entries)
}

// HealthLive reports process liveness.
func (h *Handlers) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, map[string]interface{}{
		"status":         "alive",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// HealthReady reports readiness: the store must answer before traffic is
// routed here.
func (h *Handlers) HealthReady(w http.ResponseWriter, r *http.Request) {
	if !h.store.Healthy() {
		respondError(w, r, http.StatusServiceUnavailable, "not_ready", "storage unavailable", nil)
		return
	}
	respondData(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// periodParam parses the {period} route parameter, writing the error
// response itself on failure.
func periodParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "period")
	period, err := strconv.Atoi(raw)
	if err != nil || period < 2000 || period > 2100 {
		respondError(w, r, http.StatusBadRequest, "validation_error", "period must be a year between 2000 and 2100", nil)
		return 0, false
	}
	return period, true
}

// decodeOptionalBody decodes a JSON body, treating an empty body as the
// zero value so POST /sync works without a payload.
func decodeOptionalBody(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
