// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/jmheld/booksync/internal/audit"
	"github.com/jmheld/booksync/internal/auth"
	"github.com/jmheld/booksync/internal/config"
	"github.com/jmheld/booksync/internal/models"
	"github.com/jmheld/booksync/internal/store"
	"github.com/jmheld/booksync/internal/syncer"
)

// stubRunner returns a canned orchestrator outcome and records the
// request it saw.
type stubRunner struct {
	result *syncer.Result
	err    error
	got    syncer.Request
}

func (s *stubRunner) Run(ctx context.Context, req syncer.Request) (*syncer.Result, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type apiFixture struct {
	runner *stubRunner
	store  *store.Store
	audit  *audit.MemoryStore
	jwt    *auth.JWTManager
	server http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	s, err := store.Open("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	secCfg := &config.SecurityConfig{
		JWTSecret:       "0123456789abcdef0123456789abcdef",
		SyncSecret:      "cron-secret",
		RateLimitReqs:   1000,
		RateLimitWindow: time.Minute,
	}
	jwtManager, err := auth.NewJWTManager(secCfg)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	fx := &apiFixture{
		runner: &stubRunner{},
		store:  s,
		audit:  audit.NewMemoryStore(100),
		jwt:    jwtManager,
	}
	handlers := NewHandlers(fx.runner, s, fx.audit)
	fx.server = NewRouter(handlers, auth.NewMiddleware(jwtManager, secCfg.SyncSecret), secCfg).Setup()
	return fx
}

func (fx *apiFixture) request(t *testing.T, method, path, body string, configure func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if configure != nil {
		configure(req)
	}
	rec := httptest.NewRecorder()
	fx.server.ServeHTTP(rec, req)
	return rec
}

func (fx *apiFixture) asUser(t *testing.T, userID string, admin bool) func(*http.Request) {
	t.Helper()
	token, err := fx.jwt.GenerateToken(userID, admin)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestSync_Success(t *testing.T) {
	fx := newAPIFixture(t)
	committed := time.Date(2024, 6, 12, 18, 0, 0, 0, time.UTC)
	fx.runner.result = &syncer.Result{
		Synced:            true,
		Reason:            syncer.ReasonFirstSync,
		Period:            2024,
		RangeStart:        "2024-01-01",
		RangeEnd:          "2024-06-12",
		LastSyncTimestamp: committed,
	}

	rec := fx.request(t, http.MethodPost, "/api/v1/sync", `{"period":2024}`, fx.asUser(t, "user-1", false))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if !resp.Success || resp.Error != nil {
		t.Errorf("response = %+v, want success without error", resp)
	}
	if fx.runner.got.Caller.ID != "user-1" || fx.runner.got.Period != 2024 {
		t.Errorf("runner saw %+v", fx.runner.got)
	}
}

func TestSync_GatedReturns200(t *testing.T) {
	fx := newAPIFixture(t)
	last := time.Date(2024, 6, 12, 18, 0, 0, 0, time.UTC)
	fx.runner.result = &syncer.Result{
		Synced:            false,
		Reason:            syncer.ReasonAlreadySynced,
		Period:            2024,
		LastSyncTimestamp: last,
	}

	rec := fx.request(t, http.MethodPost, "/api/v1/sync", "", fx.asUser(t, "user-1", false))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for a gate skip", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Error("gated response has success=false")
	}
	if resp.Error == nil || resp.Error.Code != "already_synced" {
		t.Errorf("error = %+v, want already_synced", resp.Error)
	}
	if !strings.Contains(rec.Body.String(), "last_sync_timestamp") {
		t.Error("gated response missing last_sync_timestamp")
	}
}

func TestSync_ErrorMapping(t *testing.T) {
	tests := []struct {
		kind       syncer.Kind
		wantStatus int
	}{
		{syncer.KindUnauthorized, http.StatusUnauthorized},
		{syncer.KindNotConnected, http.StatusConflict},
		{syncer.KindConfiguration, http.StatusInternalServerError},
		{syncer.KindRefreshFailed, http.StatusBadGateway},
		{syncer.KindFetchFailed, http.StatusBadGateway},
		{syncer.KindStorage, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			fx := newAPIFixture(t)
			fx.runner.err = &syncer.Error{Kind: tt.kind, Msg: "boom"}

			rec := fx.request(t, http.MethodPost, "/api/v1/sync", "", fx.asUser(t, "user-1", false))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			resp := decodeResponse(t, rec)
			if resp.Success {
				t.Error("failed sync reported success")
			}
			if resp.Error == nil || resp.Error.Code != string(tt.kind) {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.kind)
			}
		})
	}
}

func TestSync_FetchErrorNamesStep(t *testing.T) {
	fx := newAPIFixture(t)
	fx.runner.err = &syncer.Error{
		Kind: syncer.KindFetchFailed,
		Step: syncer.StepBalanceSheet,
		Msg:  "report fetch failed",
	}

	rec := fx.request(t, http.MethodPost, "/api/v1/sync", "", fx.asUser(t, "user-1", false))
	if !strings.Contains(rec.Body.String(), syncer.StepBalanceSheet) {
		t.Errorf("body %s does not name the failing step", rec.Body.String())
	}
}

func TestSync_InvalidBody(t *testing.T) {
	fx := newAPIFixture(t)

	rec := fx.request(t, http.MethodPost, "/api/v1/sync", `{"period":`, fx.asUser(t, "user-1", false))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	rec = fx.request(t, http.MethodPost, "/api/v1/sync", `{"period":1850}`, fx.asUser(t, "user-1", false))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out-of-range period: status = %d, want 400", rec.Code)
	}
}

func TestSync_RequiresAuthentication(t *testing.T) {
	fx := newAPIFixture(t)

	rec := fx.request(t, http.MethodPost, "/api/v1/sync", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestSync_SyncSecretGrantsScheduledCaller(t *testing.T) {
	fx := newAPIFixture(t)
	fx.runner.result = &syncer.Result{Synced: true, Period: 2024}

	rec := fx.request(t, http.MethodPost, "/api/v1/sync", "", func(r *http.Request) {
		r.Header.Set("X-Sync-Secret", "cron-secret")
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !fx.runner.got.Caller.Scheduled {
		t.Errorf("runner saw caller %+v, want scheduled", fx.runner.got.Caller)
	}
}

func seedCacheEntry(t *testing.T, s *store.Store) *models.CacheEntry {
	t.Helper()
	user := "user-1"
	entry := &models.CacheEntry{
		Period:            2024,
		LastSyncTimestamp: time.Date(2024, 6, 12, 18, 0, 0, 0, time.UTC),
		RangeStart:        "2024-01-01",
		RangeEnd:          "2024-06-12",
		SyncedBy:          &user,
		Bundle: models.ReportBundle{
			DailyReport:        json.RawMessage(`{"report":"daily"}`),
			ClassReport:        json.RawMessage(`{"report":"class"}`),
			BalanceSheetReport: json.RawMessage(`{"report":"balance"}`),
			LedgerDetails: map[string]json.RawMessage{
				"201": json.RawMessage(`{"ledger":"201"}`),
			},
		},
	}
	if err := s.PutCacheEntry(context.Background(), entry); err != nil {
		t.Fatalf("PutCacheEntry: %v", err)
	}
	return entry
}

func TestReports_ReturnsBundle(t *testing.T) {
	fx := newAPIFixture(t)
	seedCacheEntry(t, fx.store)

	rec := fx.request(t, http.MethodGet, "/api/v1/reports/2024", "", fx.asUser(t, "user-1", false))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, fragment := range []string{`"report":"daily"`, `"report":"class"`, `"report":"balance"`, `"ledger":"201"`} {
		if !strings.Contains(body, fragment) {
			t.Errorf("body missing %s", fragment)
		}
	}
}

func TestReports_MissAndBadPeriod(t *testing.T) {
	fx := newAPIFixture(t)

	rec := fx.request(t, http.MethodGet, "/api/v1/reports/2024", "", fx.asUser(t, "user-1", false))
	if rec.Code != http.StatusNotFound {
		t.Errorf("miss: status = %d, want 404", rec.Code)
	}

	rec = fx.request(t, http.MethodGet, "/api/v1/reports/abc", "", fx.asUser(t, "user-1", false))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad period: status = %d, want 400", rec.Code)
	}
}

func TestSyncStatus_OmitsPayloads(t *testing.T) {
	fx := newAPIFixture(t)
	seedCacheEntry(t, fx.store)

	rec := fx.request(t, http.MethodGet, "/api/v1/sync/status/2024", "", fx.asUser(t, "user-1", false))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if strings.Contains(body, `"report":"daily"`) {
		t.Error("status response leaks report payloads")
	}
	if !strings.Contains(body, `"ledger_accounts":1`) {
		t.Errorf("body missing ledger account count: %s", body)
	}
	if !strings.Contains(body, `"synced_by":"user-1"`) {
		t.Errorf("body missing attribution: %s", body)
	}
}

func TestAudit_AdminOnly(t *testing.T) {
	fx := newAPIFixture(t)
	_ = fx.audit.Append(context.Background(), &audit.Entry{
		Status:     audit.StatusSuccess,
		ExecutedAt: time.Now(),
	})

	rec := fx.request(t, http.MethodGet, "/api/v1/audit", "", fx.asUser(t, "user-1", false))
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin: status = %d, want 403", rec.Code)
	}

	rec = fx.request(t, http.MethodGet, "/api/v1/audit", "", fx.asUser(t, "admin-1", true))
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"success"`) {
		t.Errorf("body missing audit entry: %s", rec.Body.String())
	}
}

func TestAudit_LimitValidation(t *testing.T) {
	fx := newAPIFixture(t)

	rec := fx.request(t, http.MethodGet, "/api/v1/audit?limit=0", "", fx.asUser(t, "admin-1", true))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0: status = %d, want 400", rec.Code)
	}
	rec = fx.request(t, http.MethodGet, "/api/v1/audit?limit=10", "", fx.asUser(t, "admin-1", true))
	if rec.Code != http.StatusOK {
		t.Errorf("limit=10: status = %d, want 200", rec.Code)
	}
}

func TestHealth_NoAuthRequired(t *testing.T) {
	fx := newAPIFixture(t)

	rec := fx.request(t, http.MethodGet, "/health/live", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("live: status = %d, want 200", rec.Code)
	}
	rec = fx.request(t, http.MethodGet, "/health/ready", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("ready: status = %d, want 200", rec.Code)
	}
}

func TestMetrics_Exposed(t *testing.T) {
	fx := newAPIFixture(t)

	rec := fx.request(t, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "booksync_") {
		t.Error("metrics output missing booksync series")
	}
}
