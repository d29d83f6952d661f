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

	"github.com/jmheld/booksync/internal/books"
	"github.com/jmheld/booksync/internal/logging"
	"github.com/jmheld/booksync/internal/metrics"
	"github.com/jmheld/booksync/internal/models"
	"github.com/jmheld/booksync/internal/store"
)

// tokenRefresher is the slice of the books client the credential manager
// needs; narrowed for testability.
type tokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*books.TokenResponse, error)
}

// CredentialManager loads the environment's credential singleton and
// keeps it valid across syncs.
//
// Refreshes are serialized by an in-process mutex and committed with a
// version-conditional write, so two overlapping invocations cannot both
// exchange the same refresh token and strand the rotated one.
type CredentialManager struct {
	store     *store.Store
	refresher tokenRefresher
	env       models.Environment

	// threshold is the safety margin before expiry at which a refresh
	// happens. A token with exactly threshold remaining is refreshed.
	threshold time.Duration

	// now is injectable for tests.
	now func() time.Time

	// refreshMu serializes the check-then-refresh sequence.
	refreshMu sync.Mutex
}

// NewCredentialManager builds a credential manager.
func NewCredentialManager(s *store.Store, refresher tokenRefresher, env models.Environment, threshold time.Duration) *CredentialManager {
	return &CredentialManager{
		store:     s,
		refresher: refresher,
		env:       env,
		threshold: threshold,
		now:       time.Now,
	}
}

// Load fetches the credential record. Fails with KindNotConnected when
// the remote connection has never been established.
func (m *CredentialManager) Load(ctx context.Context) (*models.CredentialRecord, error) {
	rec, err := m.store.GetCredential(ctx, m.env)
	if errors.Is(err, store.ErrNotConnected) {
		return nil, newError(KindNotConnected, "accounting service is not connected", err)
	}
	if err != nil {
		return nil, newError(KindStorage, "load credential", err)
	}
	return rec, nil
}

// EnsureValid returns a credential whose access token is guaranteed to
// outlive the safety margin, refreshing and persisting first when needed.
// The refreshed record is persisted before this method returns, so a
// crash after persistence cannot leave the caller holding tokens the
// store has never seen.
func (m *CredentialManager) EnsureValid(ctx context.Context, rec *models.CredentialRecord) (*models.CredentialRecord, error) {
	if rec.TimeToExpiry(m.now()) > m.threshold {
		return rec, nil
	}

	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	// Another invocation may have refreshed while we waited on the lock.
	current, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	if current.TimeToExpiry(m.now()) > m.threshold {
		return current, nil
	}

	token, err := m.refresher.RefreshToken(ctx, current.RefreshToken)
	if err != nil {
		metrics.CredentialRefreshes.WithLabelValues("error").Inc()
		if errors.Is(err, books.ErrNoClientCredentials) {
			return nil, newError(KindConfiguration, "client credentials missing for environment", err)
		}
		return nil, newError(KindRefreshFailed, "token refresh rejected", err)
	}

	refreshed := &models.CredentialRecord{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    m.now().Unix() + token.ExpiresIn,
		Environment:  current.Environment,
		AccountID:    current.AccountID,
	}
	// Some token endpoints omit the refresh token when it is not being
	// rotated; keep the current one in that case.
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = current.RefreshToken
	}

	err = m.store.SaveCredential(ctx, refreshed, current.Version)
	if errors.Is(err, store.ErrVersionConflict) {
		// A concurrent refresher won the conditional write; its tokens
		// are the live ones now.
		logging.Ctx(ctx).Warn().Msg("credential refresh lost conditional write, reloading winner")
		metrics.CredentialRefreshes.WithLabelValues("conflict").Inc()
		return m.Load(ctx)
	}
	if err != nil {
		metrics.CredentialRefreshes.WithLabelValues("error").Inc()
		return nil, newError(KindStorage, "persist refreshed credential", err)
	}

	metrics.CredentialRefreshes.WithLabelValues("success").Inc()
	logging.Ctx(ctx).Info().
		Str("environment", string(m.env)).
		Int64("expires_at", refreshed.ExpiresAt).
		Msg("credential refreshed")
	return refreshed, nil
}
