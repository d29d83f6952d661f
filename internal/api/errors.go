// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

package api

import (
	"errors"
	"net/http"

	"github.com/jmheld/booksync/internal/syncer"
)

// respondSyncError maps a classified sync failure onto the response
// contract. The kind becomes the error code so clients can decide
// whether a retry is worthwhile without parsing messages.
func respondSyncError(w http.ResponseWriter, r *http.Request, err error) {
	var serr *syncer.Error
	if !errors.As(err, &serr) {
		respondError(w, r, http.StatusInternalServerError, "internal_error", "unexpected failure", nil)
		return
	}

	var details interface{}
	if serr.Step != "" {
		details = map[string]string{"step": serr.Step}
	}
	respondError(w, r, statusForKind(serr.Kind), string(serr.Kind), serr.Msg, details)
}

// statusForKind maps error kinds to HTTP statuses. Refresh and fetch
// failures are upstream faults, so they surface as 502; not-connected is
// a conflict the operator resolves by reconnecting, not a retryable
// server fault.
func statusForKind(kind syncer.Kind) int {
	switch kind {
	case syncer.KindUnauthorized:
		return http.StatusUnauthorized
	case syncer.KindNotConnected:
		return http.StatusConflict
	case syncer.KindConfiguration:
		return http.StatusInternalServerError
	case syncer.KindRefreshFailed, syncer.KindFetchFailed:
		return http.StatusBadGateway
	case syncer.KindStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
