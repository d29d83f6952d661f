// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/jmheld/booksync/internal/logging"
	"github.com/jmheld/booksync/internal/models"
)

type contextKey string

// callerContextKey carries the resolved caller through the request context.
const callerContextKey contextKey = "caller"

// syncSecretHeader is the distinguished header that grants the scheduled
// identity. Its value is compared in constant time.
const syncSecretHeader = "X-Sync-Secret"

// Middleware resolves caller identities for API requests.
type Middleware struct {
	jwtManager *JWTManager
	syncSecret string
}

// NewMiddleware builds the caller-resolution middleware. syncSecret may
// be empty, which disables the scheduled-caller header entirely.
func NewMiddleware(jwtManager *JWTManager, syncSecret string) *Middleware {
	return &Middleware{jwtManager: jwtManager, syncSecret: syncSecret}
}

// ResolveCaller authenticates the request and stores the caller in the
// request context. The sync-secret header is checked first so cron jobs
// never need a user token; everything else requires a bearer JWT.
// Unresolvable requests get 401 and never reach the handler.
func (m *Middleware) ResolveCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if secret := r.Header.Get(syncSecretHeader); secret != "" {
			if m.syncSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(m.syncSecret)) != 1 {
				logging.Ctx(r.Context()).Warn().Msg("rejected request with invalid sync secret")
				unauthorized(w, "invalid sync secret")
				return
			}
			next.ServeHTTP(w, r.WithContext(
				ContextWithCaller(r.Context(), models.ScheduledCaller())))
			return
		}

		authHeader := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			unauthorized(w, "missing credentials")
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("token validation failed")
			unauthorized(w, "invalid token")
			return
		}

		caller := models.Caller{ID: claims.Subject, IsAdmin: claims.Admin}
		next.ServeHTTP(w, r.WithContext(ContextWithCaller(r.Context(), caller)))
	})
}

// RequireAdmin gates a handler to admin callers. Must run after
// ResolveCaller.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFrom(r.Context())
		if !ok || !caller.IsAdmin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   "admin privileges required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ContextWithCaller stores a resolved caller in the context.
func ContextWithCaller(ctx context.Context, caller models.Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// CallerFrom extracts the resolved caller from the context.
func CallerFrom(ctx context.Context) (models.Caller, bool) {
	caller, ok := ctx.Value(callerContextKey).(models.Caller)
	return caller, ok
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}
