// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

// Package auth resolves caller identities for the HTTP layer. Two paths
// exist: a bearer JWT for interactive users, and a shared-secret header
// that grants the synthetic scheduled identity to cron invocations.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jmheld/booksync/internal/config"
)

// Claims are the JWT claims carried by interactive caller tokens.
type Claims struct {
	// Admin grants the gate-bypass privilege.
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

// JWTManager creates and validates caller tokens. Tokens are signed with
// HMAC-SHA256; the secret must be at least 32 characters.
type JWTManager struct {
	secret  []byte
	timeout time.Duration
}

// NewJWTManager builds a token manager from the security configuration.
// Returns an error when no secret is configured, since a missing secret
// would make every token verifiable by anyone.
func NewJWTManager(cfg *config.SecurityConfig) (*JWTManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("security.jwt_secret is required")
	}
	return &JWTManager{
		secret:  []byte(cfg.JWTSecret),
		timeout: 24 * time.Hour,
	}, nil
}

// GenerateToken signs a token for a user. Used by operator tooling and
// tests; Booksync itself only validates.
func (m *JWTManager) GenerateToken(userID string, admin bool) (string, error) {
	now := time.Now()
	claims := &Claims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.timeout)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies signature, algorithm and time claims, and
// returns the claims. Only HMAC signing methods are accepted, which
// closes the algorithm-confusion hole.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}
