// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

// Package config loads and validates Booksync configuration via Koanf v2
// with layered sources: built-in defaults, an optional YAML config file,
// and environment variables (highest priority).
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the root configuration for the Booksync server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Books    BooksConfig    `koanf:"books"`
	Sync     SyncConfig     `koanf:"sync"`
	Storage  StorageConfig  `koanf:"storage"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// BooksConfig holds settings for the remote accounting service.
//
// Client credentials are scoped per environment; a missing pair for the
// active environment is a fatal configuration error surfaced at the first
// token refresh, not retried.
type BooksConfig struct {
	// Environment selects sandbox or production.
	Environment string `koanf:"environment"`

	// SandboxBaseURL and ProductionBaseURL are the report API roots.
	SandboxBaseURL    string `koanf:"sandbox_base_url"`
	ProductionBaseURL string `koanf:"production_base_url"`

	// TokenURL is the OAuth2 token endpoint (shared by both environments).
	TokenURL string `koanf:"token_url"`

	// SandboxClientID/Secret and ProductionClientID/Secret are the
	// environment-scoped OAuth client credentials.
	SandboxClientID        string `koanf:"sandbox_client_id"`
	SandboxClientSecret    string `koanf:"sandbox_client_secret"`
	ProductionClientID     string `koanf:"production_client_id"`
	ProductionClientSecret string `koanf:"production_client_secret"`

	// Timeout bounds each remote HTTP call.
	Timeout time.Duration `koanf:"timeout"`

	// RequestsPerSecond paces outbound report requests.
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// TrackedAccountPrefixes select balance-sheet sub-accounts whose
	// ledger detail is fetched in step four of a sync.
	TrackedAccountPrefixes []string `koanf:"tracked_account_prefixes"`
}

// SyncConfig holds the sync gate and scheduler settings.
type SyncConfig struct {
	// CutoffHour is the local hour after which the current day's data is
	// considered settled by the remote service.
	CutoffHour int `koanf:"cutoff_hour"`

	// Timezone is the IANA zone used for settlement-day arithmetic.
	Timezone string `koanf:"timezone"`

	// RefreshThreshold is the safety margin before token expiry at which
	// a credential refresh is performed.
	RefreshThreshold time.Duration `koanf:"refresh_threshold"`

	// Holidays lists YYYY-MM-DD dates the scheduled gate treats as
	// non-business days. Interactive syncs ignore this list.
	Holidays []string `koanf:"holidays"`

	// SchedulerEnabled turns on the in-process unattended sync loop.
	SchedulerEnabled bool `koanf:"scheduler_enabled"`

	// SchedulerInterval is how often the unattended loop consults the gate.
	SchedulerInterval time.Duration `koanf:"scheduler_interval"`
}

// StorageConfig holds the BadgerDB settings.
type StorageConfig struct {
	// Path is the BadgerDB directory. Empty selects in-memory storage
	// (tests and dev only).
	Path string `koanf:"path"`
}

// SecurityConfig holds inbound authorization settings.
type SecurityConfig struct {
	// JWTSecret verifies interactive caller tokens (HS256, 32+ chars).
	JWTSecret string `koanf:"jwt_secret"`

	// SyncSecret is the shared secret granting the scheduled identity
	// via the X-Sync-Secret header.
	SyncSecret string `koanf:"sync_secret"`

	// CORSOrigins lists allowed dashboard origins.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs requests per RateLimitWindow on API endpoints.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8632,
			Timeout: 30 * time.Second,
		},
		Books: BooksConfig{
			Environment:       "sandbox",
			SandboxBaseURL:    "https://sandbox-quickbooks.api.intuit.com",
			ProductionBaseURL: "https://quickbooks.api.intuit.com",
			TokenURL:          "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 2,
		},
		Sync: SyncConfig{
			CutoffHour:        17,
			Timezone:          "UTC",
			RefreshThreshold:  5 * time.Minute,
			SchedulerEnabled:  false,
			SchedulerInterval: time.Hour,
		},
		Storage: StorageConfig{
			Path: "/data/booksync",
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateBooks(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	return c.validateSecurity()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("SERVER_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateBooks() error {
	if c.Books.Environment != "sandbox" && c.Books.Environment != "production" {
		return fmt.Errorf("BOOKS_ENVIRONMENT must be sandbox or production, got %q", c.Books.Environment)
	}
	for name, raw := range map[string]string{
		"BOOKS_SANDBOX_BASE_URL":    c.Books.SandboxBaseURL,
		"BOOKS_PRODUCTION_BASE_URL": c.Books.ProductionBaseURL,
		"BOOKS_TOKEN_URL":           c.Books.TokenURL,
	} {
		if err := validateHTTPURL(raw, name); err != nil {
			return err
		}
	}
	if c.Books.RequestsPerSecond <= 0 {
		return fmt.Errorf("BOOKS_REQUESTS_PER_SECOND must be positive")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.CutoffHour < 0 || c.Sync.CutoffHour > 23 {
		return fmt.Errorf("SYNC_CUTOFF_HOUR must be 0-23, got %d", c.Sync.CutoffHour)
	}
	if c.Sync.RefreshThreshold <= 0 {
		return fmt.Errorf("SYNC_REFRESH_THRESHOLD must be positive")
	}
	for _, h := range c.Sync.Holidays {
		if _, err := time.Parse("2006-01-02", h); err != nil {
			return fmt.Errorf("SYNC_HOLIDAYS entry %q is not YYYY-MM-DD: %w", h, err)
		}
	}
	if _, err := time.LoadLocation(c.Sync.Timezone); err != nil {
		return fmt.Errorf("SYNC_TIMEZONE %q is invalid: %w", c.Sync.Timezone, err)
	}
	if c.Sync.SchedulerEnabled && c.Sync.SchedulerInterval < time.Minute {
		return fmt.Errorf("SYNC_SCHEDULER_INTERVAL must be at least 1m when the scheduler is enabled")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.JWTSecret != "" && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("SECURITY_JWT_SECRET must be at least 32 characters")
	}
	if c.Security.JWTSecret == "" && c.Security.SyncSecret == "" {
		return fmt.Errorf("at least one of SECURITY_JWT_SECRET or SECURITY_SYNC_SECRET must be set")
	}
	return nil
}

// validateHTTPURL checks that raw is an absolute http(s) URL.
func validateHTTPURL(raw, name string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is invalid: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host", name)
	}
	return nil
}

// BaseURL returns the report API root for the active environment.
func (c *BooksConfig) BaseURL() string {
	if c.Environment == "production" {
		return c.ProductionBaseURL
	}
	return c.SandboxBaseURL
}

// ClientCredentials returns the OAuth client ID and secret for the active
// environment. Both empty strings when not configured.
func (c *BooksConfig) ClientCredentials() (id, secret string) {
	if c.Environment == "production" {
		return c.ProductionClientID, c.ProductionClientSecret
	}
	return c.SandboxClientID, c.SandboxClientSecret
}

// Location returns the configured settlement timezone. Falls back to UTC
// on a zone that fails to load; Validate rejects such zones up front.
func (c *SyncConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
