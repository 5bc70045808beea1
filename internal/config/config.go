// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

// Package config loads kamctl configuration with Koanf v2.
//
// Loading order (later layers win):
//  1. Defaults from defaultConfig()
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/kamctl/config.yaml)
//  3. Environment variables (KAMATERA_*, HTTP_*, LOG_*)
//
// Credentials are optional at load time. The server refuses to start without
// them and the CLI reports the problem itself, so Validate only checks shapes.
//
// Config is immutable after Load and safe for concurrent reads.
package config

import (
	"time"
)

// Config is the root configuration.
type Config struct {
	Kamatera KamateraConfig `koanf:"kamatera"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
	Audit    AuditConfig    `koanf:"audit"`
}

// AuditConfig controls the in-memory trail of lifecycle operations served at
// /api/audit.
type AuditConfig struct {
	Enabled bool `koanf:"enabled"`

	// MaxEvents bounds the trail; the oldest tenth is dropped when full.
	MaxEvents int `koanf:"max_events"`
}

// KamateraConfig holds upstream endpoints, credentials and timeouts.
//
// Either APIKey (static bearer token) or the ClientID/Secret pair is used.
// APIKey takes precedence when both are set.
type KamateraConfig struct {
	APIKey   string `koanf:"api_key"`
	ClientID string `koanf:"client_id"`
	Secret   string `koanf:"secret"`

	// BaseURL is the REST root, e.g. https://console.kamatera.com/service.
	BaseURL string `koanf:"base_url"`

	// AuthURL is the host the /service/authenticate call is made against.
	AuthURL string `koanf:"auth_url"`

	// RefreshInterval is the token refresh period. Default: 55m
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	// RefreshSchedule is an optional cron expression that replaces
	// RefreshInterval, e.g. "@every 30m" or "*/50 * * * *".
	RefreshSchedule string `koanf:"refresh_schedule"`

	ReadTimeout  time.Duration `koanf:"read_timeout"`
	CloneTimeout time.Duration `koanf:"clone_timeout"`
}

// Auth method names reported by /health.
const (
	AuthMethodAPIKey            = "api_key"
	AuthMethodClientCredentials = "client_credentials"
)

// HasStaticToken reports whether a static bearer token is configured.
func (k *KamateraConfig) HasStaticToken() bool {
	return k.APIKey != ""
}

// HasClientCredentials reports whether both client id and secret are set.
func (k *KamateraConfig) HasClientCredentials() bool {
	return k.ClientID != "" && k.Secret != ""
}

// HasCredentials reports whether any usable credential source exists.
func (k *KamateraConfig) HasCredentials() bool {
	return k.HasStaticToken() || k.HasClientCredentials()
}

// AuthMethod returns the authoritative credential source, or "" when none.
func (k *KamateraConfig) AuthMethod() string {
	switch {
	case k.HasStaticToken():
		return AuthMethodAPIKey
	case k.HasClientCredentials():
		return AuthMethodClientCredentials
	default:
		return ""
	}
}

// ServerConfig holds HTTP listener settings for the front-end.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// Timeout bounds request read/write; it must exceed the clone timeout.
	Timeout time.Duration `koanf:"timeout"`

	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SecurityConfig holds CORS and inbound rate limit settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads defaults, the optional config file and the environment, then
// validates the result.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
