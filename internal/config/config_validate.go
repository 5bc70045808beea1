// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package config

import (
	"fmt"
	"net/url"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/kamctl/internal/logging"
)

// Validate checks that configuration values are well formed.
func (c *Config) Validate() error {
	if err := c.validateKamatera(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if c.Audit.Enabled && c.Audit.MaxEvents <= 0 {
		return fmt.Errorf("AUDIT_MAX_EVENTS must be positive, got %d", c.Audit.MaxEvents)
	}
	return c.validateLogging()
}

func (c *Config) validateKamatera() error {
	if err := validateBaseURL(c.Kamatera.BaseURL, "KAMATERA_BASE_URL"); err != nil {
		return err
	}
	if err := validateBaseURL(c.Kamatera.AuthURL, "KAMATERA_AUTH_URL"); err != nil {
		return err
	}
	if c.Kamatera.RefreshInterval <= 0 {
		return fmt.Errorf("KAMATERA_REFRESH_INTERVAL must be positive, got %s", c.Kamatera.RefreshInterval)
	}
	if c.Kamatera.RefreshSchedule != "" {
		if _, err := ParseRefreshSchedule(c.Kamatera.RefreshSchedule); err != nil {
			return fmt.Errorf("KAMATERA_REFRESH_SCHEDULE is not a valid cron expression: %w", err)
		}
	}
	if c.Kamatera.ReadTimeout <= 0 {
		return fmt.Errorf("KAMATERA_READ_TIMEOUT must be positive, got %s", c.Kamatera.ReadTimeout)
	}
	if c.Kamatera.CloneTimeout <= 0 {
		return fmt.Errorf("KAMATERA_CLONE_TIMEOUT must be positive, got %s", c.Kamatera.CloneTimeout)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= c.Kamatera.CloneTimeout {
		return fmt.Errorf("SERVER_TIMEOUT (%s) must exceed KAMATERA_CLONE_TIMEOUT (%s)", c.Server.Timeout, c.Kamatera.CloneTimeout)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.Security.RateLimitWindow)
	}
	return nil
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// validateBaseURL accepts http(s) URLs with a host and an optional path.
func validateBaseURL(rawURL, fieldName string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %q", fieldName, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if parsed.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsed.RawQuery)
	}
	return nil
}

// ParseRefreshSchedule parses a standard five-field cron expression or a
// descriptor such as "@every 55m".
func ParseRefreshSchedule(spec string) (cron.Schedule, error) {
	return cron.ParseStandard(spec)
}

// RefreshScheduleFor returns the schedule the refresh loop should follow:
// the cron expression when set, else a constant delay of RefreshInterval.
func (k *KamateraConfig) RefreshScheduleFor() (cron.Schedule, error) {
	if k.RefreshSchedule != "" {
		return ParseRefreshSchedule(k.RefreshSchedule)
	}
	return cron.Every(k.RefreshInterval), nil
}
