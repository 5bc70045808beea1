// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

// Package credentials owns the Kamatera bearer token: where it comes from,
// the shared cell HTTP handlers read it from, and the background loop that
// keeps it fresh.
//
// The Refresher is the only writer of a Store. Handlers only read.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/atomic"

	"github.com/tomtom215/kamctl/internal/config"
	"github.com/tomtom215/kamctl/internal/kamatera"
)

// ErrNoCredentials means neither a static token nor a client id + secret
// pair is configured.
var ErrNoCredentials = errors.New("no Kamatera credentials configured: set KAMATERA_API_KEY or KAMATERA_CLIENT_ID + KAMATERA_SECRET")

// Store is the shared token cell.
type Store struct {
	method    string
	token     *atomic.String
	expiresAt *atomic.Time
}

// NewStore creates a cell for the given auth method holding an initial token.
func NewStore(method, token string) *Store {
	return &Store{
		method:    method,
		token:     atomic.NewString(token),
		expiresAt: atomic.NewTime(time.Time{}),
	}
}

// NewStoreFromConfig picks the credential source. A static token wins over
// client credentials; in client-credentials mode the cell starts empty until
// the first refresh.
func NewStoreFromConfig(cfg *config.KamateraConfig) (*Store, error) {
	switch cfg.AuthMethod() {
	case config.AuthMethodAPIKey:
		return NewStore(config.AuthMethodAPIKey, cfg.APIKey), nil
	case config.AuthMethodClientCredentials:
		return NewStore(config.AuthMethodClientCredentials, ""), nil
	default:
		return nil, ErrNoCredentials
	}
}

// Token returns the current token, or "" when none has been published yet.
func (s *Store) Token() string {
	return s.token.Load()
}

// ExpiresAt returns the expiry hint of the current token, zero when unknown.
func (s *Store) ExpiresAt() time.Time {
	return s.expiresAt.Load()
}

// AuthMethod returns config.AuthMethodAPIKey or config.AuthMethodClientCredentials.
func (s *Store) AuthMethod() string {
	return s.method
}

// Publish replaces the token wholesale.
func (s *Store) Publish(token string, expiresAt time.Time) {
	s.expiresAt.Store(expiresAt)
	s.token.Store(token)
}

// ResolveToken returns a usable token for one-shot callers such as the CLI:
// the static token when set, otherwise one minted through source.
func ResolveToken(ctx context.Context, cfg *config.KamateraConfig, source kamatera.TokenSource) (string, error) {
	switch cfg.AuthMethod() {
	case config.AuthMethodAPIKey:
		return cfg.APIKey, nil
	case config.AuthMethodClientCredentials:
		res, err := source.FetchToken(ctx)
		if err != nil {
			return "", fmt.Errorf("authentication failed: %w", err)
		}
		if res.Token == "" {
			return "", fmt.Errorf("authentication failed: %s", res.Error)
		}
		return res.Token, nil
	default:
		return "", ErrNoCredentials
	}
}

// expiryOf turns a token result into an absolute expiry. Small "expires"
// values are lifetimes in seconds, large ones are Unix timestamps.
func expiryOf(res *kamatera.TokenResult, now time.Time) time.Time {
	if res.Expires == nil {
		return res.ExpiresAt
	}
	v := *res.Expires
	if v <= 0 {
		return time.Time{}
	}
	if v >= unixTimestampThreshold {
		return time.Unix(v, 0)
	}
	return now.Add(time.Duration(v) * time.Second)
}

// unixTimestampThreshold separates lifetimes from timestamps (2001-09-09).
const unixTimestampThreshold = 1_000_000_000
