// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

// Package api is the HTTP front-end: a chi router that relays server
// lifecycle requests to Kamatera and returns the normalized envelope.
//
// Handlers read the bearer token from a credentials.Store on every request,
// so a token published by the refresh loop is picked up without restart.
package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/kamctl/internal/audit"
	"github.com/tomtom215/kamctl/internal/config"
	"github.com/tomtom215/kamctl/internal/credentials"
	"github.com/tomtom215/kamctl/internal/kamatera"
	"github.com/tomtom215/kamctl/internal/logging"
)

// ClientFactory builds a server client bound to one token.
type ClientFactory func(token string) (kamatera.ServerClient, error)

// NewClientFactory returns a factory producing *kamatera.Client values
// configured from cfg. hc may be nil.
func NewClientFactory(cfg *config.KamateraConfig, hc *http.Client) ClientFactory {
	return func(token string) (kamatera.ServerClient, error) {
		return kamatera.NewClient(token,
			kamatera.WithBaseURL(cfg.BaseURL),
			kamatera.WithTimeouts(cfg.ReadTimeout, cfg.CloneTimeout),
			kamatera.WithHTTPClient(hc),
		)
	}
}

// Handler serves the HTTP API.
type Handler struct {
	store     *credentials.Store
	newClient ClientFactory
	audit     *audit.Logger
	startTime time.Time
}

// NewHandler creates a handler reading tokens from store.
func NewHandler(store *credentials.Store, newClient ClientFactory) *Handler {
	return &Handler{
		store:     store,
		newClient: newClient,
		startTime: time.Now(),
	}
}

// SetAuditLogger enables the lifecycle audit trail. nil disables it.
func (h *Handler) SetAuditLogger(l *audit.Logger) {
	h.audit = l
}

type clientFunc func(kamatera.ServerClient) kamatera.Envelope

// withClient resolves the current token and a client, then writes the
// envelope fn returns. No token answers 401.
func (h *Handler) withClient(w http.ResponseWriter, r *http.Request, fn clientFunc) {
	if env, ok := h.call(w, r, fn); ok {
		respondEnvelope(w, env)
	}
}

// mutate is withClient for lifecycle operations: the upstream answer is
// recorded in the audit trail before it is written.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, eventType audit.EventType, serverID string, detail map[string]string, fn clientFunc) {
	env, ok := h.call(w, r, fn)
	if !ok {
		return
	}

	ev := audit.NewServerEvent(r, eventType, serverID, env.Status, env.Message)
	ev.Detail = detail
	h.audit.Record(r.Context(), ev)

	respondEnvelope(w, env)
}

// call answers the request itself and reports false when no client could be
// built.
func (h *Handler) call(w http.ResponseWriter, r *http.Request, fn clientFunc) (kamatera.Envelope, bool) {
	token := h.store.Token()
	if token == "" {
		logging.Ctx(r.Context()).Warn().Str("auth_method", h.store.AuthMethod()).Msg("No Kamatera token available")
		respondMessage(w, http.StatusUnauthorized, MessageAPIKeyMissing)
		return kamatera.Envelope{}, false
	}

	client, err := h.newClient(token)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to build Kamatera client")
		respondMessage(w, http.StatusInternalServerError, err.Error())
		return kamatera.Envelope{}, false
	}

	return fn(client), true
}
