// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status   string         `json:"status"`
	Kamatera KamateraHealth `json:"kamatera"`
}

// KamateraHealth reports the configured credential source. AuthMethod is
// null when none is configured.
type KamateraHealth struct {
	CredentialsPresent bool       `json:"credentials_present"`
	AuthMethod         *string    `json:"auth_method"`
	TokenExpiresAt     *time.Time `json:"token_expires_at,omitempty"`
}

// Health handles GET /health. It never calls Kamatera.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{Status: "Up"}

	if h.store != nil {
		if method := h.store.AuthMethod(); method != "" {
			status.Kamatera.CredentialsPresent = true
			status.Kamatera.AuthMethod = &method
		}
		if exp := h.store.ExpiresAt(); !exp.IsZero() {
			status.Kamatera.TokenExpiresAt = &exp
		}
	}

	respondJSON(w, http.StatusOK, status)
}
