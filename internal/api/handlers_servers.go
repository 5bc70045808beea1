// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package api

import (
	"context"
	"net/http"

	"github.com/tomtom215/kamctl/internal/audit"
	"github.com/tomtom215/kamctl/internal/kamatera"
	"github.com/tomtom215/kamctl/internal/logging"
)

// ListServers handles GET /api/servers.
func (h *Handler) ListServers(w http.ResponseWriter, r *http.Request) {
	h.withClient(w, r, func(c kamatera.ServerClient) kamatera.Envelope {
		return c.ListServers(r.Context())
	})
}

// GetServer handles GET /api/server?server_id=.
func (h *Handler) GetServer(w http.ResponseWriter, r *http.Request) {
	q := ServerQuery{ServerID: r.URL.Query().Get("server_id")}
	if !validateRequest(w, &q) {
		return
	}
	h.withClient(w, r, func(c kamatera.ServerClient) kamatera.Envelope {
		return c.GetServer(r.Context(), q.ServerID)
	})
}

// StartServer handles POST /api/start.
func (h *Handler) StartServer(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, audit.EventTypeServerStart, kamatera.ServerClient.StartServer)
}

// StopServer handles POST /api/stop.
func (h *Handler) StopServer(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, audit.EventTypeServerStop, kamatera.ServerClient.StopServer)
}

// RebootServer handles POST /api/reboot.
func (h *Handler) RebootServer(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, audit.EventTypeServerReboot, kamatera.ServerClient.RebootServer)
}

type powerFunc func(c kamatera.ServerClient, ctx context.Context, serverID string) kamatera.Envelope

func (h *Handler) control(w http.ResponseWriter, r *http.Request, eventType audit.EventType, fn powerFunc) {
	var req ControlRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("operation", string(eventType)).
		Str("server_id", sanitizeLogValue(req.ServerID)).
		Str("action", sanitizeLogValue(req.Action)).
		Msg("Server control requested")

	h.mutate(w, r, eventType, req.ServerID, nil, func(c kamatera.ServerClient) kamatera.Envelope {
		return fn(c, r.Context(), req.ServerID)
	})
}

// CloneServer handles POST /api/clone.
func (h *Handler) CloneServer(w http.ResponseWriter, r *http.Request) {
	var req CloneRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("server_id", sanitizeLogValue(req.ServerID)).
		Str("name", sanitizeLogValue(req.Name)).
		Str("billing", req.Billing).
		Msg("Server clone requested")

	detail := map[string]string{"name": req.Name, "billing": req.Billing}
	h.mutate(w, r, audit.EventTypeServerClone, req.ServerID, detail, func(c kamatera.ServerClient) kamatera.Envelope {
		return c.CloneServer(r.Context(), kamatera.CloneRequest{
			SourceID: req.ServerID,
			Name:     req.Name,
			Password: req.Password,
			Billing:  req.Billing,
		})
	})
}

// RenameServer handles PUT /api/rename.
func (h *Handler) RenameServer(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	detail := map[string]string{"name": req.Name}
	h.mutate(w, r, audit.EventTypeServerRename, req.ServerID, detail, func(c kamatera.ServerClient) kamatera.Envelope {
		return c.RenameServer(r.Context(), req.ServerID, req.Name)
	})
}

// DestroyServer handles DELETE /api/destroy?server_id=. Irreversible.
func (h *Handler) DestroyServer(w http.ResponseWriter, r *http.Request) {
	q := ServerQuery{ServerID: r.URL.Query().Get("server_id")}
	if !validateRequest(w, &q) {
		return
	}

	logging.Ctx(r.Context()).Warn().
		Str("server_id", sanitizeLogValue(q.ServerID)).
		Msg("Server destruction requested")

	h.mutate(w, r, audit.EventTypeServerDestroy, q.ServerID, nil, func(c kamatera.ServerClient) kamatera.Envelope {
		return c.DeleteServer(r.Context(), q.ServerID)
	})
}
