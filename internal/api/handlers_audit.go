// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package api

import (
	"net/http"
	"strconv"

	"github.com/tomtom215/kamctl/internal/audit"
	"github.com/tomtom215/kamctl/internal/logging"
)

// MessageAuditDisabled answers /api/audit when no trail is configured.
const MessageAuditDisabled = "audit trail disabled"

// auditResponse mirrors the envelope shape with a total match count.
type auditResponse struct {
	Message string        `json:"message"`
	Status  int           `json:"status"`
	Data    []audit.Event `json:"data"`
	Total   int64         `json:"total"`
}

// AuditEvents handles GET /api/audit?server_id=&type=&outcome=&limit=.
// Events are returned most recent first.
func (h *Handler) AuditEvents(w http.ResponseWriter, r *http.Request) {
	store := h.audit.Store()
	if store == nil {
		respondMessage(w, http.StatusNotFound, MessageAuditDisabled)
		return
	}

	params := r.URL.Query()
	q := AuditQuery{
		ServerID: params.Get("server_id"),
		Type:     params.Get("type"),
		Outcome:  params.Get("outcome"),
		Limit:    audit.DefaultQueryFilter().Limit,
	}
	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondMessage(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		q.Limit = n
	}
	if !validateRequest(w, &q) {
		return
	}

	filter := audit.QueryFilter{ServerID: q.ServerID, Limit: q.Limit}
	if q.Type != "" {
		filter.Types = []audit.EventType{audit.EventType(q.Type)}
	}
	if q.Outcome != "" {
		filter.Outcomes = []audit.Outcome{audit.Outcome(q.Outcome)}
	}

	events, err := store.Query(r.Context(), filter)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to query audit trail")
		respondMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := store.Count(r.Context(), filter)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to count audit events")
		respondMessage(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, auditResponse{
		Message: "OK",
		Status:  http.StatusOK,
		Data:    events,
		Total:   total,
	})
}
