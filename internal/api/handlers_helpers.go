// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/kamctl/internal/kamatera"
	"github.com/tomtom215/kamctl/internal/logging"
	"github.com/tomtom215/kamctl/internal/validation"
)

// Fixed response messages.
const (
	MessageAPIKeyMissing = "KAMATERA_API_KEY not set"
	MessageInvalidJSON   = "invalid JSON body"
	MessageNotFound      = "not found"
	MessageNotAllowed    = "method not allowed"
)

// maxBodyBytes caps request bodies; every body here is a handful of fields.
const maxBodyBytes = 64 << 10

// messageBody is the shape of every non-envelope answer.
type messageBody struct {
	Message string `json:"message"`
}

// sanitizeLogValue escapes control characters so request values cannot forge
// log lines.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON writes v as JSON with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondMessage writes {"message": msg}.
func respondMessage(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, messageBody{Message: msg})
}

// respondEnvelope writes the envelope as the body, mirroring env.Status as
// the HTTP status.
func respondEnvelope(w http.ResponseWriter, env kamatera.Envelope) {
	status := env.Status
	if status < 100 || status > 999 {
		status = kamatera.StatusTransportFailure
	}
	respondJSON(w, status, env)
}

// decodeJSONBody decodes the request body into dst and validates it.
// It answers 400 itself and returns false on any failure.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Rejected request body")
		respondMessage(w, http.StatusBadRequest, MessageInvalidJSON)
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		respondMessage(w, http.StatusBadRequest, MessageInvalidJSON)
		return false
	}
	return validateRequest(w, dst)
}

// validateRequest answers 400 with the validator messages when s is invalid.
func validateRequest(w http.ResponseWriter, s any) bool {
	if verr := validation.ValidateStruct(s); verr != nil {
		respondMessage(w, http.StatusBadRequest, verr.Error())
		return false
	}
	return true
}
