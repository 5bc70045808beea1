// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package kamatera

import (
	"net/http"
)

// Synthetic statuses used when the upstream status cannot be trusted.
const (
	StatusHTMLResponse     = http.StatusBadGateway
	StatusTransportFailure = http.StatusInternalServerError
)

// Envelope is the uniform result of every upstream call.
type Envelope struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Data    []any  `json:"data"`
}

// newEnvelope guarantees Data is never nil so it encodes as [] rather than null.
func newEnvelope(message string, status int, data []any) Envelope {
	if data == nil {
		data = []any{}
	}
	return Envelope{Message: message, Status: status, Data: data}
}

// OK reports whether the envelope carries a 2xx status.
func (e Envelope) OK() bool {
	return e.Status >= 200 && e.Status < 300
}

// Records returns the data entries that are JSON objects, skipping scalars.
func (e Envelope) Records() []map[string]any {
	out := make([]map[string]any, 0, len(e.Data))
	for _, item := range e.Data {
		if rec, ok := item.(map[string]any); ok {
			out = append(out, rec)
		}
	}
	return out
}

// First returns the first data entry, or nil when data is empty.
func (e Envelope) First() any {
	if len(e.Data) == 0 {
		return nil
	}
	return e.Data[0]
}
