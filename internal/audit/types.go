// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package audit

import (
	"context"
	"time"
)

// EventType categorizes audit events.
type EventType string

const (
	EventTypeServerStart   EventType = "server.start"
	EventTypeServerStop    EventType = "server.stop"
	EventTypeServerReboot  EventType = "server.reboot"
	EventTypeServerClone   EventType = "server.clone"
	EventTypeServerRename  EventType = "server.rename"
	EventTypeServerDestroy EventType = "server.destroy"
)

// EventTypes lists every known type, in declaration order.
var EventTypes = []EventType{
	EventTypeServerStart,
	EventTypeServerStop,
	EventTypeServerReboot,
	EventTypeServerClone,
	EventTypeServerRename,
	EventTypeServerDestroy,
}

// Outcome indicates whether the upstream accepted the operation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// OutcomeOf maps an envelope status to an outcome.
func OutcomeOf(status int) Outcome {
	if status >= 200 && status < 300 {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// Event is one relayed lifecycle operation.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Outcome   Outcome   `json:"outcome"`

	// ServerID is the target server. For clones it is the source server.
	ServerID string `json:"server_id"`

	// Status and Message are copied from the upstream envelope.
	Status  int    `json:"status"`
	Message string `json:"message"`

	Source Source `json:"source"`

	// RequestID from the originating HTTP request.
	RequestID string `json:"request_id,omitempty"`

	// Detail holds operation-specific values such as the new name.
	Detail map[string]string `json:"detail,omitempty"`
}

// Source represents where a request originated.
type Source struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Store defines the interface for audit event persistence.
type Store interface {
	// Save persists an audit event.
	Save(ctx context.Context, event *Event) error

	// Query retrieves events matching the filter, most recent first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Count returns the number of events matching the filter.
	Count(ctx context.Context, filter QueryFilter) (int64, error)
}

// QueryFilter defines filtering options for audit queries. Zero fields match
// everything.
type QueryFilter struct {
	Types     []EventType
	Outcomes  []Outcome
	ServerID  string
	RequestID string
	Since     *time.Time

	// Limit is the maximum number of results. Zero means no limit.
	Limit int
}

// DefaultQueryFilter returns the filter used when a caller sets nothing.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: 100}
}
