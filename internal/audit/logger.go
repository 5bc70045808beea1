// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package audit

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/kamctl/internal/logging"
	"github.com/tomtom215/kamctl/internal/metrics"
)

// Logger records events into a Store and mirrors them to the structured log.
// A nil *Logger discards everything.
type Logger struct {
	store Store
	now   func() time.Time
}

// NewLogger creates a new audit logger.
func NewLogger(store Store) *Logger {
	return &Logger{
		store: store,
		now:   time.Now,
	}
}

// Store returns the backing store.
func (l *Logger) Store() Store {
	if l == nil {
		return nil
	}
	return l.store
}

// Record fills in the ID, timestamp and request ID when missing, then saves
// the event synchronously. Save errors are logged, never returned.
func (l *Logger) Record(ctx context.Context, event *Event) {
	if l == nil || event == nil {
		return
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = logging.RequestIDFromContext(ctx)
	}
	if event.Outcome == "" {
		event.Outcome = OutcomeOf(event.Status)
	}

	metrics.RecordAuditEvent(string(event.Type), string(event.Outcome))

	log := logging.Ctx(ctx)
	logEvent := log.Info()
	if event.Outcome == OutcomeFailure {
		logEvent = log.Warn()
	}
	logEvent.
		Str("audit_id", event.ID).
		Str("audit_type", string(event.Type)).
		Str("server_id", event.ServerID).
		Int("status", event.Status).
		Str("outcome", string(event.Outcome)).
		Str("source_ip", event.Source.IPAddress).
		Msg("Audit event")

	if l.store == nil {
		return
	}
	if err := l.store.Save(ctx, event); err != nil {
		log.Error().Err(err).Str("audit_id", event.ID).Msg("Failed to save audit event")
	}
}

// NewServerEvent builds an event for an operation relayed from r.
func NewServerEvent(r *http.Request, eventType EventType, serverID string, status int, message string) *Event {
	return &Event{
		Type:     eventType,
		Outcome:  OutcomeOf(status),
		ServerID: serverID,
		Status:   status,
		Message:  message,
		Source:   SourceOf(r),
	}
}

// SourceOf extracts the caller address and user agent. RemoteAddr is
// expected to be rewritten by a real-IP middleware upstream.
func SourceOf(r *http.Request) Source {
	if r == nil {
		return Source{}
	}
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return Source{
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
}
