// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package audit

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/kamctl/internal/logging"
)

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		status int
		want   Outcome
	}{
		{200, OutcomeSuccess},
		{202, OutcomeSuccess},
		{299, OutcomeSuccess},
		{199, OutcomeFailure},
		{409, OutcomeFailure},
		{502, OutcomeFailure},
	}
	for _, tt := range tests {
		if got := OutcomeOf(tt.status); got != tt.want {
			t.Errorf("OutcomeOf(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestMemoryStore_SaveAndQuery(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	events := []Event{
		{ID: "1", Type: EventTypeServerStart, Outcome: OutcomeSuccess, ServerID: "a"},
		{ID: "2", Type: EventTypeServerStop, Outcome: OutcomeFailure, ServerID: "a"},
		{ID: "3", Type: EventTypeServerDestroy, Outcome: OutcomeSuccess, ServerID: "b", RequestID: "req-3"},
	}
	for i := range events {
		if err := store.Save(ctx, &events[i]); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	tests := []struct {
		name   string
		filter QueryFilter
		want   []string
	}{
		{"everything newest first", QueryFilter{}, []string{"3", "2", "1"}},
		{"by server", QueryFilter{ServerID: "a"}, []string{"2", "1"}},
		{"by type", QueryFilter{Types: []EventType{EventTypeServerDestroy, EventTypeServerStart}}, []string{"3", "1"}},
		{"by outcome", QueryFilter{Outcomes: []Outcome{OutcomeFailure}}, []string{"2"}},
		{"by request id", QueryFilter{RequestID: "req-3"}, []string{"3"}},
		{"limited", QueryFilter{Limit: 2}, []string{"3", "2"}},
		{"no match", QueryFilter{ServerID: "zzz"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if got == nil {
				t.Fatal("Query() returned nil slice")
			}
			ids := make([]string, len(got))
			for i := range got {
				ids[i] = got[i].ID
			}
			if fmt.Sprint(ids) != fmt.Sprint(tt.want) {
				t.Errorf("Query() ids = %v, want %v", ids, tt.want)
			}
		})
	}

	count, err := store.Count(ctx, QueryFilter{ServerID: "a", Limit: 1})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2 (limit ignored)", count)
	}
}

func TestMemoryStore_Since(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)
	now := time.Now()

	_ = store.Save(ctx, &Event{ID: "old", Timestamp: now.Add(-time.Hour)})
	_ = store.Save(ctx, &Event{ID: "new", Timestamp: now})

	since := now.Add(-time.Minute)
	got, _ := store.Query(ctx, QueryFilter{Since: &since})
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("Query(Since) = %+v, want only the recent event", got)
	}
}

func TestMemoryStore_DropsOldestTenth(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(20)

	for i := 0; i < 21; i++ {
		_ = store.Save(ctx, &Event{ID: fmt.Sprint(i)})
	}

	// The 21st save drops events 0 and 1.
	if got := store.Len(); got != 19 {
		t.Fatalf("Len() = %d, want 19", got)
	}
	got, _ := store.Query(ctx, QueryFilter{})
	if got[len(got)-1].ID != "2" {
		t.Errorf("oldest kept event = %q, want 2", got[len(got)-1].ID)
	}
	if got[0].ID != "20" {
		t.Errorf("newest event = %q, want 20", got[0].ID)
	}
}

func TestMemoryStore_SmallCapacity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3)

	for i := 0; i < 5; i++ {
		_ = store.Save(ctx, &Event{ID: fmt.Sprint(i)})
	}
	if got := store.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
}

func TestNewMemoryStore_Default(t *testing.T) {
	store := NewMemoryStore(0)
	if store.maxLen != DefaultMaxEvents {
		t.Errorf("maxLen = %d, want %d", store.maxLen, DefaultMaxEvents)
	}
}

func TestLogger_Record(t *testing.T) {
	store := NewMemoryStore(10)
	logger := NewLogger(store)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	logger.now = func() time.Time { return fixed }

	ctx := logging.ContextWithRequestID(context.Background(), "req-42")
	logger.Record(ctx, &Event{Type: EventTypeServerReboot, ServerID: "srv-1", Status: 409, Message: "busy"})

	got, _ := store.Query(ctx, QueryFilter{})
	if len(got) != 1 {
		t.Fatalf("stored %d events, want 1", len(got))
	}
	ev := got[0]
	if ev.ID == "" {
		t.Error("ID not assigned")
	}
	if !ev.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", ev.Timestamp, fixed)
	}
	if ev.RequestID != "req-42" {
		t.Errorf("RequestID = %q, want req-42", ev.RequestID)
	}
	if ev.Outcome != OutcomeFailure {
		t.Errorf("Outcome = %q, want failure", ev.Outcome)
	}
}

func TestLogger_KeepsProvidedFields(t *testing.T) {
	store := NewMemoryStore(10)
	logger := NewLogger(store)
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	logger.Record(context.Background(), &Event{ID: "fixed", Timestamp: ts, RequestID: "mine", Status: 200})

	got, _ := store.Query(context.Background(), QueryFilter{})
	if got[0].ID != "fixed" || !got[0].Timestamp.Equal(ts) || got[0].RequestID != "mine" {
		t.Errorf("provided fields overwritten: %+v", got[0])
	}
	if got[0].Outcome != OutcomeSuccess {
		t.Errorf("Outcome = %q, want success", got[0].Outcome)
	}
}

type failingStore struct{ MemoryStore }

func (*failingStore) Save(context.Context, *Event) error { return errors.New("disk full") }

func TestLogger_SaveErrorIsSwallowed(t *testing.T) {
	logger := NewLogger(&failingStore{})
	logger.Record(context.Background(), &Event{Type: EventTypeServerStart, Status: 200})
}

func TestLogger_Nil(t *testing.T) {
	var logger *Logger
	logger.Record(context.Background(), &Event{})
	if logger.Store() != nil {
		t.Error("nil logger should have no store")
	}

	NewLogger(nil).Record(context.Background(), &Event{Status: 200})
}

func TestNewServerEvent(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/stop", nil)
	r.RemoteAddr = "203.0.113.7:51234"
	r.Header.Set("User-Agent", "curl/8.0")

	ev := NewServerEvent(r, EventTypeServerStop, "srv-9", 200, "OK")

	if ev.Type != EventTypeServerStop || ev.ServerID != "srv-9" || ev.Status != 200 || ev.Message != "OK" {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.Outcome != OutcomeSuccess {
		t.Errorf("Outcome = %q, want success", ev.Outcome)
	}
	if ev.Source.IPAddress != "203.0.113.7" {
		t.Errorf("IPAddress = %q, want port stripped", ev.Source.IPAddress)
	}
	if ev.Source.UserAgent != "curl/8.0" {
		t.Errorf("UserAgent = %q", ev.Source.UserAgent)
	}
}

func TestSourceOf_BareAddress(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "198.51.100.2"

	if got := SourceOf(r).IPAddress; got != "198.51.100.2" {
		t.Errorf("IPAddress = %q", got)
	}
	if got := SourceOf(nil); got != (Source{}) {
		t.Errorf("SourceOf(nil) = %+v", got)
	}
}
