// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/kamctl/internal/audit"
	"github.com/tomtom215/kamctl/internal/kamatera"
)

func newAuditServer(t *testing.T, env kamatera.Envelope) (*testServer, *audit.MemoryStore) {
	t.Helper()
	store := audit.NewMemoryStore(50)
	ts := &testServer{fake: newFakeClient(env)}
	factory := func(token string) (kamatera.ServerClient, error) {
		ts.tokens = append(ts.tokens, token)
		return ts.fake, nil
	}
	h := NewHandler(staticStore(), factory)
	h.SetAuditLogger(audit.NewLogger(store))

	mw := DefaultChiMiddlewareConfig()
	mw.RateLimitDisabled = true
	ts.handler = NewRouter(h, NewChiMiddleware(mw)).SetupChi()
	return ts, store
}

func TestAudit_RecordsLifecycleOperations(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		wantType audit.EventType
		wantID   string
		detail   map[string]string
	}{
		{"start", http.MethodPost, "/api/start", `{"server_id":"srv-1"}`, audit.EventTypeServerStart, "srv-1", nil},
		{"stop", http.MethodPost, "/api/stop", `{"server_id":"srv-2"}`, audit.EventTypeServerStop, "srv-2", nil},
		{"reboot", http.MethodPost, "/api/reboot", `{"server_id":"srv-3"}`, audit.EventTypeServerReboot, "srv-3", nil},
		{"clone", http.MethodPost, "/api/clone", `{"server_id":"srv-4","name":"copy","billing":"month"}`, audit.EventTypeServerClone, "srv-4", map[string]string{"name": "copy", "billing": "month"}},
		{"rename", http.MethodPut, "/api/rename", `{"server_id":"srv-5","name":"web-2"}`, audit.EventTypeServerRename, "srv-5", map[string]string{"name": "web-2"}},
		{"destroy", http.MethodDelete, "/api/destroy?server_id=srv-6", "", audit.EventTypeServerDestroy, "srv-6", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, store := newAuditServer(t, okEnvelope)

			rec := ts.do(tt.method, tt.target, tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}

			events, _ := store.Query(context.Background(), audit.QueryFilter{})
			if len(events) != 1 {
				t.Fatalf("recorded %d events, want 1", len(events))
			}
			ev := events[0]
			if ev.Type != tt.wantType || ev.ServerID != tt.wantID {
				t.Errorf("event = %s/%s, want %s/%s", ev.Type, ev.ServerID, tt.wantType, tt.wantID)
			}
			if ev.Outcome != audit.OutcomeSuccess || ev.Status != 200 || ev.Message != "OK" {
				t.Errorf("event outcome = %s %d %q", ev.Outcome, ev.Status, ev.Message)
			}
			if ev.RequestID == "" || ev.RequestID != rec.Header().Get("X-Request-ID") {
				t.Errorf("RequestID = %q, response header %q", ev.RequestID, rec.Header().Get("X-Request-ID"))
			}
			for k, v := range tt.detail {
				if ev.Detail[k] != v {
					t.Errorf("Detail[%s] = %q, want %q", k, ev.Detail[k], v)
				}
			}
		})
	}
}

func TestAudit_NotRecorded(t *testing.T) {
	t.Run("reads", func(t *testing.T) {
		ts, store := newAuditServer(t, okEnvelope)
		ts.do(http.MethodGet, "/api/servers", "")
		ts.do(http.MethodGet, "/api/server?server_id=srv-1", "")
		if store.Len() != 0 {
			t.Errorf("reads recorded %d events", store.Len())
		}
	})

	t.Run("invalid request", func(t *testing.T) {
		ts, store := newAuditServer(t, okEnvelope)
		rec := ts.do(http.MethodPost, "/api/start", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if store.Len() != 0 {
			t.Errorf("rejected request recorded %d events", store.Len())
		}
	})
}

func TestAudit_FailureOutcome(t *testing.T) {
	env := kamatera.Envelope{Message: "server is already stopped", Status: http.StatusConflict, Data: []any{}}
	ts, store := newAuditServer(t, env)

	req := httptest.NewRequest(http.MethodPost, "/api/stop", strings.NewReader(`{"server_id":"srv-1"}`))
	req.Header.Set("X-Real-IP", "203.0.113.9")
	req.Header.Set("User-Agent", "kamctl-test")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	events, _ := store.Query(context.Background(), audit.QueryFilter{})
	if len(events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Outcome != audit.OutcomeFailure || ev.Message != "server is already stopped" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Source.IPAddress != "203.0.113.9" || ev.Source.UserAgent != "kamctl-test" {
		t.Errorf("Source = %+v", ev.Source)
	}
}

func TestAuditEvents_Query(t *testing.T) {
	ts, _ := newAuditServer(t, okEnvelope)
	ts.do(http.MethodPost, "/api/start", `{"server_id":"srv-1"}`)
	ts.do(http.MethodPost, "/api/stop", `{"server_id":"srv-1"}`)
	ts.do(http.MethodDelete, "/api/destroy?server_id=srv-2", "")

	decode := func(t *testing.T, rec *httptest.ResponseRecorder) auditResponse {
		t.Helper()
		var body auditResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("response is not JSON: %v", err)
		}
		return body
	}

	tests := []struct {
		name      string
		target    string
		wantTypes []audit.EventType
		wantTotal int64
	}{
		{"all newest first", "/api/audit", []audit.EventType{audit.EventTypeServerDestroy, audit.EventTypeServerStop, audit.EventTypeServerStart}, 3},
		{"by server", "/api/audit?server_id=srv-1", []audit.EventType{audit.EventTypeServerStop, audit.EventTypeServerStart}, 2},
		{"by type", "/api/audit?type=server.destroy", []audit.EventType{audit.EventTypeServerDestroy}, 1},
		{"limit keeps total", "/api/audit?limit=1", []audit.EventType{audit.EventTypeServerDestroy}, 3},
		{"by outcome", "/api/audit?outcome=failure", []audit.EventType{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodGet, tt.target, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			body := decode(t, rec)
			if body.Status != 200 || body.Message != "OK" {
				t.Errorf("envelope = %q/%d", body.Message, body.Status)
			}
			if body.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", body.Total, tt.wantTotal)
			}
			if len(body.Data) != len(tt.wantTypes) {
				t.Fatalf("got %d events, want %d", len(body.Data), len(tt.wantTypes))
			}
			for i, want := range tt.wantTypes {
				if body.Data[i].Type != want {
					t.Errorf("event %d type = %s, want %s", i, body.Data[i].Type, want)
				}
			}
		})
	}

	t.Run("empty data is an array", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/audit?server_id=none", "")
		if !strings.Contains(rec.Body.String(), `"data":[]`) {
			t.Errorf("body = %s, want empty data array", rec.Body.String())
		}
	})
}

func TestAuditEvents_BadQuery(t *testing.T) {
	ts, _ := newAuditServer(t, okEnvelope)

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"non-numeric limit", "/api/audit?limit=ten", "limit must be an integer"},
		{"zero limit", "/api/audit?limit=0", "limit must be at least 1"},
		{"limit too large", "/api/audit?limit=5000", "limit must be at most 1000"},
		{"unknown type", "/api/audit?type=server.explode", "type must be one of"},
		{"unknown outcome", "/api/audit?outcome=maybe", "outcome must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodGet, tt.target, "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if msg, _ := decodeBody(t, rec)["message"].(string); !strings.Contains(msg, tt.want) {
				t.Errorf("message = %q, want it to contain %q", msg, tt.want)
			}
		})
	}
}

func TestAuditEvents_Disabled(t *testing.T) {
	ts := newTestServer(t, staticStore(), okEnvelope)

	rec := ts.do(http.MethodGet, "/api/audit", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != MessageAuditDisabled {
		t.Errorf("message = %v, want %q", msg, MessageAuditDisabled)
	}

	// Mutations still succeed without a trail.
	if rec := ts.do(http.MethodPost, "/api/start", `{"server_id":"srv-1"}`); rec.Code != http.StatusOK {
		t.Errorf("start status = %d, want 200", rec.Code)
	}
}
