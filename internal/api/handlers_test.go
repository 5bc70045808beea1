// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/kamctl/internal/config"
	"github.com/tomtom215/kamctl/internal/credentials"
	"github.com/tomtom215/kamctl/internal/kamatera"
)

// fakeClient records calls and answers with a fixed envelope.
type fakeClient struct {
	mu    sync.Mutex
	env   kamatera.Envelope
	calls []string
	ids   []string
	clone kamatera.CloneRequest
	name  string
}

func newFakeClient(env kamatera.Envelope) *fakeClient {
	return &fakeClient{env: env}
}

func (f *fakeClient) record(op, id string) kamatera.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	f.ids = append(f.ids, id)
	return f.env
}

func (f *fakeClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeClient) LastID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ids) == 0 {
		return ""
	}
	return f.ids[len(f.ids)-1]
}

func (f *fakeClient) ListServers(context.Context) kamatera.Envelope { return f.record("list", "") }
func (f *fakeClient) GetServer(_ context.Context, id string) kamatera.Envelope {
	return f.record("get", id)
}
func (f *fakeClient) StartServer(_ context.Context, id string) kamatera.Envelope {
	return f.record("start", id)
}
func (f *fakeClient) StopServer(_ context.Context, id string) kamatera.Envelope {
	return f.record("stop", id)
}
func (f *fakeClient) RebootServer(_ context.Context, id string) kamatera.Envelope {
	return f.record("reboot", id)
}
func (f *fakeClient) RenameServer(_ context.Context, id, name string) kamatera.Envelope {
	f.mu.Lock()
	f.name = name
	f.mu.Unlock()
	return f.record("rename", id)
}
func (f *fakeClient) CloneServer(_ context.Context, req kamatera.CloneRequest) kamatera.Envelope {
	f.mu.Lock()
	f.clone = req
	f.mu.Unlock()
	return f.record("clone", req.SourceID)
}
func (f *fakeClient) DeleteServer(_ context.Context, id string) kamatera.Envelope {
	return f.record("destroy", id)
}

var okEnvelope = kamatera.Envelope{Message: "OK", Status: http.StatusOK, Data: []any{}}

// testServer wires a router around fake with rate limiting disabled.
// tokens records every token the factory was asked for.
type testServer struct {
	handler http.Handler
	fake    *fakeClient
	tokens  []string
}

func newTestServer(t *testing.T, store *credentials.Store, env kamatera.Envelope) *testServer {
	t.Helper()
	ts := &testServer{fake: newFakeClient(env)}
	factory := func(token string) (kamatera.ServerClient, error) {
		ts.tokens = append(ts.tokens, token)
		return ts.fake, nil
	}
	mw := DefaultChiMiddlewareConfig()
	mw.RateLimitDisabled = true
	ts.handler = NewRouter(NewHandler(store, factory), NewChiMiddleware(mw)).SetupChi()
	return ts
}

func staticStore() *credentials.Store {
	return credentials.NewStore(config.AuthMethodAPIKey, "test-token")
}

func (ts *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%q)", err, rec.Body.String())
	}
	return body
}

func TestOperations_RelayToClient(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		wantOp string
		wantID string
	}{
		{"list", http.MethodGet, "/api/servers", "", "list", ""},
		{"details", http.MethodGet, "/api/server?server_id=srv-1", "", "get", "srv-1"},
		{"start", http.MethodPost, "/api/start", `{"server_id":"srv-1","action":"start"}`, "start", "srv-1"},
		{"stop", http.MethodPost, "/api/stop", `{"server_id":"srv-2"}`, "stop", "srv-2"},
		{"reboot", http.MethodPost, "/api/reboot", `{"server_id":"srv-3"}`, "reboot", "srv-3"},
		{"clone", http.MethodPost, "/api/clone", `{"server_id":"srv-4"}`, "clone", "srv-4"},
		{"rename", http.MethodPut, "/api/rename", `{"server_id":"srv-5","name":"web"}`, "rename", "srv-5"},
		{"destroy", http.MethodDelete, "/api/destroy?server_id=srv-6", "", "destroy", "srv-6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, staticStore(), okEnvelope)
			rec := ts.do(tt.method, tt.target, tt.body)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
			}
			calls := ts.fake.Calls()
			if len(calls) != 1 || calls[0] != tt.wantOp {
				t.Fatalf("calls = %v, want [%s]", calls, tt.wantOp)
			}
			if got := ts.fake.LastID(); got != tt.wantID {
				t.Errorf("server id = %q, want %q", got, tt.wantID)
			}
			if len(ts.tokens) != 1 || ts.tokens[0] != "test-token" {
				t.Errorf("tokens = %v, want [test-token]", ts.tokens)
			}
		})
	}
}

func TestEnvelope_StatusMirrored(t *testing.T) {
	tests := []struct {
		name string
		env  kamatera.Envelope
	}{
		{"success", kamatera.Envelope{Message: "OK", Status: 200, Data: []any{map[string]any{"id": "srv-1"}}}},
		{"already stopped", kamatera.Envelope{Message: "server is already stopped", Status: 409, Data: []any{}}},
		{"html", kamatera.Envelope{Message: kamatera.HTMLResponseMessage, Status: kamatera.StatusHTMLResponse, Data: []any{}}},
		{"transport", kamatera.Envelope{Message: "dial tcp: connection refused", Status: kamatera.StatusTransportFailure, Data: []any{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, staticStore(), tt.env)
			rec := ts.do(http.MethodPost, "/api/stop", `{"server_id":"srv-1"}`)

			if rec.Code != tt.env.Status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.env.Status)
			}
			body := decodeBody(t, rec)
			if body["message"] != tt.env.Message {
				t.Errorf("message = %v, want %q", body["message"], tt.env.Message)
			}
			if got := body["status"]; got != float64(tt.env.Status) {
				t.Errorf("envelope status = %v, want %d", got, tt.env.Status)
			}
			data, ok := body["data"].([]any)
			if !ok {
				t.Fatalf("data = %T, want list", body["data"])
			}
			if len(data) != len(tt.env.Data) {
				t.Errorf("len(data) = %d, want %d", len(data), len(tt.env.Data))
			}
		})
	}
}

func TestNoToken_Unauthorized(t *testing.T) {
	store := credentials.NewStore(config.AuthMethodClientCredentials, "")
	ts := newTestServer(t, store, okEnvelope)

	rec := ts.do(http.MethodGet, "/api/servers", "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != MessageAPIKeyMissing {
		t.Errorf("message = %v, want %q", msg, MessageAPIKeyMissing)
	}
	if len(ts.fake.Calls()) != 0 || len(ts.tokens) != 0 {
		t.Error("no client may be built without a token")
	}
}

func TestTokenPublishedLaterIsUsed(t *testing.T) {
	store := credentials.NewStore(config.AuthMethodClientCredentials, "")
	ts := newTestServer(t, store, okEnvelope)

	if rec := ts.do(http.MethodGet, "/api/servers", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status before refresh = %d, want 401", rec.Code)
	}

	store.Publish("fresh-token", time.Time{})

	if rec := ts.do(http.MethodGet, "/api/servers", ""); rec.Code != http.StatusOK {
		t.Fatalf("status after refresh = %d, want 200", rec.Code)
	}
	if len(ts.tokens) != 1 || ts.tokens[0] != "fresh-token" {
		t.Errorf("tokens = %v, want [fresh-token]", ts.tokens)
	}
}

func TestBadRequests(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		target  string
		body    string
		wantMsg string
	}{
		{"details without id", http.MethodGet, "/api/server", "", "server_id required"},
		{"destroy without id", http.MethodDelete, "/api/destroy", "", "server_id required"},
		{"id with whitespace", http.MethodGet, "/api/server?server_id=a%20b", "", "server_id must not contain whitespace or control characters"},
		{"malformed json", http.MethodPost, "/api/start", `{"server_id":`, MessageInvalidJSON},
		{"empty body", http.MethodPost, "/api/stop", "", MessageInvalidJSON},
		{"trailing data", http.MethodPost, "/api/reboot", `{"server_id":"a"} {}`, MessageInvalidJSON},
		{"missing id in body", http.MethodPost, "/api/start", `{"action":"start"}`, "server_id required"},
		{"bad billing", http.MethodPost, "/api/clone", `{"server_id":"a","billing":"year"}`, "billing must be one of: hour month"},
		{"rename without name", http.MethodPut, "/api/rename", `{"server_id":"a"}`, "name required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, staticStore(), okEnvelope)
			rec := ts.do(tt.method, tt.target, tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
			if msg := decodeBody(t, rec)["message"]; msg != tt.wantMsg {
				t.Errorf("message = %v, want %q", msg, tt.wantMsg)
			}
			if calls := ts.fake.Calls(); len(calls) != 0 {
				t.Errorf("calls = %v, want none", calls)
			}
		})
	}
}

func TestBadRequestBeforeTokenCheck(t *testing.T) {
	ts := newTestServer(t, credentials.NewStore(config.AuthMethodClientCredentials, ""), okEnvelope)

	rec := ts.do(http.MethodGet, "/api/server", "")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCloneServer_PassesFields(t *testing.T) {
	ts := newTestServer(t, staticStore(), okEnvelope)

	rec := ts.do(http.MethodPost, "/api/clone", `{"server_id":"src","name":"copy","password":"S3cret!pass","billing":"month"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	want := kamatera.CloneRequest{SourceID: "src", Name: "copy", Password: "S3cret!pass", Billing: "month"}
	if ts.fake.clone != want {
		t.Errorf("clone request = %+v, want %+v", ts.fake.clone, want)
	}
}

func TestRenameServer_PassesName(t *testing.T) {
	ts := newTestServer(t, staticStore(), okEnvelope)

	if rec := ts.do(http.MethodPut, "/api/rename", `{"server_id":"srv-1","name":"db-primary"}`); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ts.fake.name != "db-primary" {
		t.Errorf("name = %q, want db-primary", ts.fake.name)
	}
}

func TestClientFactoryError(t *testing.T) {
	factory := func(string) (kamatera.ServerClient, error) {
		return nil, errors.New("bad base url")
	}
	mw := DefaultChiMiddlewareConfig()
	mw.RateLimitDisabled = true
	h := NewRouter(NewHandler(staticStore(), factory), NewChiMiddleware(mw)).SetupChi()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/servers", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != "bad base url" {
		t.Errorf("message = %v", msg)
	}
}

func TestNewClientFactory(t *testing.T) {
	factory := NewClientFactory(&config.KamateraConfig{BaseURL: "http://127.0.0.1:1/service/"}, nil)

	c, err := factory("tok")
	if err != nil {
		t.Fatalf("factory() error = %v", err)
	}
	client, ok := c.(*kamatera.Client)
	if !ok {
		t.Fatalf("factory() = %T, want *kamatera.Client", c)
	}
	if client.BaseURL() != "http://127.0.0.1:1/service" {
		t.Errorf("BaseURL() = %q", client.BaseURL())
	}

	if _, err := factory(""); !errors.Is(err, kamatera.ErrEmptyToken) {
		t.Errorf("factory(\"\") error = %v, want ErrEmptyToken", err)
	}
}

func TestRespondEnvelope_InvalidStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	respondEnvelope(rec, kamatera.Envelope{Message: "weird", Status: 0, Data: []any{}})

	if rec.Code != kamatera.StatusTransportFailure {
		t.Errorf("status = %d, want %d", rec.Code, kamatera.StatusTransportFailure)
	}
}

func TestSanitizeLogValue(t *testing.T) {
	if got := sanitizeLogValue("srv\n1\x7f"); got != `srv\x0a1\x7f` {
		t.Errorf("sanitizeLogValue() = %q", got)
	}
}
