// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/servers", "200"))

	RecordAPIRequest("GET", "/api/servers", "200", 15*time.Millisecond)
	RecordAPIRequest("GET", "/api/servers", "200", 20*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/servers", "200"))
	if after-before != 2 {
		t.Errorf("api_requests_total increased by %v, want 2", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active requests = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active requests = %v, want %v", got, before)
	}
}

func TestRecordUpstreamRequest(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		status    int
		label     string
	}{
		{"list ok", "list_servers", 200, "200"},
		{"html page", "get_server", 502, "502"},
		{"transport failure", "delete_server", 500, "500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := UpstreamRequestsTotal.WithLabelValues(tt.operation, tt.label)
			before := testutil.ToFloat64(counter)

			RecordUpstreamRequest(tt.operation, tt.status, 100*time.Millisecond)

			if got := testutil.ToFloat64(counter); got != before+1 {
				t.Errorf("upstream_requests_total{%s,%s} = %v, want %v", tt.operation, tt.label, got, before+1)
			}
		})
	}
}

func TestRecordTokenRefresh(t *testing.T) {
	failures := testutil.ToFloat64(TokenRefreshTotal.WithLabelValues(RefreshFailure))

	RecordTokenRefresh(RefreshFailure)
	if got := testutil.ToFloat64(TokenRefreshTotal.WithLabelValues(RefreshFailure)); got != failures+1 {
		t.Errorf("failure count = %v, want %v", got, failures+1)
	}

	RecordTokenRefresh(RefreshSuccess)
	if ts := testutil.ToFloat64(TokenLastRefreshSuccess); ts < float64(time.Now().Add(-time.Minute).Unix()) {
		t.Errorf("last success timestamp = %v, want recent", ts)
	}
}

func TestRecordRateLimitHit(t *testing.T) {
	before := testutil.ToFloat64(APIRateLimitHits.WithLabelValues("/api/start"))
	RecordRateLimitHit("/api/start")
	if got := testutil.ToFloat64(APIRateLimitHits.WithLabelValues("/api/start")); got != before+1 {
		t.Errorf("rate limit hits = %v, want %v", got, before+1)
	}
}

func TestRecordAuditEvent(t *testing.T) {
	counter := AuditEventsTotal.WithLabelValues("server.destroy", "failure")
	before := testutil.ToFloat64(counter)

	RecordAuditEvent("server.destroy", "failure")

	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("audit_events_total = %v, want %v", got, before+1)
	}
}
