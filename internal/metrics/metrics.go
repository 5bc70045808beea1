// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

// Package metrics holds the Prometheus collectors for the kamctl front-end:
// inbound API traffic, upstream Kamatera calls, the token refresh loop and
// its circuit breaker. Collectors register with the default registry and are
// served on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kamctl_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kamctl_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kamctl_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kamctl_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Upstream Kamatera Metrics
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kamctl_upstream_requests_total",
			Help: "Total number of calls to the Kamatera API by envelope status",
		},
		[]string{"operation", "status_code"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kamctl_upstream_request_duration_seconds",
			Help:    "Kamatera API call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	// Token Refresh Metrics
	TokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kamctl_token_refresh_total",
			Help: "Token refresh attempts by result",
		},
		[]string{"result"}, // result: "success", "failure", "rejected", "static"
	)

	TokenLastRefreshSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kamctl_token_last_refresh_success_timestamp",
			Help: "Unix timestamp of the last successful token refresh",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kamctl_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kamctl_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kamctl_circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kamctl_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	AuditEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kamctl_audit_events_total",
			Help: "Total number of lifecycle operations recorded in the audit trail",
		},
		[]string{"type", "outcome"},
	)
)

// Token refresh results.
const (
	RefreshSuccess  = "success"
	RefreshFailure  = "failure"
	RefreshRejected = "rejected"
	RefreshStatic   = "static"
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit counts a request rejected by the inbound limiter.
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordUpstreamRequest records one Kamatera call. status is the envelope
// status, so HTML answers count as 502 and transport failures as 500.
func RecordUpstreamRequest(operation string, status int, duration time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	UpstreamRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordTokenRefresh counts one refresh tick by result.
func RecordTokenRefresh(result string) {
	TokenRefreshTotal.WithLabelValues(result).Inc()
	if result == RefreshSuccess {
		TokenLastRefreshSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordAuditEvent counts one audit trail entry.
func RecordAuditEvent(eventType, outcome string) {
	AuditEventsTotal.WithLabelValues(eventType, outcome).Inc()
}
