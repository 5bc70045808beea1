// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/kamctl/internal/kamatera"
	"github.com/tomtom215/kamctl/internal/logging"
	"github.com/tomtom215/kamctl/internal/metrics"
)

// Refresh loop defaults.
const (
	DefaultRefreshInterval  = 55 * time.Minute
	DefaultFailureThreshold = 3
	DefaultOpenTimeout      = 5 * time.Minute
	DefaultBreakerName      = "kamatera-auth"
)

// errEmptyToken wraps a 2xx authentication answer that carried no token, so
// the breaker counts it as a failure.
var errEmptyToken = errors.New("authentication returned no token")

// RefresherConfig configures a Refresher. Zero values take the defaults.
type RefresherConfig struct {
	// Schedule decides when ticks fire. Default: every 55 minutes.
	Schedule cron.Schedule

	// FailureThreshold is the number of consecutive failures that opens the
	// breaker.
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open.
	OpenTimeout time.Duration

	BreakerName string
}

// Refresher periodically mints a token and publishes it into a Store.
//
// In client-credentials mode it refreshes once on Start, then on every
// tick. A failed refresh keeps the previous token. With a static token
// (nil source) ticks are logged no-ops.
type Refresher struct {
	store    *Store
	source   kamatera.TokenSource
	schedule cron.Schedule
	cb       *gobreaker.CircuitBreaker[*kamatera.TokenResult]
	name     string
	log      zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRefresher creates a stopped refresher. source may be nil for a static
// token.
func NewRefresher(store *Store, source kamatera.TokenSource, cfg RefresherConfig) *Refresher {
	if cfg.Schedule == nil {
		cfg.Schedule = cron.Every(DefaultRefreshInterval)
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}
	if cfg.BreakerName == "" {
		cfg.BreakerName = DefaultBreakerName
	}

	r := &Refresher{
		store:    store,
		source:   source,
		schedule: cfg.Schedule,
		name:     cfg.BreakerName,
		log:      logging.WithComponent("token-refresher"),
	}
	r.cb = newBreaker(cfg.BreakerName, cfg.FailureThreshold, cfg.OpenTimeout, r.log)
	return r
}

func newBreaker(name string, threshold uint32, openTimeout time.Duration, log zerolog.Logger) *gobreaker.CircuitBreaker[*kamatera.TokenResult] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[*kamatera.TokenResult](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= threshold
			if trip {
				log.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			log.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})
}

// Start launches the loop. It returns immediately; the first refresh runs in
// the loop goroutine.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("token refresher is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(1)
	go r.run(loopCtx)

	r.log.Info().Str("auth_method", r.store.AuthMethod()).Msg("Token refresher started")
	return nil
}

// Stop cancels the loop and waits for it to exit.
func (r *Refresher) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return fmt.Errorf("token refresher is not running")
	}
	r.running = false
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
	r.log.Info().Msg("Token refresher stopped")
	return nil
}

func (r *Refresher) run(ctx context.Context) {
	defer r.wg.Done()

	if r.source != nil {
		r.tick(ctx)
	}

	for {
		now := time.Now()
		next := r.schedule.Next(now)
		if next.IsZero() {
			r.log.Error().Msg("Refresh schedule has no future activation, loop exiting")
			<-ctx.Done()
			return
		}
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			r.tick(ctx)
		}
	}
}

// tick runs one refresh and logs the outcome. Errors never stop the loop.
func (r *Refresher) tick(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
		r.log.Error().Err(err).Msg("Token refresh failed, keeping previous token")
	}
}

// Refresh performs one refresh through the circuit breaker. On success the
// new token is published; on failure the store is left untouched.
func (r *Refresher) Refresh(ctx context.Context) error {
	if r.source == nil {
		r.log.Debug().Msg("Static token configured, nothing to refresh")
		metrics.RecordTokenRefresh(metrics.RefreshStatic)
		return nil
	}

	res, err := r.cb.Execute(func() (*kamatera.TokenResult, error) {
		res, err := r.source.FetchToken(ctx)
		if err != nil {
			return nil, err
		}
		if res.Token == "" {
			return nil, fmt.Errorf("%w: %s", errEmptyToken, res.Error)
		}
		return res, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(r.name, "rejected").Inc()
			metrics.RecordTokenRefresh(metrics.RefreshRejected)
			r.log.Warn().Err(err).Msg("[CIRCUIT BREAKER] Refresh skipped")
			return err
		}
		metrics.CircuitBreakerRequests.WithLabelValues(r.name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(r.name).Set(float64(r.cb.Counts().ConsecutiveFailures))
		metrics.RecordTokenRefresh(metrics.RefreshFailure)
		return err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(r.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(r.name).Set(0)
	metrics.RecordTokenRefresh(metrics.RefreshSuccess)

	expiresAt := expiryOf(res, time.Now())
	r.store.Publish(res.Token, expiresAt)

	event := r.log.Info().Str("token", logging.MaskSecret(res.Token))
	if !expiresAt.IsZero() {
		event = event.Time("expires_at", expiresAt)
	}
	event.Msg("Token refreshed")
	return nil
}

// BreakerState reports the breaker state as closed, half-open or open.
func (r *Refresher) BreakerState() string {
	return stateToString(r.cb.State())
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
