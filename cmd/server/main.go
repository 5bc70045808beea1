// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/kamctl/internal/api"
	"github.com/tomtom215/kamctl/internal/audit"
	"github.com/tomtom215/kamctl/internal/config"
	"github.com/tomtom215/kamctl/internal/credentials"
	"github.com/tomtom215/kamctl/internal/kamatera"
	"github.com/tomtom215/kamctl/internal/logging"
	"github.com/tomtom215/kamctl/internal/supervisor"
	"github.com/tomtom215/kamctl/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().Msg("Starting kamctl server with supervisor tree")

	// Refuse to start without any credential source.
	store, err := credentials.NewStoreFromConfig(&cfg.Kamatera)
	if err != nil {
		logging.Fatal().Err(err).Msg("Missing Kamatera credentials")
	}

	logging.Info().
		Str("auth_method", store.AuthMethod()).
		Str("base_url", cfg.Kamatera.BaseURL).
		Str("auth_url", cfg.Kamatera.AuthURL).
		Msg("Configuration loaded")

	refresher, err := newRefresher(&cfg.Kamatera, store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid refresh schedule")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	handler := api.NewHandler(store, api.NewClientFactory(&cfg.Kamatera, nil))
	if cfg.Audit.Enabled {
		handler.SetAuditLogger(audit.NewLogger(audit.NewMemoryStore(cfg.Audit.MaxEvents)))
		logging.Info().Int("max_events", cfg.Audit.MaxEvents).Msg("Audit trail enabled")
	}
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(cfg.Security)))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree.AddCredentialsService(services.NewRefreshService(refresher))
	tree.AddAPIService(services.NewHTTPServerService(server, addr, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	if err := <-tree.ServeBackground(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Server stopped gracefully")
}

// newRefresher builds the refresh loop. With a static token it has no
// source and every tick is a no-op.
func newRefresher(cfg *config.KamateraConfig, store *credentials.Store) (*credentials.Refresher, error) {
	schedule, err := cfg.RefreshScheduleFor()
	if err != nil {
		return nil, err
	}

	var source kamatera.TokenSource
	if store.AuthMethod() == config.AuthMethodClientCredentials {
		source = kamatera.NewTokenProvider(kamatera.TokenProviderConfig{
			AuthURL:  cfg.AuthURL,
			ClientID: cfg.ClientID,
			Secret:   cfg.Secret,
			Timeout:  cfg.ReadTimeout,
		})
	}

	return credentials.NewRefresher(store, source, credentials.RefresherConfig{Schedule: schedule}), nil
}
