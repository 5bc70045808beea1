// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package services

import (
	"context"
	"fmt"
)

// StartStopManager is the Start/Stop lifecycle of credentials.Refresher.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// RefreshService runs the token refresh loop under supervision: Start, wait
// for cancellation, then Stop, which joins the loop goroutine.
type RefreshService struct {
	manager StartStopManager
}

// NewRefreshService wraps a refresher.
func NewRefreshService(manager StartStopManager) *RefreshService {
	return &RefreshService{manager: manager}
}

// Serve implements suture.Service. A failed Start is returned so suture
// retries with backoff.
func (s *RefreshService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("token refresher start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("token refresher stop failed: %w", err)
	}
	return ctx.Err()
}

func (s *RefreshService) String() string {
	return "token-refresher"
}
