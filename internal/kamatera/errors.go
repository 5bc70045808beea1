// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package kamatera

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyToken is returned by NewClient when no bearer token is given.
	ErrEmptyToken = errors.New("kamatera: api token must not be empty")

	// ErrMissingClientCredentials is returned by the token provider when the
	// client id or the secret is empty. No HTTP call is made.
	ErrMissingClientCredentials = errors.New("kamatera: client id and secret are required")
)

// HTTPError reports a non-2xx response from the authentication endpoint.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("kamatera: HTTP %d: %s", e.StatusCode, e.Message)
}
