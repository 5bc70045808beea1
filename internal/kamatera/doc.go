// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

/*
Package kamatera is a thin client for the Kamatera cloud server-management
REST API.

Key Components:

  - Client: one method per server lifecycle action (list, get, power, rename,
    clone, terminate). Every method returns an Envelope, never a Go error.
  - Normalize: maps the heterogeneous upstream response shapes (list, single
    object, error list, empty object, HTML page) into one Envelope.
  - TokenProvider: exchanges a client id and secret for a bearer token.

Envelope shape:

	{"message": "OK", "status": 200, "data": [ ... ]}

Data is always a list. Single objects are wrapped, error responses carry an
empty list. Status mirrors the upstream HTTP status, except HTML responses
(502) and transport failures (500).

Usage Example:

	client, err := kamatera.NewClient(token, kamatera.WithBaseURL(cfg.Kamatera.BaseURL))
	if err != nil {
	    return err
	}
	env := client.ListServers(ctx)
	if !env.OK() {
	    log.Printf("list failed: %s", env.Message)
	}

Thread Safety:

Client and TokenProvider hold no mutable state and are safe for concurrent
use.
*/
package kamatera
