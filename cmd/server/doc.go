// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

/*
Package main is the kamctl HTTP front-end.

It serves a small server-list page and a JSON API that relays lifecycle
operations to the Kamatera REST API, returning the normalized
{message, status, data} envelope with the HTTP status mirroring status.

# Application Architecture

	RootSupervisor ("kamctl")
	├── CredentialsSupervisor ("credentials-layer")
	│   └── Token refresher (client credentials, every 55m by default)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi)

Initialization order:

 1. Configuration: koanf v2 with defaults, optional config.yaml and environment
 2. Logging: zerolog with JSON/console output modes
 3. Credentials: static KAMATERA_API_KEY, else KAMATERA_CLIENT_ID + KAMATERA_SECRET;
    startup fails when neither is set
 4. Supervisor tree: suture v4 with sutureslog events
 5. HTTP Server: chi router with request id, CORS, httprate and Prometheus metrics

# Endpoints

	GET    /                     server list page
	GET    /health               liveness and credential status
	GET    /metrics              Prometheus exposition
	GET    /api/servers          list servers
	GET    /api/server?server_id= server details
	POST   /api/start            {"server_id": "..."}
	POST   /api/stop             {"server_id": "..."}
	POST   /api/reboot           {"server_id": "..."}
	POST   /api/clone            {"server_id": "...", "name", "password", "billing"}
	PUT    /api/rename           {"server_id": "...", "name": "..."}
	DELETE /api/destroy?server_id=
	GET    /api/audit?server_id=&type=&outcome=&limit=

# Signal Handling

SIGINT and SIGTERM cancel the tree: the HTTP server drains in-flight
requests within SHUTDOWN_TIMEOUT and the refresh loop is joined.

# Example Usage

	export KAMATERA_CLIENT_ID=...
	export KAMATERA_SECRET=...
	export LOG_FORMAT=console
	./kamctl-server
*/
package main
