// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

// Package audit keeps a trail of server lifecycle operations relayed by the
// HTTP front-end.
//
// # Event Types
//
//   - server.start, server.stop, server.reboot: power changes
//   - server.clone, server.rename: provisioning changes
//   - server.destroy: irreversible deletion
//
// Every event carries the upstream envelope status and message, the
// request ID assigned by the router and the caller's address. The outcome is
// success for a 2xx status and failure otherwise.
//
// # Storage
//
// MemoryStore is a bounded in-process trail. When full, the oldest tenth is
// dropped before the next event is appended. Queries return the most recent
// events first.
//
// # Usage
//
//	store := audit.NewMemoryStore(1000)
//	logger := audit.NewLogger(store)
//
//	logger.Record(ctx, audit.NewServerEvent(r, audit.EventTypeServerDestroy, "srv-1", 200, "OK"))
//
//	events, _ := store.Query(ctx, audit.QueryFilter{ServerID: "srv-1", Limit: 10})
//
// The trail lives in memory only and is lost on restart. It is served at
// GET /api/audit.
package audit
