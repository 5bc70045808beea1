// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package api

// Request structs carry go-playground/validator tags; field names in error
// messages are the JSON names ("server_id required").

// ServerQuery is the server_id query parameter of GET /api/server and
// DELETE /api/destroy.
type ServerQuery struct {
	ServerID string `json:"server_id" validate:"required,serverid,max=128"`
}

// ControlRequest is the body of POST /api/start, /api/stop and /api/reboot.
// Action is accepted for compatibility and only logged.
type ControlRequest struct {
	ServerID string `json:"server_id" validate:"required,serverid,max=128"`
	Action   string `json:"action,omitempty" validate:"omitempty,max=32"`
}

// CloneRequest is the body of POST /api/clone.
type CloneRequest struct {
	ServerID string `json:"server_id" validate:"required,serverid,max=128"`
	Name     string `json:"name,omitempty" validate:"omitempty,max=64"`
	Password string `json:"password,omitempty" validate:"omitempty,max=128"`
	Billing  string `json:"billing,omitempty" validate:"omitempty,oneof=hour month"`
}

// RenameRequest is the body of PUT /api/rename.
type RenameRequest struct {
	ServerID string `json:"server_id" validate:"required,serverid,max=128"`
	Name     string `json:"name" validate:"required,max=64"`
}

// AuditQuery holds the query parameters of GET /api/audit.
type AuditQuery struct {
	ServerID string `json:"server_id" validate:"omitempty,serverid,max=128"`
	Type     string `json:"type" validate:"omitempty,oneof=server.start server.stop server.reboot server.clone server.rename server.destroy"`
	Outcome  string `json:"outcome" validate:"omitempty,oneof=success failure"`
	Limit    int    `json:"limit" validate:"min=1,max=1000"`
}
