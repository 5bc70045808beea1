// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package kamatera

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/kamctl/internal/logging"
	"github.com/tomtom215/kamctl/internal/metrics"
)

// Defaults for the REST endpoint and per-call deadlines.
const (
	DefaultBaseURL      = "https://console.kamatera.com/service"
	DefaultReadTimeout  = 10 * time.Second
	DefaultCloneTimeout = 60 * time.Second
)

// maxResponseBytes caps how much of an upstream body is buffered.
const maxResponseBytes = 8 << 20

// PowerAction is the value sent to the /power endpoint.
type PowerAction string

const (
	PowerOn      PowerAction = "on"
	PowerOff     PowerAction = "off"
	PowerRestart PowerAction = "restart"
)

// Billing cycles accepted by the clone endpoint.
const (
	BillingHourly  = "hour"
	BillingMonthly = "month"
)

// ServerClient is the set of lifecycle operations consumers depend on.
// *Client implements it; tests substitute fakes.
type ServerClient interface {
	ListServers(ctx context.Context) Envelope
	GetServer(ctx context.Context, serverID string) Envelope
	StartServer(ctx context.Context, serverID string) Envelope
	StopServer(ctx context.Context, serverID string) Envelope
	RebootServer(ctx context.Context, serverID string) Envelope
	RenameServer(ctx context.Context, serverID, name string) Envelope
	CloneServer(ctx context.Context, req CloneRequest) Envelope
	DeleteServer(ctx context.Context, serverID string) Envelope
}

var _ ServerClient = (*Client)(nil)

// Client calls the Kamatera REST API with a bearer token.
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	readTimeout  time.Duration
	cloneTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the REST root. Empty values are ignored.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeouts sets the read and clone deadlines. Non-positive values keep
// the defaults.
func WithTimeouts(read, clone time.Duration) Option {
	return func(c *Client) {
		if read > 0 {
			c.readTimeout = read
		}
		if clone > 0 {
			c.cloneTimeout = clone
		}
	}
}

// NewClient returns a client authenticating with token.
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	c := &Client{
		baseURL:      DefaultBaseURL,
		token:        token,
		httpClient:   &http.Client{},
		readTimeout:  DefaultReadTimeout,
		cloneTimeout: DefaultCloneTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the REST root the client calls.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListServers fetches every server on the account.
func (c *Client) ListServers(ctx context.Context) Envelope {
	logging.Ctx(ctx).Debug().
		Str("base_url", c.baseURL).
		Str("token", logging.MaskSecret(c.token)).
		Msg("Listing servers")
	return c.do(ctx, "list_servers", http.MethodGet, "/servers", nil, c.readTimeout)
}

// GetServer fetches the details of one server.
func (c *Client) GetServer(ctx context.Context, serverID string) Envelope {
	return c.do(ctx, "get_server", http.MethodGet, serverPath(serverID, ""), nil, c.readTimeout)
}

// StartServer powers a server on.
func (c *Client) StartServer(ctx context.Context, serverID string) Envelope {
	return c.setPower(ctx, "start_server", serverID, PowerOn)
}

// StopServer powers a server off.
func (c *Client) StopServer(ctx context.Context, serverID string) Envelope {
	return c.setPower(ctx, "stop_server", serverID, PowerOff)
}

// RebootServer restarts a server.
func (c *Client) RebootServer(ctx context.Context, serverID string) Envelope {
	return c.setPower(ctx, "reboot_server", serverID, PowerRestart)
}

type powerBody struct {
	Power PowerAction `json:"power"`
}

func (c *Client) setPower(ctx context.Context, operation, serverID string, action PowerAction) Envelope {
	return c.do(ctx, operation, http.MethodPut, serverPath(serverID, "/power"), powerBody{Power: action}, c.readTimeout)
}

type renameBody struct {
	Name string `json:"name"`
}

// RenameServer changes a server's name.
func (c *Client) RenameServer(ctx context.Context, serverID, name string) Envelope {
	return c.do(ctx, "rename_server", http.MethodPut, serverPath(serverID, "/rename"), renameBody{Name: name}, c.readTimeout)
}

// CloneRequest describes a clone of an existing server.
type CloneRequest struct {
	SourceID string
	Name     string // optional, the provider picks one when empty
	Password string // optional root password
	Billing  string // "hour" (default) or "month"
}

type cloneBody struct {
	Source   string `json:"source"`
	PowerOn  string `json:"powerOn"`
	Billing  string `json:"billing"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password,omitempty"`
}

// CloneServer clones a server. The clone is never powered on.
func (c *Client) CloneServer(ctx context.Context, req CloneRequest) Envelope {
	billing := req.Billing
	if billing == "" {
		billing = BillingHourly
	}
	body := cloneBody{
		Source:   req.SourceID,
		PowerOn:  "no",
		Billing:  billing,
		Name:     req.Name,
		Password: req.Password,
	}
	return c.do(ctx, "clone_server", http.MethodPost, "/server/clone", body, c.cloneTimeout)
}

// DeleteServer terminates a server. The request carries no body at all.
func (c *Client) DeleteServer(ctx context.Context, serverID string) Envelope {
	return c.do(ctx, "delete_server", http.MethodDelete, serverPath(serverID, "/terminate"), nil, c.readTimeout)
}

func serverPath(serverID, suffix string) string {
	return "/server/" + url.PathEscape(serverID) + suffix
}

// do performs one call under its own deadline and records it.
func (c *Client) do(ctx context.Context, operation, method, path string, body any, timeout time.Duration) Envelope {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	env := c.send(ctx, method, path, body)
	duration := time.Since(start)

	metrics.RecordUpstreamRequest(operation, env.Status, duration)
	logging.Ctx(ctx).Debug().
		Str("operation", operation).
		Int("status", env.Status).
		Dur("duration", duration).
		Msg("Kamatera call completed")

	return env
}

func (c *Client) send(ctx context.Context, method, path string, body any) Envelope {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return TransportFailure(fmt.Errorf("encode request body: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return TransportFailure(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TransportFailure(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return TransportFailure(fmt.Errorf("read response body: %w", err))
	}
	return Normalize(newRawResponse(resp, data))
}
