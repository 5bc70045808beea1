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
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/kamctl/internal/metrics"
)

// DefaultAuthURL is the host serving /service/authenticate.
const DefaultAuthURL = "https://console.kamatera.com"

// Field names the authentication endpoint has been seen to use, in lookup order.
var (
	tokenFields  = []string{"authentication", "token", "access_token", "authentication_token"}
	expiryFields = []string{"expires", "expires_in", "expiration"}
)

// TokenResult is the outcome of one authentication call that got a 2xx answer.
//
// Token is empty and Error is set when the body was HTML or carried no token.
type TokenResult struct {
	Token string

	// Expires is the raw expiry hint from the response, when present.
	Expires *int64

	// ExpiresAt is read from the token's JWT "exp" claim when the response
	// carried no expiry field. Zero when unknown.
	ExpiresAt time.Time

	// Raw is the decoded response object.
	Raw map[string]any

	Error string
}

// TokenSource mints bearer tokens. *TokenProvider implements it.
type TokenSource interface {
	FetchToken(ctx context.Context) (*TokenResult, error)
}

var _ TokenSource = (*TokenProvider)(nil)

// TokenProviderConfig configures a TokenProvider.
type TokenProviderConfig struct {
	AuthURL    string
	ClientID   string
	Secret     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// TokenProvider exchanges a client id and secret for a bearer token.
type TokenProvider struct {
	authURL    string
	clientID   string
	secret     string
	timeout    time.Duration
	httpClient *http.Client
}

// NewTokenProvider applies defaults for the auth URL, timeout and HTTP client.
func NewTokenProvider(cfg TokenProviderConfig) *TokenProvider {
	authURL := strings.TrimSuffix(cfg.AuthURL, "/")
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &TokenProvider{
		authURL:    authURL,
		clientID:   cfg.ClientID,
		secret:     cfg.Secret,
		timeout:    timeout,
		httpClient: hc,
	}
}

type authenticateBody struct {
	ClientID string `json:"clientId"`
	Secret   string `json:"secret"`
}

// FetchToken performs one authentication call.
//
// A non-2xx answer returns *HTTPError. Network failures and undecodable JSON
// return wrapped errors. An HTML answer or a body without a token returns a
// result with Error set.
func (p *TokenProvider) FetchToken(ctx context.Context) (*TokenResult, error) {
	if p.clientID == "" || p.secret == "" {
		return nil, ErrMissingClientCredentials
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	payload, err := json.Marshal(authenticateBody{ClientID: p.clientID, Secret: p.secret})
	if err != nil {
		return nil, fmt.Errorf("encode authentication body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.authURL+"/service/authenticate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create authentication request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest("authenticate", StatusTransportFailure, time.Since(start))
		return nil, fmt.Errorf("authentication request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.RecordUpstreamRequest("authenticate", resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read authentication response: %w", err)
	}
	raw := newRawResponse(resp, body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: failureMessage(raw)}
	}
	if raw.isHTML() {
		return &TokenResult{Error: "HTML response, check the auth URL"}, nil
	}

	data := map[string]any{}
	if len(bytes.TrimSpace(body)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		var decoded any
		if err := dec.Decode(&decoded); err != nil {
			return nil, fmt.Errorf("decode authentication response: %w", err)
		}
		obj, ok := decoded.(map[string]any)
		if !ok {
			return &TokenResult{Error: "authentication response is not a JSON object"}, nil
		}
		data = obj
	}

	return parseTokenResult(data), nil
}

func parseTokenResult(data map[string]any) *TokenResult {
	result := &TokenResult{Raw: data}

	for _, field := range tokenFields {
		if tok, ok := data[field].(string); ok && tok != "" {
			result.Token = tok
			break
		}
	}
	if result.Token == "" {
		result.Error = "no token field in authentication response"
		return result
	}

	for _, field := range expiryFields {
		if v, ok := numericValue(data[field]); ok {
			result.Expires = &v
			break
		}
	}
	if result.Expires == nil {
		result.ExpiresAt = jwtExpiry(result.Token)
	}
	return result
}

// numericValue accepts JSON numbers and numeric strings.
func numericValue(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	case float64:
		return int64(n), true
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

// jwtExpiry reads the exp claim without verifying the signature. Opaque
// tokens yield the zero time.
func jwtExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
