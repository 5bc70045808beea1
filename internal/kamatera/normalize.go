// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package kamatera

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// HTMLResponseMessage is reported when the upstream answers with an HTML page,
// usually the web console or a login page instead of the REST API.
const HTMLResponseMessage = "HTML response received, check the endpoint and KAMATERA_BASE_URL"

// UnknownErrorMessage is reported for an empty "errors" list.
const UnknownErrorMessage = "Unknown error"

// RawResponse is a fully buffered upstream response.
type RawResponse struct {
	StatusCode int
	// Reason is the status line reason phrase, e.g. "Not Found".
	Reason string
	Header http.Header
	Body   []byte
}

// newRawResponse buffers resp into a RawResponse. The caller closes the body.
func newRawResponse(resp *http.Response, body []byte) RawResponse {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	return RawResponse{
		StatusCode: resp.StatusCode,
		Reason:     reason,
		Header:     resp.Header,
		Body:       body,
	}
}

// reasonPhrase returns the upstream reason phrase, falling back to the
// standard text for the status code.
func (r RawResponse) reasonPhrase() string {
	if r.Reason != "" {
		return r.Reason
	}
	return http.StatusText(r.StatusCode)
}

func (r RawResponse) isHTML() bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "html")
}

// Normalize maps any upstream response into an Envelope. Statuses of 400 and
// above take the error path; everything else is classified as a payload.
func Normalize(raw RawResponse) Envelope {
	if raw.isHTML() {
		return newEnvelope(HTMLResponseMessage, StatusHTMLResponse, nil)
	}
	if raw.StatusCode >= http.StatusBadRequest {
		return newEnvelope(failureMessage(raw), raw.StatusCode, nil)
	}
	return Classify(parseBody(raw.Body)).Envelope(raw.StatusCode, raw.reasonPhrase())
}

// TransportFailure builds the envelope for a call that produced no response:
// network errors, timeouts and cancellations.
func TransportFailure(err error) Envelope {
	return newEnvelope(err.Error(), StatusTransportFailure, nil)
}

// Payload is the classified shape of a successful response body. The
// variants are ListPayload, SingleRecordPayload, ErrorBodyPayload and
// EmptyPayload; each knows how to become an Envelope.
type Payload interface {
	Envelope(status int, reason string) Envelope
}

// ListPayload is a bare list, or an object carrying a "data" or "servers" list.
type ListPayload struct {
	Items   []any
	Message string
}

// SingleRecordPayload is a non-empty object without a known list field, or a
// scalar (including opaque non-JSON text).
type SingleRecordPayload struct {
	Record  any
	Message string
}

// ErrorBodyPayload is an object with an "errors" key.
type ErrorBodyPayload struct {
	Message string
}

// EmptyPayload is the empty object.
type EmptyPayload struct{}

func (p ListPayload) Envelope(status int, reason string) Envelope {
	return newEnvelope(messageOr(p.Message, reason), status, p.Items)
}

func (p SingleRecordPayload) Envelope(status int, reason string) Envelope {
	return newEnvelope(messageOr(p.Message, reason), status, []any{p.Record})
}

func (p ErrorBodyPayload) Envelope(status int, _ string) Envelope {
	return newEnvelope(p.Message, status, nil)
}

func (EmptyPayload) Envelope(status int, reason string) Envelope {
	return newEnvelope(messageOr("", reason), status, nil)
}

// Classify sorts a decoded body into one Payload variant.
func Classify(parsed any) Payload {
	switch v := parsed.(type) {
	case []any:
		return ListPayload{Items: v}
	case map[string]any:
		if errs, ok := v["errors"]; ok {
			msg := firstErrorMessage(errs)
			if msg == "" {
				msg = UnknownErrorMessage
			}
			return ErrorBodyPayload{Message: msg}
		}
		if items, ok := v["data"].([]any); ok {
			return ListPayload{Items: items, Message: textValue(v["message"])}
		}
		if items, ok := v["servers"].([]any); ok {
			return ListPayload{Items: items, Message: textValue(v["message"])}
		}
		if len(v) == 0 {
			return EmptyPayload{}
		}
		return SingleRecordPayload{Record: v, Message: textValue(v["message"])}
	default:
		return SingleRecordPayload{Record: v}
	}
}

// messageOr applies the fallback chain: extracted message, reason phrase, "OK".
func messageOr(message, reason string) string {
	switch {
	case message != "":
		return message
	case reason != "":
		return reason
	default:
		return "OK"
	}
}

// parseBody decodes JSON. An empty body becomes an empty list and anything
// that does not decode is kept as opaque text.
func parseBody(body []byte) any {
	if len(bytes.TrimSpace(body)) == 0 {
		return []any{}
	}
	if parsed, ok := decodeJSON(body); ok {
		return parsed
	}
	return string(body)
}

// decodeJSON decodes exactly one JSON value. Numbers stay json.Number so
// large identifiers survive a round trip.
func decodeJSON(body []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil, false
	}
	var trailing any
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return parsed, true
}

// failureMessage extracts the best message from an error response body.
func failureMessage(raw RawResponse) string {
	trimmed := bytes.TrimSpace(raw.Body)
	if len(trimmed) == 0 {
		if reason := raw.reasonPhrase(); reason != "" {
			return reason
		}
		return fmt.Sprintf("HTTP %d", raw.StatusCode)
	}

	parsed, ok := decodeJSON(trimmed)
	if !ok {
		return string(trimmed)
	}
	obj, isObject := parsed.(map[string]any)
	if !isObject {
		return stringify(parsed)
	}
	if msg := firstErrorMessage(obj["errors"]); msg != "" {
		return msg
	}
	if msg := textValue(obj["message"]); msg != "" {
		return msg
	}
	if msg := textValue(obj["error"]); msg != "" {
		return msg
	}
	return stringify(obj)
}

// firstErrorMessage reads the first entry of an "errors" value: its "info",
// else its "message", else its JSON form. Returns "" when there is nothing.
func firstErrorMessage(errs any) string {
	switch e := errs.(type) {
	case nil:
		return ""
	case []any:
		if len(e) == 0 {
			return ""
		}
		first, ok := e[0].(map[string]any)
		if !ok {
			return textValue(e[0])
		}
		if msg := textValue(first["info"]); msg != "" {
			return msg
		}
		if msg := textValue(first["message"]); msg != "" {
			return msg
		}
		return stringify(first)
	case map[string]any:
		if len(e) == 0 {
			return ""
		}
		return stringify(e)
	default:
		return textValue(e)
	}
}

// textValue renders a field as message text. Missing, null, false and empty
// values yield "".
func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
		return "true"
	default:
		return stringify(t)
	}
}

// stringify renders any decoded value as text; strings are used as-is.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
