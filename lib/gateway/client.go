// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Client calls an Acteon gateway. It is safe for concurrent use,
// including any number of concurrent subscriptions.
type Client struct {
	transport Transport
	logger    *slog.Logger
}

// New returns a client that sends requests through transport. A nil
// logger discards log output.
func New(transport Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{transport: transport, logger: logger}
}

// call describes one buffered request/response exchange.
type call struct {
	// op names the operation in errors and logs.
	op      string
	request *Request

	// success is the expected status. Zero accepts 200.
	success int

	// result receives the decoded JSON body. Nil discards the body.
	result any

	// envelope means a failure status other than 404, 409, and 410 is
	// decoded as the gateway's {"code","message","retryable"} error
	// envelope when possible.
	envelope bool
}

// do runs one exchange and maps the response status to the error
// taxonomy.
func (client *Client) do(ctx context.Context, exchange call) error {
	client.logger.Debug("gateway request",
		"op", exchange.op,
		"method", exchange.request.Method,
		"path", exchange.request.Path,
	)

	response, err := client.transport.Do(ctx, exchange.request)
	if err != nil {
		return err
	}

	success := exchange.success
	if success == 0 {
		success = http.StatusOK
	}
	if response.StatusCode != success {
		return responseError(response.StatusCode, response.Body, exchange.envelope)
	}

	if exchange.result == nil {
		return nil
	}
	if err := json.Unmarshal(response.Body, exchange.result); err != nil {
		return &DecodeError{Op: exchange.op, Err: err}
	}
	return nil
}

// errorEnvelope is the gateway's structured error body.
type errorEnvelope struct {
	Code      *string `json:"code"`
	Message   *string `json:"message"`
	Retryable bool    `json:"retryable"`
}

// responseError builds the error for a non-success status.
func responseError(statusCode int, body []byte, envelope bool) error {
	var wire errorEnvelope
	parsed := json.Unmarshal(body, &wire) == nil && bytes.HasPrefix(bytes.TrimSpace(body), []byte("{"))

	switch statusCode {
	case http.StatusNotFound, http.StatusConflict, http.StatusGone:
		envelope = false
	}
	if envelope && parsed {
		apiError := &APIError{
			Code:       "UNKNOWN",
			Message:    "Unknown error",
			Retryable:  wire.Retryable,
			StatusCode: statusCode,
		}
		if wire.Code != nil {
			apiError.Code = *wire.Code
		}
		if wire.Message != nil {
			apiError.Message = *wire.Message
		}
		return apiError
	}

	httpError := &HTTPError{StatusCode: statusCode}
	switch {
	case parsed && wire.Message != nil:
		httpError.Message = *wire.Message
	default:
		httpError.Message = errorText(body)
	}
	return httpError
}

// errorText condenses a non-JSON error body for an error message.
func errorText(body []byte) string {
	const limit = 512
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		text = text[:limit] + "..."
	}
	return text
}

// escapedPath joins pre-escaped prefix with path-escaped segments.
func escapedPath(prefix string, segments ...string) string {
	var builder strings.Builder
	builder.WriteString(prefix)
	for _, segment := range segments {
		builder.WriteByte('/')
		builder.WriteString(url.PathEscape(segment))
	}
	return builder.String()
}

// query builds url.Values from key/value pairs, skipping empty values.
func query(pairs ...string) url.Values {
	if len(pairs)%2 != 0 {
		panic(fmt.Sprintf("gateway: query called with odd argument count %d", len(pairs)))
	}
	values := url.Values{}
	for index := 0; index < len(pairs); index += 2 {
		if pairs[index+1] != "" {
			values.Set(pairs[index], pairs[index+1])
		}
	}
	if len(values) == 0 {
		return nil
	}
	return values
}
