// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP I/O helpers shared by the gateway
// client.
//
// Buffered response helpers (ReadResponse, DecodeResponse, ErrorBody)
// bound body reads at MaxResponseSize so a misbehaving gateway cannot
// exhaust memory. They are for JSON API responses, not for event
// streams, which are read incrementally.
//
// DrainAndClose releases a response body so the underlying connection
// is not leaked, and IsExpectedCloseError classifies the read errors
// that follow a deliberate close.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxResponseSize is the bound on JSON API response body reads: 256 MB.
// Legitimate gateway responses are orders of magnitude smaller.
const MaxResponseSize int64 = 256 << 20

// maxErrorBodySize bounds how much of an error response is kept for
// diagnostics.
const maxErrorBodySize int64 = 64 << 10

// maxDrainSize bounds how much of an unwanted body DrainAndClose reads
// before giving up and closing.
const maxDrainSize int64 = 4 << 20

// ReadResponse reads a JSON API response body up to MaxResponseSize bytes.
// Use instead of io.ReadAll when reading HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a JSON API response body (up to MaxResponseSize
// bytes) and JSON-decodes it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody reads an HTTP error response body and returns it as a
// string for diagnostic error messages. Read errors are ignored: a
// partial or empty body is still useful in an error message.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBodySize))
	return string(data)
}

// DrainAndClose consumes what remains of body (up to a bound) and
// closes it. Draining lets the HTTP transport reuse the connection;
// closing releases it either way. A nil body is a no-op.
func DrainAndClose(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxDrainSize))
	return body.Close()
}
