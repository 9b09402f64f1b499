// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// Request is one call to the gateway, independent of how it is sent.
type Request struct {
	Method string

	// Path is the URL path relative to the gateway base URL, for
	// example "/v1/dispatch".
	Path string

	// Query is nil when the call has no query parameters.
	Query url.Values

	// Header holds per-request headers. The transport adds its own
	// (authorization, content type, tracing) on top.
	Header http.Header

	// Body is marshaled as JSON when non-nil.
	Body any
}

// Response is a fully buffered gateway response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StreamResponse is a gateway response whose body is read
// incrementally. The receiver owns Body and must close it.
type StreamResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Transport sends requests to the gateway. Implementations must report
// failures to reach the gateway as [*ConnectionError]; any response
// that arrives, whatever its status, is returned without error.
//
// [HTTPTransport] is the production implementation. Tests use the
// recording transport in package gatewaytest.
type Transport interface {
	// Do sends request and buffers the whole response.
	Do(ctx context.Context, request *Request) (*Response, error)

	// Stream sends request and returns as soon as response headers
	// arrive. Cancelling ctx or closing the body releases the
	// connection.
	Stream(ctx context.Context, request *Request) (*StreamResponse, error)
}
