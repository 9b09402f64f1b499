// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/acteon/acteon-go/lib/gateway"
	"github.com/acteon/acteon-go/lib/sse"
	"github.com/acteon/acteon-go/lib/testutil"
)

func newHTTPTransport(t *testing.T, server *httptest.Server, configure func(*gateway.HTTPTransportConfig)) *gateway.HTTPTransport {
	t.Helper()
	config := gateway.HTTPTransportConfig{
		BaseURL:        server.URL,
		TracerProvider: noop.NewTracerProvider(),
	}
	if configure != nil {
		configure(&config)
	}
	transport, err := gateway.NewHTTPTransport(config)
	if err != nil {
		t.Fatalf("NewHTTPTransport: %v", err)
	}
	return transport
}

func TestNewHTTPTransportValidatesBaseURL(t *testing.T) {
	t.Parallel()

	for _, baseURL := range []string{"", "localhost:8080", "ftp://gateway", "http://", "://bad"} {
		if _, err := gateway.NewHTTPTransport(gateway.HTTPTransportConfig{BaseURL: baseURL}); err == nil {
			t.Errorf("NewHTTPTransport(%q) succeeded, want error", baseURL)
		}
	}
	if _, err := gateway.NewHTTPTransport(gateway.HTTPTransportConfig{BaseURL: "https://gateway.example.com/"}); err != nil {
		t.Errorf("NewHTTPTransport(https): %v", err)
	}
}

func TestHTTPTransportDo(t *testing.T) {
	t.Parallel()

	type seen struct {
		method, path, query      string
		auth, agent, accept      string
		contentType, traceparent string
		body                     map[string]any
	}
	requests := make(chan seen, 1)
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(request.Body).Decode(&body)
		requests <- seen{
			method:      request.Method,
			path:        request.URL.EscapedPath(),
			query:       request.URL.RawQuery,
			auth:        request.Header.Get("Authorization"),
			agent:       request.Header.Get("User-Agent"),
			accept:      request.Header.Get("Accept"),
			contentType: request.Header.Get("Content-Type"),
			traceparent: request.Header.Get("Traceparent"),
			body:        body,
		}
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	transport := newHTTPTransport(t, server, func(config *gateway.HTTPTransportConfig) {
		config.APIKey = "secret"
	})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	response, err := transport.Do(ctx, &gateway.Request{
		Method: http.MethodPost,
		Path:   "/v1/groups/k%2Fwith%20slash",
		Query:  url.Values{"dry_run": {"true"}},
		Body:   map[string]string{"hello": "world"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if response.StatusCode != http.StatusOK || string(response.Body) != `{"ok": true}` {
		t.Errorf("response = %d %s", response.StatusCode, response.Body)
	}

	got := testutil.RequireReceive(t, requests, 5*time.Second, "waiting for request")
	if got.method != http.MethodPost || got.path != "/v1/groups/k%2Fwith%20slash" || got.query != "dry_run=true" {
		t.Errorf("request line = %s %s?%s", got.method, got.path, got.query)
	}
	if got.auth != "Bearer secret" {
		t.Errorf("Authorization = %q", got.auth)
	}
	if !strings.HasPrefix(got.agent, "acteon-go/") {
		t.Errorf("User-Agent = %q", got.agent)
	}
	if got.accept != "application/json" || got.contentType != "application/json" {
		t.Errorf("Accept = %q, Content-Type = %q", got.accept, got.contentType)
	}
	if !strings.Contains(got.traceparent, "4bf92f3577b34da6a3ce929d0e0e4736") {
		t.Errorf("traceparent = %q, want the caller's trace id", got.traceparent)
	}
	if got.body["hello"] != "world" {
		t.Errorf("body = %v", got.body)
	}
}

func TestHTTPTransportNoAPIKeyNoBody(t *testing.T) {
	t.Parallel()

	headers := make(chan http.Header, 1)
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		headers <- request.Header.Clone()
		writer.WriteHeader(http.StatusInternalServerError)
		writer.Write([]byte("exploded"))
	}))
	defer server.Close()

	response, err := newHTTPTransport(t, server, nil).Do(context.Background(), &gateway.Request{Method: http.MethodGet, Path: "/health"})
	if err != nil {
		t.Fatalf("Do returned an error for a 500 response: %v", err)
	}
	if response.StatusCode != http.StatusInternalServerError || string(response.Body) != "exploded" {
		t.Errorf("response = %d %q", response.StatusCode, response.Body)
	}

	got := testutil.RequireReceive(t, headers, 5*time.Second, "waiting for request")
	if got.Get("Authorization") != "" || got.Get("Content-Type") != "" {
		t.Errorf("unexpected headers: %v", got)
	}
}

func TestHTTPTransportConnectionRefused(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	transport := newHTTPTransport(t, server, nil)
	server.Close()

	_, err := transport.Do(context.Background(), &gateway.Request{Method: http.MethodGet, Path: "/health"})
	var connectionError *gateway.ConnectionError
	if !errors.As(err, &connectionError) {
		t.Fatalf("Do = %v, want ConnectionError", err)
	}

	_, err = transport.Stream(context.Background(), &gateway.Request{Method: http.MethodGet, Path: "/v1/stream"})
	if !errors.As(err, &connectionError) {
		t.Fatalf("Stream = %v, want ConnectionError", err)
	}
}

func TestHTTPTransportTimeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		<-request.Context().Done()
	}))
	defer server.Close()

	transport := newHTTPTransport(t, server, func(config *gateway.HTTPTransportConfig) {
		config.Timeout = 20 * time.Millisecond
	})

	_, err := transport.Do(context.Background(), &gateway.Request{Method: http.MethodGet, Path: "/health"})
	var connectionError *gateway.ConnectionError
	if !errors.As(err, &connectionError) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do = %v, want ConnectionError wrapping DeadlineExceeded", err)
	}

	_, err = transport.Stream(context.Background(), &gateway.Request{Method: http.MethodGet, Path: "/v1/stream"})
	if !errors.As(err, &connectionError) {
		t.Errorf("Stream = %v, want ConnectionError", err)
	}
}

func TestHTTPTransportCallerCancellation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		<-request.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newHTTPTransport(t, server, nil).Do(ctx, &gateway.Request{Method: http.MethodGet, Path: "/health"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do = %v, want context.Canceled", err)
	}
	var connectionError *gateway.ConnectionError
	if errors.As(err, &connectionError) {
		t.Errorf("caller cancellation reported as ConnectionError: %v", err)
	}
}

func TestHTTPTransportStream(t *testing.T) {
	t.Parallel()

	released := make(chan struct{})
	lastEventID := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		lastEventID <- request.Header.Get("Last-Event-ID")
		if accept := request.Header.Get("Accept"); accept != "text/event-stream" {
			http.Error(writer, "bad accept "+accept, http.StatusNotAcceptable)
			return
		}
		writer.Header().Set("Content-Type", "text/event-stream")
		writer.WriteHeader(http.StatusOK)
		writer.Write([]byte("event: chain_advanced\nid: 5\ndata: {\"step\": 2}\n\n"))
		writer.(http.Flusher).Flush()
		<-request.Context().Done()
		close(released)
	}))
	defer server.Close()

	// The timeout covers only the wait for headers; the body stays
	// readable past it.
	transport := newHTTPTransport(t, server, func(config *gateway.HTTPTransportConfig) {
		config.Timeout = 5 * time.Second
	})
	response, err := transport.Stream(context.Background(), &gateway.Request{
		Method: http.MethodGet,
		Path:   "/v1/subscribe/chain/c1",
		Header: http.Header{"Last-Event-Id": {"4"}},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", response.StatusCode)
	}
	if got := testutil.RequireReceive(t, lastEventID, 5*time.Second, "waiting for request"); got != "4" {
		t.Errorf("Last-Event-ID = %q, want 4", got)
	}

	scanner := sse.NewScanner(response.Body)
	if !scanner.Next() {
		t.Fatalf("no event: %v", scanner.Err())
	}
	event := scanner.Event()
	if event.Name() != "chain_advanced" || event.ID != "5" || string(event.Data) != `{"step": 2}` {
		t.Errorf("event = %+v", event)
	}

	response.Body.Close()
	testutil.RequireClosed(t, released, 5*time.Second, "server sees the request end after Close")
}

func TestHTTPTransportStreamNonSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		http.Error(writer, "no such chain", http.StatusNotFound)
	}))
	defer server.Close()

	response, err := newHTTPTransport(t, server, nil).Stream(context.Background(), &gateway.Request{Method: http.MethodGet, Path: "/v1/subscribe/chain/missing"})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer response.Body.Close()
	body, _ := io.ReadAll(response.Body)
	if response.StatusCode != http.StatusNotFound || !strings.Contains(string(body), "no such chain") {
		t.Errorf("response = %d %q", response.StatusCode, body)
	}
}

func TestHTTPTransportRateLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {}))
	defer server.Close()

	transport := newHTTPTransport(t, server, func(config *gateway.HTTPTransportConfig) {
		config.RateLimit = 0.001
		config.RateBurst = 1
	})
	if _, err := transport.Do(context.Background(), &gateway.Request{Method: http.MethodGet, Path: "/health"}); err != nil {
		t.Fatalf("first Do: %v", err)
	}

	// The burst is spent; the next token is far away, so a bounded
	// context fails the wait instead of blocking.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := transport.Do(ctx, &gateway.Request{Method: http.MethodGet, Path: "/health"})
	if err == nil {
		t.Fatal("second Do succeeded, want rate limiter error")
	}
	if !strings.Contains(err.Error(), "rate limiter") {
		t.Errorf("error = %v, want rate limiter failure", err)
	}
}
