// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/acteon/acteon-go/lib/netutil"
	"github.com/acteon/acteon-go/lib/version"
)

const tracerName = "github.com/acteon/acteon-go/lib/gateway"

// HTTPTransportConfig configures an [HTTPTransport].
type HTTPTransportConfig struct {
	// BaseURL is the gateway root, for example "http://localhost:8080".
	BaseURL string

	// APIKey, when set, is sent as a bearer token.
	APIKey string

	// Timeout bounds a buffered call from send to fully read body, and
	// a streaming call from send to response headers. Zero means no
	// timeout.
	Timeout time.Duration

	// RateLimit caps outgoing requests per second. Zero disables
	// client-side limiting.
	RateLimit float64

	// RateBurst is the limiter's burst size. Values below 1 become 1.
	RateBurst int

	// HTTPClient defaults to a client with no overall timeout (stream
	// bodies are unbounded in time).
	HTTPClient *http.Client

	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider

	// Propagator injects trace context into outgoing headers. Defaults
	// to W3C trace context.
	Propagator propagation.TextMapPropagator
}

// HTTPTransport sends gateway requests over HTTP. It is safe for
// concurrent use.
type HTTPTransport struct {
	baseURL    *url.URL
	apiKey     string
	timeout    time.Duration
	limiter    *rate.Limiter
	httpClient *http.Client
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	userAgent  string
}

// NewHTTPTransport validates config and returns a transport.
func NewHTTPTransport(config HTTPTransportConfig) (*HTTPTransport, error) {
	baseURL, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("gateway: parsing base URL: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("gateway: base URL %q must use http or https", config.BaseURL)
	}
	if baseURL.Host == "" {
		return nil, fmt.Errorf("gateway: base URL %q has no host", config.BaseURL)
	}

	transport := &HTTPTransport{
		baseURL:    baseURL,
		apiKey:     config.APIKey,
		timeout:    config.Timeout,
		httpClient: config.HTTPClient,
		propagator: config.Propagator,
		userAgent:  version.UserAgent(),
	}
	if transport.httpClient == nil {
		transport.httpClient = &http.Client{}
	}
	if transport.propagator == nil {
		transport.propagator = propagation.TraceContext{}
	}
	tracerProvider := config.TracerProvider
	if tracerProvider == nil {
		tracerProvider = otel.GetTracerProvider()
	}
	transport.tracer = tracerProvider.Tracer(tracerName)

	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst < 1 {
			burst = 1
		}
		transport.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}
	return transport, nil
}

// Do sends request and reads the whole response body.
func (transport *HTTPTransport) Do(ctx context.Context, request *Request) (*Response, error) {
	op := request.Method + " " + request.Path
	ctx, span := transport.startSpan(ctx, request)
	defer span.End()

	if transport.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, transport.timeout)
		defer cancel()
	}

	httpResponse, err := transport.send(ctx, op, request, "application/json")
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer httpResponse.Body.Close()

	body, err := netutil.ReadResponse(httpResponse.Body)
	if err != nil {
		err = transport.classify(ctx, op, fmt.Errorf("reading response body: %w", err))
		recordSpanError(span, err)
		return nil, err
	}
	recordSpanStatus(span, httpResponse.StatusCode)

	return &Response{
		StatusCode: httpResponse.StatusCode,
		Header:     httpResponse.Header,
		Body:       body,
	}, nil
}

// Stream sends request and returns once response headers arrive. The
// timeout, if any, covers only the wait for headers. Closing the
// returned body cancels the request.
func (transport *HTTPTransport) Stream(ctx context.Context, request *Request) (*StreamResponse, error) {
	op := request.Method + " " + request.Path
	spanContext, span := transport.startSpan(ctx, request)
	defer span.End()

	streamContext, cancelCause := context.WithCancelCause(spanContext)
	cancel := func() { cancelCause(nil) }
	var timer *time.Timer
	if transport.timeout > 0 {
		timer = time.AfterFunc(transport.timeout, func() { cancelCause(context.DeadlineExceeded) })
	}

	httpResponse, err := transport.send(streamContext, op, request, "text/event-stream")
	if timer != nil && !timer.Stop() && err == nil {
		// Headers raced the timer; the request context is already dead.
		httpResponse.Body.Close()
		err = &ConnectionError{Op: op, Err: context.DeadlineExceeded}
	}
	if err != nil {
		cancel()
		recordSpanError(span, err)
		return nil, err
	}
	recordSpanStatus(span, httpResponse.StatusCode)

	return &StreamResponse{
		StatusCode: httpResponse.StatusCode,
		Header:     httpResponse.Header,
		Body:       &cancelOnClose{ReadCloser: httpResponse.Body, cancel: cancel},
	}, nil
}

func (transport *HTTPTransport) send(ctx context.Context, op string, request *Request, accept string) (*http.Response, error) {
	if transport.limiter != nil {
		if err := transport.limiter.Wait(ctx); err != nil {
			return nil, transport.classify(ctx, op, fmt.Errorf("waiting for rate limiter: %w", err))
		}
	}

	httpRequest, err := transport.newHTTPRequest(ctx, request, accept)
	if err != nil {
		return nil, fmt.Errorf("gateway: %s: %w", op, err)
	}

	httpResponse, err := transport.httpClient.Do(httpRequest)
	if err != nil {
		return nil, transport.classify(ctx, op, err)
	}
	return httpResponse, nil
}

func (transport *HTTPTransport) newHTTPRequest(ctx context.Context, request *Request, accept string) (*http.Request, error) {
	target := transport.baseURL.JoinPath(request.Path)
	if len(request.Query) > 0 {
		target.RawQuery = request.Query.Encode()
	}

	var body io.Reader
	if request.Body != nil {
		encoded, err := json.Marshal(request.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, request.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for key, values := range request.Header {
		for _, value := range values {
			httpRequest.Header.Add(key, value)
		}
	}
	if body != nil {
		httpRequest.Header.Set("Content-Type", "application/json")
	}
	httpRequest.Header.Set("Accept", accept)
	httpRequest.Header.Set("User-Agent", transport.userAgent)
	if transport.apiKey != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+transport.apiKey)
	}
	transport.propagator.Inject(ctx, propagation.HeaderCarrier(httpRequest.Header))
	return httpRequest, nil
}

// classify wraps a send failure. Cancellation by the caller is passed
// through as the context error; everything else (refused connections,
// DNS failures, timeouts) is a ConnectionError.
func (transport *HTTPTransport) classify(ctx context.Context, op string, err error) error {
	if errors.Is(context.Cause(ctx), context.Canceled) && errors.Is(err, context.Canceled) {
		return fmt.Errorf("gateway: %s: %w", op, err)
	}
	return &ConnectionError{Op: op, Err: err}
}

func (transport *HTTPTransport) startSpan(ctx context.Context, request *Request) (context.Context, trace.Span) {
	return transport.tracer.Start(ctx, "acteon "+request.Method+" "+request.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", request.Method),
			attribute.String("url.path", request.Path),
			attribute.String("server.address", transport.baseURL.Host),
		),
	)
}

func recordSpanStatus(span trace.Span, statusCode int) {
	span.SetAttributes(attribute.Int("http.response.status_code", statusCode))
	if statusCode >= 400 {
		span.SetStatus(codes.Error, http.StatusText(statusCode))
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// cancelOnClose releases the request context along with the body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
	once   sync.Once
}

func (body *cancelOnClose) Close() error {
	err := body.ReadCloser.Close()
	body.once.Do(body.cancel)
	return err
}
