// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels matched by errors.Is against an [*HTTPError] with the
// corresponding status.
var (
	ErrNotFound = errors.New("gateway: not found")
	ErrConflict = errors.New("gateway: conflict")
	ErrGone     = errors.New("gateway: gone")
)

// ErrClosed is returned by [Subscription.Next] after the caller closed
// the subscription.
var ErrClosed = errors.New("gateway: subscription closed")

// ConnectionError means the transport could not reach the gateway or
// timed out before any response arrived.
type ConnectionError struct {
	// Op names the operation that was attempted.
	Op  string
	Err error
}

func (err *ConnectionError) Error() string {
	return fmt.Sprintf("gateway: %s: connection failed: %v", err.Op, err.Err)
}

func (err *ConnectionError) Unwrap() error { return err.Err }

// Retryable is always true: the request never reached the gateway, or
// its answer never came back.
func (err *ConnectionError) Retryable() bool { return true }

// HTTPError is a non-success status that carried no structured error
// envelope, or one this client maps to a sentinel.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (err *HTTPError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("gateway: HTTP %d %s", err.StatusCode, http.StatusText(err.StatusCode))
	}
	return fmt.Sprintf("gateway: HTTP %d: %s", err.StatusCode, err.Message)
}

// Retryable reports whether the status indicates a server-side
// condition (5xx).
func (err *HTTPError) Retryable() bool {
	return err.StatusCode >= 500 && err.StatusCode <= 599
}

// Is matches [ErrNotFound], [ErrConflict], and [ErrGone] by status.
func (err *HTTPError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return err.StatusCode == http.StatusNotFound
	case ErrConflict:
		return err.StatusCode == http.StatusConflict
	case ErrGone:
		return err.StatusCode == http.StatusGone
	}
	return false
}

// APIError is a structured failure reported by the gateway in its
// {"code", "message", "retryable"} envelope. The gateway's own
// Retryable judgement takes precedence over the status code.
type APIError struct {
	Code       string
	Message    string
	Retryable  bool
	StatusCode int
}

func (err *APIError) Error() string {
	return fmt.Sprintf("gateway: %s: %s", err.Code, err.Message)
}

// StreamError means an established event stream died before the server
// ended it. No synthetic event is delivered for the failure.
type StreamError struct {
	Err error

	// LastEventID is the id of the last event delivered before the
	// failure, empty if none carried an id. Pass it back when
	// reconnecting to resume.
	LastEventID string
}

func (err *StreamError) Error() string {
	if err.LastEventID == "" {
		return fmt.Sprintf("gateway: event stream interrupted: %v", err.Err)
	}
	return fmt.Sprintf("gateway: event stream interrupted after event %q: %v", err.LastEventID, err.Err)
}

func (err *StreamError) Unwrap() error { return err.Err }

// Retryable is always true: reconnecting with LastEventID resumes the
// stream.
func (err *StreamError) Retryable() bool { return true }

// DecodeError means a success response body was not the advertised
// content at all, for example HTML where JSON was expected.
type DecodeError struct {
	Op  string
	Err error
}

func (err *DecodeError) Error() string {
	return fmt.Sprintf("gateway: %s: decoding response: %v", err.Op, err.Err)
}

func (err *DecodeError) Unwrap() error { return err.Err }

// IsRetryable reports whether err is worth retrying: connection
// failures, interrupted streams, 5xx statuses, and API errors the
// gateway flagged as retryable.
func IsRetryable(err error) bool {
	var apiError *APIError
	if errors.As(err, &apiError) {
		return apiError.Retryable
	}
	var classified interface{ Retryable() bool }
	if errors.As(err, &classified) {
		return classified.Retryable()
	}
	return false
}
