// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package sse

import (
	"encoding/json"
	"errors"
)

// DefaultEventType is the event type of an event with no "event:" field.
const DefaultEventType = "message"

// LaggedEventType is the event type the gateway uses to tell a slow
// subscriber that events were dropped on its behalf.
const LaggedEventType = "lagged"

// ErrNotJSON is returned by [Event.Decode] when the event's data was
// not valid JSON.
var ErrNotJSON = errors.New("sse: event data is not JSON")

// Event is one Server-Sent Event.
type Event struct {
	// Type is the value of the "event:" field, empty if the event had
	// none. See [Event.Name].
	Type string

	// ID is the value of the "id:" field, empty if the event had none.
	// Callers resuming a stream pass the last non-empty ID back to the
	// server.
	ID string

	// Data is the joined data lines when they form valid JSON, nil
	// otherwise.
	Data json.RawMessage

	// Text is the joined data lines verbatim, whether or not they are
	// JSON.
	Text string
}

// Name returns the event type, or [DefaultEventType] if none was given.
func (event Event) Name() string {
	if event.Type == "" {
		return DefaultEventType
	}
	return event.Type
}

// IsJSON reports whether the event's data parsed as JSON.
func (event Event) IsJSON() bool {
	return event.Data != nil
}

// Value returns the event's data as a generic value: the decoded JSON
// value when the data is JSON, the raw text otherwise.
func (event Event) Value() any {
	if event.Data == nil {
		return event.Text
	}
	var value any
	if err := json.Unmarshal(event.Data, &value); err != nil {
		return event.Text
	}
	return value
}

// Decode unmarshals the event's JSON data into target. It returns
// [ErrNotJSON] when the data was not JSON.
func (event Event) Decode(target any) error {
	if event.Data == nil {
		return ErrNotJSON
	}
	return json.Unmarshal(event.Data, target)
}

// Lagged reports how many events the server skipped when this is a
// lag notice, and whether it is one.
func (event Event) Lagged() (uint64, bool) {
	if event.Type != LaggedEventType {
		return 0, false
	}
	var notice struct {
		Skipped uint64 `json:"skipped"`
	}
	_ = event.Decode(&notice)
	return notice.Skipped, true
}
