// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"net/http"
	"time"
)

// EventState is the lifecycle position of one event, identified by
// its fingerprint.
type EventState struct {
	Fingerprint string     `json:"fingerprint"`
	State       string     `json:"state"`
	ActionType  string     `json:"action_type,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// EventTransition reports a state change.
type EventTransition struct {
	Fingerprint   string `json:"fingerprint"`
	PreviousState string `json:"previous_state"`
	NewState      string `json:"new_state"`
	Notify        bool   `json:"notify"`
}

// ListEvents returns events in a namespace and tenant. An empty status
// lists all of them; a limit of zero leaves the page size to the
// gateway.
func (client *Client) ListEvents(ctx context.Context, namespace, tenant, status string, limit int) ([]EventState, error) {
	var list struct {
		Events []EventState `json:"events"`
	}
	err := client.do(ctx, call{
		op: "list events",
		request: &Request{
			Method: http.MethodGet,
			Path:   "/v1/events",
			Query:  setPositive(query("namespace", namespace, "tenant", tenant, "status", status), "limit", limit),
		},
		result: &list,
	})
	if err != nil {
		return nil, err
	}
	return list.Events, nil
}

// GetEvent returns the current state of one event. A missing event is
// an error matching [ErrNotFound].
func (client *Client) GetEvent(ctx context.Context, fingerprint, namespace, tenant string) (*EventState, error) {
	var event EventState
	err := client.do(ctx, call{
		op: "get event",
		request: &Request{
			Method: http.MethodGet,
			Path:   escapedPath("/v1/events", fingerprint),
			Query:  query("namespace", namespace, "tenant", tenant),
		},
		result: &event,
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// TransitionEvent moves an event to state. A transition the state
// machine does not allow comes back as an [*APIError].
func (client *Client) TransitionEvent(ctx context.Context, fingerprint, state, namespace, tenant string) (*EventTransition, error) {
	var transition EventTransition
	err := client.do(ctx, call{
		op: "transition event",
		request: &Request{
			Method: http.MethodPut,
			Path:   escapedPath("/v1/events", fingerprint, "transition"),
			Body: map[string]string{
				"to":        state,
				"namespace": namespace,
				"tenant":    tenant,
			},
		},
		result:   &transition,
		envelope: true,
	})
	if err != nil {
		return nil, err
	}
	return &transition, nil
}
