// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is a unit of work submitted to the gateway for dispatch.
// Construct with [NewAction]; treat the value as immutable afterwards.
type Action struct {
	// ID uniquely identifies this dispatch. NewAction generates a
	// random UUID unless [WithID] supplies one.
	ID string

	Namespace  string
	Tenant     string
	Provider   string
	ActionType string

	// Payload is the provider-specific body. A nil payload is sent
	// as an empty JSON object.
	Payload map[string]any

	// DedupKey, when non-empty, lets the gateway suppress repeated
	// dispatches of the same logical action.
	DedupKey string

	// Metadata is sent as the action's label set.
	Metadata map[string]string

	CreatedAt time.Time
}

// ActionOption customizes an Action built by [NewAction].
type ActionOption func(*Action)

// WithID sets a caller-supplied action identifier.
func WithID(id string) ActionOption {
	return func(action *Action) { action.ID = id }
}

// WithDedupKey sets the deduplication key.
func WithDedupKey(key string) ActionOption {
	return func(action *Action) { action.DedupKey = key }
}

// WithMetadata sets the action's metadata labels. The map is copied.
func WithMetadata(labels map[string]string) ActionOption {
	return func(action *Action) {
		if labels == nil {
			action.Metadata = nil
			return
		}
		copied := make(map[string]string, len(labels))
		for key, value := range labels {
			copied[key] = value
		}
		action.Metadata = copied
	}
}

// WithCreatedAt overrides the creation timestamp (default: now, UTC).
func WithCreatedAt(createdAt time.Time) ActionOption {
	return func(action *Action) { action.CreatedAt = createdAt.UTC() }
}

// NewAction builds an Action with a generated identifier and the
// current time as its creation timestamp.
func NewAction(namespace, tenant, provider, actionType string, payload map[string]any, options ...ActionOption) Action {
	action := Action{
		ID:         uuid.NewString(),
		Namespace:  namespace,
		Tenant:     tenant,
		Provider:   provider,
		ActionType: actionType,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
	}
	for _, option := range options {
		option(&action)
	}
	return action
}

// Validate reports the first missing required field.
func (action Action) Validate() error {
	switch {
	case action.ID == "":
		return errors.New("action: id is required")
	case action.Namespace == "":
		return errors.New("action: namespace is required")
	case action.Tenant == "":
		return errors.New("action: tenant is required")
	case action.Provider == "":
		return errors.New("action: provider is required")
	case action.ActionType == "":
		return errors.New("action: action_type is required")
	}
	return nil
}

// actionMetadata is the wire shape of Action.Metadata.
type actionMetadata struct {
	Labels map[string]string `json:"labels"`
}

// wireAction is the gateway's JSON representation of an Action.
type wireAction struct {
	ID         string          `json:"id"`
	Namespace  string          `json:"namespace"`
	Tenant     string          `json:"tenant"`
	Provider   string          `json:"provider"`
	ActionType string          `json:"action_type"`
	Payload    map[string]any  `json:"payload"`
	DedupKey   string          `json:"dedup_key,omitempty"`
	Metadata   *actionMetadata `json:"metadata,omitempty"`
	CreatedAt  string          `json:"created_at"`
}

// MarshalJSON encodes the action in the gateway's wire format.
func (action Action) MarshalJSON() ([]byte, error) {
	wire := wireAction{
		ID:         action.ID,
		Namespace:  action.Namespace,
		Tenant:     action.Tenant,
		Provider:   action.Provider,
		ActionType: action.ActionType,
		Payload:    action.Payload,
		DedupKey:   action.DedupKey,
		CreatedAt:  action.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if wire.Payload == nil {
		wire.Payload = map[string]any{}
	}
	if len(action.Metadata) > 0 {
		wire.Metadata = &actionMetadata{Labels: action.Metadata}
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes the gateway wire format. A missing id is
// generated and a missing created_at becomes the current time, so
// hand-written action files only need the routing fields.
func (action *Action) UnmarshalJSON(data []byte) error {
	var wire wireAction
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	decoded := Action{
		ID:         wire.ID,
		Namespace:  wire.Namespace,
		Tenant:     wire.Tenant,
		Provider:   wire.Provider,
		ActionType: wire.ActionType,
		Payload:    wire.Payload,
		DedupKey:   wire.DedupKey,
	}
	if wire.Metadata != nil {
		decoded.Metadata = wire.Metadata.Labels
	}
	if decoded.ID == "" {
		decoded.ID = uuid.NewString()
	}
	if wire.CreatedAt == "" {
		decoded.CreatedAt = time.Now().UTC()
	} else {
		createdAt, err := time.Parse(time.RFC3339Nano, wire.CreatedAt)
		if err != nil {
			return fmt.Errorf("action: parsing created_at: %w", err)
		}
		decoded.CreatedAt = createdAt.UTC()
	}
	*action = decoded
	return nil
}
