// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"fmt"
	"net/url"
	"strings"
)

// EntityType names what an entity-scoped subscription follows.
type EntityType string

const (
	EntityChain  EntityType = "chain"
	EntityGroup  EntityType = "group"
	EntityAction EntityType = "action"
)

// ParseEntityType validates an entity type name.
func ParseEntityType(name string) (EntityType, error) {
	switch entityType := EntityType(name); entityType {
	case EntityChain, EntityGroup, EntityAction:
		return entityType, nil
	}
	return "", fmt.Errorf("gateway: unknown entity type %q (want chain, group, or action)", name)
}

// Entity selects the target of an entity-scoped subscription.
type Entity struct {
	Type EntityType
	ID   string

	// Namespace and Tenant scope the subscription for tenant isolation.
	// The gateway requires them for chains and groups.
	Namespace string
	Tenant    string

	// ExcludeHistory skips the catch-up events describing the entity's
	// current state that the gateway otherwise sends on connect.
	ExcludeHistory bool
}

// Chain selects a chain execution.
func Chain(namespace, tenant, chainID string) Entity {
	return Entity{Type: EntityChain, ID: chainID, Namespace: namespace, Tenant: tenant}
}

// Group selects an event group.
func Group(namespace, tenant, groupID string) Entity {
	return Entity{Type: EntityGroup, ID: groupID, Namespace: namespace, Tenant: tenant}
}

// ActionEntity selects a single dispatched action. Namespace and
// tenant may be empty.
func ActionEntity(namespace, tenant, actionID string) Entity {
	return Entity{Type: EntityAction, ID: actionID, Namespace: namespace, Tenant: tenant}
}

// String is "type/id", the form the CLI accepts.
func (entity Entity) String() string {
	return string(entity.Type) + "/" + entity.ID
}

// Validate checks the type and id.
func (entity Entity) Validate() error {
	if _, err := ParseEntityType(string(entity.Type)); err != nil {
		return err
	}
	if entity.ID == "" {
		return fmt.Errorf("gateway: %s subscription requires an id", entity.Type)
	}
	return nil
}

func (entity Entity) request() *Request {
	values := query("namespace", entity.Namespace, "tenant", entity.Tenant)
	if values == nil {
		values = url.Values{}
	}
	values.Set("include_history", fmt.Sprint(!entity.ExcludeHistory))
	return &Request{
		Method: "GET",
		Path:   escapedPath("/v1/subscribe", string(entity.Type), entity.ID),
		Query:  values,
	}
}

// StreamFilter narrows the gateway-wide event stream. Set fields are
// combined with AND by the gateway; the zero value streams everything.
type StreamFilter struct {
	Namespace  string
	ActionType string

	// Outcome filters by outcome category, for example "executed",
	// "suppressed", or "failed".
	Outcome string

	// EventType filters by stream event type, for example
	// "action_dispatched".
	EventType string

	ChainID  string
	GroupID  string
	ActionID string
}

func (filter StreamFilter) query() url.Values {
	return query(
		"namespace", filter.Namespace,
		"action_type", filter.ActionType,
		"outcome", filter.Outcome,
		"event_type", filter.EventType,
		"chain_id", filter.ChainID,
		"group_id", filter.GroupID,
		"action_id", filter.ActionID,
	)
}

// String is a stable description of the filter, usable as a key.
func (filter StreamFilter) String() string {
	encoded := filter.query().Encode()
	if encoded == "" {
		return "stream"
	}
	return "stream?" + encoded
}

func (filter StreamFilter) request() *Request {
	return &Request{
		Method: "GET",
		Path:   "/v1/stream",
		Query:  filter.query(),
	}
}

// SubscribeOption customizes how a subscription connects.
type SubscribeOption func(*subscribeOptions)

type subscribeOptions struct {
	lastEventID string
}

// WithLastEventID resumes after the given event id. The gateway
// replays what the subscriber missed. An empty id is ignored.
func WithLastEventID(id string) SubscribeOption {
	return func(options *subscribeOptions) { options.lastEventID = strings.TrimSpace(id) }
}
