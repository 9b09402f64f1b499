// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"net/http"
	"time"
)

// GroupSummary describes an event group collecting actions for a
// batched notification.
type GroupSummary struct {
	GroupID    string     `json:"group_id"`
	GroupKey   string     `json:"group_key"`
	EventCount int        `json:"event_count"`
	State      string     `json:"state"`
	NotifyAt   *time.Time `json:"notify_at,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// GroupList is the response to [Client.ListGroups].
type GroupList struct {
	Groups []GroupSummary `json:"groups"`
	Total  int            `json:"total"`
}

// GroupDetail is one group with its member events.
type GroupDetail struct {
	Group  GroupSummary      `json:"group"`
	Events []string          `json:"events"`
	Labels map[string]string `json:"labels"`
}

// FlushResult reports a forced group flush.
type FlushResult struct {
	GroupID    string `json:"group_id"`
	EventCount int    `json:"event_count"`
	Notified   bool   `json:"notified"`
}

// ListGroups returns all active event groups.
func (client *Client) ListGroups(ctx context.Context) (*GroupList, error) {
	var list GroupList
	err := client.do(ctx, call{
		op:      "list groups",
		request: &Request{Method: http.MethodGet, Path: "/v1/groups"},
		result:  &list,
	})
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// GetGroup returns one group. A missing group is an error matching
// [ErrNotFound].
func (client *Client) GetGroup(ctx context.Context, groupKey string) (*GroupDetail, error) {
	var detail GroupDetail
	err := client.do(ctx, call{
		op:      "get group",
		request: &Request{Method: http.MethodGet, Path: escapedPath("/v1/groups", groupKey)},
		result:  &detail,
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// FlushGroup forces a group's notification now.
func (client *Client) FlushGroup(ctx context.Context, groupKey string) (*FlushResult, error) {
	var result FlushResult
	err := client.do(ctx, call{
		op:       "flush group",
		request:  &Request{Method: http.MethodDelete, Path: escapedPath("/v1/groups", groupKey)},
		result:   &result,
		envelope: true,
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
