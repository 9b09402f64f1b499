// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"net/http"
	"time"
)

// QuotaPolicy limits how many actions a tenant may dispatch per
// window.
type QuotaPolicy struct {
	ID              string            `json:"id"`
	Namespace       string            `json:"namespace"`
	Tenant          string            `json:"tenant"`
	MaxActions      uint64            `json:"max_actions"`
	Window          string            `json:"window"`
	OverageBehavior string            `json:"overage_behavior"`
	Enabled         bool              `json:"enabled"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Description     string            `json:"description,omitempty"`
	Labels          map[string]string `json:"labels,omitempty"`
}

// QuotaCreate is the body of [Client.CreateQuota].
type QuotaCreate struct {
	Namespace       string            `json:"namespace"`
	Tenant          string            `json:"tenant"`
	MaxActions      uint64            `json:"max_actions"`
	Window          string            `json:"window"`
	OverageBehavior string            `json:"overage_behavior"`
	Description     string            `json:"description,omitempty"`
	Labels          map[string]string `json:"labels,omitempty"`
}

// QuotaUpdate is the body of [Client.UpdateQuota]. Nil fields are left
// unchanged.
type QuotaUpdate struct {
	Namespace       string  `json:"namespace"`
	Tenant          string  `json:"tenant"`
	MaxActions      *uint64 `json:"max_actions,omitempty"`
	Window          *string `json:"window,omitempty"`
	OverageBehavior *string `json:"overage_behavior,omitempty"`
	Description     *string `json:"description,omitempty"`
	Enabled         *bool   `json:"enabled,omitempty"`
}

// QuotaUsage is a quota's consumption in its current window.
type QuotaUsage struct {
	Tenant          string    `json:"tenant"`
	Namespace       string    `json:"namespace"`
	Used            uint64    `json:"used"`
	Limit           uint64    `json:"limit"`
	Remaining       uint64    `json:"remaining"`
	Window          string    `json:"window"`
	ResetsAt        time.Time `json:"resets_at"`
	OverageBehavior string    `json:"overage_behavior"`
}

// CreateQuota creates a quota policy.
func (client *Client) CreateQuota(ctx context.Context, create QuotaCreate) (*QuotaPolicy, error) {
	var policy QuotaPolicy
	err := client.do(ctx, call{
		op:       "create quota",
		request:  &Request{Method: http.MethodPost, Path: "/v1/quotas", Body: create},
		success:  http.StatusCreated,
		result:   &policy,
		envelope: true,
	})
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

// ListQuotas returns quota policies, optionally filtered.
func (client *Client) ListQuotas(ctx context.Context, namespace, tenant string) ([]QuotaPolicy, error) {
	var list struct {
		Quotas []QuotaPolicy `json:"quotas"`
		Count  int           `json:"count"`
	}
	err := client.do(ctx, call{
		op: "list quotas",
		request: &Request{
			Method: http.MethodGet,
			Path:   "/v1/quotas",
			Query:  query("namespace", namespace, "tenant", tenant),
		},
		result: &list,
	})
	if err != nil {
		return nil, err
	}
	return list.Quotas, nil
}

// GetQuota returns one quota policy.
func (client *Client) GetQuota(ctx context.Context, quotaID string) (*QuotaPolicy, error) {
	var policy QuotaPolicy
	err := client.do(ctx, call{
		op:      "get quota",
		request: &Request{Method: http.MethodGet, Path: escapedPath("/v1/quotas", quotaID)},
		result:  &policy,
	})
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

// UpdateQuota changes the non-nil fields of a quota policy.
func (client *Client) UpdateQuota(ctx context.Context, quotaID string, update QuotaUpdate) (*QuotaPolicy, error) {
	var policy QuotaPolicy
	err := client.do(ctx, call{
		op:       "update quota",
		request:  &Request{Method: http.MethodPut, Path: escapedPath("/v1/quotas", quotaID), Body: update},
		result:   &policy,
		envelope: true,
	})
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

// DeleteQuota removes a quota policy.
func (client *Client) DeleteQuota(ctx context.Context, quotaID, namespace, tenant string) error {
	return client.do(ctx, call{
		op: "delete quota",
		request: &Request{
			Method: http.MethodDelete,
			Path:   escapedPath("/v1/quotas", quotaID),
			Query:  query("namespace", namespace, "tenant", tenant),
		},
		success: http.StatusNoContent,
	})
}

// GetQuotaUsage returns a quota's current consumption.
func (client *Client) GetQuotaUsage(ctx context.Context, quotaID string) (*QuotaUsage, error) {
	var usage QuotaUsage
	err := client.do(ctx, call{
		op:      "get quota usage",
		request: &Request{Method: http.MethodGet, Path: escapedPath("/v1/quotas", quotaID, "usage")},
		result:  &usage,
	})
	if err != nil {
		return nil, err
	}
	return &usage, nil
}
