// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// RecurringCreate is the body of [Client.CreateRecurring].
type RecurringCreate struct {
	Namespace      string            `json:"namespace"`
	Tenant         string            `json:"tenant"`
	Provider       string            `json:"provider"`
	ActionType     string            `json:"action_type"`
	Payload        map[string]any    `json:"payload"`
	CronExpression string            `json:"cron_expression"`
	Name           string            `json:"name,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Timezone       string            `json:"timezone,omitempty"`
	EndDate        *time.Time        `json:"end_date,omitempty"`
	MaxExecutions  *uint64           `json:"max_executions,omitempty"`
	Description    string            `json:"description,omitempty"`
	DedupKey       string            `json:"dedup_key,omitempty"`
	Labels         map[string]string `json:"labels,omitempty"`
}

// RecurringCreated is the response to [Client.CreateRecurring].
type RecurringCreated struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	Name            string     `json:"name,omitempty"`
	NextExecutionAt *time.Time `json:"next_execution_at,omitempty"`
}

// RecurringUpdate is the body of [Client.UpdateRecurring]. Nil and
// empty optional fields are left unchanged.
type RecurringUpdate struct {
	Namespace      string            `json:"namespace"`
	Tenant         string            `json:"tenant"`
	Name           *string           `json:"name,omitempty"`
	Payload        map[string]any    `json:"payload,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CronExpression *string           `json:"cron_expression,omitempty"`
	Timezone       *string           `json:"timezone,omitempty"`
	EndDate        *time.Time        `json:"end_date,omitempty"`
	MaxExecutions  *uint64           `json:"max_executions,omitempty"`
	Description    *string           `json:"description,omitempty"`
	DedupKey       *string           `json:"dedup_key,omitempty"`
	Labels         map[string]string `json:"labels,omitempty"`
}

// RecurringFilter selects recurring actions to list. Zero fields do
// not filter.
type RecurringFilter struct {
	Namespace string
	Tenant    string
	Status    string
	Limit     int
	Offset    int
}

// RecurringSummary describes one recurring action in a listing.
type RecurringSummary struct {
	ID              string     `json:"id"`
	Namespace       string     `json:"namespace"`
	Tenant          string     `json:"tenant"`
	CronExpr        string     `json:"cron_expr"`
	Timezone        string     `json:"timezone"`
	Enabled         bool       `json:"enabled"`
	Provider        string     `json:"provider"`
	ActionType      string     `json:"action_type"`
	ExecutionCount  uint64     `json:"execution_count"`
	CreatedAt       time.Time  `json:"created_at"`
	NextExecutionAt *time.Time `json:"next_execution_at,omitempty"`
	Description     string     `json:"description,omitempty"`
}

// RecurringDetail is one recurring action in full.
type RecurringDetail struct {
	RecurringSummary
	Payload        map[string]any    `json:"payload"`
	Metadata       map[string]string `json:"metadata"`
	UpdatedAt      time.Time         `json:"updated_at"`
	Labels         map[string]string `json:"labels"`
	LastExecutedAt *time.Time        `json:"last_executed_at,omitempty"`
	EndsAt         *time.Time        `json:"ends_at,omitempty"`
	DedupKey       string            `json:"dedup_key,omitempty"`
}

// CreateRecurring schedules a recurring action.
func (client *Client) CreateRecurring(ctx context.Context, create RecurringCreate) (*RecurringCreated, error) {
	if create.Payload == nil {
		create.Payload = map[string]any{}
	}
	var created RecurringCreated
	err := client.do(ctx, call{
		op:       "create recurring",
		request:  &Request{Method: http.MethodPost, Path: "/v1/recurring", Body: create},
		success:  http.StatusCreated,
		result:   &created,
		envelope: true,
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ListRecurring returns recurring actions matching filter.
func (client *Client) ListRecurring(ctx context.Context, filter RecurringFilter) ([]RecurringSummary, error) {
	values := query("namespace", filter.Namespace, "tenant", filter.Tenant, "status", filter.Status)
	if filter.Limit > 0 || filter.Offset > 0 {
		if values == nil {
			values = url.Values{}
		}
		if filter.Limit > 0 {
			values.Set("limit", strconv.Itoa(filter.Limit))
		}
		if filter.Offset > 0 {
			values.Set("offset", strconv.Itoa(filter.Offset))
		}
	}

	var list struct {
		RecurringActions []RecurringSummary `json:"recurring_actions"`
		Count            int                `json:"count"`
	}
	err := client.do(ctx, call{
		op:      "list recurring",
		request: &Request{Method: http.MethodGet, Path: "/v1/recurring", Query: values},
		result:  &list,
	})
	if err != nil {
		return nil, err
	}
	return list.RecurringActions, nil
}

// GetRecurring returns one recurring action.
func (client *Client) GetRecurring(ctx context.Context, recurringID, namespace, tenant string) (*RecurringDetail, error) {
	var detail RecurringDetail
	err := client.do(ctx, call{
		op: "get recurring",
		request: &Request{
			Method: http.MethodGet,
			Path:   escapedPath("/v1/recurring", recurringID),
			Query:  query("namespace", namespace, "tenant", tenant),
		},
		result: &detail,
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// UpdateRecurring changes the set fields of a recurring action.
func (client *Client) UpdateRecurring(ctx context.Context, recurringID string, update RecurringUpdate) (*RecurringDetail, error) {
	var detail RecurringDetail
	err := client.do(ctx, call{
		op:       "update recurring",
		request:  &Request{Method: http.MethodPut, Path: escapedPath("/v1/recurring", recurringID), Body: update},
		result:   &detail,
		envelope: true,
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// DeleteRecurring removes a recurring action.
func (client *Client) DeleteRecurring(ctx context.Context, recurringID, namespace, tenant string) error {
	return client.do(ctx, call{
		op: "delete recurring",
		request: &Request{
			Method: http.MethodDelete,
			Path:   escapedPath("/v1/recurring", recurringID),
			Query:  query("namespace", namespace, "tenant", tenant),
		},
		success: http.StatusNoContent,
	})
}

// PauseRecurring stops future executions. Pausing an already paused
// action is an error matching [ErrConflict].
func (client *Client) PauseRecurring(ctx context.Context, recurringID, namespace, tenant string) (*RecurringDetail, error) {
	return client.toggleRecurring(ctx, "pause", recurringID, namespace, tenant)
}

// ResumeRecurring restarts a paused action. Resuming an active action
// is an error matching [ErrConflict].
func (client *Client) ResumeRecurring(ctx context.Context, recurringID, namespace, tenant string) (*RecurringDetail, error) {
	return client.toggleRecurring(ctx, "resume", recurringID, namespace, tenant)
}

func (client *Client) toggleRecurring(ctx context.Context, verb, recurringID, namespace, tenant string) (*RecurringDetail, error) {
	var detail RecurringDetail
	err := client.do(ctx, call{
		op: verb + " recurring",
		request: &Request{
			Method: http.MethodPost,
			Path:   escapedPath("/v1/recurring", recurringID, verb),
			Body:   map[string]string{"namespace": namespace, "tenant": tenant},
		},
		result: &detail,
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}
