// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/acteon/acteon-go/lib/dispatch"
)

// DispatchOption customizes a dispatch call.
type DispatchOption func(*dispatchOptions)

type dispatchOptions struct {
	dryRun bool
}

// WithDryRun asks the gateway to evaluate rules without executing the
// action or mutating state. The outcome is a [dispatch.DryRun].
func WithDryRun() DispatchOption {
	return func(options *dispatchOptions) { options.dryRun = true }
}

func dispatchQuery(options []DispatchOption) url.Values {
	var resolved dispatchOptions
	for _, option := range options {
		option(&resolved)
	}
	if resolved.dryRun {
		return url.Values{"dry_run": {"true"}}
	}
	return nil
}

// Health reports whether the gateway answers its health check. A nil
// error means healthy.
func (client *Client) Health(ctx context.Context) error {
	return client.do(ctx, call{
		op:      "health",
		request: &Request{Method: http.MethodGet, Path: "/health"},
	})
}

// Dispatch submits one action and decodes its outcome. A tag this
// client does not know decodes to [dispatch.Unknown], not an error.
func (client *Client) Dispatch(ctx context.Context, action dispatch.Action, options ...DispatchOption) (dispatch.Outcome, error) {
	if err := action.Validate(); err != nil {
		return nil, fmt.Errorf("gateway: dispatch: %w", err)
	}

	var raw json.RawMessage
	err := client.do(ctx, call{
		op: "dispatch",
		request: &Request{
			Method: http.MethodPost,
			Path:   "/v1/dispatch",
			Query:  dispatchQuery(options),
			Body:   action,
		},
		result:   &raw,
		envelope: true,
	})
	if err != nil {
		return nil, err
	}

	outcome := dispatch.Decode(raw)
	client.logger.Debug("action dispatched",
		"action_id", action.ID,
		"outcome", outcome.Kind(),
	)
	return outcome, nil
}

// DispatchDryRun is Dispatch with [WithDryRun].
func (client *Client) DispatchDryRun(ctx context.Context, action dispatch.Action) (dispatch.Outcome, error) {
	return client.Dispatch(ctx, action, WithDryRun())
}

// DispatchBatch submits actions in one request. The result has one
// slot per action, in order; a slot holds either an outcome or the
// gateway's per-item error. The call itself fails only when the whole
// request does.
func (client *Client) DispatchBatch(ctx context.Context, actions []dispatch.Action, options ...DispatchOption) ([]dispatch.BatchResult, error) {
	for index, action := range actions {
		if err := action.Validate(); err != nil {
			return nil, fmt.Errorf("gateway: dispatch batch: action %d: %w", index, err)
		}
	}
	if actions == nil {
		actions = []dispatch.Action{}
	}

	var raw json.RawMessage
	err := client.do(ctx, call{
		op: "dispatch batch",
		request: &Request{
			Method: http.MethodPost,
			Path:   "/v1/dispatch/batch",
			Query:  dispatchQuery(options),
			Body:   actions,
		},
		result:   &raw,
		envelope: true,
	})
	if err != nil {
		return nil, err
	}

	results, err := dispatch.DecodeBatch(raw)
	if err != nil {
		return nil, &DecodeError{Op: "dispatch batch", Err: err}
	}
	if len(results) != len(actions) {
		client.logger.Warn("batch result count differs from submitted actions",
			"submitted", len(actions),
			"results", len(results),
		)
	}
	return results, nil
}

// DispatchBatchDryRun is DispatchBatch with [WithDryRun].
func (client *Client) DispatchBatchDryRun(ctx context.Context, actions []dispatch.Action) ([]dispatch.BatchResult, error) {
	return client.DispatchBatch(ctx, actions, WithDryRun())
}
