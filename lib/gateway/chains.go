// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Chain execution statuses.
const (
	ChainRunning   = "running"
	ChainCompleted = "completed"
	ChainFailed    = "failed"
	ChainCancelled = "cancelled"
	ChainTimedOut  = "timed_out"
)

// ChainSummary describes one chain execution.
type ChainSummary struct {
	ChainID       string    `json:"chain_id"`
	ChainName     string    `json:"chain_name"`
	Status        string    `json:"status"`
	CurrentStep   int       `json:"current_step"`
	TotalSteps    int       `json:"total_steps"`
	StartedAt     time.Time `json:"started_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ParentChainID string    `json:"parent_chain_id,omitempty"`
}

// ChainStep is the state of one step in a chain execution.
type ChainStep struct {
	Name         string          `json:"name"`
	Provider     string          `json:"provider"`
	Status       string          `json:"status"`
	ResponseBody json.RawMessage `json:"response_body,omitempty"`
	Error        string          `json:"error,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	SubChain     string          `json:"sub_chain,omitempty"`
	ChildChainID string          `json:"child_chain_id,omitempty"`
}

// ChainDetail is a chain execution with per-step state.
type ChainDetail struct {
	ChainSummary
	Steps         []ChainStep `json:"steps"`
	ExpiresAt     *time.Time  `json:"expires_at,omitempty"`
	CancelReason  string      `json:"cancel_reason,omitempty"`
	CancelledBy   string      `json:"cancelled_by,omitempty"`
	ExecutionPath []string    `json:"execution_path"`
	ChildChainIDs []string    `json:"child_chain_ids"`
}

// ChainCancel carries the optional fields of a cancellation.
type ChainCancel struct {
	Reason      string
	CancelledBy string
}

// ListChains returns chain executions in a namespace and tenant. An
// empty status lists all of them.
func (client *Client) ListChains(ctx context.Context, namespace, tenant, status string) ([]ChainSummary, error) {
	var list struct {
		Chains []ChainSummary `json:"chains"`
	}
	err := client.do(ctx, call{
		op: "list chains",
		request: &Request{
			Method: http.MethodGet,
			Path:   "/v1/chains",
			Query:  query("namespace", namespace, "tenant", tenant, "status", status),
		},
		result: &list,
	})
	if err != nil {
		return nil, err
	}
	return list.Chains, nil
}

// GetChain returns one chain execution. A missing chain is an error
// matching [ErrNotFound].
func (client *Client) GetChain(ctx context.Context, chainID, namespace, tenant string) (*ChainDetail, error) {
	var detail ChainDetail
	err := client.do(ctx, call{
		op: "get chain",
		request: &Request{
			Method: http.MethodGet,
			Path:   escapedPath("/v1/chains", chainID),
			Query:  query("namespace", namespace, "tenant", tenant),
		},
		result: &detail,
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// CancelChain stops a running chain. A chain that is not running is an
// error matching [ErrConflict].
func (client *Client) CancelChain(ctx context.Context, chainID, namespace, tenant string, cancel ChainCancel) (*ChainDetail, error) {
	body := struct {
		Namespace   string `json:"namespace"`
		Tenant      string `json:"tenant"`
		Reason      string `json:"reason,omitempty"`
		CancelledBy string `json:"cancelled_by,omitempty"`
	}{namespace, tenant, cancel.Reason, cancel.CancelledBy}

	var detail ChainDetail
	err := client.do(ctx, call{
		op: "cancel chain",
		request: &Request{
			Method: http.MethodPost,
			Path:   escapedPath("/v1/chains", chainID, "cancel"),
			Body:   body,
		},
		result: &detail,
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}
