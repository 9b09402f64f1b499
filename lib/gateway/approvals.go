// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/acteon/acteon-go/lib/dispatch"
)

// ApprovalLink identifies one approval and carries the signed link
// parameters the gateway issued for it.
type ApprovalLink struct {
	Namespace string
	Tenant    string
	ID        string

	// Signature is the HMAC-SHA256 signature from the approval link.
	Signature string

	// ExpiresAt is the expiry bound into the signature.
	ExpiresAt time.Time

	// KeyID names the HMAC key that signed the link, empty for the
	// default key.
	KeyID string
}

func (link ApprovalLink) path(suffix ...string) string {
	return escapedPath("/v1/approvals", append([]string{link.Namespace, link.Tenant, link.ID}, suffix...)...)
}

func (link ApprovalLink) query() url.Values {
	values := url.Values{
		"sig":        {link.Signature},
		"expires_at": {strconv.FormatInt(link.ExpiresAt.Unix(), 10)},
	}
	if link.KeyID != "" {
		values.Set("kid", link.KeyID)
	}
	return values
}

// ApprovalStatus is the public view of an approval. The action payload
// is never exposed.
type ApprovalStatus struct {
	Token     string     `json:"token"`
	Status    string     `json:"status"`
	Rule      string     `json:"rule"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// ApprovalDecision is the response to an approve or reject call.
type ApprovalDecision struct {
	ID     string `json:"id"`
	Status string `json:"status"`

	// RawOutcome is the dispatch outcome of an approved action, nil
	// when the action was rejected or has not run.
	RawOutcome json.RawMessage `json:"outcome,omitempty"`
}

// Outcome decodes RawOutcome. The second result is false when there
// is none.
func (decision ApprovalDecision) Outcome() (dispatch.Outcome, bool) {
	if len(decision.RawOutcome) == 0 || string(decision.RawOutcome) == "null" {
		return nil, false
	}
	return dispatch.Decode(decision.RawOutcome), true
}

// ListApprovals returns pending approvals for a namespace and tenant.
func (client *Client) ListApprovals(ctx context.Context, namespace, tenant string) ([]ApprovalStatus, error) {
	var list struct {
		Approvals []ApprovalStatus `json:"approvals"`
		Count     int              `json:"count"`
	}
	err := client.do(ctx, call{
		op: "list approvals",
		request: &Request{
			Method: http.MethodGet,
			Path:   "/v1/approvals",
			Query:  query("namespace", namespace, "tenant", tenant),
		},
		result: &list,
	})
	if err != nil {
		return nil, err
	}
	return list.Approvals, nil
}

// GetApproval returns an approval's status. An unknown or expired
// approval is an error matching [ErrNotFound].
func (client *Client) GetApproval(ctx context.Context, link ApprovalLink) (*ApprovalStatus, error) {
	var status ApprovalStatus
	err := client.do(ctx, call{
		op:      "get approval",
		request: &Request{Method: http.MethodGet, Path: link.path(), Query: link.query()},
		result:  &status,
	})
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// Approve approves a pending action, which then dispatches. An
// approval already decided is an error matching [ErrGone].
func (client *Client) Approve(ctx context.Context, link ApprovalLink) (*ApprovalDecision, error) {
	return client.decide(ctx, "approve", link)
}

// Reject rejects a pending action. An approval already decided is an
// error matching [ErrGone].
func (client *Client) Reject(ctx context.Context, link ApprovalLink) (*ApprovalDecision, error) {
	return client.decide(ctx, "reject", link)
}

func (client *Client) decide(ctx context.Context, verb string, link ApprovalLink) (*ApprovalDecision, error) {
	var decision ApprovalDecision
	err := client.do(ctx, call{
		op:      verb,
		request: &Request{Method: http.MethodPost, Path: link.path(verb), Query: link.query()},
		result:  &decision,
	})
	if err != nil {
		return nil, err
	}
	return &decision, nil
}
