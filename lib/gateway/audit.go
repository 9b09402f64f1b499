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

// AuditRecord is the gateway's record of one dispatched action.
type AuditRecord struct {
	ID           string    `json:"id"`
	ActionID     string    `json:"action_id"`
	Namespace    string    `json:"namespace"`
	Tenant       string    `json:"tenant"`
	Provider     string    `json:"provider"`
	ActionType   string    `json:"action_type"`
	Verdict      string    `json:"verdict"`
	Outcome      string    `json:"outcome"`
	MatchedRule  string    `json:"matched_rule,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	DispatchedAt time.Time `json:"dispatched_at"`
}

// AuditPage is one page of audit query results.
type AuditPage struct {
	Records []AuditRecord `json:"records"`
	Total   int64         `json:"total"`
	Limit   int64         `json:"limit"`
	Offset  int64         `json:"offset"`
}

// AuditQuery narrows an audit query. Zero fields are not sent.
type AuditQuery struct {
	Namespace  string
	Tenant     string
	Provider   string
	ActionType string
	Outcome    string
	Limit      int
	Offset     int
}

func (auditQuery AuditQuery) values() url.Values {
	values := query(
		"namespace", auditQuery.Namespace,
		"tenant", auditQuery.Tenant,
		"provider", auditQuery.Provider,
		"action_type", auditQuery.ActionType,
		"outcome", auditQuery.Outcome,
	)
	values = setPositive(values, "limit", auditQuery.Limit)
	return setPositive(values, "offset", auditQuery.Offset)
}

// ReplayQuery selects audit records for a bulk replay. Zero fields are
// not sent; From and To bound the dispatch time when set.
type ReplayQuery struct {
	Namespace   string
	Tenant      string
	Provider    string
	ActionType  string
	Outcome     string
	Verdict     string
	MatchedRule string
	From        time.Time
	To          time.Time
	Limit       int
}

func (replayQuery ReplayQuery) values() url.Values {
	values := query(
		"namespace", replayQuery.Namespace,
		"tenant", replayQuery.Tenant,
		"provider", replayQuery.Provider,
		"action_type", replayQuery.ActionType,
		"outcome", replayQuery.Outcome,
		"verdict", replayQuery.Verdict,
		"matched_rule", replayQuery.MatchedRule,
		"from", formatTime(replayQuery.From),
		"to", formatTime(replayQuery.To),
	)
	return setPositive(values, "limit", replayQuery.Limit)
}

// ReplayResult reports the replay of one audited action.
type ReplayResult struct {
	OriginalActionID string `json:"original_action_id"`
	NewActionID      string `json:"new_action_id"`
	Success          bool   `json:"success"`
	Error            string `json:"error,omitempty"`
}

// ReplaySummary reports a bulk replay.
type ReplaySummary struct {
	Replayed int            `json:"replayed"`
	Failed   int            `json:"failed"`
	Skipped  int            `json:"skipped"`
	Results  []ReplayResult `json:"results"`
}

// QueryAudit returns audit records matching auditQuery.
func (client *Client) QueryAudit(ctx context.Context, auditQuery AuditQuery) (*AuditPage, error) {
	var page AuditPage
	err := client.do(ctx, call{
		op:      "query audit",
		request: &Request{Method: http.MethodGet, Path: "/v1/audit", Query: auditQuery.values()},
		result:  &page,
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetAuditRecord returns the audit record of one action. A missing
// record is an error matching [ErrNotFound].
func (client *Client) GetAuditRecord(ctx context.Context, actionID string) (*AuditRecord, error) {
	var record AuditRecord
	err := client.do(ctx, call{
		op:      "get audit record",
		request: &Request{Method: http.MethodGet, Path: escapedPath("/v1/audit", actionID)},
		result:  &record,
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ReplayAction dispatches a stored action again under a new id. The
// gateway answers 422 when it kept no payload for the action.
func (client *Client) ReplayAction(ctx context.Context, actionID string) (*ReplayResult, error) {
	var result ReplayResult
	err := client.do(ctx, call{
		op:       "replay action",
		request:  &Request{Method: http.MethodPost, Path: escapedPath("/v1/audit", actionID, "replay")},
		result:   &result,
		envelope: true,
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ReplayAudit replays every stored action matching replayQuery.
func (client *Client) ReplayAudit(ctx context.Context, replayQuery ReplayQuery) (*ReplaySummary, error) {
	var summary ReplaySummary
	err := client.do(ctx, call{
		op:       "replay audit",
		request:  &Request{Method: http.MethodPost, Path: "/v1/audit/replay", Query: replayQuery.values()},
		result:   &summary,
		envelope: true,
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// setPositive adds key=value to values when value is positive.
func setPositive(values url.Values, key string, value int) url.Values {
	if value <= 0 {
		return values
	}
	if values == nil {
		values = url.Values{}
	}
	values.Set(key, strconv.Itoa(value))
	return values
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
