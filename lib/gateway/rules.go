// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/acteon/acteon-go/lib/dispatch"
)

// RuleInfo describes one loaded rule.
type RuleInfo struct {
	Name        string `json:"name"`
	Priority    int32  `json:"priority"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description,omitempty"`
}

// ReloadResult reports a rule reload.
type ReloadResult struct {
	Loaded int      `json:"loaded"`
	Errors []string `json:"errors"`
}

// ListRules returns every loaded rule.
func (client *Client) ListRules(ctx context.Context) ([]RuleInfo, error) {
	var rules []RuleInfo
	err := client.do(ctx, call{
		op:      "list rules",
		request: &Request{Method: http.MethodGet, Path: "/v1/rules"},
		result:  &rules,
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// ReloadRules makes the gateway reload rules from its rule directory.
func (client *Client) ReloadRules(ctx context.Context) (*ReloadResult, error) {
	var result ReloadResult
	err := client.do(ctx, call{
		op:      "reload rules",
		request: &Request{Method: http.MethodPost, Path: "/v1/rules/reload"},
		result:  &result,
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SetRuleEnabled enables or disables one rule by name.
func (client *Client) SetRuleEnabled(ctx context.Context, name string, enabled bool) error {
	return client.do(ctx, call{
		op: "set rule enabled",
		request: &Request{
			Method: http.MethodPut,
			Path:   escapedPath("/v1/rules", name, "enabled"),
			Body:   map[string]bool{"enabled": enabled},
		},
	})
}

// RuleEvaluation asks which rules would fire for an action, without
// dispatching it.
type RuleEvaluation struct {
	Action dispatch.Action

	// IncludeDisabled evaluates disabled rules too.
	IncludeDisabled bool

	// EvaluateAll keeps evaluating after the first match.
	EvaluateAll bool

	// At evaluates time-based conditions as of this instant. Zero means
	// now.
	At time.Time

	// MockState stands in for gateway state keys the rules read.
	MockState map[string]string
}

// RuleTrace is the evaluation of one rule.
type RuleTrace struct {
	RuleName           string          `json:"rule_name"`
	Priority           int             `json:"priority"`
	Enabled            bool            `json:"enabled"`
	ConditionDisplay   string          `json:"condition_display"`
	Result             string          `json:"result"`
	EvaluationDuration int64           `json:"evaluation_duration_us"`
	Action             string          `json:"action"`
	Source             string          `json:"source"`
	Description        string          `json:"description,omitempty"`
	SkipReason         string          `json:"skip_reason,omitempty"`
	Error              string          `json:"error,omitempty"`
	ModifyPatch        json.RawMessage `json:"modify_patch,omitempty"`
}

// RuleEvaluationResult is the gateway's verdict with a per-rule trace.
type RuleEvaluationResult struct {
	Verdict             string          `json:"verdict"`
	MatchedRule         string          `json:"matched_rule,omitempty"`
	HasErrors           bool            `json:"has_errors"`
	TotalRulesEvaluated int             `json:"total_rules_evaluated"`
	TotalRulesSkipped   int             `json:"total_rules_skipped"`
	EvaluationDuration  int64           `json:"evaluation_duration_us"`
	Trace               []RuleTrace     `json:"trace"`
	ModifiedPayload     json.RawMessage `json:"modified_payload,omitempty"`
}

// EvaluateRules runs the rule set against evaluation.Action and
// returns the verdict and trace. Nothing is dispatched and no state
// changes.
func (client *Client) EvaluateRules(ctx context.Context, evaluation RuleEvaluation) (*RuleEvaluationResult, error) {
	action := evaluation.Action
	if err := action.Validate(); err != nil {
		return nil, fmt.Errorf("gateway: evaluate rules: %w", err)
	}
	body := struct {
		Namespace       string            `json:"namespace"`
		Tenant          string            `json:"tenant"`
		Provider        string            `json:"provider"`
		ActionType      string            `json:"action_type"`
		Payload         map[string]any    `json:"payload"`
		Metadata        map[string]string `json:"metadata,omitempty"`
		IncludeDisabled bool              `json:"include_disabled,omitempty"`
		EvaluateAll     bool              `json:"evaluate_all,omitempty"`
		EvaluateAt      string            `json:"evaluate_at,omitempty"`
		MockState       map[string]string `json:"mock_state,omitempty"`
	}{
		Namespace:       action.Namespace,
		Tenant:          action.Tenant,
		Provider:        action.Provider,
		ActionType:      action.ActionType,
		Payload:         action.Payload,
		Metadata:        action.Metadata,
		IncludeDisabled: evaluation.IncludeDisabled,
		EvaluateAll:     evaluation.EvaluateAll,
		EvaluateAt:      formatTime(evaluation.At),
		MockState:       evaluation.MockState,
	}
	if body.Payload == nil {
		body.Payload = map[string]any{}
	}

	var result RuleEvaluationResult
	err := client.do(ctx, call{
		op:       "evaluate rules",
		request:  &Request{Method: http.MethodPost, Path: "/v1/rules/evaluate", Body: body},
		result:   &result,
		envelope: true,
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
