// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Kind names an Outcome variant.
type Kind string

const (
	KindExecuted      Kind = "executed"
	KindDeduplicated  Kind = "deduplicated"
	KindSuppressed    Kind = "suppressed"
	KindRerouted      Kind = "rerouted"
	KindThrottled     Kind = "throttled"
	KindFailed        Kind = "failed"
	KindDryRun        Kind = "dry_run"
	KindScheduled     Kind = "scheduled"
	KindQuotaExceeded Kind = "quota_exceeded"
	KindUnknown       Kind = "unknown"
)

// Outcome is the result of dispatching one action. The set of
// implementations is closed: callers switch on the concrete type.
//
//	switch outcome := outcome.(type) {
//	case dispatch.Executed:
//	    use(outcome.Response)
//	case dispatch.Throttled:
//	    retryLater(outcome.Duration())
//	case dispatch.Unknown:
//	    logger.Warn("unrecognized outcome", "tag", outcome.Tag)
//	}
type Outcome interface {
	Kind() Kind
	fmt.Stringer
	sealed()
}

// ProviderResponse is what a provider returned after running an action.
type ProviderResponse struct {
	// Status is "success", "failure", or "partial".
	Status string

	// Body is the provider-specific response body, nil if the gateway
	// sent none.
	Body json.RawMessage

	// Headers is nil if the gateway sent none.
	Headers map[string]string
}

// Executed means the provider accepted and ran the action.
type Executed struct {
	Response ProviderResponse
}

// Deduplicated means an identical recent or in-flight action (same
// dedup key) suppressed re-execution.
type Deduplicated struct{}

// Suppressed means a rule blocked execution.
type Suppressed struct {
	// Rule names the rule that fired.
	Rule string
}

// Rerouted means a rule redirected the action to another provider
// before it ran.
type Rerouted struct {
	OriginalProvider string
	NewProvider      string
	Response         ProviderResponse
}

// Throttled means rate limiting deferred the action.
type Throttled struct {
	// RetryAfter is the advised wait before resubmitting, in seconds.
	RetryAfter float64
}

// Failed is a terminal dispatch failure. Error is the gateway's
// structured detail, kept opaque; see [Failed.Detail].
type Failed struct {
	Error json.RawMessage
}

// DryRun is an evaluation-only result. No side effects occurred.
type DryRun struct {
	Verdict string

	// MatchedRule is nil when no rule matched.
	MatchedRule *string

	WouldBeProvider string
}

// Scheduled means the action was deferred to a future time.
type Scheduled struct {
	// ActionID identifies the deferred instance.
	ActionID string

	// ScheduledFor is the target time as sent by the gateway (RFC 3339).
	ScheduledFor string
}

// QuotaExceeded means a quota policy rejected or flagged the action.
type QuotaExceeded struct {
	Tenant string
	Limit  uint64
	Used   uint64

	// OverageBehavior names the policy's configured response, for
	// example "block", "warn", "degrade", or "notify".
	OverageBehavior string
}

// Unknown is any outcome whose tag this client does not recognize.
type Unknown struct {
	// Tag is the unrecognized tag, empty if the value had no single
	// identifiable tag.
	Tag string

	// Raw is the complete undecoded value.
	Raw json.RawMessage
}

func (Executed) Kind() Kind      { return KindExecuted }
func (Deduplicated) Kind() Kind  { return KindDeduplicated }
func (Suppressed) Kind() Kind    { return KindSuppressed }
func (Rerouted) Kind() Kind      { return KindRerouted }
func (Throttled) Kind() Kind     { return KindThrottled }
func (Failed) Kind() Kind        { return KindFailed }
func (DryRun) Kind() Kind        { return KindDryRun }
func (Scheduled) Kind() Kind     { return KindScheduled }
func (QuotaExceeded) Kind() Kind { return KindQuotaExceeded }
func (Unknown) Kind() Kind       { return KindUnknown }

func (Executed) sealed()      {}
func (Deduplicated) sealed()  {}
func (Suppressed) sealed()    {}
func (Rerouted) sealed()      {}
func (Throttled) sealed()     {}
func (Failed) sealed()        {}
func (DryRun) sealed()        {}
func (Scheduled) sealed()     {}
func (QuotaExceeded) sealed() {}
func (Unknown) sealed()       {}

func (outcome Executed) String() string {
	return fmt.Sprintf("executed (status=%s)", outcome.Response.Status)
}

func (Deduplicated) String() string { return "deduplicated" }

func (outcome Suppressed) String() string {
	return fmt.Sprintf("suppressed (rule=%s)", outcome.Rule)
}

func (outcome Rerouted) String() string {
	return fmt.Sprintf("rerouted (%s -> %s, status=%s)",
		outcome.OriginalProvider, outcome.NewProvider, outcome.Response.Status)
}

func (outcome Throttled) String() string {
	return fmt.Sprintf("throttled (retry after %s)", outcome.Duration())
}

func (outcome Failed) String() string {
	if detail, ok := outcome.Detail(); ok && detail.Message != "" {
		return fmt.Sprintf("failed (%s: %s)", detail.Code, detail.Message)
	}
	return "failed"
}

func (outcome DryRun) String() string {
	rule := "none"
	if outcome.MatchedRule != nil {
		rule = *outcome.MatchedRule
	}
	return fmt.Sprintf("dry_run (verdict=%s, rule=%s, provider=%s)",
		outcome.Verdict, rule, outcome.WouldBeProvider)
}

func (outcome Scheduled) String() string {
	return fmt.Sprintf("scheduled (id=%s, for=%s)", outcome.ActionID, outcome.ScheduledFor)
}

func (outcome QuotaExceeded) String() string {
	return fmt.Sprintf("quota_exceeded (tenant=%s, used=%d/%d, behavior=%s)",
		outcome.Tenant, outcome.Used, outcome.Limit, outcome.OverageBehavior)
}

func (outcome Unknown) String() string {
	if outcome.Tag == "" {
		return "unknown"
	}
	return fmt.Sprintf("unknown (tag=%s)", outcome.Tag)
}

// Duration converts RetryAfter to a time.Duration, saturating instead
// of overflowing for absurd values.
func (outcome Throttled) Duration() time.Duration {
	if outcome.RetryAfter <= 0 || math.IsNaN(outcome.RetryAfter) {
		return 0
	}
	nanos := outcome.RetryAfter * float64(time.Second)
	if nanos >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(nanos)
}

// FailureDetail is the usual shape of a Failed outcome's error blob.
type FailureDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Attempts  uint32 `json:"attempts"`
}

// Detail decodes the error blob as a FailureDetail. The second result
// is false when the blob does not have that shape.
func (outcome Failed) Detail() (FailureDetail, bool) {
	var detail FailureDetail
	if len(outcome.Error) == 0 || json.Unmarshal(outcome.Error, &detail) != nil {
		return FailureDetail{}, false
	}
	return detail, true
}

// Time parses ScheduledFor.
func (outcome Scheduled) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, outcome.ScheduledFor)
}

// Tags in match order. Only the Deduplicated position matters in
// practice: it is the one tag that may also arrive as a bare string.
const (
	tagExecuted      = "Executed"
	tagDeduplicated  = "Deduplicated"
	tagSuppressed    = "Suppressed"
	tagRerouted      = "Rerouted"
	tagThrottled     = "Throttled"
	tagFailed        = "Failed"
	tagDryRun        = "DryRun"
	tagScheduled     = "Scheduled"
	tagQuotaExceeded = "QuotaExceeded"
)

type variantDecoder func(body json.RawMessage) Outcome

var variantOrder = []struct {
	tag    string
	decode variantDecoder
}{
	{tagExecuted, decodeExecuted},
	{tagDeduplicated, func(json.RawMessage) Outcome { return Deduplicated{} }},
	{tagSuppressed, decodeSuppressed},
	{tagRerouted, decodeRerouted},
	{tagThrottled, decodeThrottled},
	{tagFailed, decodeFailed},
	{tagDryRun, decodeDryRun},
	{tagScheduled, decodeScheduled},
	{tagQuotaExceeded, decodeQuotaExceeded},
}

// Decode interprets one dispatch outcome. It never fails: values with
// no recognized tag, and values that are not JSON objects or strings
// at all, decode to [Unknown].
//
// Deduplicated is accepted both as the bare string "Deduplicated" and
// as an object keyed by that tag; the two forms are equivalent.
func Decode(data []byte) Outcome {
	raw := json.RawMessage(bytes.TrimSpace(data))
	if len(raw) == 0 {
		return Unknown{Raw: raw}
	}

	switch raw[0] {
	case '"':
		var tag string
		if json.Unmarshal(raw, &tag) != nil {
			return Unknown{Raw: raw}
		}
		if tag == tagDeduplicated {
			return Deduplicated{}
		}
		return Unknown{Tag: tag, Raw: raw}

	case '{':
		var fields map[string]json.RawMessage
		if json.Unmarshal(raw, &fields) != nil {
			return Unknown{Raw: raw}
		}
		for _, variant := range variantOrder {
			if body, ok := fields[variant.tag]; ok {
				return variant.decode(body)
			}
		}
		unknown := Unknown{Raw: raw}
		if len(fields) == 1 {
			for tag := range fields {
				unknown.Tag = tag
			}
		}
		return unknown

	default:
		return Unknown{Raw: raw}
	}
}

// Variant bodies are decoded leniently: a body of the wrong shape, or a
// sub-field of the wrong type, leaves the affected fields at their
// defaults rather than failing the whole outcome. Unmarshal errors are
// discarded on purpose throughout.

type wireProviderResponse struct {
	Status  *string           `json:"status"`
	Body    json.RawMessage   `json:"body"`
	Headers map[string]string `json:"headers"`
}

func (wire wireProviderResponse) toResponse() ProviderResponse {
	response := ProviderResponse{
		Status:  "success",
		Headers: wire.Headers,
	}
	if wire.Status != nil {
		response.Status = *wire.Status
	}
	if len(wire.Body) > 0 && !bytes.Equal(wire.Body, []byte("null")) {
		response.Body = wire.Body
	}
	return response
}

func decodeExecuted(body json.RawMessage) Outcome {
	var wire wireProviderResponse
	_ = json.Unmarshal(body, &wire)
	return Executed{Response: wire.toResponse()}
}

func decodeSuppressed(body json.RawMessage) Outcome {
	var wire struct {
		Rule string `json:"rule"`
	}
	_ = json.Unmarshal(body, &wire)
	return Suppressed{Rule: wire.Rule}
}

func decodeRerouted(body json.RawMessage) Outcome {
	var wire struct {
		OriginalProvider string               `json:"original_provider"`
		NewProvider      string               `json:"new_provider"`
		Response         wireProviderResponse `json:"response"`
	}
	_ = json.Unmarshal(body, &wire)
	return Rerouted{
		OriginalProvider: wire.OriginalProvider,
		NewProvider:      wire.NewProvider,
		Response:         wire.Response.toResponse(),
	}
}

func decodeThrottled(body json.RawMessage) Outcome {
	var wire struct {
		RetryAfter json.RawMessage `json:"retry_after"`
	}
	_ = json.Unmarshal(body, &wire)
	return Throttled{RetryAfter: decodeSeconds(wire.RetryAfter)}
}

// decodeSeconds reads a duration as {"secs": S, "nanos": N} and
// combines it into S + N/1e9 seconds. A bare number is taken as
// seconds. Anything else is zero.
func decodeSeconds(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var split struct {
		Secs  float64 `json:"secs"`
		Nanos float64 `json:"nanos"`
	}
	if json.Unmarshal(raw, &split) == nil {
		return split.Secs + split.Nanos/1e9
	}
	var seconds float64
	if json.Unmarshal(raw, &seconds) == nil {
		return seconds
	}
	return 0
}

func decodeFailed(body json.RawMessage) Outcome {
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return Failed{}
	}
	return Failed{Error: body}
}

func decodeDryRun(body json.RawMessage) Outcome {
	var wire struct {
		Verdict         string  `json:"verdict"`
		MatchedRule     *string `json:"matched_rule"`
		WouldBeProvider string  `json:"would_be_provider"`
	}
	_ = json.Unmarshal(body, &wire)
	return DryRun{
		Verdict:         wire.Verdict,
		MatchedRule:     wire.MatchedRule,
		WouldBeProvider: wire.WouldBeProvider,
	}
}

func decodeScheduled(body json.RawMessage) Outcome {
	var wire struct {
		ActionID     string `json:"action_id"`
		ScheduledFor string `json:"scheduled_for"`
	}
	_ = json.Unmarshal(body, &wire)
	return Scheduled{ActionID: wire.ActionID, ScheduledFor: wire.ScheduledFor}
}

func decodeQuotaExceeded(body json.RawMessage) Outcome {
	var wire struct {
		Tenant          string `json:"tenant"`
		Limit           uint64 `json:"limit"`
		Used            uint64 `json:"used"`
		OverageBehavior string `json:"overage_behavior"`
	}
	_ = json.Unmarshal(body, &wire)
	return QuotaExceeded{
		Tenant:          wire.Tenant,
		Limit:           wire.Limit,
		Used:            wire.Used,
		OverageBehavior: wire.OverageBehavior,
	}
}
