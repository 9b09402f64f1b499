// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ItemError is a per-action failure inside a batch response.
type ItemError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (err *ItemError) Error() string {
	return fmt.Sprintf("%s: %s", err.Code, err.Message)
}

// BatchResult is one slot of a batch response. Exactly one of Outcome
// and Err is set.
type BatchResult struct {
	Outcome Outcome
	Err     *ItemError
}

// OK reports whether the slot holds an outcome rather than an error.
func (result BatchResult) OK() bool {
	return result.Err == nil
}

// ErrNotArray is returned by [DecodeBatch] when the response body is
// not a JSON array at all.
var ErrNotArray = errors.New("dispatch: batch response is not a JSON array")

// DecodeBatch decodes a batch dispatch response. Each element is
// decoded in isolation: an element with an "error" key becomes an
// [ItemError], every other element goes through [Decode]. The result
// has one slot per element, in order.
//
// The only failure is a body that is not a JSON array.
func DecodeBatch(data []byte) ([]BatchResult, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotArray, err)
	}

	results := make([]BatchResult, len(elements))
	for index, element := range elements {
		results[index] = decodeBatchElement(element)
	}
	return results, nil
}

func decodeBatchElement(element json.RawMessage) BatchResult {
	var fields map[string]json.RawMessage
	if json.Unmarshal(element, &fields) == nil {
		if body, ok := fields["error"]; ok {
			return BatchResult{Err: decodeItemError(body)}
		}
	}
	return BatchResult{Outcome: Decode(element)}
}

// decodeItemError fills the defaults the gateway documents for a
// partially populated error object.
func decodeItemError(body json.RawMessage) *ItemError {
	var wire struct {
		Code      *string `json:"code"`
		Message   *string `json:"message"`
		Retryable bool    `json:"retryable"`
	}
	_ = json.Unmarshal(body, &wire)

	itemError := &ItemError{
		Code:      "UNKNOWN",
		Message:   "Unknown error",
		Retryable: wire.Retryable,
	}
	if wire.Code != nil {
		itemError.Code = *wire.Code
	}
	if wire.Message != nil {
		itemError.Message = *wire.Message
	}
	return itemError
}
