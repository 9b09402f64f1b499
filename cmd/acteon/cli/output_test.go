// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/acteon/acteon-go/lib/dispatch"
	"github.com/acteon/acteon-go/lib/sse"
)

func decodeLines(t *testing.T, output string) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Fatalf("line %q is not JSON: %v", line, err)
		}
		lines = append(lines, decoded)
	}
	return lines
}

func TestPrinterEventPiped(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	printer := newPrinter(&buffer, false)

	events := []sse.Event{
		{ID: "7", Type: "chain_advanced", Data: json.RawMessage(`{"step":2}`), Text: `{"step":2}`},
		{Text: "plain text"},
	}
	for _, event := range events {
		if err := printer.Event("chain/c1", event); err != nil {
			t.Fatalf("Event: %v", err)
		}
	}

	lines := decodeLines(t, buffer.String())
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0]["stream"] != "chain/c1" || lines[0]["id"] != "7" || lines[0]["event"] != "chain_advanced" {
		t.Errorf("line 0 = %v", lines[0])
	}
	if data, _ := lines[0]["data"].(map[string]any); data["step"] != float64(2) {
		t.Errorf("line 0 data = %v, want decoded JSON", lines[0]["data"])
	}
	if lines[1]["event"] != "message" || lines[1]["data"] != "plain text" {
		t.Errorf("line 1 = %v", lines[1])
	}
	if _, ok := lines[1]["id"]; ok {
		t.Errorf("line 1 has an id: %v", lines[1])
	}
}

func TestPrinterEventStyled(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	printer := newPrinter(&buffer, true)

	if err := printer.Event("", sse.Event{ID: "3", Type: "chain_completed", Text: "done"}); err != nil {
		t.Fatalf("Event: %v", err)
	}
	if err := printer.Event("", sse.Event{Type: "lagged", Data: json.RawMessage(`{"skipped":4}`)}); err != nil {
		t.Fatalf("Event: %v", err)
	}

	output := buffer.String()
	for _, want := range []string{"3", "chain_completed", "done", "lagged", "(4 events dropped)"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "{") {
		t.Errorf("styled output contains JSON:\n%s", output)
	}
}

func TestPrinterOutcome(t *testing.T) {
	t.Parallel()

	var piped bytes.Buffer
	printer := newPrinter(&piped, false)
	if err := printer.Outcome("act-1", dispatch.Suppressed{Rule: "block-spam"}); err != nil {
		t.Fatalf("Outcome: %v", err)
	}
	unknown := dispatch.Decode([]byte(`{"Grouped": {"group_id": "g"}}`))
	if err := printer.Outcome("", unknown); err != nil {
		t.Fatalf("Outcome: %v", err)
	}

	lines := decodeLines(t, piped.String())
	if lines[0]["action"] != "act-1" || lines[0]["kind"] != "suppressed" {
		t.Errorf("line 0 = %v", lines[0])
	}
	if !strings.Contains(lines[0]["summary"].(string), "block-spam") {
		t.Errorf("summary = %v, want rule name", lines[0]["summary"])
	}
	if lines[1]["kind"] != "unknown" || lines[1]["raw"] == nil {
		t.Errorf("line 1 = %v, want unknown with raw", lines[1])
	}

	var styled bytes.Buffer
	printer = newPrinter(&styled, true)
	if err := printer.Outcome("act-1", dispatch.Throttled{RetryAfter: 2}); err != nil {
		t.Fatalf("Outcome: %v", err)
	}
	if !strings.Contains(styled.String(), "throttled") || !strings.Contains(styled.String(), "act-1") {
		t.Errorf("styled = %q", styled.String())
	}
}

func TestPrinterBatchResult(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	printer := newPrinter(&buffer, false)
	results := []dispatch.BatchResult{
		{Outcome: dispatch.Deduplicated{}},
		{Err: &dispatch.ItemError{Code: "RATE_LIMITED", Message: "slow down", Retryable: true}},
	}
	for _, result := range results {
		if err := printer.BatchResult("", result); err != nil {
			t.Fatalf("BatchResult: %v", err)
		}
	}

	lines := decodeLines(t, buffer.String())
	if lines[0]["kind"] != "deduplicated" {
		t.Errorf("line 0 = %v", lines[0])
	}
	itemError, _ := lines[1]["error"].(map[string]any)
	if itemError["code"] != "RATE_LIMITED" || itemError["retryable"] != true {
		t.Errorf("line 1 = %v", lines[1])
	}
}

func TestPrinterJSONNormalizesNilSlice(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	printer := newPrinter(&buffer, true)
	var rules []string
	if err := printer.JSON(rules); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if strings.TrimSpace(buffer.String()) != "[]" {
		t.Errorf("JSON(nil slice) = %q, want []", buffer.String())
	}
}

func TestPrinterConcurrentLinesDoNotInterleave(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	printer := newPrinter(&buffer, false)

	var group sync.WaitGroup
	for worker := range 8 {
		group.Add(1)
		go func() {
			defer group.Done()
			for range 25 {
				printer.Event("w", sse.Event{ID: strings.Repeat("x", worker+1), Type: "chain_advanced"})
			}
		}()
	}
	group.Wait()

	if lines := decodeLines(t, buffer.String()); len(lines) != 200 {
		t.Errorf("got %d lines, want 200", len(lines))
	}
}
