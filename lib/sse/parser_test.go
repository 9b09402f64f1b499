// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package sse

import (
	"reflect"
	"testing"
)

func TestParseLinesJSONAndRawData(t *testing.T) {
	t.Parallel()

	events := ParseLines([]string{"event: ping", `data: {"n":1}`, "", "data: not json", ""})
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}

	first := events[0]
	if first.Type != "ping" {
		t.Errorf("first.Type = %q, want ping", first.Type)
	}
	if !first.IsJSON() {
		t.Fatalf("first event data not JSON: %q", first.Text)
	}
	if want := map[string]any{"n": float64(1)}; !reflect.DeepEqual(first.Value(), want) {
		t.Errorf("first.Value() = %#v, want %#v", first.Value(), want)
	}

	second := events[1]
	if second.Type != "" {
		t.Errorf("second.Type = %q, want empty (type is reset after each event)", second.Type)
	}
	if second.Name() != DefaultEventType {
		t.Errorf("second.Name() = %q, want %q", second.Name(), DefaultEventType)
	}
	if second.IsJSON() {
		t.Errorf("second event data parsed as JSON: %s", second.Data)
	}
	if second.Value() != "not json" {
		t.Errorf("second.Value() = %#v, want %q", second.Value(), "not json")
	}
}

func TestParseLinesKeepAliveOnly(t *testing.T) {
	t.Parallel()

	events := ParseLines([]string{": keep-alive", "", ": keep-alive", "", "", "event: orphan", "id: 9", ""})
	if len(events) != 0 {
		t.Errorf("got %d events, want 0: %+v", len(events), events)
	}
}

func TestParseLinesJoinsDataWithNewline(t *testing.T) {
	t.Parallel()

	events := ParseLines([]string{"data: {", `data: "a": [1,`, "data: 2]}", ""})
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	event := events[0]
	if want := "{\n\"a\": [1,\n2]}"; event.Text != want {
		t.Errorf("Text = %q, want %q", event.Text, want)
	}
	var decoded struct {
		A []int `json:"a"`
	}
	if err := event.Decode(&decoded); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(decoded.A, []int{1, 2}) {
		t.Errorf("decoded.A = %v, want [1 2]", decoded.A)
	}
}

func TestParseLinesMultilineText(t *testing.T) {
	t.Parallel()

	events := ParseLines([]string{"data: line one", "data: line two", ""})
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Text != "line one\nline two" {
		t.Errorf("Text = %q", events[0].Text)
	}
	if err := events[0].Decode(&struct{}{}); err != ErrNotJSON {
		t.Errorf("Decode error = %v, want ErrNotJSON", err)
	}
}

func TestParserCarriesIDAndTrimsValues(t *testing.T) {
	t.Parallel()

	var parser Parser
	for _, line := range []string{"id:   evt-42  ", "event:\tchain_advanced ", "retry: 1000", "data:   7  "} {
		if _, ok := parser.Feed(line); ok {
			t.Fatalf("Feed(%q) emitted an event before the terminator", line)
		}
	}
	if !parser.Pending() {
		t.Error("Pending() = false with buffered data")
	}
	event, ok := parser.Feed("")
	if !ok {
		t.Fatal("blank line did not emit an event")
	}
	want := Event{Type: "chain_advanced", ID: "evt-42", Data: []byte("7"), Text: "7"}
	if !reflect.DeepEqual(event, want) {
		t.Errorf("event = %+v, want %+v", event, want)
	}

	// The id does not carry over to the next event.
	if _, ok := parser.Feed("data: x"); ok {
		t.Fatal("data line emitted an event")
	}
	event, ok = parser.Feed("")
	if !ok || event.ID != "" || event.Type != "" {
		t.Errorf("second event = %+v (ok=%v), want no id or type", event, ok)
	}
}

func TestParserReset(t *testing.T) {
	t.Parallel()

	var parser Parser
	parser.Feed("event: stale")
	parser.Feed("data: stale")
	parser.Reset()
	if parser.Pending() {
		t.Error("Pending() = true after Reset")
	}
	if _, ok := parser.Feed(""); ok {
		t.Error("blank line after Reset emitted an event")
	}
}

func TestParseLinesDropsUnterminatedEvent(t *testing.T) {
	t.Parallel()

	events := ParseLines([]string{"data: 1", "", "data: 2"})
	if len(events) != 1 || events[0].Text != "1" {
		t.Errorf("events = %+v, want only the terminated event", events)
	}
}

func TestEventLagged(t *testing.T) {
	t.Parallel()

	events := ParseLines([]string{"event: lagged", `data: {"skipped": 17}`, ""})
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	skipped, ok := events[0].Lagged()
	if !ok || skipped != 17 {
		t.Errorf("Lagged() = %d, %v; want 17, true", skipped, ok)
	}

	if _, ok := (Event{Type: "action_dispatched"}).Lagged(); ok {
		t.Error("Lagged() = true for a normal event")
	}
}

func TestParserIgnoresFieldNamesWithoutColon(t *testing.T) {
	t.Parallel()

	if events := ParseLines([]string{"data", ""}); len(events) != 0 {
		t.Errorf("bare data line: events = %+v, want none", events)
	}

	events := ParseLines([]string{"event: tick", "id: 7", "id", "event", "data: {}", ""})
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].ID != "7" || events[0].Type != "tick" {
		t.Errorf("event = %+v, want id 7 and type tick kept", events[0])
	}

	if events := ParseLines([]string{"retry: 1000", "datum: x", ""}); len(events) != 0 {
		t.Errorf("unrelated fields: events = %+v, want none", events)
	}
}
