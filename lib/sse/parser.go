// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package sse

import (
	"encoding/json"
	"strings"
)

// Parser accumulates SSE lines into events. The zero value is ready to
// use. A Parser is not safe for concurrent use.
type Parser struct {
	eventType string
	id        string
	data      []string
}

// Feed consumes one line, with its line terminator already removed.
// It returns an event and true when the line completes one.
//
//   - ":comment" lines are ignored.
//   - A blank line emits the buffered event if any data was buffered,
//     then resets the parser either way.
//   - Lines starting with "event:", "id:", or "data:" set that field;
//     values are trimmed of surrounding whitespace. Multiple data
//     lines are joined with "\n".
//   - Every other line, including a field name with no colon, is
//     ignored.
func (parser *Parser) Feed(line string) (Event, bool) {
	if line == "" {
		event, ok := parser.flush()
		parser.Reset()
		return event, ok
	}

	if value, ok := strings.CutPrefix(line, "data:"); ok {
		parser.data = append(parser.data, strings.TrimSpace(value))
	} else if value, ok := strings.CutPrefix(line, "event:"); ok {
		parser.eventType = strings.TrimSpace(value)
	} else if value, ok := strings.CutPrefix(line, "id:"); ok {
		parser.id = strings.TrimSpace(value)
	}
	return Event{}, false
}

// Pending reports whether data is buffered for an event that has not
// yet been terminated by a blank line.
func (parser *Parser) Pending() bool {
	return len(parser.data) > 0
}

// Reset discards all accumulated state.
func (parser *Parser) Reset() {
	parser.eventType = ""
	parser.id = ""
	parser.data = parser.data[:0]
}

func (parser *Parser) flush() (Event, bool) {
	if len(parser.data) == 0 {
		return Event{}, false
	}
	text := strings.Join(parser.data, "\n")
	event := Event{
		Type: parser.eventType,
		ID:   parser.id,
		Text: text,
	}
	if json.Valid([]byte(text)) {
		event.Data = json.RawMessage(text)
	}
	return event, true
}

// ParseLines runs lines through a fresh Parser and returns every event
// they complete. Data still pending after the last line is discarded.
func ParseLines(lines []string) []Event {
	var parser Parser
	var events []Event
	for _, line := range lines {
		if event, ok := parser.Feed(line); ok {
			events = append(events, event)
		}
	}
	return events
}
