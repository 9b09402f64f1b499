// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

// Package sse parses Server-Sent Event streams as emitted by the Acteon
// gateway's subscription endpoints.
//
// The core is [Parser], a small state machine fed one line at a time.
// It holds the pending event type, the pending event id, and the data
// fragments buffered so far; a blank line emits the buffered event and
// resets all three. The same Parser backs both pull-style consumption
// ([Scanner], which reads lines from an [io.Reader]) and push-style
// consumption (callers that already have lines call [Parser.Feed]
// directly).
//
// A Parser belongs to exactly one stream. After the stream ends or
// fails, discard it and start a fresh one for the next connection;
// partially accumulated state from a dead connection is never carried
// into a new one.
//
// Event data that is not valid JSON is kept verbatim as text, never
// reported as an error: malformed JSON is valid SSE payload.
package sse
