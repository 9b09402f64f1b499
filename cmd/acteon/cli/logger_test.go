// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerFormats(t *testing.T) {
	t.Parallel()

	var piped bytes.Buffer
	newLogger(&piped, false, slog.LevelInfo).Info("connected", "stream", "chain/c1")
	var record map[string]any
	if err := json.Unmarshal(piped.Bytes(), &record); err != nil {
		t.Fatalf("piped output is not JSON: %q", piped.String())
	}
	if record["msg"] != "connected" || record["stream"] != "chain/c1" {
		t.Errorf("record = %v", record)
	}

	var terminal bytes.Buffer
	newLogger(&terminal, true, slog.LevelInfo).Info("connected", "stream", "chain/c1")
	if !strings.Contains(terminal.String(), "msg=connected") {
		t.Errorf("terminal output = %q, want text handler format", terminal.String())
	}
}

func TestNewLoggerLevel(t *testing.T) {
	t.Parallel()

	level := new(slog.LevelVar)
	var buffer bytes.Buffer
	logger := newLogger(&buffer, true, level)

	logger.Debug("hidden")
	if buffer.Len() != 0 {
		t.Fatalf("debug logged at info level: %q", buffer.String())
	}
	level.Set(slog.LevelDebug)
	logger.Debug("shown")
	if !strings.Contains(buffer.String(), "shown") {
		t.Errorf("debug not logged after lowering level: %q", buffer.String())
	}
}
