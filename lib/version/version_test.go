// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfoIncludesCommit(t *testing.T) {
	info := Info()
	if !strings.HasPrefix(info, Version+" (") {
		t.Errorf("Info() = %q, want prefix %q", info, Version+" (")
	}
	if !strings.Contains(info, GitCommit) {
		t.Errorf("Info() = %q, missing commit %q", info, GitCommit)
	}
}

func TestFullIncludesPlatform(t *testing.T) {
	full := Full()
	if !strings.Contains(full, "Go: ") || !strings.Contains(full, "Platform: ") {
		t.Errorf("Full() = %q, missing Go or platform line", full)
	}
}

func TestUserAgent(t *testing.T) {
	agent := UserAgent()
	if !strings.HasPrefix(agent, "acteon-go/"+Short()) {
		t.Errorf("UserAgent() = %q, want prefix acteon-go/%s", agent, Short())
	}
}
