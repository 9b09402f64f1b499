// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/acteon/acteon-go/lib/dispatch"
	"github.com/acteon/acteon-go/lib/sse"
)

// Theme defines the color palette for terminal output. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Semantic colors.
	Success lipgloss.Color
	Pending lipgloss.Color
	Warning lipgloss.Color
	Failure lipgloss.Color
	Info    lipgloss.Color

	HeaderForeground lipgloss.Color
}

// OutcomeColor returns the color for an outcome kind. Unknown kinds
// get FaintText.
func (theme Theme) OutcomeColor(kind dispatch.Kind) lipgloss.Color {
	switch kind {
	case dispatch.KindExecuted, dispatch.KindRerouted:
		return theme.Success
	case dispatch.KindScheduled, dispatch.KindDryRun, dispatch.KindDeduplicated:
		return theme.Pending
	case dispatch.KindThrottled, dispatch.KindQuotaExceeded, dispatch.KindSuppressed:
		return theme.Warning
	case dispatch.KindFailed:
		return theme.Failure
	default:
		return theme.FaintText
	}
}

// EventColor returns the color for a stream event type. Gateway event
// types are snake_case verbs in the past tense ("chain_completed",
// "action_failed"), so the suffix decides.
func (theme Theme) EventColor(eventType string) lipgloss.Color {
	switch {
	case eventType == sse.LaggedEventType:
		return theme.Warning
	case strings.HasSuffix(eventType, "failed"),
		strings.HasSuffix(eventType, "cancelled"),
		strings.HasSuffix(eventType, "rejected"):
		return theme.Failure
	case strings.HasSuffix(eventType, "completed"),
		strings.HasSuffix(eventType, "executed"),
		strings.HasSuffix(eventType, "approved"):
		return theme.Success
	default:
		return theme.Info
	}
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	Success: lipgloss.Color("114"), // green
	Pending: lipgloss.Color("141"), // light purple
	Warning: lipgloss.Color("220"), // yellow/amber
	Failure: lipgloss.Color("196"), // red
	Info:    lipgloss.Color("75"),  // blue

	HeaderForeground: lipgloss.Color("255"),
}
