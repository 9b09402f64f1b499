// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui holds the terminal color theme shared by Acteon's
// command-line output. Colors are chosen per outcome kind and per
// stream event type so that a human watching a stream can tell
// completions, failures, and backpressure notices apart at a glance.
//
// Output destined for pipes and files is never styled; callers decide
// whether to apply the theme.
package tui
