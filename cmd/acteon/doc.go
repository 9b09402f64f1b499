// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

// Acteon is the command-line client for the Acteon action gateway.
//
// Subcommands:
//
//   - health, dispatch, batch: send actions and print their outcomes
//   - rules list|reload|enable|disable: manage the rule set
//   - stream, subscribe: print events from the gateway-wide stream or
//     from one chain, group, or action
//   - watch: follow streams with reconnect, backoff, and checkpointed
//     resume
//   - checkpoints: inspect the resume tokens watch saved
//
// Configuration comes from the file named by --config or ACTEON_CONFIG
// and from ACTEON_URL, ACTEON_API_KEY, ACTEON_TIMEOUT and
// ACTEON_CHECKPOINT. Results go to stdout: styled lines on a terminal,
// JSON lines otherwise. Logs go to stderr.
package main
