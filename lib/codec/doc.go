// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration for Acteon's on-disk
// state.
//
// The gateway speaks JSON; everything this module writes for itself
// (the checkpoint file that remembers where each subscription left
// off) is CBOR. Encoding is deterministic: the same logical state
// always produces identical bytes, so an unchanged checkpoint rewrites
// to an identical file.
//
//	data, err := codec.Marshal(state)
//	err = codec.Unmarshal(data, &state)
//
// Types that are only ever stored use `cbor` struct tags. Types that
// are also printed as JSON by the CLI use `json` tags, which
// fxamacker/cbor falls back to when no `cbor` tag is present. Never
// put both on one field.
package codec
