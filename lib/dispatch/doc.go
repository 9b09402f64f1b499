// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch holds the client-side data model for dispatching
// actions through an Acteon gateway and the decoders for the
// gateway's dispatch responses.
//
// [Action] is the unit of work submitted for dispatch. The gateway
// answers with a tagged-union JSON value that [Decode] turns into one
// of the closed set of [Outcome] variants:
//
//   - [Executed], [Deduplicated], [Suppressed], [Rerouted],
//     [Throttled], [Failed], [DryRun], [Scheduled], [QuotaExceeded]
//   - [Unknown] for any tag this client does not recognize
//
// Decoding never fails on shape. A tag added to the gateway after this
// client was built decodes to [Unknown] carrying the tag and the raw
// JSON, so older clients keep working against newer servers.
//
// Batch responses are decoded by [DecodeBatch]: one [BatchResult] per
// submitted action, in submission order, each either an [ItemError] or
// an [Outcome]. A malformed element never affects its siblings.
//
// Everything in this package is pure and safe for concurrent use.
package dispatch
