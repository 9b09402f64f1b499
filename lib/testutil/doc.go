// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Acteon packages.
//
// [RequireReceive], [RequireNoReceive], and [RequireClosed] wrap the
// select-with-timeout pattern so individual tests do not call
// time.After directly. They are the only place tests wait on the wall
// clock; everything else drives time through clock.Fake.
//
// [UniqueID] generates monotonically increasing identifiers for action
// ids, event ids, and dedup keys that must differ between tests
// sharing a fake gateway.
//
// All helpers call t.Fatalf on failure rather than returning errors.
//
// This package has no Acteon-internal dependencies.
package testutil
