// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

// Package checkpoint remembers where each event subscription left off.
//
// A [Store] maps a stream key (for example "chain/c1", or
// "stream?namespace=ns" for a filtered global stream) to the id of the
// last event delivered on it. Passing that id back as the resume token
// on reconnect makes the gateway replay what was missed, including
// across process restarts.
//
// The file is a single CBOR document (package codec) written
// atomically: encode to a temporary file in the same directory, fsync,
// rename into place, fsync the directory. Readers never see a partial
// write. A Store opened with an empty path keeps tokens in memory only.
package checkpoint
