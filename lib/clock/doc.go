// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The reconnect loop in package watch waits between attempts, and the
// checkpoint store stamps every saved token. Both take a [Clock] so
// tests run without sleeping:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	watcher := watch.New(client, watch.Config{Clock: fake, ...})
//	go watcher.Run(ctx)
//	fake.WaitForTimers(1)            // the watcher is waiting to reconnect
//	fake.Advance(500 * time.Millisecond)
//
// WaitForTimers blocks until the goroutine under test has registered
// its wait, which removes the race between registration and Advance.
package clock
