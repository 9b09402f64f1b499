// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

// Package watch follows a gateway event stream across connection
// failures.
//
// A [gateway.Subscription] never reconnects on its own. A [Watcher]
// wraps one: it opens the subscription, hands every event to a
// [Handler], remembers the id of the last event, and when the
// connection dies it waits an exponential backoff and reopens with
// that id as the resume token. With a [checkpoint.Store] the token
// also survives process restarts.
//
// Only retryable failures (see [gateway.IsRetryable]) trigger a
// reconnect. A clean end of stream, a cancelled context, a handler
// error, or a non-retryable gateway error ends [Watcher.Run].
//
//	watcher, err := watch.New(client, watch.Config{
//	    Target:      watch.EntityTarget(gateway.Chain("ns", "tenant", chainID)),
//	    Checkpoints: store,
//	})
//	err = watcher.Run(ctx, func(ctx context.Context, key string, event sse.Event) error {
//	    fmt.Println(key, event.Name(), event.Text)
//	    return nil
//	})
package watch
