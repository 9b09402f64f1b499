// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

// Package gateway is the client for an Acteon action-dispatch gateway.
//
// [Client] issues calls through a [Transport]: [HTTPTransport] in
// production, a recording fake (package gatewaytest) in tests. Request
// and response bodies for dispatch are the types from package
// dispatch; management endpoints (rules, groups, chains, quotas,
// recurring actions, approvals, dead-letter queue) use the types in
// this package.
//
// # Errors
//
// Failures are typed so callers can decide whether to retry:
//
//   - [*ConnectionError]: the gateway was unreachable or timed out
//   - [*HTTPError]: a non-success status; errors.Is matches
//     [ErrNotFound], [ErrConflict], and [ErrGone]
//   - [*APIError]: the gateway's structured error envelope
//   - [*StreamError]: an established event stream died
//   - [*DecodeError]: a success body that was not JSON at all
//
// [IsRetryable] applies the retry policy across all of them. Unknown
// outcome tags and non-JSON event data are not errors.
//
// # Subscriptions
//
// [Client.Subscribe] follows one chain, group, or action;
// [Client.Stream] follows the gateway-wide event stream with optional
// filters. Both return a [Subscription], a blocking pull loop:
//
//	subscription, err := client.Subscribe(ctx, gateway.Chain("ns", "tenant", chainID))
//	if err != nil {
//	    return err
//	}
//	defer subscription.Close()
//	for {
//	    event, err := subscription.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err // *StreamError carries the resume token
//	    }
//	    handle(event)
//	}
//
// [NewFeed] runs the same loop on a goroutine and delivers events on a
// channel. A subscription never reconnects on its own; pass
// [WithLastEventID] when opening the next one to resume. Package watch
// implements a reconnecting loop on top.
package gateway
