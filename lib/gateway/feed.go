// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/acteon/acteon-go/lib/sse"
)

// Feed delivers a [Subscription]'s events on a channel, for callers
// that select over several sources. A goroutine pulls events with
// Next and sends them on an unbuffered channel, so the gateway is read
// no faster than the consumer receives.
//
// The Events channel closes when the stream ends. Err then reports
// why: nil for a clean end (the gateway finished, the caller closed
// the feed, or ctx ended), otherwise the terminal error from Next.
type Feed struct {
	subscription *Subscription
	events       chan sse.Event
	stop         chan struct{}
	done         chan struct{}
	stopOnce     sync.Once
	err          error
}

// NewFeed starts delivering subscription's events. The feed owns the
// subscription from here on: cancelling ctx or calling Close ends both.
func NewFeed(ctx context.Context, subscription *Subscription) *Feed {
	feed := &Feed{
		subscription: subscription,
		events:       make(chan sse.Event),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	go feed.run(ctx)
	return feed
}

func (feed *Feed) run(ctx context.Context) {
	defer close(feed.done)
	defer close(feed.events)

	// Unblocks a Next waiting on the network when ctx ends.
	stopAfter := context.AfterFunc(ctx, func() { feed.subscription.Close() })
	defer stopAfter()

	for {
		event, err := feed.subscription.Next()
		if err != nil {
			if !cleanEnd(ctx, err) {
				feed.err = err
			}
			return
		}
		select {
		case feed.events <- event:
		case <-feed.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func cleanEnd(ctx context.Context, err error) bool {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, ErrClosed):
		return true
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return true
	}
	return false
}

// Events yields events in stream order and closes when the feed ends.
func (feed *Feed) Events() <-chan sse.Event {
	return feed.events
}

// Done is closed once the feed has stopped and Err is final.
func (feed *Feed) Done() <-chan struct{} {
	return feed.done
}

// Err waits for the feed to end and returns why it ended.
func (feed *Feed) Err() error {
	<-feed.done
	return feed.err
}

// Close stops the feed, closes the subscription, and waits for the
// delivery goroutine to exit. No event is sent after Close returns.
func (feed *Feed) Close() error {
	feed.stopOnce.Do(func() { close(feed.stop) })
	feed.subscription.Close()
	<-feed.done
	return nil
}

// LastEventID is the resume token of the underlying subscription.
func (feed *Feed) LastEventID() string {
	return feed.subscription.LastEventID()
}
