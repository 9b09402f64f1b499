// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/acteon/acteon-go/lib/netutil"
	"github.com/acteon/acteon-go/lib/sse"
)

// LastEventIDHeader carries the resume token on (re)connect.
const LastEventIDHeader = "Last-Event-ID"

// State is the lifecycle position of a [Subscription].
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateClosed
)

func (state State) String() string {
	switch state {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int32(state))
}

// Subscription is one live event-stream connection. Events are
// delivered by [Subscription.Next] in exactly the order the gateway
// sent them, with no buffering or deduplication beyond SSE framing.
//
// A Subscription never reconnects. When it ends, open a new one with
// [WithLastEventID] set to [Subscription.LastEventID] to resume.
//
// Next must not be called concurrently. Close may be called from any
// goroutine at any time, and releases the connection immediately.
type Subscription struct {
	op        string
	request   *Request
	transport Transport
	logger    *slog.Logger

	state   atomic.Int32
	scanner *sse.Scanner
	parent  context.Context
	cancel  context.CancelFunc

	// terminal is the error every Next returns once the stream has
	// ended. Touched only by the goroutine calling Next.
	terminal error

	mutex          sync.Mutex
	body           io.ReadCloser
	closedByCaller bool
	lastEventID    string
	delivered      int
	releaseOnce    sync.Once
}

// Subscribe opens an entity-scoped subscription. The returned error is
// a [*ConnectionError] when the gateway is unreachable and an
// [*HTTPError] when it refuses the subscription.
func (client *Client) Subscribe(ctx context.Context, entity Entity, options ...SubscribeOption) (*Subscription, error) {
	if err := entity.Validate(); err != nil {
		return nil, err
	}
	return client.openSubscription(ctx, "subscribe "+entity.String(), entity.request(), options)
}

// SubscribeChain follows one chain execution.
func (client *Client) SubscribeChain(ctx context.Context, namespace, tenant, chainID string, options ...SubscribeOption) (*Subscription, error) {
	return client.Subscribe(ctx, Chain(namespace, tenant, chainID), options...)
}

// SubscribeGroup follows one event group.
func (client *Client) SubscribeGroup(ctx context.Context, namespace, tenant, groupID string, options ...SubscribeOption) (*Subscription, error) {
	return client.Subscribe(ctx, Group(namespace, tenant, groupID), options...)
}

// SubscribeAction follows one dispatched action.
func (client *Client) SubscribeAction(ctx context.Context, namespace, tenant, actionID string, options ...SubscribeOption) (*Subscription, error) {
	return client.Subscribe(ctx, ActionEntity(namespace, tenant, actionID), options...)
}

// Stream opens the gateway-wide event stream narrowed by filter.
func (client *Client) Stream(ctx context.Context, filter StreamFilter, options ...SubscribeOption) (*Subscription, error) {
	return client.openSubscription(ctx, filter.String(), filter.request(), options)
}

func (client *Client) openSubscription(ctx context.Context, op string, request *Request, options []SubscribeOption) (*Subscription, error) {
	var resolved subscribeOptions
	for _, option := range options {
		option(&resolved)
	}

	request.Header = http.Header{}
	if resolved.lastEventID != "" {
		request.Header.Set(LastEventIDHeader, resolved.lastEventID)
	}

	subscription := &Subscription{
		op:          op,
		request:     request,
		transport:   client.transport,
		logger:      client.logger.With("subscription", op),
		lastEventID: resolved.lastEventID,
	}
	if err := subscription.open(ctx); err != nil {
		return nil, err
	}
	return subscription, nil
}

// open moves Idle to Connecting, then to Streaming on a 200 response
// or to Closed on anything else.
func (subscription *Subscription) open(ctx context.Context) error {
	subscription.setState(StateConnecting)
	subscription.logger.Debug("opening subscription", "resume_from", subscription.request.Header.Get(LastEventIDHeader))

	streamContext, cancel := context.WithCancel(ctx)
	subscription.parent = ctx
	subscription.cancel = cancel

	response, err := subscription.transport.Stream(streamContext, subscription.request)
	if err != nil {
		subscription.release()
		return err
	}

	if response.StatusCode != http.StatusOK {
		// The body is read to the end before the error surfaces so the
		// connection is not leaked.
		message := netutil.ErrorBody(response.Body)
		if err := netutil.DrainAndClose(response.Body); err != nil {
			subscription.logger.Debug("closing rejected subscription body", "error", err)
		}
		subscription.release()
		subscription.logger.Warn("subscription rejected",
			"status", response.StatusCode,
			"body", errorText([]byte(message)),
		)
		return responseError(response.StatusCode, []byte(message), false)
	}

	subscription.mutex.Lock()
	if subscription.closedByCaller {
		subscription.mutex.Unlock()
		response.Body.Close()
		subscription.release()
		return ErrClosed
	}
	subscription.body = response.Body
	subscription.mutex.Unlock()

	subscription.scanner = sse.NewScanner(response.Body)
	subscription.setState(StateStreaming)
	subscription.logger.Debug("subscription streaming")
	return nil
}

// Next blocks until the next event arrives and returns it. When the
// stream is over it returns:
//
//   - io.EOF when the gateway ended the stream
//   - a [*StreamError] when the connection died
//   - [ErrClosed] after [Subscription.Close]
//   - the context's error after the subscription's context ended
//
// Once Next returns an error, every later call returns the same error.
func (subscription *Subscription) Next() (sse.Event, error) {
	if subscription.terminal != nil {
		return sse.Event{}, subscription.terminal
	}
	if subscription.isClosedByCaller() {
		return subscription.end(ErrClosed)
	}
	if err := subscription.parent.Err(); err != nil {
		return subscription.end(err)
	}

	if subscription.scanner.Next() {
		event := subscription.scanner.Event()
		subscription.mutex.Lock()
		if subscription.closedByCaller {
			subscription.mutex.Unlock()
			return subscription.end(ErrClosed)
		}
		if event.ID != "" {
			subscription.lastEventID = event.ID
		}
		subscription.delivered++
		subscription.mutex.Unlock()
		return event, nil
	}

	err := subscription.scanner.Err()
	switch {
	case subscription.isClosedByCaller():
		return subscription.end(ErrClosed)
	case err == nil:
		return subscription.end(io.EOF)
	case subscription.parent.Err() != nil:
		return subscription.end(subscription.parent.Err())
	default:
		return subscription.end(&StreamError{Err: err, LastEventID: subscription.LastEventID()})
	}
}

// Close ends the subscription and releases its connection. A Next
// blocked in a read returns [ErrClosed] promptly. Close is idempotent
// and always returns nil.
func (subscription *Subscription) Close() error {
	subscription.mutex.Lock()
	if subscription.closedByCaller {
		subscription.mutex.Unlock()
		return nil
	}
	subscription.closedByCaller = true
	subscription.mutex.Unlock()

	subscription.release()
	subscription.logger.Debug("subscription closed by caller", "delivered", subscription.Delivered())
	return nil
}

// State reports where the subscription is in its lifecycle.
func (subscription *Subscription) State() State {
	return State(subscription.state.Load())
}

// LastEventID is the id of the most recent delivered event that had
// one, or the resume token the subscription was opened with.
func (subscription *Subscription) LastEventID() string {
	subscription.mutex.Lock()
	defer subscription.mutex.Unlock()
	return subscription.lastEventID
}

// Delivered counts events returned by Next.
func (subscription *Subscription) Delivered() int {
	subscription.mutex.Lock()
	defer subscription.mutex.Unlock()
	return subscription.delivered
}

func (subscription *Subscription) setState(state State) {
	subscription.state.Store(int32(state))
}

func (subscription *Subscription) isClosedByCaller() bool {
	subscription.mutex.Lock()
	defer subscription.mutex.Unlock()
	return subscription.closedByCaller
}

func (subscription *Subscription) end(err error) (sse.Event, error) {
	subscription.terminal = err
	subscription.release()
	subscription.logger.Debug("subscription ended", "reason", err, "delivered", subscription.Delivered())
	return sse.Event{}, err
}

// release closes the body and cancels the request exactly once, and
// moves the subscription to Closed.
func (subscription *Subscription) release() {
	subscription.setState(StateClosed)
	subscription.releaseOnce.Do(func() {
		subscription.mutex.Lock()
		body := subscription.body
		subscription.mutex.Unlock()
		if body != nil {
			if err := body.Close(); err != nil && !netutil.IsExpectedCloseError(err) {
				subscription.logger.Debug("closing subscription body", "error", err)
			}
		}
		if subscription.cancel != nil {
			subscription.cancel()
		}
	})
}
