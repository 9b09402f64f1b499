// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"github.com/acteon/acteon-go/lib/checkpoint"
	"github.com/acteon/acteon-go/lib/clock"
	"github.com/acteon/acteon-go/lib/gateway"
	"github.com/acteon/acteon-go/lib/sse"
)

// Reconnect defaults, used when the corresponding Config field is
// zero.
const (
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 30 * time.Second
	DefaultMultiplier      = 2.0
)

// Subscriber opens subscriptions. [*gateway.Client] implements it.
type Subscriber interface {
	Subscribe(ctx context.Context, entity gateway.Entity, options ...gateway.SubscribeOption) (*gateway.Subscription, error)
	Stream(ctx context.Context, filter gateway.StreamFilter, options ...gateway.SubscribeOption) (*gateway.Subscription, error)
}

// Target selects what a Watcher follows.
type Target struct {
	entity *gateway.Entity
	filter gateway.StreamFilter
}

// EntityTarget follows one chain, group, or action.
func EntityTarget(entity gateway.Entity) Target {
	return Target{entity: &entity}
}

// StreamTarget follows the gateway-wide stream narrowed by filter.
func StreamTarget(filter gateway.StreamFilter) Target {
	return Target{filter: filter}
}

// Key identifies the target in checkpoints and logs: "chain/c1" for
// entities, "stream?..." for the global stream.
func (target Target) Key() string {
	if target.entity != nil {
		return target.entity.String()
	}
	return target.filter.String()
}

func (target Target) open(ctx context.Context, subscriber Subscriber, options ...gateway.SubscribeOption) (*gateway.Subscription, error) {
	if target.entity != nil {
		return subscriber.Subscribe(ctx, *target.entity, options...)
	}
	return subscriber.Stream(ctx, target.filter, options...)
}

// Handler receives each event. Watchers run by [RunAll] share one
// handler and call it concurrently. An error stops the watcher.
type Handler func(ctx context.Context, key string, event sse.Event) error

// Config configures a Watcher.
type Config struct {
	Target Target

	// Checkpoints, when set, supplies the initial resume token and
	// receives every new one.
	Checkpoints *checkpoint.Store

	// LastEventID is the initial resume token when Checkpoints has
	// none for this target.
	LastEventID string

	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64

	// MaxAttempts bounds consecutive failed connections before Run
	// gives up. A delivered event resets the count. Zero means retry
	// forever.
	MaxAttempts int

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to discarding.
	Logger *slog.Logger
}

// Watcher follows one target. Run may be called once.
type Watcher struct {
	subscriber  Subscriber
	target      Target
	key         string
	checkpoints *checkpoint.Store
	maxAttempts int
	clock       clock.Clock
	logger      *slog.Logger
	backOff     *backoff.ExponentialBackOff

	mutex       sync.Mutex
	lastEventID string
	reconnects  int
}

// New validates config and returns a Watcher.
func New(subscriber Subscriber, config Config) (*Watcher, error) {
	if subscriber == nil {
		return nil, errors.New("watch: nil subscriber")
	}
	if config.Target.entity != nil {
		if err := config.Target.entity.Validate(); err != nil {
			return nil, fmt.Errorf("watch: %w", err)
		}
	}
	if config.InitialInterval < 0 || config.MaxInterval < 0 || config.Multiplier < 0 || config.MaxAttempts < 0 {
		return nil, errors.New("watch: negative reconnect setting")
	}
	if config.RandomizationFactor < 0 || config.RandomizationFactor >= 1 {
		return nil, fmt.Errorf("watch: randomization factor %v outside [0, 1)", config.RandomizationFactor)
	}

	backOff := &backoff.ExponentialBackOff{
		InitialInterval:     orDefault(config.InitialInterval, DefaultInitialInterval),
		MaxInterval:         orDefault(config.MaxInterval, DefaultMaxInterval),
		Multiplier:          orDefault(config.Multiplier, DefaultMultiplier),
		RandomizationFactor: config.RandomizationFactor,
	}
	if backOff.MaxInterval < backOff.InitialInterval {
		return nil, fmt.Errorf("watch: max interval %v below initial interval %v", backOff.MaxInterval, backOff.InitialInterval)
	}
	backOff.Reset()

	watcher := &Watcher{
		subscriber:  subscriber,
		target:      config.Target,
		key:         config.Target.Key(),
		checkpoints: config.Checkpoints,
		maxAttempts: config.MaxAttempts,
		clock:       config.Clock,
		logger:      config.Logger,
		backOff:     backOff,
		lastEventID: config.LastEventID,
	}
	if watcher.clock == nil {
		watcher.clock = clock.Real()
	}
	if watcher.logger == nil {
		watcher.logger = slog.New(slog.DiscardHandler)
	}
	watcher.logger = watcher.logger.With("stream", watcher.key)
	if watcher.checkpoints != nil {
		if saved, ok := watcher.checkpoints.Get(watcher.key); ok {
			watcher.lastEventID = saved
		}
	}
	return watcher, nil
}

func orDefault[T comparable](value, fallback T) T {
	var zero T
	if value == zero {
		return fallback
	}
	return value
}

// Key returns the target's key.
func (watcher *Watcher) Key() string {
	return watcher.key
}

// LastEventID is the current resume token.
func (watcher *Watcher) LastEventID() string {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return watcher.lastEventID
}

// Reconnects counts reconnect attempts made so far.
func (watcher *Watcher) Reconnects() int {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return watcher.reconnects
}

// handlerError marks a failure returned by the Handler.
type handlerError struct{ err error }

func (err handlerError) Error() string { return err.err.Error() }
func (err handlerError) Unwrap() error { return err.err }

// Run follows the target until the stream ends cleanly (nil), ctx is
// cancelled (nil), the handler fails (its error), a non-retryable
// gateway error occurs, or MaxAttempts consecutive connections fail.
func (watcher *Watcher) Run(ctx context.Context, handler Handler) error {
	failures := 0
	for {
		delivered, err := watcher.session(ctx, handler)
		if delivered > 0 {
			watcher.backOff.Reset()
			failures = 0
		}

		var fromHandler handlerError
		switch {
		case ctx.Err() != nil:
			return nil
		case err == nil:
			watcher.logger.Info("event stream ended", "last_event_id", watcher.LastEventID())
			return nil
		case errors.As(err, &fromHandler):
			return fromHandler.err
		case !gateway.IsRetryable(err):
			return fmt.Errorf("watch %s: %w", watcher.key, err)
		}

		failures++
		if watcher.maxAttempts > 0 && failures >= watcher.maxAttempts {
			return fmt.Errorf("watch %s: giving up after %d consecutive failures: %w", watcher.key, failures, err)
		}

		delay := watcher.backOff.NextBackOff()
		watcher.logger.Info("reconnecting to event stream",
			"delay", delay,
			"resume_from", watcher.LastEventID(),
			"attempt", failures,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return nil
		case <-watcher.clock.After(delay):
		}

		watcher.mutex.Lock()
		watcher.reconnects++
		watcher.mutex.Unlock()
	}
}

// session runs one subscription to its end. A nil error means the
// gateway ended the stream.
func (watcher *Watcher) session(ctx context.Context, handler Handler) (int, error) {
	var options []gateway.SubscribeOption
	if token := watcher.LastEventID(); token != "" {
		options = append(options, gateway.WithLastEventID(token))
	}

	subscription, err := watcher.target.open(ctx, watcher.subscriber, options...)
	if err != nil {
		return 0, err
	}
	defer subscription.Close()
	watcher.logger.Debug("event stream connected", "resume_from", watcher.LastEventID())

	delivered := 0
	for {
		event, err := subscription.Next()
		if errors.Is(err, io.EOF) {
			return delivered, nil
		}
		if err != nil {
			return delivered, err
		}
		delivered++

		if skipped, ok := event.Lagged(); ok {
			watcher.logger.Warn("gateway dropped events for this subscriber", "skipped", skipped)
		}
		if err := handler(ctx, watcher.key, event); err != nil {
			return delivered, handlerError{err}
		}
		if event.ID != "" {
			watcher.advance(event.ID)
		}
	}
}

// advance records id as the resume token, in memory and in the
// checkpoint store. A failed checkpoint write is logged, not fatal:
// the in-memory token still resumes within this process.
func (watcher *Watcher) advance(id string) {
	watcher.mutex.Lock()
	watcher.lastEventID = id
	watcher.mutex.Unlock()

	if watcher.checkpoints == nil {
		return
	}
	if err := watcher.checkpoints.Save(watcher.key, id); err != nil {
		watcher.logger.Warn("saving checkpoint failed", "last_event_id", id, "error", err)
	}
}

// RunAll runs every watcher concurrently with a shared handler. The
// first watcher to fail cancels the rest; RunAll returns that error
// once all have stopped.
func RunAll(ctx context.Context, watchers []*Watcher, handler Handler) error {
	group, groupContext := errgroup.WithContext(ctx)
	for _, watcher := range watchers {
		group.Go(func() error {
			return watcher.Run(groupContext, handler)
		})
	}
	return group.Wait()
}
