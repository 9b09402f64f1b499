// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package watch_test

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/acteon/acteon-go/lib/checkpoint"
	"github.com/acteon/acteon-go/lib/clock"
	"github.com/acteon/acteon-go/lib/gateway"
	"github.com/acteon/acteon-go/lib/gateway/gatewaytest"
	"github.com/acteon/acteon-go/lib/sse"
	"github.com/acteon/acteon-go/lib/testutil"
	"github.com/acteon/acteon-go/lib/watch"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// recorder is a Handler that keeps every event id it sees.
type recorder struct {
	mutex sync.Mutex
	ids   []string
	keys  []string
}

func (recorder *recorder) handle(_ context.Context, key string, event sse.Event) error {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.ids = append(recorder.ids, event.ID)
	recorder.keys = append(recorder.keys, key)
	return nil
}

func (recorder *recorder) seen() []string {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	return append([]string(nil), recorder.ids...)
}

func runAsync(ctx context.Context, watcher *watch.Watcher, handler watch.Handler) <-chan error {
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx, handler) }()
	return done
}

func newWatcher(t *testing.T, transport *gatewaytest.Transport, config watch.Config) *watch.Watcher {
	t.Helper()
	if config.Target == (watch.Target{}) {
		config.Target = watch.EntityTarget(gateway.Chain("ns", "acme", "c1"))
	}
	watcher, err := watch.New(gateway.New(transport, nil), config)
	if err != nil {
		t.Fatalf("watch.New: %v", err)
	}
	return watcher
}

func TestWatcherResumesAfterInterruption(t *testing.T) {
	t.Parallel()

	transport := gatewaytest.NewTransport()
	first := transport.OpenStream(http.StatusOK)
	first.SendEvent("1", "chain_advanced", `{"step": 1}`)
	first.SendEvent("2", "chain_advanced", `{"step": 2}`)
	first.Break(nil)
	second := transport.OpenStream(http.StatusOK)
	second.SendEvent("3", "chain_completed", `{}`)
	second.End()

	store, err := checkpoint.Open(filepath.Join(t.TempDir(), "checkpoints.cbor"), clock.Fake(epoch))
	if err != nil {
		t.Fatalf("checkpoint.Open: %v", err)
	}
	fake := clock.Fake(epoch)
	watcher := newWatcher(t, transport, watch.Config{Checkpoints: store, Clock: fake})

	var handler recorder
	done := runAsync(context.Background(), watcher, handler.handle)

	fake.WaitForTimers(1)
	fake.Advance(watch.DefaultInitialInterval)

	if err := testutil.RequireReceive(t, done, 5*time.Second, "watcher finishes"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := handler.seen(); len(got) != 3 || got[0] != "1" || got[2] != "3" {
		t.Errorf("events = %v, want [1 2 3]", got)
	}

	requests := transport.Requests()
	if len(requests) != 2 {
		t.Fatalf("made %d requests, want 2", len(requests))
	}
	if got := requests[0].Header.Get("Last-Event-ID"); got != "" {
		t.Errorf("first request Last-Event-ID = %q, want none", got)
	}
	if got := requests[1].Header.Get("Last-Event-ID"); got != "2" {
		t.Errorf("reconnect Last-Event-ID = %q, want 2", got)
	}
	if saved, _ := store.Get("chain/c1"); saved != "3" {
		t.Errorf("checkpoint = %q, want 3", saved)
	}
	if watcher.Reconnects() != 1 || watcher.LastEventID() != "3" {
		t.Errorf("Reconnects = %d, LastEventID = %q", watcher.Reconnects(), watcher.LastEventID())
	}
	if !first.Closed() || !second.Closed() {
		t.Error("a stream body was not closed")
	}
}

func TestWatcherStartsFromCheckpoint(t *testing.T) {
	t.Parallel()

	store, err := checkpoint.Open("", clock.Fake(epoch))
	if err != nil {
		t.Fatalf("checkpoint.Open: %v", err)
	}
	if err := store.Save("stream?namespace=ns", "41"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	transport := gatewaytest.NewTransport()
	transport.OpenStream(http.StatusOK).End()
	watcher := newWatcher(t, transport, watch.Config{
		Target:      watch.StreamTarget(gateway.StreamFilter{Namespace: "ns"}),
		Checkpoints: store,
		LastEventID: "ignored",
	})

	if err := watcher.Run(context.Background(), (&recorder{}).handle); err != nil {
		t.Fatalf("Run: %v", err)
	}
	request := transport.LastRequest()
	if request.Path != "/v1/stream" || request.Header.Get("Last-Event-ID") != "41" {
		t.Errorf("request = %s Last-Event-ID %q", request.Path, request.Header.Get("Last-Event-ID"))
	}
}

func TestWatcherStopsOnNonRetryableError(t *testing.T) {
	t.Parallel()

	transport := gatewaytest.NewTransport()
	transport.RejectStream(http.StatusNotFound, "no such chain")
	watcher := newWatcher(t, transport, watch.Config{Clock: clock.Fake(epoch)})

	err := watcher.Run(context.Background(), (&recorder{}).handle)
	if !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("Run = %v, want ErrNotFound", err)
	}
	if len(transport.Requests()) != 1 {
		t.Errorf("made %d requests, want 1", len(transport.Requests()))
	}
}

func TestWatcherBackoffGrowsAndGivesUp(t *testing.T) {
	t.Parallel()

	transport := gatewaytest.NewTransport()
	transport.FailStream(errors.New("connection refused"))
	transport.RejectStream(http.StatusServiceUnavailable, "starting up")
	transport.FailStream(errors.New("connection refused"))

	fake := clock.Fake(epoch)
	watcher := newWatcher(t, transport, watch.Config{
		Clock:           fake,
		InitialInterval: time.Second,
		Multiplier:      2,
		MaxAttempts:     3,
	})
	done := runAsync(context.Background(), watcher, (&recorder{}).handle)

	fake.WaitForTimers(1)
	fake.Advance(time.Second)

	fake.WaitForTimers(1)
	fake.Advance(2*time.Second - time.Millisecond)
	if fake.PendingCount() != 1 {
		t.Fatal("second reconnect happened before its doubled delay")
	}
	fake.Advance(time.Millisecond)

	err := testutil.RequireReceive(t, done, 5*time.Second, "watcher gives up")
	var connectionError *gateway.ConnectionError
	if !errors.As(err, &connectionError) {
		t.Fatalf("Run = %v, want the last ConnectionError", err)
	}
	if len(transport.Requests()) != 3 || watcher.Reconnects() != 2 {
		t.Errorf("requests = %d, reconnects = %d, want 3 and 2", len(transport.Requests()), watcher.Reconnects())
	}
}

func TestWatcherCancelWhileWaiting(t *testing.T) {
	t.Parallel()

	transport := gatewaytest.NewTransport()
	transport.FailStream(errors.New("connection refused"))

	fake := clock.Fake(epoch)
	watcher := newWatcher(t, transport, watch.Config{Clock: fake})
	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, watcher, (&recorder{}).handle)

	fake.WaitForTimers(1)
	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "watcher stops on cancel"); err != nil {
		t.Errorf("Run = %v, want nil", err)
	}
}

func TestWatcherCancelWhileStreaming(t *testing.T) {
	t.Parallel()

	transport := gatewaytest.NewTransport()
	stream := transport.OpenStream(http.StatusOK)
	stream.SendEvent("1", "chain_advanced", "{}")

	received := make(chan string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	watcher := newWatcher(t, transport, watch.Config{Clock: clock.Fake(epoch)})
	done := runAsync(ctx, watcher, func(_ context.Context, _ string, event sse.Event) error {
		received <- event.ID
		return nil
	})

	testutil.RequireReceive(t, received, 5*time.Second, "first event")
	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "watcher stops"); err != nil {
		t.Errorf("Run = %v, want nil", err)
	}
	testutil.RequireClosed(t, stream.Done(), 5*time.Second, "body released")
}

func TestWatcherHandlerErrorStops(t *testing.T) {
	t.Parallel()

	transport := gatewaytest.NewTransport()
	stream := transport.OpenStream(http.StatusOK)
	stream.SendEvent("1", "chain_advanced", "{}")
	stream.SendEvent("2", "chain_advanced", "{}")

	failure := errors.New("downstream full")
	watcher := newWatcher(t, transport, watch.Config{Clock: clock.Fake(epoch)})
	err := watcher.Run(context.Background(), func(context.Context, string, sse.Event) error { return failure })
	if err != failure {
		t.Fatalf("Run = %v, want the handler's error", err)
	}
	if watcher.LastEventID() != "" {
		t.Errorf("LastEventID = %q, want none: the failed event was not handled", watcher.LastEventID())
	}
	if !stream.Closed() {
		t.Error("body not closed")
	}
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	client := gateway.New(gatewaytest.NewTransport(), nil)
	tests := []watch.Config{
		{Target: watch.EntityTarget(gateway.Entity{Type: "bogus", ID: "x"})},
		{Target: watch.StreamTarget(gateway.StreamFilter{}), InitialInterval: -time.Second},
		{Target: watch.StreamTarget(gateway.StreamFilter{}), RandomizationFactor: 1.5},
		{Target: watch.StreamTarget(gateway.StreamFilter{}), InitialInterval: time.Minute, MaxInterval: time.Second},
	}
	for index, config := range tests {
		if _, err := watch.New(client, config); err == nil {
			t.Errorf("config %d accepted", index)
		}
	}
	if _, err := watch.New(nil, watch.Config{}); err == nil {
		t.Error("nil subscriber accepted")
	}
}

func TestRunAll(t *testing.T) {
	t.Parallel()

	transport := gatewaytest.NewTransport()
	client := gateway.New(transport, nil)

	var watchers []*watch.Watcher
	for _, chainID := range []string{"c1", "c2"} {
		watcher, err := watch.New(client, watch.Config{
			Target: watch.EntityTarget(gateway.Chain("ns", "acme", chainID)),
			Clock:  clock.Fake(epoch),
		})
		if err != nil {
			t.Fatalf("watch.New: %v", err)
		}
		watchers = append(watchers, watcher)
	}

	// Streams are handed out in request order, which is not
	// deterministic across goroutines, so both carry the same event.
	for range watchers {
		stream := transport.OpenStream(http.StatusOK)
		stream.SendEvent(testutil.UniqueID("evt"), "chain_completed", "{}")
		stream.End()
	}

	var handler recorder
	if err := watch.RunAll(context.Background(), watchers, handler.handle); err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	handler.mutex.Lock()
	defer handler.mutex.Unlock()
	if len(handler.keys) != 2 || handler.keys[0] == handler.keys[1] {
		t.Errorf("keys = %v, want one event per watcher", handler.keys)
	}
}

func TestRunAllFirstErrorCancelsOthers(t *testing.T) {
	t.Parallel()

	transport := gatewaytest.NewTransport()
	client := gateway.New(transport, nil)
	fake := clock.Fake(epoch)

	failing, err := watch.New(client, watch.Config{Target: watch.EntityTarget(gateway.Chain("ns", "acme", "bad")), Clock: fake})
	if err != nil {
		t.Fatal(err)
	}
	waiting, err := watch.New(client, watch.Config{Target: watch.EntityTarget(gateway.Chain("ns", "acme", "slow")), Clock: fake})
	if err != nil {
		t.Fatal(err)
	}

	// Either watcher may take either response: one fails for good, the
	// other retries until RunAll cancels it.
	transport.RejectStream(http.StatusForbidden, "forbidden")
	transport.FailStream(errors.New("connection refused"))

	err = watch.RunAll(context.Background(), []*watch.Watcher{failing, waiting}, (&recorder{}).handle)
	var httpError *gateway.HTTPError
	if !errors.As(err, &httpError) || httpError.StatusCode != http.StatusForbidden {
		t.Errorf("RunAll = %v, want the 403", err)
	}
}
