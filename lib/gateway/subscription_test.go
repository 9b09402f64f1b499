// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package gateway_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/acteon/acteon-go/lib/gateway"
	"github.com/acteon/acteon-go/lib/sse"
	"github.com/acteon/acteon-go/lib/testutil"
)

// nextResult carries one Next return across goroutines.
type nextResult struct {
	event sse.Event
	err   error
}

func nextAsync(subscription *gateway.Subscription) <-chan nextResult {
	results := make(chan nextResult, 1)
	go func() {
		event, err := subscription.Next()
		results <- nextResult{event, err}
	}()
	return results
}

func TestSubscribeRequest(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient()
	transport.OpenStream(http.StatusOK).End()

	subscription, err := client.SubscribeChain(context.Background(), "ns", "acme", "chain 1")
	if err != nil {
		t.Fatalf("SubscribeChain: %v", err)
	}
	defer subscription.Close()

	request := transport.LastRequest()
	if request.Method != http.MethodGet || request.Path != "/v1/subscribe/chain/chain%201" {
		t.Errorf("request = %s %s", request.Method, request.Path)
	}
	wantQuery := url.Values{"namespace": {"ns"}, "tenant": {"acme"}, "include_history": {"true"}}
	if !reflect.DeepEqual(request.Query, wantQuery) {
		t.Errorf("Query = %v, want %v", request.Query, wantQuery)
	}
	if got := request.Header.Get(gateway.LastEventIDHeader); got != "" {
		t.Errorf("Last-Event-ID = %q on a fresh subscription", got)
	}
}

func TestSubscribeEntityVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		subscribe func(*gateway.Client) (*gateway.Subscription, error)
		path      string
		query     url.Values
	}{
		{
			name: "group without history",
			subscribe: func(client *gateway.Client) (*gateway.Subscription, error) {
				entity := gateway.Group("ns", "acme", "g1")
				entity.ExcludeHistory = true
				return client.Subscribe(context.Background(), entity)
			},
			path:  "/v1/subscribe/group/g1",
			query: url.Values{"namespace": {"ns"}, "tenant": {"acme"}, "include_history": {"false"}},
		},
		{
			name: "action without scope",
			subscribe: func(client *gateway.Client) (*gateway.Subscription, error) {
				return client.SubscribeAction(context.Background(), "", "", "act-9")
			},
			path:  "/v1/subscribe/action/act-9",
			query: url.Values{"include_history": {"true"}},
		},
		{
			name: "resume",
			subscribe: func(client *gateway.Client) (*gateway.Subscription, error) {
				return client.SubscribeGroup(context.Background(), "ns", "acme", "g1", gateway.WithLastEventID("41"))
			},
			path:  "/v1/subscribe/group/g1",
			query: url.Values{"namespace": {"ns"}, "tenant": {"acme"}, "include_history": {"true"}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			client, transport := newTestClient()
			transport.OpenStream(http.StatusOK).End()

			subscription, err := test.subscribe(client)
			if err != nil {
				t.Fatalf("subscribe: %v", err)
			}
			defer subscription.Close()

			request := transport.LastRequest()
			if request.Path != test.path {
				t.Errorf("Path = %q, want %q", request.Path, test.path)
			}
			if !reflect.DeepEqual(request.Query, test.query) {
				t.Errorf("Query = %v, want %v", request.Query, test.query)
			}
		})
	}
}

func TestSubscribeResumeSendsLastEventID(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient()
	transport.OpenStream(http.StatusOK).End()

	subscription, err := client.Subscribe(context.Background(), gateway.Chain("ns", "acme", "c1"), gateway.WithLastEventID(" 41 "))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer subscription.Close()

	if got := transport.LastRequest().Header.Get("Last-Event-ID"); got != "41" {
		t.Errorf("Last-Event-ID = %q, want 41", got)
	}
	if subscription.LastEventID() != "41" {
		t.Errorf("LastEventID() = %q before any event, want the resume token", subscription.LastEventID())
	}
}

func TestSubscribeRejectsInvalidEntity(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient()
	for _, entity := range []gateway.Entity{
		{Type: "workflow", ID: "x"},
		{Type: gateway.EntityChain},
	} {
		if _, err := client.Subscribe(context.Background(), entity); err == nil {
			t.Errorf("Subscribe(%v) succeeded", entity)
		}
	}
	if len(transport.Requests()) != 0 {
		t.Errorf("sent %d requests for invalid entities", len(transport.Requests()))
	}
}

func TestSubscriptionDeliversEventsInOrder(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient()
	stream := transport.OpenStream(http.StatusOK)
	stream.Send(": keep-alive", "")
	stream.SendEvent("1", "chain_advanced", `{"step": 1}`)
	stream.SendEvent("", "", "plain text")
	stream.SendEvent("3", "chain_completed", `{"status": "completed"}`)
	stream.End()

	subscription, err := client.SubscribeChain(context.Background(), "ns", "acme", "c1")
	if err != nil {
		t.Fatalf("SubscribeChain: %v", err)
	}
	defer subscription.Close()
	if subscription.State() != gateway.StateStreaming {
		t.Errorf("State = %v, want streaming", subscription.State())
	}

	want := []struct {
		name, id, text string
		json           bool
		lastEventID    string
	}{
		{"chain_advanced", "1", `{"step": 1}`, true, "1"},
		{sse.DefaultEventType, "", "plain text", false, "1"},
		{"chain_completed", "3", `{"status": "completed"}`, true, "3"},
	}
	for index, expected := range want {
		event, err := subscription.Next()
		if err != nil {
			t.Fatalf("Next %d: %v", index, err)
		}
		if event.Name() != expected.name || event.ID != expected.id || event.Text != expected.text || event.IsJSON() != expected.json {
			t.Errorf("event %d = %+v, want %+v", index, event, expected)
		}
		if got := subscription.LastEventID(); got != expected.lastEventID {
			t.Errorf("after event %d LastEventID = %q, want %q", index, got, expected.lastEventID)
		}
	}

	for attempt := range 2 {
		if _, err := subscription.Next(); err != io.EOF {
			t.Fatalf("Next after end (attempt %d) = %v, want io.EOF", attempt, err)
		}
	}
	if subscription.State() != gateway.StateClosed {
		t.Errorf("State = %v, want closed", subscription.State())
	}
	if subscription.Delivered() != 3 {
		t.Errorf("Delivered = %d, want 3", subscription.Delivered())
	}
	if stream.CloseCount() != 1 {
		t.Errorf("body closed %d times, want 1", stream.CloseCount())
	}
}

func TestSubscriptionRejectedStatusDrainsBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		body   string
		check  func(error) bool
	}{
		{http.StatusNotFound, "chain not found", func(err error) bool { return errors.Is(err, gateway.ErrNotFound) }},
		{http.StatusUnauthorized, `{"code": "UNAUTHORIZED", "message": "bad key"}`, func(err error) bool {
			var httpError *gateway.HTTPError
			return errors.As(err, &httpError) && httpError.StatusCode == 401 && httpError.Message == "bad key"
		}},
		{http.StatusServiceUnavailable, "", func(err error) bool { return gateway.IsRetryable(err) }},
		{http.StatusNoContent, "", func(err error) bool {
			var httpError *gateway.HTTPError
			return errors.As(err, &httpError) && httpError.StatusCode == http.StatusNoContent
		}},
	}
	for _, test := range tests {
		client, transport := newTestClient()
		stream := transport.RejectStream(test.status, test.body)

		subscription, err := client.SubscribeChain(context.Background(), "ns", "acme", "c1")
		if subscription != nil {
			t.Errorf("HTTP %d: got a subscription, want none", test.status)
		}
		if err == nil || !test.check(err) {
			t.Errorf("HTTP %d: err = %#v", test.status, err)
		}
		if !stream.Drained() {
			t.Errorf("HTTP %d: body not read to the end", test.status)
		}
		if stream.CloseCount() != 1 {
			t.Errorf("HTTP %d: body closed %d times, want 1", test.status, stream.CloseCount())
		}
	}
}

func TestSubscriptionConnectionFailure(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient()
	transport.FailStream(errors.New("connection refused"))

	_, err := client.Stream(context.Background(), gateway.StreamFilter{})
	var connectionError *gateway.ConnectionError
	if !errors.As(err, &connectionError) {
		t.Fatalf("err = %#v, want ConnectionError", err)
	}
}

func TestSubscriptionInterruptedStream(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient()
	stream := transport.OpenStream(http.StatusOK)
	stream.SendEvent("7", "action_dispatched", `{"action_id": "a"}`)
	stream.Send("data: half an event")
	stream.Break(io.ErrUnexpectedEOF)

	subscription, err := client.Stream(context.Background(), gateway.StreamFilter{Namespace: "ns"})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer subscription.Close()

	if _, err := subscription.Next(); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	_, err = subscription.Next()
	var streamError *gateway.StreamError
	if !errors.As(err, &streamError) {
		t.Fatalf("Next = %#v, want StreamError", err)
	}
	if streamError.LastEventID != "7" {
		t.Errorf("LastEventID = %q, want 7", streamError.LastEventID)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) || !gateway.IsRetryable(err) {
		t.Errorf("err = %v, want retryable and wrapping the read failure", err)
	}
	if _, again := subscription.Next(); again != err {
		t.Errorf("second Next = %v, want the same terminal error", again)
	}
	if !stream.Closed() {
		t.Error("body not closed after failure")
	}
}

func TestSubscriptionCloseUnblocksNext(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient()
	stream := transport.OpenStream(http.StatusOK)

	subscription, err := client.SubscribeChain(context.Background(), "ns", "acme", "c1")
	if err != nil {
		t.Fatalf("SubscribeChain: %v", err)
	}

	pending := nextAsync(subscription)
	if err := subscription.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	result := testutil.RequireReceive(t, pending, 5*time.Second, "Next unblocked by Close")
	if result.err != gateway.ErrClosed {
		t.Errorf("Next = %v, want ErrClosed", result.err)
	}

	stream.SendEvent("1", "late", "{}")
	if _, err := subscription.Next(); err != gateway.ErrClosed {
		t.Errorf("Next after Close = %v, want ErrClosed", err)
	}
	subscription.Close()
	if stream.CloseCount() != 1 {
		t.Errorf("body closed %d times, want 1", stream.CloseCount())
	}
	if subscription.State() != gateway.StateClosed {
		t.Errorf("State = %v, want closed", subscription.State())
	}
}

func TestSubscriptionCancelAfterEvents(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient()
	stream := transport.OpenStream(http.StatusOK)
	stream.SendEvent("1", "chain_advanced", `{"step": 1}`)
	stream.SendEvent("2", "chain_advanced", `{"step": 2}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	subscription, err := client.SubscribeChain(ctx, "ns", "acme", "c1")
	if err != nil {
		t.Fatalf("SubscribeChain: %v", err)
	}

	for index := range 2 {
		if _, err := subscription.Next(); err != nil {
			t.Fatalf("Next %d: %v", index, err)
		}
	}

	pending := nextAsync(subscription)
	cancel()
	result := testutil.RequireReceive(t, pending, 5*time.Second, "Next unblocked by cancel")
	if !errors.Is(result.err, context.Canceled) {
		t.Fatalf("Next = %v, want context.Canceled", result.err)
	}

	testutil.RequireClosed(t, stream.Done(), 5*time.Second, "body released after cancel")
	stream.SendEvent("3", "chain_advanced", `{"step": 3}`)
	if _, err := subscription.Next(); !errors.Is(err, context.Canceled) {
		t.Errorf("Next after cancel = %v, want context.Canceled", err)
	}
	if subscription.Delivered() != 2 {
		t.Errorf("Delivered = %d, want 2", subscription.Delivered())
	}
	if subscription.LastEventID() != "2" {
		t.Errorf("LastEventID = %q, want 2", subscription.LastEventID())
	}
}

func TestSubscriptionCancelledContextDeliversNothing(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient()
	stream := transport.OpenStream(http.StatusOK)

	ctx, cancel := context.WithCancel(context.Background())
	subscription, err := client.SubscribeChain(ctx, "ns", "acme", "c1")
	if err != nil {
		t.Fatalf("SubscribeChain: %v", err)
	}
	cancel()
	stream.SendEvent("1", "chain_advanced", "{}")

	if _, err := subscription.Next(); !errors.Is(err, context.Canceled) {
		t.Errorf("Next = %v, want context.Canceled", err)
	}
}

func TestStreamFilterQuery(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient()
	transport.OpenStream(http.StatusOK).End()
	transport.OpenStream(http.StatusOK).End()

	filter := gateway.StreamFilter{
		Namespace:  "ns",
		ActionType: "send_email",
		Outcome:    "failed",
		EventType:  "action_dispatched",
		ChainID:    "c1",
		GroupID:    "g1",
		ActionID:   "a1",
	}
	subscription, err := client.Stream(context.Background(), filter, gateway.WithLastEventID("9"))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	subscription.Close()

	request := transport.LastRequest()
	if request.Path != "/v1/stream" {
		t.Errorf("Path = %q", request.Path)
	}
	want := url.Values{
		"namespace":   {"ns"},
		"action_type": {"send_email"},
		"outcome":     {"failed"},
		"event_type":  {"action_dispatched"},
		"chain_id":    {"c1"},
		"group_id":    {"g1"},
		"action_id":   {"a1"},
	}
	if !reflect.DeepEqual(request.Query, want) {
		t.Errorf("Query = %v, want %v", request.Query, want)
	}
	if request.Header.Get("Last-Event-ID") != "9" {
		t.Errorf("Last-Event-ID = %q", request.Header.Get("Last-Event-ID"))
	}

	subscription, err = client.Stream(context.Background(), gateway.StreamFilter{})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	subscription.Close()
	if query := transport.LastRequest().Query; len(query) != 0 {
		t.Errorf("empty filter sent query %v", query)
	}
}

func TestEntityAndFilterStrings(t *testing.T) {
	t.Parallel()

	if got := gateway.Chain("ns", "t", "c1").String(); got != "chain/c1" {
		t.Errorf("Chain.String() = %q", got)
	}
	if got := (gateway.StreamFilter{}).String(); got != "stream" {
		t.Errorf("empty filter String() = %q", got)
	}
	if got := (gateway.StreamFilter{Namespace: "ns", Outcome: "failed"}).String(); got != "stream?namespace=ns&outcome=failed" {
		t.Errorf("filter String() = %q", got)
	}

	entityType, err := gateway.ParseEntityType("group")
	if err != nil || entityType != gateway.EntityGroup {
		t.Errorf("ParseEntityType(group) = %q, %v", entityType, err)
	}
	if _, err := gateway.ParseEntityType("tenant"); err == nil {
		t.Error("ParseEntityType(tenant) succeeded")
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	for state, want := range map[gateway.State]string{
		gateway.StateIdle:       "idle",
		gateway.StateConnecting: "connecting",
		gateway.StateStreaming:  "streaming",
		gateway.StateClosed:     "closed",
		gateway.State(9):        "State(9)",
	} {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int32(state), got, want)
		}
	}
}
