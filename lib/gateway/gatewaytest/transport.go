// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

// Package gatewaytest provides an in-memory [gateway.Transport] for
// tests. Responses are queued ahead of time and consumed in order;
// every request is recorded for inspection.
//
//	transport := gatewaytest.NewTransport()
//	transport.RespondJSON(http.StatusOK, map[string]any{"Suppressed": map[string]any{"rule": "r"}})
//	stream := transport.OpenStream(http.StatusOK)
//	client := gateway.New(transport, nil)
//
// Streams are driven from the test: [Stream.Send] writes SSE lines
// the client will read, [Stream.End] ends the body cleanly, and
// [Stream.Break] makes the next read fail.
package gatewaytest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/acteon/acteon-go/lib/gateway"
)

// Transport is a scripted [gateway.Transport]. It is safe for
// concurrent use.
type Transport struct {
	mutex     sync.Mutex
	responses []scripted
	streams   []scriptedStream
	requests  []gateway.Request
}

type scripted struct {
	response *gateway.Response
	err      error
}

type scriptedStream struct {
	stream *Stream
	err    error
}

// NewTransport returns a transport with nothing queued.
func NewTransport() *Transport {
	return &Transport{}
}

// Respond queues a buffered response for the next Do.
func (transport *Transport) Respond(status int, body string) {
	transport.mutex.Lock()
	defer transport.mutex.Unlock()
	transport.responses = append(transport.responses, scripted{response: &gateway.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
	}})
}

// RespondJSON queues a response whose body is value marshaled as JSON.
func (transport *Transport) RespondJSON(status int, value any) {
	body, err := json.Marshal(value)
	if err != nil {
		panic(fmt.Sprintf("gatewaytest: marshaling response: %v", err))
	}
	transport.Respond(status, string(body))
}

// Fail queues a transport failure for the next Do. Plain errors are
// wrapped in a [gateway.ConnectionError] the way a real transport
// reports them.
func (transport *Transport) Fail(err error) {
	transport.mutex.Lock()
	defer transport.mutex.Unlock()
	transport.responses = append(transport.responses, scripted{err: connectionError(err)})
}

// OpenStream queues a stream that answers with status and returns the
// handle the test uses to drive its body.
func (transport *Transport) OpenStream(status int) *Stream {
	stream := newStream(status)
	transport.mutex.Lock()
	defer transport.mutex.Unlock()
	transport.streams = append(transport.streams, scriptedStream{stream: stream})
	return stream
}

// RejectStream queues a stream answered with a non-success status and
// a complete body.
func (transport *Transport) RejectStream(status int, body string) *Stream {
	stream := transport.OpenStream(status)
	stream.Send(body)
	stream.End()
	return stream
}

// FailStream queues a transport failure for the next Stream.
func (transport *Transport) FailStream(err error) {
	transport.mutex.Lock()
	defer transport.mutex.Unlock()
	transport.streams = append(transport.streams, scriptedStream{err: connectionError(err)})
}

// Requests returns a copy of every request received so far.
func (transport *Transport) Requests() []gateway.Request {
	transport.mutex.Lock()
	defer transport.mutex.Unlock()
	return append([]gateway.Request(nil), transport.requests...)
}

// LastRequest returns the most recent request. It panics if there is
// none.
func (transport *Transport) LastRequest() gateway.Request {
	transport.mutex.Lock()
	defer transport.mutex.Unlock()
	if len(transport.requests) == 0 {
		panic("gatewaytest: no requests recorded")
	}
	return transport.requests[len(transport.requests)-1]
}

// Do implements [gateway.Transport].
func (transport *Transport) Do(ctx context.Context, request *gateway.Request) (*gateway.Response, error) {
	transport.mutex.Lock()
	transport.record(request)
	if len(transport.responses) == 0 {
		transport.mutex.Unlock()
		return nil, fmt.Errorf("gatewaytest: unexpected request %s %s", request.Method, request.Path)
	}
	next := transport.responses[0]
	transport.responses = transport.responses[1:]
	transport.mutex.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return next.response, next.err
}

// Stream implements [gateway.Transport].
func (transport *Transport) Stream(ctx context.Context, request *gateway.Request) (*gateway.StreamResponse, error) {
	transport.mutex.Lock()
	transport.record(request)
	if len(transport.streams) == 0 {
		transport.mutex.Unlock()
		return nil, fmt.Errorf("gatewaytest: unexpected stream %s %s", request.Method, request.Path)
	}
	next := transport.streams[0]
	transport.streams = transport.streams[1:]
	transport.mutex.Unlock()

	if next.err != nil {
		return nil, next.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	next.stream.attach(ctx)
	return &gateway.StreamResponse{
		StatusCode: next.stream.status,
		Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
		Body:       next.stream,
	}, nil
}

// record stores a deep enough copy that later mutation by the caller
// does not change history. Caller holds the mutex.
func (transport *Transport) record(request *gateway.Request) {
	recorded := *request
	recorded.Header = request.Header.Clone()
	if request.Query != nil {
		recorded.Query = make(map[string][]string, len(request.Query))
		for key, values := range request.Query {
			recorded.Query[key] = append([]string(nil), values...)
		}
	}
	transport.requests = append(transport.requests, recorded)
}

func connectionError(err error) error {
	var connection *gateway.ConnectionError
	if errors.As(err, &connection) {
		return err
	}
	return &gateway.ConnectionError{Op: "gatewaytest", Err: err}
}

// ErrBroken is the default read error after [Stream.Break].
var ErrBroken = errors.New("gatewaytest: stream broken")

// Stream is a scripted event-stream body. Reads block until the test
// sends data, ends or breaks the stream, the client closes the body,
// or the request context ends.
type Stream struct {
	status int

	mutex     sync.Mutex
	cond      *sync.Cond
	buffer    bytes.Buffer
	ended     bool
	readErr   error
	closed    bool
	closes    int
	drained   bool
	done      chan struct{}
	stopWatch func() bool
}

func newStream(status int) *Stream {
	stream := &Stream{status: status, done: make(chan struct{})}
	stream.cond = sync.NewCond(&stream.mutex)
	return stream
}

func (stream *Stream) attach(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() {
		stream.mutex.Lock()
		defer stream.mutex.Unlock()
		if stream.readErr == nil {
			stream.readErr = context.Cause(ctx)
		}
		stream.cond.Broadcast()
	})
	stream.mutex.Lock()
	stream.stopWatch = stop
	stream.mutex.Unlock()
}

// Send writes lines to the body, each terminated by "\n". Pass "" for
// the blank line that completes an event.
func (stream *Stream) Send(lines ...string) {
	stream.mutex.Lock()
	defer stream.mutex.Unlock()
	for _, line := range lines {
		stream.buffer.WriteString(line)
		stream.buffer.WriteByte('\n')
	}
	stream.cond.Broadcast()
}

// SendEvent writes one complete event. Empty id and eventType are
// omitted; data may span several lines.
func (stream *Stream) SendEvent(id, eventType, data string) {
	var lines []string
	if eventType != "" {
		lines = append(lines, "event: "+eventType)
	}
	if id != "" {
		lines = append(lines, "id: "+id)
	}
	for _, line := range strings.Split(data, "\n") {
		lines = append(lines, "data: "+line)
	}
	lines = append(lines, "")
	stream.Send(lines...)
}

// End finishes the body. Reads return io.EOF once buffered data is
// consumed.
func (stream *Stream) End() {
	stream.mutex.Lock()
	defer stream.mutex.Unlock()
	stream.ended = true
	stream.cond.Broadcast()
}

// Break makes reads fail with err once buffered data is consumed. A
// nil err means [ErrBroken].
func (stream *Stream) Break(err error) {
	if err == nil {
		err = ErrBroken
	}
	stream.mutex.Lock()
	defer stream.mutex.Unlock()
	if stream.readErr == nil {
		stream.readErr = err
	}
	stream.cond.Broadcast()
}

// Read implements [io.Reader].
func (stream *Stream) Read(buffer []byte) (int, error) {
	stream.mutex.Lock()
	defer stream.mutex.Unlock()
	for {
		if stream.closed {
			return 0, io.ErrClosedPipe
		}
		if stream.buffer.Len() > 0 {
			return stream.buffer.Read(buffer)
		}
		if stream.readErr != nil {
			return 0, stream.readErr
		}
		if stream.ended {
			stream.drained = true
			return 0, io.EOF
		}
		stream.cond.Wait()
	}
}

// Close implements [io.Closer]. Every call is counted.
func (stream *Stream) Close() error {
	stream.mutex.Lock()
	defer stream.mutex.Unlock()
	stream.closes++
	if stream.closed {
		return nil
	}
	stream.closed = true
	if stream.stopWatch != nil {
		stream.stopWatch()
	}
	close(stream.done)
	stream.cond.Broadcast()
	return nil
}

// Closed reports whether the client closed the body.
func (stream *Stream) Closed() bool {
	stream.mutex.Lock()
	defer stream.mutex.Unlock()
	return stream.closed
}

// CloseCount is the number of Close calls.
func (stream *Stream) CloseCount() int {
	stream.mutex.Lock()
	defer stream.mutex.Unlock()
	return stream.closes
}

// Drained reports whether the client read the body to io.EOF.
func (stream *Stream) Drained() bool {
	stream.mutex.Lock()
	defer stream.mutex.Unlock()
	return stream.drained
}

// Done is closed when the client closes the body.
func (stream *Stream) Done() <-chan struct{} {
	return stream.done
}
