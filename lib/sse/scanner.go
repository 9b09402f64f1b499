// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package sse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxLineSize bounds a single SSE line. A server that sends a longer
// line without a terminator is misbehaving; the read fails rather than
// buffering without limit.
const MaxLineSize = 16 << 20

// ErrLineTooLong is returned when a line exceeds [MaxLineSize].
var ErrLineTooLong = errors.New("sse: line exceeds maximum size")

// LineReader splits an [io.Reader] into lines, accepting "\n" and
// "\r\n" terminators. A final line with no terminator is still
// returned.
type LineReader struct {
	reader *bufio.Reader
}

// NewLineReader returns a LineReader over reader.
func NewLineReader(reader io.Reader) *LineReader {
	return &LineReader{reader: bufio.NewReaderSize(reader, 64*1024)}
}

// ReadLine returns the next line without its terminator. It returns
// io.EOF only when no bytes remain.
func (lines *LineReader) ReadLine() (string, error) {
	var builder strings.Builder
	for {
		fragment, err := lines.reader.ReadSlice('\n')
		if builder.Len()+len(fragment) > MaxLineSize {
			return "", ErrLineTooLong
		}
		builder.Write(fragment)

		switch {
		case err == nil:
			return strings.TrimRight(builder.String(), "\r\n"), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && builder.Len() > 0:
			return strings.TrimRight(builder.String(), "\r\n"), nil
		default:
			return "", err
		}
	}
}

// Scanner reads Server-Sent Events from an [io.Reader].
//
// Usage:
//
//	scanner := sse.NewScanner(body)
//	for scanner.Next() {
//	    event := scanner.Event()
//	    // process event.Name(), event.ID, event.Data
//	}
//	if err := scanner.Err(); err != nil {
//	    // the stream died; err is never io.EOF
//	}
//
// An event still being accumulated when the stream ends is dropped.
type Scanner struct {
	lines   *LineReader
	parser  Parser
	current Event
	err     error
	done    bool
}

// NewScanner creates a scanner that reads SSE events from reader.
func NewScanner(reader io.Reader) *Scanner {
	return &Scanner{lines: NewLineReader(reader)}
}

// Next advances to the next event. It returns false when the stream
// ends or fails; call [Scanner.Err] to tell the two apart.
func (scanner *Scanner) Next() bool {
	scanner.current = Event{}
	if scanner.done {
		return false
	}
	for {
		line, err := scanner.lines.ReadLine()
		if err != nil {
			scanner.done = true
			scanner.parser.Reset()
			if !errors.Is(err, io.EOF) {
				scanner.err = fmt.Errorf("reading event stream: %w", err)
			}
			return false
		}
		if event, ok := scanner.parser.Feed(line); ok {
			scanner.current = event
			return true
		}
	}
}

// Event returns the most recently parsed event. Only valid after
// [Scanner.Next] returns true.
func (scanner *Scanner) Event() Event {
	return scanner.current
}

// Err returns the error that ended the stream, or nil if it ended
// cleanly.
func (scanner *Scanner) Err() error {
	return scanner.err
}
