// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/acteon/acteon-go/lib/dispatch"
	"github.com/acteon/acteon-go/lib/sse"
	"github.com/acteon/acteon-go/lib/tui"
)

// kindWidth fits the longest outcome kind, "quota_exceeded".
const kindWidth = 15

// Printer writes command results. On a terminal each result is one
// styled line; otherwise each result is one JSON object per line, so
// output can be piped to jq. Printer is safe for concurrent use:
// watchers running in parallel share one.
type Printer struct {
	mutex    sync.Mutex
	out      io.Writer
	styled   bool
	theme    tui.Theme
	renderer *lipgloss.Renderer
}

// NewPrinter returns a Printer that styles its output when out is a
// terminal.
func NewPrinter(out io.Writer) *Printer {
	styled := false
	if file, ok := out.(*os.File); ok {
		styled = term.IsTerminal(int(file.Fd()))
	}
	return newPrinter(out, styled)
}

func newPrinter(out io.Writer, styled bool) *Printer {
	return &Printer{
		out:      out,
		styled:   styled,
		theme:    tui.DefaultTheme,
		renderer: lipgloss.NewRenderer(out),
	}
}

// Styled reports whether output is for a human.
func (printer *Printer) Styled() bool {
	return printer.styled
}

// JSON writes value as indented JSON, whether or not the output is
// styled. Nil slices are written as [].
func (printer *Printer) JSON(value any) error {
	printer.mutex.Lock()
	defer printer.mutex.Unlock()

	encoder := json.NewEncoder(printer.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(normalizeNilSlice(value))
}

// Text writes one line of plain text.
func (printer *Printer) Text(format string, args ...any) error {
	printer.mutex.Lock()
	defer printer.mutex.Unlock()
	_, err := fmt.Fprintf(printer.out, format+"\n", args...)
	return err
}

// eventLine is the piped form of a stream event.
type eventLine struct {
	Stream string `json:"stream,omitempty"`
	ID     string `json:"id,omitempty"`
	Event  string `json:"event"`
	Data   any    `json:"data"`
}

// Event writes one stream event. stream labels which subscription it
// came from and may be empty.
func (printer *Printer) Event(stream string, event sse.Event) error {
	if !printer.styled {
		return printer.line(eventLine{Stream: stream, ID: event.ID, Event: event.Name(), Data: event.Value()})
	}

	var builder strings.Builder
	faint := printer.renderer.NewStyle().Foreground(printer.theme.FaintText)
	if stream != "" {
		builder.WriteString(faint.Render("[" + stream + "]"))
		builder.WriteByte(' ')
	}
	if event.ID != "" {
		builder.WriteString(faint.Render(event.ID))
		builder.WriteByte(' ')
	}
	builder.WriteString(printer.renderer.NewStyle().
		Foreground(printer.theme.EventColor(event.Name())).
		Bold(true).
		Render(event.Name()))
	if skipped, ok := event.Lagged(); ok {
		builder.WriteString(fmt.Sprintf(" (%d events dropped)", skipped))
	} else if event.Text != "" {
		builder.WriteByte(' ')
		builder.WriteString(printer.renderer.NewStyle().Foreground(printer.theme.NormalText).Render(event.Text))
	}
	return printer.Text("%s", builder.String())
}

// outcomeLine is the piped form of an outcome.
type outcomeLine struct {
	Action  string          `json:"action,omitempty"`
	Kind    dispatch.Kind   `json:"kind"`
	Summary string          `json:"summary"`
	Raw     json.RawMessage `json:"raw,omitempty"`
}

// Outcome writes one dispatch outcome. action labels the action it
// belongs to and may be empty.
func (printer *Printer) Outcome(action string, outcome dispatch.Outcome) error {
	if !printer.styled {
		line := outcomeLine{Action: action, Kind: outcome.Kind(), Summary: outcome.String()}
		if unknown, ok := outcome.(dispatch.Unknown); ok {
			line.Raw = unknown.Raw
		}
		return printer.line(line)
	}

	kind := printer.renderer.NewStyle().
		Width(kindWidth).
		Foreground(printer.theme.OutcomeColor(outcome.Kind())).
		Bold(true).
		Render(string(outcome.Kind()))
	if action != "" {
		action = printer.renderer.NewStyle().Foreground(printer.theme.FaintText).Render(action) + " "
	}
	return printer.Text("%s%s %s", action, kind, outcome.String())
}

// batchErrorLine is the piped form of a failed batch slot.
type batchErrorLine struct {
	Action string              `json:"action,omitempty"`
	Error  *dispatch.ItemError `json:"error"`
}

// BatchResult writes one slot of a batch response.
func (printer *Printer) BatchResult(action string, result dispatch.BatchResult) error {
	if result.OK() {
		return printer.Outcome(action, result.Outcome)
	}
	if !printer.styled {
		return printer.line(batchErrorLine{Action: action, Error: result.Err})
	}

	label := printer.renderer.NewStyle().
		Width(kindWidth).
		Foreground(printer.theme.Failure).
		Bold(true).
		Render("error")
	retry := ""
	if result.Err.Retryable {
		retry = " (retryable)"
	}
	if action != "" {
		action = printer.renderer.NewStyle().Foreground(printer.theme.FaintText).Render(action) + " "
	}
	return printer.Text("%s%s %s%s", action, label, result.Err.Error(), retry)
}

// line writes value as compact JSON on one line.
func (printer *Printer) line(value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	printer.mutex.Lock()
	defer printer.mutex.Unlock()
	_, err = fmt.Fprintf(printer.out, "%s\n", data)
	return err
}

// normalizeNilSlice returns an empty slice of the same type if value
// is a nil slice, so that JSON serialization produces [] instead of
// null. Returns value unchanged for all other types.
func normalizeNilSlice(value any) any {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Slice && v.IsNil() {
		return reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	return value
}
