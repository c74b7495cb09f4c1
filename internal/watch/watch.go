package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/intendproject/ingraph/internal/orchestrator"
)

// OutputFormat selects how streamed events are written.
type OutputFormat string

const (
	OutputFormatDefault OutputFormat = "default"
	OutputFormatJSON    OutputFormat = "json"
)

// ParseOutputFormat accepts "default" and "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSON:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format: %s", s)
}

// Source is a stream of events, such as an events.Subscription.
type Source interface {
	Events() <-chan orchestrator.Event
	Errors() <-chan error
}

var statusIcons = map[orchestrator.EventStatus]string{
	orchestrator.EventStarted:   "⏳",
	orchestrator.EventSucceeded: "✅",
	orchestrator.EventSkipped:   "⏭️",
	orchestrator.EventDegraded:  "⚠️",
	orchestrator.EventFailed:    "❌",
}

// StreamEvents writes events from src to w until ctx ends or src closes.
// Decode errors are written as warnings and do not stop the stream.
func StreamEvents(ctx context.Context, src Source, format OutputFormat, w io.Writer) error {
	events := src.Events()
	errs := src.Errors()
	enc := json.NewEncoder(w)

	for {
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-events:
			if !ok {
				return nil
			}
			if format == OutputFormatJSON {
				if err := enc.Encode(e); err != nil {
					return fmt.Errorf("failed to write event: %w", err)
				}
				continue
			}
			if _, err := fmt.Fprintln(w, FormatEvent(e)); err != nil {
				return fmt.Errorf("failed to write event: %w", err)
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if format == OutputFormatDefault {
				fmt.Fprintf(w, "⚠️  %v\n", err)
			}
		}
	}
}

// FormatEvent renders one event as a single human-readable line.
func FormatEvent(e orchestrator.Event) string {
	icon, ok := statusIcons[e.Status]
	if !ok {
		icon = "•"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s", formatTime(e.Time), icon, e.Step)
	if e.Repository != "" {
		fmt.Fprintf(&b, " repo=%s", e.Repository)
	}
	if e.Node != "" {
		fmt.Fprintf(&b, " node=%s", e.Node)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Error != "" {
		fmt.Fprintf(&b, " (%s)", e.Error)
	}
	if len(e.RunID) >= 8 {
		fmt.Fprintf(&b, " [run %s]", e.RunID[:8])
	}
	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "--:--:--"
	}
	return t.Local().Format("15:04:05")
}
