package orchestrator

import (
	"time"

	"github.com/intendproject/ingraph/internal/logging"
)

// Step names one stage of an orchestrated run.
type Step string

const (
	StepHealth   Step = "health"
	StepCheck    Step = "check_repository"
	StepCreate   Step = "create_repository"
	StepValidate Step = "validate"
	StepUpload   Step = "upload"
	StepCount    Step = "count"
	StepClear    Step = "clear"
	StepDelete   Step = "delete"
	StepWait     Step = "wait"
	StepImport   Step = "import"
)

// EventStatus is the outcome of a step.
type EventStatus string

const (
	EventStarted   EventStatus = "started"
	EventSucceeded EventStatus = "succeeded"
	EventSkipped   EventStatus = "skipped"
	EventDegraded  EventStatus = "degraded"
	EventFailed    EventStatus = "failed"
)

// Event is one progress notification. All events of a single call share a RunID.
type Event struct {
	RunID      string      `json:"run_id"`
	Step       Step        `json:"step"`
	Status     EventStatus `json:"status"`
	Repository string      `json:"repository,omitempty"`
	Node       string      `json:"node,omitempty"`
	Message    string      `json:"message,omitempty"`
	Error      string      `json:"error,omitempty"`
	Time       time.Time   `json:"time"`
}

// Reporter receives progress events. Implementations must not block for long;
// they run inline with the orchestrated calls.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

func (f ReporterFunc) Report(e Event) { f(e) }

// NopReporter discards events.
var NopReporter Reporter = ReporterFunc(func(Event) {})

// MultiReporter fans every event out to each reporter in order.
func MultiReporter(reporters ...Reporter) Reporter {
	active := make([]Reporter, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			active = append(active, r)
		}
	}
	return ReporterFunc(func(e Event) {
		for _, r := range active {
			r.Report(e)
		}
	})
}

// LogReporter writes events to a structured logger.
func LogReporter(logger logging.Logger) Reporter {
	return ReporterFunc(func(e Event) {
		keyvals := []any{"run_id", e.RunID, "step", e.Step, "status", e.Status}
		if e.Repository != "" {
			keyvals = append(keyvals, "repository", e.Repository)
		}
		if e.Node != "" {
			keyvals = append(keyvals, "node", e.Node)
		}
		if e.Error != "" {
			keyvals = append(keyvals, "err", e.Error)
		}

		msg := e.Message
		if msg == "" {
			msg = string(e.Step)
		}

		switch e.Status {
		case EventFailed:
			logger.Error(msg, keyvals...)
		case EventDegraded:
			logger.Warn(msg, keyvals...)
		case EventStarted:
			logger.Debug(msg, keyvals...)
		default:
			logger.Info(msg, keyvals...)
		}
	})
}
