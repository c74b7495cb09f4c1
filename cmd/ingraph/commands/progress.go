package commands

import (
	"fmt"

	"github.com/intendproject/ingraph/internal/orchestrator"
	"github.com/intendproject/ingraph/internal/printer"
)

var stepLabels = map[orchestrator.Step]string{
	orchestrator.StepHealth:   "Checking GraphDB",
	orchestrator.StepCheck:    "Checking repository",
	orchestrator.StepCreate:   "Creating repository",
	orchestrator.StepValidate: "Validating document",
	orchestrator.StepUpload:   "Uploading",
	orchestrator.StepCount:    "Counting triples",
	orchestrator.StepClear:    "Clearing repository",
	orchestrator.StepDelete:   "Deleting node",
	orchestrator.StepWait:     "Waiting before import",
	orchestrator.StepImport:   "Importing node",
}

// newProgressReporter prints orchestrator events to the terminal.
func newProgressReporter() orchestrator.Reporter {
	return orchestrator.ReporterFunc(printEvent)
}

func printEvent(e orchestrator.Event) {
	label, ok := stepLabels[e.Step]
	if !ok {
		label = string(e.Step)
	}
	if e.Node != "" {
		label = fmt.Sprintf("%s %s", label, e.Node)
	}

	switch e.Status {
	case orchestrator.EventStarted:
		printer.Step("%s...\n", label)
	case orchestrator.EventSucceeded:
		if e.Message != "" {
			printer.Success("%s: %s\n", label, e.Message)
		} else {
			printer.Success("%s\n", label)
		}
	case orchestrator.EventSkipped:
		printer.Detail("%s skipped: %s\n", label, e.Message)
	case orchestrator.EventDegraded:
		printer.Warning("%s: %s\n", label, e.Error)
	case orchestrator.EventFailed:
		printer.Failure("%s failed: %s\n", label, e.Error)
	}
}
