package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/intendproject/ingraph/pkg/graphstore"
	"github.com/intendproject/ingraph/pkg/jsonld"
)

// ErrNoThingsAPI is returned by replace operations when no things API is configured.
var ErrNoThingsAPI = errors.New("things API is not configured")

// ReplaceSummary lists the nodes a ReplaceNodes call replaced.
type ReplaceSummary struct {
	RunID    string   `json:"run_id"`
	Replaced []string `json:"replaced"`
}

// DeleteThenReimport deletes nodeID, waits the replace delay and imports
// payload. The two calls are not atomic: the node is absent while waiting.
// A NotFound on delete is tolerated; any other delete failure stops the
// replacement before import.
func (o *Orchestrator) DeleteThenReimport(ctx context.Context, nodeID string, payload []byte) error {
	return o.deleteThenReimport(ctx, o.newRun(""), nodeID, payload)
}

func (o *Orchestrator) deleteThenReimport(ctx context.Context, r *run, nodeID string, payload []byte) error {
	if o.things == nil {
		return ErrNoThingsAPI
	}
	if nodeID == "" {
		return &ValidationError{Field: "@id", Reason: "node id is empty"}
	}
	if !json.Valid(payload) {
		return &ValidationError{Field: "payload", Reason: "payload is not valid JSON"}
	}

	emit := func(step Step, status EventStatus, msg string, err error) {
		e := Event{
			RunID:   r.id,
			Step:    step,
			Status:  status,
			Node:    nodeID,
			Message: msg,
			Time:    time.Now().UTC(),
		}
		if err != nil {
			e.Error = err.Error()
		}
		r.reporter.Report(e)
	}

	emit(StepDelete, EventStarted, "deleting node", nil)
	err := o.things.Delete(ctx, nodeID)
	switch {
	case err == nil:
		emit(StepDelete, EventSucceeded, "node deleted", nil)
	case graphstore.IsNotFound(err):
		emit(StepDelete, EventSkipped, "node was not present", nil)
	default:
		emit(StepDelete, EventFailed, "delete failed, node left untouched", err)
		return fmt.Errorf("failed to delete '%s': %w", nodeID, err)
	}

	if o.replaceDelay > 0 {
		emit(StepWait, EventStarted, fmt.Sprintf("waiting %s before import", o.replaceDelay), nil)
		timer := time.NewTimer(o.replaceDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			emit(StepWait, EventFailed, "cancelled while node is absent", ctx.Err())
			return ctx.Err()
		case <-timer.C:
		}
	}

	emit(StepImport, EventStarted, "importing replacement", nil)
	if err := o.things.Import(ctx, payload); err != nil {
		emit(StepImport, EventFailed, "import failed, node is absent", err)
		return fmt.Errorf("failed to import '%s': %w", nodeID, err)
	}
	emit(StepImport, EventSucceeded, "node replaced", nil)
	return nil
}

// ReplaceNodes runs DeleteThenReimport for every graph node in order,
// importing each node as a one-element array. It stops at the first failure.
func (o *Orchestrator) ReplaceNodes(ctx context.Context, doc *jsonld.Document) (*ReplaceSummary, error) {
	if doc == nil {
		return nil, &ValidationError{Field: "document", Reason: "document is nil"}
	}

	r := o.newRun("")
	summary := &ReplaceSummary{RunID: r.id, Replaced: []string{}}

	for i, node := range doc.Graph {
		id, ok := node.ID()
		if !ok {
			return summary, &ValidationError{Field: fmt.Sprintf("@graph[%d]", i), Reason: "node has no @id"}
		}

		payload, err := json.Marshal([]jsonld.Node{node})
		if err != nil {
			return summary, fmt.Errorf("failed to encode node '%s': %w", id, err)
		}
		if err := o.deleteThenReimport(ctx, r, id, payload); err != nil {
			return summary, err
		}
		summary.Replaced = append(summary.Replaced, id)
	}
	return summary, nil
}
