// Package orchestrator drives a graph store through the ensure-then-upload
// sequence and the companion clear and replace operations.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/intendproject/ingraph/pkg/graphstore"
	"github.com/intendproject/ingraph/pkg/jsonld"
)

// DefaultHealthTimeout bounds the health probe when none is configured.
const DefaultHealthTimeout = 5 * time.Second

// Store is the graph store surface the orchestrator drives.
// Both the direct GraphDB client and the facade client satisfy it.
type Store interface {
	Health(ctx context.Context) error
	ListRepositories(ctx context.Context) ([]graphstore.Repository, error)
	CreateRepository(ctx context.Context, desc graphstore.RepositoryDescriptor) error
	Upload(ctx context.Context, repoID string, doc *jsonld.Document) error
	CountTriples(ctx context.Context, repoID string) (int64, error)
	Clear(ctx context.Context, repoID string) error
}

// ThingsAPI deletes and imports single nodes.
type ThingsAPI interface {
	Delete(ctx context.Context, nodeID string) error
	Import(ctx context.Context, payload []byte) error
}

// Status is the outcome of an upload.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Result describes a finished upload.
type Result struct {
	RunID       string           `json:"run_id"`
	Repository  string           `json:"repository"`
	Filename    string           `json:"filename,omitempty"`
	TripleCount graphstore.Count `json:"total_triples"`
	Status      Status           `json:"status"`
}

// Options configures an Orchestrator. Zero values are usable.
type Options struct {
	HealthTimeout time.Duration
	ReplaceDelay  time.Duration
	Reporter      Reporter
	Things        ThingsAPI
}

// Orchestrator sequences store calls. It holds no state between calls.
type Orchestrator struct {
	store         Store
	things        ThingsAPI
	reporter      Reporter
	healthTimeout time.Duration
	replaceDelay  time.Duration
}

// New creates an orchestrator over store.
func New(store Store, opts Options) *Orchestrator {
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = DefaultHealthTimeout
	}
	if opts.Reporter == nil {
		opts.Reporter = NopReporter
	}
	if opts.ReplaceDelay < 0 {
		opts.ReplaceDelay = 0
	}
	return &Orchestrator{
		store:         store,
		things:        opts.Things,
		reporter:      opts.Reporter,
		healthTimeout: opts.HealthTimeout,
		replaceDelay:  opts.ReplaceDelay,
	}
}

// run carries the id shared by all events of one call.
type run struct {
	id       string
	repo     string
	reporter Reporter
}

func (o *Orchestrator) newRun(repo string) *run {
	return &run{id: uuid.New().String(), repo: repo, reporter: o.reporter}
}

func (r *run) emit(step Step, status EventStatus, msg string, err error) {
	e := Event{
		RunID:      r.id,
		Step:       step,
		Status:     status,
		Repository: r.repo,
		Message:    msg,
		Time:       time.Now().UTC(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	r.reporter.Report(e)
}

// EnsureAndUpload probes the store, creates the repository if it is not
// listed, uploads doc and reads back the triple count.
//
// A failed health probe stops the run before any other store call. An
// "already exists" answer from create counts as success. A failed count
// leaves TripleCount unknown without failing the upload.
func (o *Orchestrator) EnsureAndUpload(ctx context.Context, doc *jsonld.Document, repo graphstore.RepositoryDescriptor) (*Result, error) {
	r := o.newRun(repo.ID)

	if err := o.probe(ctx, r); err != nil {
		return nil, err
	}
	if err := o.ensureRepository(ctx, r, repo); err != nil {
		return nil, err
	}
	return o.upload(ctx, r, doc, repo.ID)
}

// Upload validates and uploads doc into an existing repository, then reads
// back the triple count.
func (o *Orchestrator) Upload(ctx context.Context, doc *jsonld.Document, repoID string) (*Result, error) {
	return o.upload(ctx, o.newRun(repoID), doc, repoID)
}

func (o *Orchestrator) probe(ctx context.Context, r *run) error {
	r.emit(StepHealth, EventStarted, "checking graph store health", nil)

	healthCtx, cancel := context.WithTimeout(ctx, o.healthTimeout)
	defer cancel()

	if err := o.store.Health(healthCtx); err != nil {
		if !graphstore.IsUnavailable(err) {
			err = &graphstore.UnavailableError{Op: "health", Err: err}
		}
		r.emit(StepHealth, EventFailed, "graph store is not reachable", err)
		return err
	}

	r.emit(StepHealth, EventSucceeded, "graph store is healthy", nil)
	return nil
}

func (o *Orchestrator) ensureRepository(ctx context.Context, r *run, repo graphstore.RepositoryDescriptor) error {
	r.emit(StepCheck, EventStarted, "checking repository", nil)

	repos, err := o.store.ListRepositories(ctx)
	if err != nil {
		r.emit(StepCheck, EventFailed, "failed to list repositories", err)
		return fmt.Errorf("failed to list repositories: %w", err)
	}

	if slices.Contains(graphstore.RepositoryIDs(repos), repo.ID) {
		r.emit(StepCheck, EventSucceeded, fmt.Sprintf("repository '%s' exists", repo.ID), nil)
		r.emit(StepCreate, EventSkipped, "", nil)
		return nil
	}

	r.emit(StepCreate, EventStarted, fmt.Sprintf("creating repository '%s'", repo.ID), nil)
	err = o.store.CreateRepository(ctx, repo)
	switch {
	case err == nil:
		r.emit(StepCreate, EventSucceeded, fmt.Sprintf("repository '%s' created", repo.ID), nil)
	case graphstore.IsAlreadyExists(err):
		r.emit(StepCreate, EventSucceeded, fmt.Sprintf("repository '%s' was created concurrently", repo.ID), nil)
	default:
		r.emit(StepCreate, EventFailed, fmt.Sprintf("failed to create repository '%s'", repo.ID), err)
		return err
	}
	return nil
}

func (o *Orchestrator) upload(ctx context.Context, r *run, doc *jsonld.Document, repoID string) (*Result, error) {
	if err := validate(doc, repoID); err != nil {
		r.emit(StepValidate, EventFailed, "document rejected before upload", err)
		return nil, err
	}

	r.emit(StepUpload, EventStarted, fmt.Sprintf("uploading %d nodes", doc.Len()), nil)
	if err := o.store.Upload(ctx, repoID, doc); err != nil {
		r.emit(StepUpload, EventFailed, "upload failed", err)
		return nil, err
	}
	r.emit(StepUpload, EventSucceeded, "upload accepted", nil)

	result := &Result{
		RunID:       r.id,
		Repository:  repoID,
		Filename:    doc.Source,
		TripleCount: graphstore.UnknownCount,
		Status:      StatusSuccess,
	}

	count, err := o.store.CountTriples(ctx, repoID)
	if err != nil {
		r.emit(StepCount, EventDegraded, "triple count unavailable", err)
		return result, nil
	}
	result.TripleCount = graphstore.KnownCount(count)
	r.emit(StepCount, EventSucceeded, fmt.Sprintf("repository holds %d triples", count), nil)
	return result, nil
}

// validate re-checks a document even though the normalizer already did.
func validate(doc *jsonld.Document, repoID string) error {
	if repoID == "" {
		return &ValidationError{Field: "repository", Reason: "id is empty"}
	}
	if doc == nil {
		return &ValidationError{Field: "document", Reason: "document is nil"}
	}
	if len(doc.Context) == 0 {
		return &ValidationError{Field: "@context", Reason: "context is empty"}
	}
	for i, node := range doc.Graph {
		if !json.Valid(node) {
			return &ValidationError{Field: fmt.Sprintf("@graph[%d]", i), Reason: "node is not valid JSON"}
		}
	}
	if _, err := doc.Bytes(); err != nil {
		return &ValidationError{Field: "document", Reason: err.Error()}
	}
	return nil
}

// Clear deletes every triple in repoID. There is no confirmation.
func (o *Orchestrator) Clear(ctx context.Context, repoID string) error {
	r := o.newRun(repoID)
	r.emit(StepClear, EventStarted, fmt.Sprintf("clearing repository '%s'", repoID), nil)

	if err := o.store.Clear(ctx, repoID); err != nil {
		r.emit(StepClear, EventFailed, "clear failed", err)
		return err
	}
	r.emit(StepClear, EventSucceeded, fmt.Sprintf("repository '%s' cleared", repoID), nil)
	return nil
}
