// Package diagnose replays a failing upload against GraphDB with a series of
// variations and reports which, if any, the server accepts.
package diagnose

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/intendproject/ingraph/pkg/graphstore"
	"github.com/intendproject/ingraph/pkg/jsonld"
)

// ChunkSize is the number of nodes sent by the reduced-payload attempt.
const ChunkSize = 5

// ContentTypes are tried in order with the unmodified payload.
var ContentTypes = []string{
	graphstore.ContentTypeJSONLD,
	"application/json",
	"text/turtle",
	"application/rdf+xml",
}

const charsetContentType = graphstore.ContentTypeJSONLD + "; charset=utf-8"

// Store is the GraphDB surface diagnostics needs.
type Store interface {
	PostStatements(ctx context.Context, repoID, contentType string, body []byte) error
	CountTriples(ctx context.Context, repoID string) (int64, error)
}

// Attempt is one upload variation and its outcome.
type Attempt struct {
	Name        string        `json:"name"`
	ContentType string        `json:"content_type"`
	Bytes       int           `json:"bytes"`
	OK          bool          `json:"ok"`
	StatusCode  int           `json:"status_code,omitempty"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Probe is the result of the closing count query.
type Probe struct {
	Accessible  bool             `json:"accessible"`
	TripleCount graphstore.Count `json:"triple_count"`
	Error       string           `json:"error,omitempty"`
}

// Report collects every attempt in the order they ran.
type Report struct {
	Repository string    `json:"repository"`
	Bytes      int       `json:"bytes"`
	Attempts   []Attempt `json:"attempts"`
	Probe      Probe     `json:"probe"`
}

// Succeeded returns the attempt that was accepted, if any.
func (r *Report) Succeeded() (Attempt, bool) {
	for _, a := range r.Attempts {
		if a.OK {
			return a, true
		}
	}
	return Attempt{}, false
}

// Hint suggests a likely cause based on which attempt worked.
func (r *Report) Hint() string {
	a, ok := r.Succeeded()
	switch {
	case !ok && !r.Probe.Accessible:
		return "repository is not accessible; check that it exists and GraphDB is running"
	case !ok:
		return "every variation was rejected; check the payload with 'ingraph validate'"
	case a.Name == "chunk":
		return "a reduced payload was accepted; the issue might be file size or specific content"
	case a.Name == "charset":
		return "the server needs an explicit charset on the content type"
	case a.ContentType != graphstore.ContentTypeJSONLD:
		return fmt.Sprintf("the server accepted the payload as %s", a.ContentType)
	default:
		return "the payload was accepted unchanged"
	}
}

// Run tries each content type with content unchanged, then JSON-LD with an
// explicit charset, then only the first ChunkSize nodes. It stops at the
// first accepted attempt and always finishes with an accessibility probe.
func Run(ctx context.Context, store Store, repo string, content []byte) (*Report, error) {
	if repo == "" {
		return nil, errors.New("repository is required")
	}
	if len(content) == 0 {
		return nil, errors.New("content is empty")
	}

	report := &Report{Repository: repo, Bytes: len(content)}

	type variation struct {
		name        string
		contentType string
		body        func() ([]byte, error)
	}
	unchanged := func() ([]byte, error) { return content, nil }

	variations := make([]variation, 0, len(ContentTypes)+2)
	for _, ct := range ContentTypes {
		variations = append(variations, variation{name: "content-type", contentType: ct, body: unchanged})
	}
	variations = append(variations,
		variation{name: "charset", contentType: charsetContentType, body: unchanged},
		variation{name: "chunk", contentType: graphstore.ContentTypeJSONLD, body: func() ([]byte, error) {
			return firstNodes(content, ChunkSize)
		}},
	)

	for _, v := range variations {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		attempt := Attempt{Name: v.name, ContentType: v.contentType}
		body, err := v.body()
		if err != nil {
			attempt.Error = err.Error()
			report.Attempts = append(report.Attempts, attempt)
			continue
		}
		attempt.Bytes = len(body)

		start := time.Now()
		err = store.PostStatements(ctx, repo, v.contentType, body)
		attempt.Duration = time.Since(start)

		if err == nil {
			attempt.OK = true
			report.Attempts = append(report.Attempts, attempt)
			break
		}
		attempt.Error = err.Error()
		var rejected *graphstore.RejectedError
		if errors.As(err, &rejected) {
			attempt.StatusCode = rejected.StatusCode
		}
		report.Attempts = append(report.Attempts, attempt)
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	report.Probe = probe(ctx, store, repo)
	return report, nil
}

// firstNodes re-encodes content with only its first n graph nodes.
func firstNodes(content []byte, n int) ([]byte, error) {
	doc, err := jsonld.Normalize(content)
	if err != nil {
		return nil, err
	}
	return doc.Head(n).Bytes()
}

func probe(ctx context.Context, store Store, repo string) Probe {
	n, err := store.CountTriples(ctx, repo)
	if err != nil {
		return Probe{TripleCount: graphstore.UnknownCount, Error: err.Error()}
	}
	return Probe{Accessible: true, TripleCount: graphstore.KnownCount(n)}
}
