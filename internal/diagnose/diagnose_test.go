package diagnose

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/intendproject/ingraph/internal/testutil"
	"github.com/intendproject/ingraph/pkg/graphstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStore accepts a payload when accept returns true.
type stubStore struct {
	accept   func(contentType string, body []byte) bool
	countErr error
	sent     []string
}

func (s *stubStore) PostStatements(ctx context.Context, repoID, contentType string, body []byte) error {
	s.sent = append(s.sent, contentType)
	if s.accept(contentType, body) {
		return nil
	}
	return &graphstore.RejectedError{Op: "upload", StatusCode: http.StatusBadRequest, Body: "nope"}
}

func (s *stubStore) CountTriples(ctx context.Context, repoID string) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return 11, nil
}

func nodes(n int) []byte {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = `{"@id": "https://intendproject.eu/gate/n` + strings.Repeat("x", i) + `"}`
	}
	return []byte("[" + strings.Join(parts, ",") + "]")
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("stops at the first accepted content type", func(t *testing.T) {
		store := &stubStore{accept: func(ct string, _ []byte) bool { return ct == "application/json" }}

		report, err := Run(ctx, store, "GATE", nodes(3))
		require.NoError(t, err)
		require.Len(t, report.Attempts, 2)
		assert.False(t, report.Attempts[0].OK)
		assert.Equal(t, http.StatusBadRequest, report.Attempts[0].StatusCode)

		ok, found := report.Succeeded()
		require.True(t, found)
		assert.Equal(t, "application/json", ok.ContentType)
		assert.True(t, report.Probe.Accessible)
		assert.Equal(t, graphstore.KnownCount(11), report.Probe.TripleCount)
		assert.Contains(t, report.Hint(), "application/json")
	})

	t.Run("charset variation", func(t *testing.T) {
		store := &stubStore{accept: func(ct string, _ []byte) bool { return strings.Contains(ct, "charset") }}

		report, err := Run(ctx, store, "GATE", nodes(3))
		require.NoError(t, err)
		assert.Len(t, report.Attempts, len(ContentTypes)+1)
		assert.Equal(t, "application/ld+json; charset=utf-8", store.sent[len(store.sent)-1])
		assert.Contains(t, report.Hint(), "charset")
	})

	t.Run("reduced payload sends the first five nodes", func(t *testing.T) {
		lastID := "gate/n" + strings.Repeat("x", 11) + `"`
		var chunk []byte
		store := &stubStore{accept: func(_ string, body []byte) bool {
			if !strings.Contains(string(body), lastID) {
				chunk = body
				return true
			}
			return false
		}}

		report, err := Run(ctx, store, "GATE", nodes(12))
		require.NoError(t, err)
		require.Len(t, report.Attempts, len(ContentTypes)+2)

		ok, found := report.Succeeded()
		require.True(t, found)
		assert.Equal(t, "chunk", ok.Name)
		assert.Equal(t, ChunkSize, strings.Count(string(chunk), "intendproject.eu/gate/n"))
		assert.Contains(t, string(chunk), `"@context"`)
		assert.Contains(t, report.Hint(), "file size")
	})

	t.Run("nothing accepted still probes", func(t *testing.T) {
		store := &stubStore{accept: func(string, []byte) bool { return false }}

		report, err := Run(ctx, store, "GATE", nodes(2))
		require.NoError(t, err)
		assert.Len(t, report.Attempts, len(ContentTypes)+2)
		_, found := report.Succeeded()
		assert.False(t, found)
		assert.True(t, report.Probe.Accessible)
		assert.Contains(t, report.Hint(), "rejected")
	})

	t.Run("inaccessible repository", func(t *testing.T) {
		store := &stubStore{
			accept:   func(string, []byte) bool { return false },
			countErr: &graphstore.NotFoundError{Kind: "repository", Name: "GATE"},
		}

		report, err := Run(ctx, store, "GATE", nodes(2))
		require.NoError(t, err)
		assert.False(t, report.Probe.Accessible)
		assert.Equal(t, graphstore.UnknownCount, report.Probe.TripleCount)
		assert.NotEmpty(t, report.Probe.Error)
		assert.Contains(t, report.Hint(), "not accessible")
	})

	t.Run("unparseable content skips the chunk attempt", func(t *testing.T) {
		store := &stubStore{accept: func(string, []byte) bool { return false }}

		report, err := Run(ctx, store, "GATE", []byte("not json"))
		require.NoError(t, err)
		last := report.Attempts[len(report.Attempts)-1]
		assert.Equal(t, "chunk", last.Name)
		assert.NotEmpty(t, last.Error)
		assert.Len(t, store.sent, len(ContentTypes)+1)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		store := &stubStore{accept: func(string, []byte) bool { return true }}

		report, err := Run(cctx, store, "GATE", nodes(1))
		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, report.Attempts)
	})

	t.Run("arguments are checked", func(t *testing.T) {
		_, err := Run(ctx, &stubStore{}, "", nodes(1))
		assert.Error(t, err)
		_, err = Run(ctx, &stubStore{}, "GATE", nil)
		assert.Error(t, err)
	})
}

func TestRunAgainstGraphDB(t *testing.T) {
	fake := testutil.NewFakeGraphDB(t, "GATE")
	store, err := graphstore.NewClient(graphstore.Config{BaseURL: fake.URL()})
	require.NoError(t, err)

	t.Run("json-ld accepted first", func(t *testing.T) {
		report, err := Run(context.Background(), store, "GATE", []byte(`{"@context": {}, "@graph": [{"@id": "a"}]}`))
		require.NoError(t, err)
		require.Len(t, report.Attempts, 1)
		assert.True(t, report.Attempts[0].OK)
		assert.Equal(t, graphstore.KnownCount(1), report.Probe.TripleCount)
	})

	t.Run("rejections carry the status code", func(t *testing.T) {
		fake.FailUploads(http.StatusBadRequest, "JSON-LD parse error")

		report, err := Run(context.Background(), store, "GATE", nodes(2))
		require.NoError(t, err)
		for _, a := range report.Attempts {
			assert.Equal(t, http.StatusBadRequest, a.StatusCode, a.Name)
		}
		assert.True(t, report.Probe.Accessible)
	})
}
