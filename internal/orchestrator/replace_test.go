package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/intendproject/ingraph/pkg/graphstore"
	"github.com/intendproject/ingraph/pkg/jsonld"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockThings struct {
	mu        sync.Mutex
	calls     []string
	imported  [][]byte
	deleteErr error
	importErr error
}

func (m *mockThings) Delete(ctx context.Context, nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "delete:"+nodeID)
	return m.deleteErr
}

func (m *mockThings) Import(ctx context.Context, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "import")
	m.imported = append(m.imported, payload)
	return m.importErr
}

func TestDeleteThenReimport(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`[{"@id":"https://intendproject.eu/gate/Unit_1"}]`)
	nodeID := "https://intendproject.eu/gate/Unit_1"

	t.Run("deletes before importing", func(t *testing.T) {
		things := &mockThings{}
		o := New(&mockStore{}, Options{Things: things})

		require.NoError(t, o.DeleteThenReimport(ctx, nodeID, payload))
		assert.Equal(t, []string{"delete:" + nodeID, "import"}, things.calls)
		assert.JSONEq(t, string(payload), string(things.imported[0]))
	})

	t.Run("missing node still imports", func(t *testing.T) {
		things := &mockThings{deleteErr: &graphstore.NotFoundError{Kind: "thing", Name: nodeID}}
		o := New(&mockStore{}, Options{Things: things})

		require.NoError(t, o.DeleteThenReimport(ctx, nodeID, payload))
		assert.Equal(t, []string{"delete:" + nodeID, "import"}, things.calls)
	})

	t.Run("delete failure stops before import", func(t *testing.T) {
		things := &mockThings{deleteErr: &graphstore.RejectedError{Op: "delete", StatusCode: 403, Body: "forbidden"}}
		o := New(&mockStore{}, Options{Things: things})

		err := o.DeleteThenReimport(ctx, nodeID, payload)
		require.Error(t, err)
		assert.True(t, graphstore.IsRejected(err))
		assert.Equal(t, []string{"delete:" + nodeID}, things.calls)
	})

	t.Run("import failure is reported", func(t *testing.T) {
		things := &mockThings{importErr: errors.New("bad gateway")}
		o := New(&mockStore{}, Options{Things: things})

		err := o.DeleteThenReimport(ctx, nodeID, payload)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to import")
	})

	t.Run("waits the configured delay", func(t *testing.T) {
		things := &mockThings{}
		o := New(&mockStore{}, Options{Things: things, ReplaceDelay: 50 * time.Millisecond})

		start := time.Now()
		require.NoError(t, o.DeleteThenReimport(ctx, nodeID, payload))
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("cancellation during the delay skips import", func(t *testing.T) {
		things := &mockThings{}
		o := New(&mockStore{}, Options{Things: things, ReplaceDelay: time.Minute})

		cctx, cancel := context.WithCancel(ctx)
		time.AfterFunc(20*time.Millisecond, cancel)

		err := o.DeleteThenReimport(cctx, nodeID, payload)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []string{"delete:" + nodeID}, things.calls)
	})

	t.Run("requires things API", func(t *testing.T) {
		o := New(&mockStore{}, Options{})
		assert.ErrorIs(t, o.DeleteThenReimport(ctx, nodeID, payload), ErrNoThingsAPI)
	})

	t.Run("rejects invalid payload", func(t *testing.T) {
		o := New(&mockStore{}, Options{Things: &mockThings{}})
		assert.True(t, IsValidation(o.DeleteThenReimport(ctx, nodeID, []byte(`[{`))))
	})
}

func TestReplaceNodes(t *testing.T) {
	ctx := context.Background()
	doc, err := jsonld.Normalize([]byte(`[
		{"@id":"https://intendproject.eu/gate/Unit_1","name":"one"},
		{"@id":"https://intendproject.eu/gate/Unit_2","name":"two"}
	]`))
	require.NoError(t, err)

	t.Run("replaces every node as a one-element array", func(t *testing.T) {
		things := &mockThings{}
		rec := &eventRecorder{}
		o := New(&mockStore{}, Options{Things: things, Reporter: rec})

		summary, err := o.ReplaceNodes(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"https://intendproject.eu/gate/Unit_1",
			"https://intendproject.eu/gate/Unit_2",
		}, summary.Replaced)

		require.Len(t, things.imported, 2)
		var first []map[string]any
		require.NoError(t, json.Unmarshal(things.imported[0], &first))
		require.Len(t, first, 1)
		assert.Equal(t, "one", first[0]["name"])

		for _, e := range rec.events {
			assert.Equal(t, summary.RunID, e.RunID)
		}
	})

	t.Run("stops at first failure", func(t *testing.T) {
		things := &mockThings{deleteErr: errors.New("unreachable")}
		o := New(&mockStore{}, Options{Things: things})

		summary, err := o.ReplaceNodes(ctx, doc)
		require.Error(t, err)
		assert.Empty(t, summary.Replaced)
		assert.Len(t, things.calls, 1)
	})

	t.Run("node without id", func(t *testing.T) {
		noID, err := jsonld.Normalize([]byte(`[{"name":"anonymous"}]`))
		require.NoError(t, err)

		o := New(&mockStore{}, Options{Things: &mockThings{}})
		_, err = o.ReplaceNodes(ctx, noID)
		assert.True(t, IsValidation(err))
	})
}
