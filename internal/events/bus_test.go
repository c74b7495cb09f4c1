package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/intendproject/ingraph/internal/orchestrator"
	"github.com/intendproject/ingraph/pkg/graphstore"
	"github.com/intendproject/ingraph/pkg/jsonld"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestBus creates a bus connected to a miniredis instance
func setupTestBus(t *testing.T) (*Bus, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	bus, err := NewBus("redis://"+mr.Addr(), "test", nil)
	require.NoError(t, err)
	t.Cleanup(func() { bus.Close() })
	return bus, mr
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "ingraph:gate:upload_events", Channel("gate"))
}

func TestNewBus(t *testing.T) {
	t.Run("rejects empty namespace", func(t *testing.T) {
		_, err := NewBus("redis://localhost:6379", "", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "namespace cannot be empty")
	})

	t.Run("rejects bad URL", func(t *testing.T) {
		_, err := NewBus("http://localhost", "gate", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid events redis URL")
	})

	t.Run("pings", func(t *testing.T) {
		bus, _ := setupTestBus(t)
		assert.NoError(t, bus.Ping(context.Background()))
	})
}

func receive(t *testing.T, sub *Subscription) orchestrator.Event {
	t.Helper()
	select {
	case e, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return orchestrator.Event{}
	}
}

func TestPublishSubscribe(t *testing.T) {
	bus, _ := setupTestBus(t)
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	sent := orchestrator.Event{
		RunID:      "run-1",
		Step:       orchestrator.StepUpload,
		Status:     orchestrator.EventSucceeded,
		Repository: "GATE",
		Message:    "upload accepted",
		Time:       time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, bus.Publish(ctx, sent))

	got := receive(t, sub)
	assert.Equal(t, sent.RunID, got.RunID)
	assert.Equal(t, sent.Step, got.Step)
	assert.Equal(t, sent.Repository, got.Repository)
	assert.True(t, sent.Time.Equal(got.Time))
}

func TestSubscribe_SkipsMalformedMessages(t *testing.T) {
	bus, mr := setupTestBus(t)
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	mr.Publish(Channel("test"), "not json")
	require.NoError(t, bus.Publish(ctx, orchestrator.Event{RunID: "after"}))

	select {
	case err := <-sub.Errors():
		assert.Contains(t, err.Error(), "failed to decode event")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for decode error")
	}
	assert.Equal(t, "after", receive(t, sub).RunID)
}

func TestSubscription_Close(t *testing.T) {
	bus, _ := setupTestBus(t)

	sub, err := bus.Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("events channel not closed")
	}
}

// The bus plugs into the orchestrator as a reporter.
type stubStore struct{}

func (stubStore) Health(context.Context) error { return nil }
func (stubStore) ListRepositories(context.Context) ([]graphstore.Repository, error) {
	return []graphstore.Repository{{ID: "GATE"}}, nil
}
func (stubStore) CreateRepository(context.Context, graphstore.RepositoryDescriptor) error {
	return nil
}
func (stubStore) Upload(context.Context, string, *jsonld.Document) error { return nil }
func (stubStore) CountTriples(context.Context, string) (int64, error)    { return 3, nil }
func (stubStore) Clear(context.Context, string) error                    { return nil }

func TestBus_AsReporter(t *testing.T) {
	bus, _ := setupTestBus(t)
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	doc, err := jsonld.Normalize([]byte(`[{"@id":"a"}]`))
	require.NoError(t, err)

	o := orchestrator.New(stubStore{}, orchestrator.Options{Reporter: bus})
	result, err := o.EnsureAndUpload(ctx, doc, graphstore.RepositoryDescriptor{ID: "GATE"})
	require.NoError(t, err)

	first := receive(t, sub)
	assert.Equal(t, result.RunID, first.RunID)
	assert.Equal(t, orchestrator.StepHealth, first.Step)
	assert.Equal(t, orchestrator.EventStarted, first.Status)
}
