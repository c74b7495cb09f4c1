package container

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	containers []types.Container
	err        error
	options    container.ListOptions
}

func (f *fakeLister) ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error) {
	f.options = options
	return f.containers, f.err
}

// withBindable overrides the host port probe for the duration of a test.
func withBindable(t *testing.T, fn func(int) bool) {
	t.Helper()
	orig := portBindable
	portBindable = fn
	t.Cleanup(func() { portBindable = orig })
}

func TestBuildLabels(t *testing.T) {
	labels := BuildLabels("ingraph-graphdb", "run-1", 7201)

	assert.Equal(t, "true", labels[LabelProject])
	assert.Equal(t, "ingraph-graphdb", labels[LabelName])
	assert.Equal(t, "run-1", labels[LabelRunID])
	assert.Equal(t, "7201", labels[LabelPort])
	assert.Len(t, labels, 4)
}

func TestGenerateRunID(t *testing.T) {
	a, b := GenerateRunID(), GenerateRunID()

	_, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestFindAvailablePort(t *testing.T) {
	ctx := context.Background()

	t.Run("first port when nothing is used", func(t *testing.T) {
		withBindable(t, func(int) bool { return true })
		lister := &fakeLister{}

		port, err := FindAvailablePort(ctx, lister)
		require.NoError(t, err)
		assert.Equal(t, StartPort, port)
		assert.True(t, lister.options.All)
		assert.True(t, lister.options.Filters.ExactMatch("label", projectFilter()))
	})

	t.Run("skips ports recorded on containers", func(t *testing.T) {
		withBindable(t, func(int) bool { return true })
		lister := &fakeLister{containers: []types.Container{
			{Labels: map[string]string{LabelPort: "7200"}},
			{Labels: map[string]string{LabelPort: "7201"}},
			{Labels: map[string]string{LabelPort: "garbage"}},
		}}

		port, err := FindAvailablePort(ctx, lister)
		require.NoError(t, err)
		assert.Equal(t, 7202, port)
	})

	t.Run("skips ports bound on the host", func(t *testing.T) {
		withBindable(t, func(p int) bool { return p > 7203 })

		port, err := FindAvailablePort(ctx, &fakeLister{})
		require.NoError(t, err)
		assert.Equal(t, 7204, port)
	})

	t.Run("range exhausted", func(t *testing.T) {
		withBindable(t, func(int) bool { return false })

		_, err := FindAvailablePort(ctx, &fakeLister{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "7200-7299 exhausted")
	})

	t.Run("docker error", func(t *testing.T) {
		_, err := FindAvailablePort(ctx, &fakeLister{err: errors.New("daemon gone")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "daemon gone")
	})
}

func TestDetermineStatus(t *testing.T) {
	assert.Equal(t, StatusMissing, DetermineStatus(nil))
	assert.Equal(t, StatusRunning, DetermineStatus(&types.Container{State: "running"}))
	assert.Equal(t, StatusStopped, DetermineStatus(&types.Container{State: "exited"}))
	assert.Equal(t, StatusStopped, DetermineStatus(&types.Container{State: "created"}))
}

func TestInfoFromContainer(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	t.Run("running", func(t *testing.T) {
		c := &types.Container{
			ID:      "0123456789abcdef0123",
			Image:   "ontotext/graphdb:10.6.3",
			State:   "running",
			Status:  "Up 2 hours",
			Created: now.Add(-2 * time.Hour).Unix(),
			Labels:  BuildLabels("ingraph-graphdb", "run-1", 7205),
		}

		info := InfoFromContainer(c, "ingraph-graphdb", now)
		assert.Equal(t, StatusRunning, info.Status)
		assert.Equal(t, "0123456789ab", info.ID)
		assert.Equal(t, 7205, info.Port)
		assert.Equal(t, "http://localhost:7205", info.URL)
		assert.Equal(t, "run-1", info.RunID)
		assert.Equal(t, "2h", info.Uptime)
	})

	t.Run("stopped has no uptime", func(t *testing.T) {
		c := &types.Container{ID: "abc", State: "exited", Created: now.Unix()}
		info := InfoFromContainer(c, "x", now)
		assert.Equal(t, StatusStopped, info.Status)
		assert.Empty(t, info.Uptime)
		assert.Zero(t, info.Port)
	})

	t.Run("missing", func(t *testing.T) {
		info := InfoFromContainer(nil, "x", now)
		assert.Equal(t, StatusMissing, info.Status)
		assert.Equal(t, "x", info.Name)
	})
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
		{50 * time.Hour, "2d"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatUptime(tt.d))
		})
	}
}

func TestContainerName(t *testing.T) {
	assert.Equal(t, "ingraph-graphdb", containerName(types.Container{Names: []string{"/ingraph-graphdb"}}))
	assert.Equal(t, "0123456789ab", containerName(types.Container{ID: "0123456789abcdef"}))
}

func TestWaitHealthy(t *testing.T) {
	t.Run("succeeds once the check passes", func(t *testing.T) {
		var calls atomic.Int32
		check := func(context.Context) error {
			if calls.Add(1) < 3 {
				return errors.New("starting")
			}
			return nil
		}

		err := WaitHealthy(context.Background(), check, 5*time.Millisecond, time.Second)
		require.NoError(t, err)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("timeout includes the last error", func(t *testing.T) {
		check := func(context.Context) error { return errors.New("connection refused") }

		err := WaitHealthy(context.Background(), check, 5*time.Millisecond, 30*time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout waiting for GraphDB")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := WaitHealthy(ctx, func(context.Context) error { return errors.New("x") }, time.Second, time.Minute)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
