//go:build integration

package graphstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/intendproject/ingraph/pkg/jsonld"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupGraphDB starts a GraphDB container for testing.
func setupGraphDB(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "ontotext/graphdb:10.6.3",
		ExposedPorts: []string{"7200/tcp"},
		WaitingFor: wait.ForHTTP("/rest/repositories").
			WithPort("7200/tcp").
			WithStartupTimeout(3 * time.Minute),
	}

	graphdbC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start GraphDB container: %v", err)
	}
	t.Cleanup(func() {
		if err := graphdbC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate GraphDB container: %v", err)
		}
	})

	host, err := graphdbC.Host(ctx)
	require.NoError(t, err)
	port, err := graphdbC.MappedPort(ctx, "7200")
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

func TestGraphDB_CreateUploadCountClear(t *testing.T) {
	baseURL := setupGraphDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := NewClient(Config{BaseURL: baseURL})
	require.NoError(t, err)
	require.NoError(t, client.Health(ctx))

	require.NoError(t, client.CreateRepository(ctx, RepositoryDescriptor{ID: "GATE"}))

	err = client.CreateRepository(ctx, RepositoryDescriptor{ID: "GATE"})
	assert.True(t, IsAlreadyExists(err), "second create should report already exists, got %v", err)

	doc, err := jsonld.Normalize([]byte(`[
		{"@id": "gate:a", "@type": "schema:Thing", "schema:name": "A"},
		{"@id": "gate:b", "@type": "schema:Thing", "schema:name": "B"}
	]`))
	require.NoError(t, err)
	require.NoError(t, client.Upload(ctx, "GATE", doc))

	count, err := client.CountTriples(ctx, "GATE")
	require.NoError(t, err)
	assert.Greater(t, count, int64(0))

	require.NoError(t, client.Clear(ctx, "GATE"))

	count, err = client.CountTriples(ctx, "GATE")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
