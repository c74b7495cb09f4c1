package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/intendproject/ingraph/pkg/jsonld"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ingraph.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
graphdb:
  url: "http://graphdb.internal:7200"
  timeout: 45s
repository:
  id: "second-graph"
  ruleset: "owl2-rl"
things:
  publisher: "intend"
  replace_delay: 2s
server:
  addr: "127.0.0.1:5050"
`)

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://graphdb.internal:7200", config.GraphDB.URL)
	assert.Equal(t, 45*time.Second, config.GraphDB.Timeout)
	assert.Equal(t, 5*time.Second, config.GraphDB.HealthTimeout)
	assert.Equal(t, 2*time.Second, config.Things.ReplaceDelay)
	assert.Equal(t, "127.0.0.1:5050", config.Server.Addr)
	assert.Equal(t, int64(16<<20), config.Server.MaxUploadBytes)

	desc := config.Descriptor()
	assert.Equal(t, "second-graph", desc.ID)
	assert.Equal(t, "owl2-rl", desc.Ruleset)
	assert.Equal(t, "second-graph Knowledge Graph Repository", desc.Title)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/ingraph.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
graphdb:
  - this is invalid
    yaml syntax
`)

	config, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unsupported version",
			content: `version: "2.0"`,
			wantErr: "unsupported version: 2.0",
		},
		{
			name: "graphdb url without scheme",
			content: `version: "1.0"
graphdb:
  url: "localhost:7200"`,
			wantErr: "graphdb.url must use http or https",
		},
		{
			name: "bad repository id",
			content: `version: "1.0"
repository:
  id: "bad/id"`,
			wantErr: "repository: invalid repository descriptor",
		},
		{
			name: "negative replace delay",
			content: `version: "1.0"
things:
  replace_delay: -1s`,
			wantErr: "things.replace_delay must be >= 0",
		},
		{
			name: "container port out of range",
			content: `version: "1.0"
container:
  port: 70000`,
			wantErr: "container.port out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		config, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yml"))
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:7200", config.GraphDB.URL)
		assert.Equal(t, "GATE", config.Repository.ID)
		assert.Equal(t, 10*time.Second, config.Things.ReplaceDelay)
		assert.Equal(t, "second-graph", config.Server.DefaultRepository)
	})

	t.Run("broken file is still an error", func(t *testing.T) {
		_, err := LoadOrDefault(writeConfig(t, `version: "9"`))
		assert.Error(t, err)
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvGraphDBURL, "http://env-graphdb:7200")
	t.Setenv(EnvThingsAPIKey, "from-env")
	t.Setenv(EnvEventsRedis, "redis://localhost:6379/0")
	t.Setenv(EnvProxyURL, "")

	config := Default()
	config.Proxy.URL = "http://facade:5000"
	config.ApplyEnv()

	assert.Equal(t, "http://env-graphdb:7200", config.GraphDB.URL)
	assert.Equal(t, "from-env", config.Things.APIKey)
	assert.Equal(t, "redis://localhost:6379/0", config.Events.RedisURL)
	assert.Equal(t, "http://facade:5000", config.Proxy.URL, "empty variables do not override")
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("loads variables", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("INGRAPH_TEST_ENV_VALUE=hello\n"), 0644))
		t.Cleanup(func() { os.Unsetenv("INGRAPH_TEST_ENV_VALUE") })

		require.NoError(t, LoadEnvFile(path, true))
		assert.Equal(t, "hello", os.Getenv("INGRAPH_TEST_ENV_VALUE"))
	})

	t.Run("optional missing file", func(t *testing.T) {
		assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env"), false))
	})

	t.Run("required missing file", func(t *testing.T) {
		err := LoadEnvFile(filepath.Join(t.TempDir(), ".env"), true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read env file")
	})
}

func TestJSONLDContext(t *testing.T) {
	config := Default()
	assert.Equal(t, jsonld.DefaultContext(), config.JSONLDContext())

	config.Context = map[string]string{"@vocab": "https://example.org/"}
	assert.Equal(t, jsonld.Context{"@vocab": "https://example.org/"}, config.JSONLDContext())
}

func TestThingsClient(t *testing.T) {
	config := Default()
	config.Things.APIKey = "k"

	tc := config.ThingsClient()
	assert.Equal(t, "https://proxy.onlim.com/api/ts/v1/kg", tc.BaseURL)
	assert.Equal(t, "https://intendproject.eu/gate/", tc.Namespace)
	assert.Equal(t, "k", tc.APIKey)
}
