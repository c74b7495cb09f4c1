package jsonld

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	t.Run("root array", func(t *testing.T) {
		report, err := Inspect([]byte(`[{"@id":"a"},{"name":"no id"}]`))
		require.NoError(t, err)
		assert.True(t, report.IsRootArray)
		assert.False(t, report.HasContext)
		assert.False(t, report.HasGraph)
		assert.False(t, report.Wrapped())
		assert.Equal(t, 2, report.NodeCount)
		assert.Equal(t, 1, report.MissingIDs)
	})

	t.Run("wrapped document", func(t *testing.T) {
		report, err := Inspect([]byte(`{"@context":{},"@graph":[{"@id":"a"},{"@id":"b"},{"@id":"c"}]}`))
		require.NoError(t, err)
		assert.True(t, report.HasContext)
		assert.True(t, report.HasGraph)
		assert.True(t, report.Wrapped())
		assert.False(t, report.IsRootArray)
		assert.Equal(t, 3, report.NodeCount)
		assert.Empty(t, report.SiblingKeys)
	})

	t.Run("graph with siblings", func(t *testing.T) {
		report, err := Inspect([]byte(`{"@graph":[],"name":"x","@id":"urn:g"}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"@id", "name"}, report.SiblingKeys)
		assert.False(t, report.HasContext)
	})

	t.Run("single object", func(t *testing.T) {
		report, err := Inspect([]byte(`{"@context":{},"@id":"solo"}`))
		require.NoError(t, err)
		assert.True(t, report.SingleObject)
		assert.True(t, report.HasContext)
		assert.Equal(t, 1, report.NodeCount)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := Inspect([]byte(`{"@graph": [`))
		require.Error(t, err)
		assert.True(t, IsFormatError(err))
	})

	t.Run("does not change normalized output", func(t *testing.T) {
		raw := []byte(`[{"@id":"a"}]`)
		_, err := Inspect(raw)
		require.NoError(t, err)
		assert.Equal(t, `[{"@id":"a"}]`, string(raw))
	})
}

func TestFixFile(t *testing.T) {
	tmpDir := t.TempDir()
	in := filepath.Join(tmpDir, "gateKG.jsonld")
	require.NoError(t, os.WriteFile(in, []byte(`[{"@id":"gate:Unit_1","name":"Tür <1>"}]`), 0644))

	out := DefaultOutputPath(in)
	assert.Equal(t, filepath.Join(tmpDir, "gateKG_fixed.jsonld"), out)

	doc, err := NewNormalizer(nil).FixFile(in, out)
	require.NoError(t, err)
	assert.Equal(t, in, doc.Source)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(written), "Tür <1>", "non-ASCII and HTML characters should not be escaped")
	assert.Contains(t, string(written), "\n  \"@context\"", "output should use two-space indentation")

	report, err := Inspect(written)
	require.NoError(t, err)
	assert.True(t, report.Wrapped())
	assert.Equal(t, 1, report.NodeCount)

	t.Run("missing input", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(tmpDir, "missing.jsonld"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read")
	})

	t.Run("malformed input names the file", func(t *testing.T) {
		bad := filepath.Join(tmpDir, "bad.jsonld")
		require.NoError(t, os.WriteFile(bad, []byte(`{oops`), 0644))
		_, err := ReadFile(bad)
		require.Error(t, err)
		assert.True(t, IsFormatError(err))
		assert.Contains(t, err.Error(), "bad.jsonld")
	})
}

func TestDefaultOutputPath(t *testing.T) {
	assert.Equal(t, "KG/gateKG_fixed.jsonld", DefaultOutputPath("KG/gateKG.jsonld"))
	assert.Equal(t, "unit_fixed.json", DefaultOutputPath("unit.json"))
	assert.Equal(t, "noext_fixed.jsonld", DefaultOutputPath("noext"))
}
