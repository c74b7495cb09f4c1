package jsonld

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestNormalize_Array(t *testing.T) {
	t.Run("wraps node array with default context", func(t *testing.T) {
		doc, err := Normalize([]byte(`[{"@id":"a"}, {"@id":"b"}]`))
		require.NoError(t, err)

		assert.Equal(t, DefaultContext(), doc.Context)
		assert.JSONEq(t, `[{"@id":"a"},{"@id":"b"}]`, mustJSON(t, doc.Graph))

		expected := `{"@context": {
			"@vocab": "https://intendproject.eu/schema/",
			"gate": "https://intendproject.eu/gate/",
			"schema": "https://schema.org/",
			"ds": "https://vocab.sti2.at/ds/",
			"semantify": "https://semantify.it/ds/",
			"id": "@id",
			"type": "@type"
		}, "@graph": [{"@id":"a"},{"@id":"b"}]}`
		assert.JSONEq(t, expected, mustJSON(t, doc))
	})

	t.Run("empty array yields empty graph", func(t *testing.T) {
		doc, err := Normalize([]byte(`[]`))
		require.NoError(t, err)
		assert.Equal(t, 0, doc.Len())
		assert.JSONEq(t, `[]`, mustJSON(t, doc.Graph))
	})

	t.Run("node contents pass through untouched", func(t *testing.T) {
		input := `[{"@id":"gate:Unit_1","@type":"schema:Place","name":"Gate – Ünit 1","geo":{"lat":46.6,"lon":14.3},"tags":["a",null,3]}]`
		doc, err := Normalize([]byte(input))
		require.NoError(t, err)
		require.Len(t, doc.Graph, 1)
		assert.JSONEq(t, `{"@id":"gate:Unit_1","@type":"schema:Place","name":"Gate – Ünit 1","geo":{"lat":46.6,"lon":14.3},"tags":["a",null,3]}`, string(doc.Graph[0]))
	})
}

func TestNormalize_Object(t *testing.T) {
	t.Run("preserves existing graph and replaces context", func(t *testing.T) {
		input := `{"@context":{"ex":"http://example.org/"},"@graph":[{"@id":"x"}]}`
		doc, err := Normalize([]byte(input))
		require.NoError(t, err)
		assert.Equal(t, DefaultContext(), doc.Context)
		assert.JSONEq(t, `[{"@id":"x"}]`, mustJSON(t, doc.Graph))
	})

	t.Run("graph wins over sibling keys", func(t *testing.T) {
		input := `{"@id":"urn:graph:1","label":"dropped","@graph":[{"@id":"x"},{"@id":"y"}]}`
		doc, err := Normalize([]byte(input))
		require.NoError(t, err)
		assert.JSONEq(t, `[{"@id":"x"},{"@id":"y"}]`, mustJSON(t, doc.Graph))

		serialized := mustJSON(t, doc)
		assert.NotContains(t, serialized, "dropped")
		assert.NotContains(t, serialized, "urn:graph:1")
	})

	t.Run("object-valued graph becomes a singleton", func(t *testing.T) {
		doc, err := Normalize([]byte(`{"@graph":{"@id":"only"}}`))
		require.NoError(t, err)
		assert.JSONEq(t, `[{"@id":"only"}]`, mustJSON(t, doc.Graph))
	})

	t.Run("object without graph becomes a singleton graph", func(t *testing.T) {
		input := `{"@id":"solo","name":"Solo"}`
		doc, err := Normalize([]byte(input))
		require.NoError(t, err)
		require.Len(t, doc.Graph, 1)
		assert.JSONEq(t, input, string(doc.Graph[0]))
	})
}

func TestNormalize_FormatErrors(t *testing.T) {
	cases := map[string]string{
		"invalid JSON":      `[{"@id": "a"`,
		"empty input":       "   ",
		"string top level":  `"just a string"`,
		"number top level":  `42`,
		"null top level":    `null`,
		"scalar graph":      `{"@graph": "nope"}`,
		"null graph":        `{"@graph": null}`,
		"trailing garbage":  `[] []`,
		"boolean top level": `true`,
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			doc, err := Normalize([]byte(input))
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.True(t, IsFormatError(err), "expected FormatError, got %T", err)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		`[{"@id":"a"},{"@id":"b","name":"B"}]`,
		`{"@context":{"ex":"http://example.org/"},"@graph":[{"@id":"x"}]}`,
		`{"@id":"solo"}`,
		`{"@graph":{"@id":"only"}, "extra": 1}`,
		`[]`,
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first, err := Normalize([]byte(input))
			require.NoError(t, err)

			second, err := Normalize([]byte(mustJSON(t, first)))
			require.NoError(t, err)

			assert.JSONEq(t, mustJSON(t, first), mustJSON(t, second))
		})
	}
}

func TestNormalizeValue(t *testing.T) {
	doc, err := NormalizeValue([]any{
		map[string]any{"@id": "a"},
		map[string]any{"@id": "b"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"@id":"a"},{"@id":"b"}]`, mustJSON(t, doc.Graph))

	_, err = NormalizeValue("scalar")
	assert.True(t, IsFormatError(err))
}

func TestNormalizer_CustomContext(t *testing.T) {
	custom := Context{"ex": "http://example.org/"}
	n := NewNormalizer(custom)

	custom["ex"] = "mutated"

	doc, err := n.Normalize([]byte(`[{"@id":"ex:1"}]`))
	require.NoError(t, err)
	assert.Equal(t, Context{"ex": "http://example.org/"}, doc.Context)

	t.Run("empty context falls back to default", func(t *testing.T) {
		assert.Equal(t, DefaultContext(), NewNormalizer(Context{}).Context())
	})
}

func TestNode_ID(t *testing.T) {
	tests := []struct {
		name   string
		node   string
		wantID string
		wantOK bool
	}{
		{"keyword id", `{"@id":"gate:Unit_1"}`, "gate:Unit_1", true},
		{"aliased id", `{"id":"gate:Unit_2"}`, "gate:Unit_2", true},
		{"keyword wins", `{"@id":"a","id":"b"}`, "a", true},
		{"missing", `{"name":"x"}`, "", false},
		{"non-string", `{"@id":5}`, "", false},
		{"not an object", `"gate:Unit_3"`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := Node(tt.node).ID()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestDocument_Head(t *testing.T) {
	doc, err := Normalize([]byte(`[{"@id":"1"},{"@id":"2"},{"@id":"3"}]`))
	require.NoError(t, err)

	head := doc.Head(2)
	assert.Equal(t, 2, head.Len())
	assert.Equal(t, 3, doc.Len())
	assert.Equal(t, 3, doc.Head(10).Len())
	assert.Equal(t, 0, doc.Head(-1).Len())
}

func TestDefaultContext_ReturnsCopy(t *testing.T) {
	ctx := DefaultContext()
	ctx["gate"] = "changed"
	assert.Equal(t, "https://intendproject.eu/gate/", DefaultContext()["gate"])
}
