package jsonld

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Reserved JSON-LD keywords used by the envelope.
const (
	KeywordContext = "@context"
	KeywordGraph   = "@graph"
	KeywordID      = "@id"
	KeywordType    = "@type"
	KeywordVocab   = "@vocab"
)

// Context maps short names to IRIs or to keyword aliases such as "@id".
type Context map[string]string

// DefaultContext returns a fresh copy of the context used for INTEND knowledge graphs.
// Callers may modify the returned map without affecting later calls.
func DefaultContext() Context {
	return Context{
		KeywordVocab: "https://intendproject.eu/schema/",
		"gate":       "https://intendproject.eu/gate/",
		"schema":     "https://schema.org/",
		"ds":         "https://vocab.sti2.at/ds/",
		"semantify":  "https://semantify.it/ds/",
		"id":         KeywordID,
		"type":       KeywordType,
	}
}

// Clone returns an independent copy of the context.
func (c Context) Clone() Context {
	if c == nil {
		return nil
	}
	return maps.Clone(c)
}

// Node is one graph entity, kept as the exact JSON it was read from.
type Node json.RawMessage

// MarshalJSON returns the node bytes unchanged.
func (n Node) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	return n, nil
}

// UnmarshalJSON stores a copy of the raw node bytes.
func (n *Node) UnmarshalJSON(data []byte) error {
	if n == nil {
		return fmt.Errorf("jsonld: UnmarshalJSON on nil Node")
	}
	*n = append((*n)[0:0], data...)
	return nil
}

// ID returns the node identifier. Both "@id" and its "id" alias are honoured.
// The second return value is false when the node is not an object or has no
// string identifier.
func (n Node) ID() (string, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(n, &fields); err != nil {
		return "", false
	}

	for _, key := range []string{KeywordID, "id"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var id string
		if err := json.Unmarshal(raw, &id); err == nil && id != "" {
			return id, true
		}
	}
	return "", false
}

// Document is a knowledge graph in canonical envelope form.
type Document struct {
	Context Context
	Graph   []Node

	// Source is the file the document was read from, if any. Not serialized.
	Source string
}

type envelope struct {
	Context Context `json:"@context"`
	Graph   []Node  `json:"@graph"`
}

// MarshalJSON renders the document as {"@context": ..., "@graph": [...]}.
func (d Document) MarshalJSON() ([]byte, error) {
	graph := d.Graph
	if graph == nil {
		graph = []Node{}
	}
	return json.Marshal(envelope{Context: d.Context, Graph: graph})
}

// Bytes serializes the document with two-space indentation, leaving
// non-ASCII and HTML characters unescaped.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// Head returns a copy of the document holding at most the first n nodes.
func (d *Document) Head(n int) *Document {
	if n < 0 {
		n = 0
	}
	if n > len(d.Graph) {
		n = len(d.Graph)
	}
	graph := make([]Node, n)
	copy(graph, d.Graph[:n])
	return &Document{Context: d.Context.Clone(), Graph: graph, Source: d.Source}
}

// Len returns the number of nodes in the graph.
func (d *Document) Len() int {
	return len(d.Graph)
}
