package jsonld

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// FormatError reports input that is not valid JSON or whose top-level shape
// cannot be turned into a graph.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid JSON-LD document: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid JSON-LD document: %s", e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// IsFormatError returns true if err is or wraps a FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// Normalizer wraps documents using a fixed context.
type Normalizer struct {
	context Context
}

// NewNormalizer returns a normalizer that stamps ctx onto every document.
// A nil or empty ctx falls back to DefaultContext.
func NewNormalizer(ctx Context) *Normalizer {
	if len(ctx) == 0 {
		ctx = DefaultContext()
	}
	return &Normalizer{context: ctx.Clone()}
}

// Context returns a copy of the context the normalizer applies.
func (n *Normalizer) Context() Context {
	return n.context.Clone()
}

// Normalize parses raw JSON and wraps it in the canonical envelope.
func (n *Normalizer) Normalize(raw []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, &FormatError{Reason: "document is empty"}
	}
	if !json.Valid(trimmed) {
		var probe any
		err := json.Unmarshal(trimmed, &probe)
		return nil, &FormatError{Reason: "document is not valid JSON", Err: err}
	}

	switch trimmed[0] {
	case '[':
		var nodes []Node
		if err := json.Unmarshal(trimmed, &nodes); err != nil {
			return nil, &FormatError{Reason: "failed to decode node array", Err: err}
		}
		return n.wrap(nodes), nil

	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return nil, &FormatError{Reason: "failed to decode object", Err: err}
		}

		rawGraph, hasGraph := fields[KeywordGraph]
		if !hasGraph {
			return n.wrap([]Node{Node(bytes.Clone(trimmed))}), nil
		}

		nodes, err := graphNodes(rawGraph)
		if err != nil {
			return nil, err
		}
		return n.wrap(nodes), nil

	default:
		return nil, &FormatError{Reason: "top-level value must be an array or an object"}
	}
}

// NormalizeValue marshals an already-decoded JSON value and normalizes it.
func (n *Normalizer) NormalizeValue(v any) (*Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, &FormatError{Reason: "value cannot be encoded as JSON", Err: err}
	}
	return n.Normalize(raw)
}

func (n *Normalizer) wrap(nodes []Node) *Document {
	if nodes == nil {
		nodes = []Node{}
	}
	return &Document{Context: n.context.Clone(), Graph: nodes}
}

// graphNodes decodes the value of an @graph key.
// An object-valued @graph is a single-node graph.
func graphNodes(raw json.RawMessage) ([]Node, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, &FormatError{Reason: "@graph is empty"}
	}

	switch trimmed[0] {
	case '[':
		var nodes []Node
		if err := json.Unmarshal(trimmed, &nodes); err != nil {
			return nil, &FormatError{Reason: "failed to decode @graph", Err: err}
		}
		return nodes, nil
	case '{':
		return []Node{Node(trimmed)}, nil
	default:
		return nil, &FormatError{Reason: "@graph must be an array or an object"}
	}
}

var defaultNormalizer = NewNormalizer(nil)

// Normalize wraps raw JSON using DefaultContext.
func Normalize(raw []byte) (*Document, error) {
	return defaultNormalizer.Normalize(raw)
}

// NormalizeValue wraps an already-decoded JSON value using DefaultContext.
func NormalizeValue(v any) (*Document, error) {
	return defaultNormalizer.NormalizeValue(v)
}
