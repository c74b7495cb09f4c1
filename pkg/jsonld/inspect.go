package jsonld

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Report describes the top-level structure of a JSON document.
// It is meant for human-facing diagnostics only.
type Report struct {
	HasContext   bool     `json:"has_context"`
	HasGraph     bool     `json:"has_graph"`
	IsRootArray  bool     `json:"is_root_array"`
	SingleObject bool     `json:"single_object"`
	NodeCount    int      `json:"node_count"`
	SiblingKeys  []string `json:"sibling_keys,omitempty"`
	MissingIDs   int      `json:"missing_ids"`
}

// Wrapped reports whether the document already has the canonical envelope.
func (r *Report) Wrapped() bool {
	return r.HasContext && r.HasGraph
}

// Inspect examines raw JSON without modifying it.
// SiblingKeys lists top-level keys that Normalize would discard.
func Inspect(raw []byte) (*Report, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		var probe any
		err := json.Unmarshal(trimmed, &probe)
		return nil, &FormatError{Reason: "document is not valid JSON", Err: err}
	}

	report := &Report{}

	switch trimmed[0] {
	case '[':
		var nodes []Node
		if err := json.Unmarshal(trimmed, &nodes); err != nil {
			return nil, &FormatError{Reason: "failed to decode node array", Err: err}
		}
		report.IsRootArray = true
		report.NodeCount = len(nodes)
		report.MissingIDs = countMissingIDs(nodes)

	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return nil, &FormatError{Reason: "failed to decode object", Err: err}
		}
		_, report.HasContext = fields[KeywordContext]

		rawGraph, hasGraph := fields[KeywordGraph]
		if !hasGraph {
			report.SingleObject = true
			report.NodeCount = 1
			report.MissingIDs = countMissingIDs([]Node{Node(trimmed)})
			break
		}

		report.HasGraph = true
		nodes, err := graphNodes(rawGraph)
		if err != nil {
			return nil, err
		}
		report.NodeCount = len(nodes)
		report.MissingIDs = countMissingIDs(nodes)

		for key := range fields {
			if key != KeywordContext && key != KeywordGraph {
				report.SiblingKeys = append(report.SiblingKeys, key)
			}
		}
		sort.Strings(report.SiblingKeys)

	default:
		return nil, &FormatError{Reason: "top-level value must be an array or an object"}
	}

	return report, nil
}

func countMissingIDs(nodes []Node) int {
	missing := 0
	for _, n := range nodes {
		if _, ok := n.ID(); !ok {
			missing++
		}
	}
	return missing
}
