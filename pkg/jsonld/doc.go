// Package jsonld shapes knowledge-graph files into the JSON-LD envelope that
// the GraphDB importer expects.
//
// # Overview
//
// Upstream tools emit knowledge graphs as a bare JSON array of node objects.
// GraphDB only accepts them once they are wrapped in an object carrying a
// @context (mapping short names to IRIs) and a @graph (the node list). This
// package performs that wrapping and reports on the structure of a file
// before and after.
//
// Nodes are carried as raw JSON and are never rewritten: only the envelope
// around them changes. The context is configuration, not data; it is never
// derived from the input.
//
// # Normalization Rules
//
//   - A top-level array becomes the @graph as-is.
//   - A top-level object with @graph keeps that @graph. Sibling keys other
//     than @context are discarded and reported by Inspect.
//   - A top-level object without @graph becomes a one-node graph.
//   - Anything else (scalars, null, invalid JSON) is a FormatError.
//
// In every case the configured context replaces any context in the input, so
// Normalize is idempotent on its own output.
//
// # Usage Example
//
//	doc, err := jsonld.ReadFile("KG/gateKG.jsonld")
//	if err != nil {
//		return err
//	}
//	if err := jsonld.WriteFile("KG/gateKG_fixed.jsonld", doc); err != nil {
//		return err
//	}
package jsonld
