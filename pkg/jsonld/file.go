package jsonld

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FixedSuffix is appended to the base name of normalized output files.
const FixedSuffix = "_fixed"

// ReadRaw reads a file, wrapping the error with its path.
func ReadRaw(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// ReadFile reads and normalizes a knowledge-graph file with DefaultContext.
func ReadFile(path string) (*Document, error) {
	return defaultNormalizer.ReadFile(path)
}

// ReadFile reads and normalizes a knowledge-graph file.
func (n *Normalizer) ReadFile(path string) (*Document, error) {
	data, err := ReadRaw(path)
	if err != nil {
		return nil, err
	}

	doc, err := n.Normalize(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// WriteFile writes the document with two-space indentation.
func WriteFile(path string, doc *Document) error {
	data, err := doc.Bytes()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// FixFile normalizes in and writes the result to out.
func (n *Normalizer) FixFile(in, out string) (*Document, error) {
	doc, err := n.ReadFile(in)
	if err != nil {
		return nil, err
	}
	if err := WriteFile(out, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// DefaultOutputPath derives the output path for a fixed file:
// "KG/gateKG.jsonld" becomes "KG/gateKG_fixed.jsonld".
func DefaultOutputPath(in string) string {
	ext := filepath.Ext(in)
	base := strings.TrimSuffix(in, ext)
	if ext == "" {
		ext = ".jsonld"
	}
	return base + FixedSuffix + ext
}
