// Package report writes CLI results as text, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Formats.
const (
	Text = "text"
	JSON = "json"
	YAML = "yaml"
)

// Texter is implemented by records with a single-line text rendering.
type Texter interface {
	Text() string
}

// Writer writes records in one format. JSON records are one object per
// line; YAML records are separate documents.
type Writer struct {
	w      io.Writer
	format string
	yaml   *yaml.Encoder
}

// NewWriter returns a writer for format. Unknown formats are rejected.
func NewWriter(w io.Writer, format string) (*Writer, error) {
	switch format {
	case Text, JSON:
		return &Writer{w: w, format: format}, nil
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		return &Writer{w: w, format: format, yaml: enc}, nil
	default:
		return nil, fmt.Errorf("report: unknown format %q", format)
	}
}

// Write writes one record.
func (w *Writer) Write(rec Texter) error {
	switch w.format {
	case JSON:
		return json.NewEncoder(w.w).Encode(rec)
	case YAML:
		return w.yaml.Encode(rec)
	default:
		_, err := fmt.Fprintln(w.w, rec.Text())
		return err
	}
}

// Close flushes buffered output.
func (w *Writer) Close() error {
	if w.yaml != nil {
		return w.yaml.Close()
	}
	return nil
}
