package export

import (
	"context"
	"encoding/json"
	"io"

	"treepilot/layout"
	"treepilot/viewport"
)

// JSONExporter exports the layout result to JSON format
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Document is the JSON form of a scene.
type Document struct {
	Title     string             `json:"title,omitempty"`
	Transform viewport.Transform `json:"transform"`
	*layout.Result
}

// Export writes the layout and its transform as indented JSON
func (e *JSONExporter) Export(_ context.Context, s Scene, w io.Writer) error {
	if err := s.validate(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Document{Title: s.Title, Transform: s.Transform, Result: s.Layout})
}

// GetFileExtension returns the file extension for JSON
func (e *JSONExporter) GetFileExtension() string {
	return ".json"
}

// GetFormatName returns the format name
func (e *JSONExporter) GetFormatName() string {
	return "JSON"
}
