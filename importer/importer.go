// Package importer reads family documents from JSON, YAML and from the Mermaid
// and Graphviz graphs that treepilot exports.
package importer

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"treepilot/source"
)

// Importer interface defines methods for importing family documents from various formats
type Importer interface {
	// CanImport checks if the given content can be imported by this importer
	CanImport(content string) bool

	// Import converts the input content into a family document
	Import(content string) (*source.Document, error)

	// GetFormatName returns the human-readable name of the format
	GetFormatName() string

	// GetFileExtensions returns common file extensions for this format
	GetFileExtensions() []string
}

// ImporterRegistry manages available importers
type ImporterRegistry struct {
	importers []Importer
}

// NewImporterRegistry creates a new importer registry
func NewImporterRegistry() *ImporterRegistry {
	return &ImporterRegistry{
		importers: []Importer{
			NewJSONImporter(),
			NewMermaidImporter(),
			NewGraphvizImporter(),
			NewYAMLImporter(),
		},
	}
}

// Register adds a new importer to the registry
func (r *ImporterRegistry) Register(importer Importer) {
	r.importers = append(r.importers, importer)
}

// DetectFormat attempts to detect the format of the given content
func (r *ImporterRegistry) DetectFormat(content string) (Importer, error) {
	for _, imp := range r.importers {
		if imp.CanImport(content) {
			return imp, nil
		}
	}
	return nil, fmt.Errorf("unable to detect format")
}

// Import attempts to import content using auto-detection
func (r *ImporterRegistry) Import(content string) (*source.Document, error) {
	importer, err := r.DetectFormat(content)
	if err != nil {
		return nil, err
	}
	return importer.Import(content)
}

// ImportWithFormat imports content using a specific format, given by name or
// file extension.
func (r *ImporterRegistry) ImportWithFormat(content, format string) (*source.Document, error) {
	imp, err := r.lookup(format)
	if err != nil {
		return nil, err
	}
	return imp.Import(content)
}

// ImportFile imports content read from path, choosing the importer by the file
// extension and falling back to detection.
func (r *ImporterRegistry) ImportFile(path, content string) (*source.Document, error) {
	if ext := filepath.Ext(path); ext != "" {
		if imp, err := r.lookup(ext); err == nil {
			return imp.Import(content)
		}
	}
	return r.Import(content)
}

func (r *ImporterRegistry) lookup(format string) (Importer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	ext := format
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, imp := range r.importers {
		if strings.ToLower(imp.GetFormatName()) == format || slices.Contains(imp.GetFileExtensions(), ext) {
			return imp, nil
		}
	}
	return nil, fmt.Errorf("unknown format: %s", format)
}

// Importers returns the registered importers in detection order.
func (r *ImporterRegistry) Importers() []Importer {
	return slices.Clone(r.importers)
}

// GetAvailableFormats returns a list of available import formats
func (r *ImporterRegistry) GetAvailableFormats() []string {
	formats := make([]string, len(r.importers))
	for i, imp := range r.importers {
		formats[i] = imp.GetFormatName()
	}
	return formats
}
