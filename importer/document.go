package importer

import (
	"strings"

	"treepilot/source"
)

// JSONImporter reads the native family file format
type JSONImporter struct{}

// NewJSONImporter creates a new JSON importer
func NewJSONImporter() *JSONImporter {
	return &JSONImporter{}
}

// CanImport checks if the content is a JSON object
func (j *JSONImporter) CanImport(content string) bool {
	return strings.HasPrefix(strings.TrimSpace(content), "{")
}

// Import parses the document
func (j *JSONImporter) Import(content string) (*source.Document, error) {
	return source.ParseDocument([]byte(content), "json")
}

// GetFormatName returns the format name
func (j *JSONImporter) GetFormatName() string {
	return "JSON"
}

// GetFileExtensions returns common file extensions
func (j *JSONImporter) GetFileExtensions() []string {
	return []string{".json"}
}

// YAMLImporter reads family files written in YAML
type YAMLImporter struct{}

// NewYAMLImporter creates a new YAML importer
func NewYAMLImporter() *YAMLImporter {
	return &YAMLImporter{}
}

// CanImport checks for a top-level individuals key
func (y *YAMLImporter) CanImport(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "individuals:") {
			return true
		}
	}
	return false
}

// Import parses the document
func (y *YAMLImporter) Import(content string) (*source.Document, error) {
	return source.ParseDocument([]byte(content), "yaml")
}

// GetFormatName returns the format name
func (y *YAMLImporter) GetFormatName() string {
	return "YAML"
}

// GetFileExtensions returns common file extensions
func (y *YAMLImporter) GetFileExtensions() []string {
	return []string{".yaml", ".yml"}
}
