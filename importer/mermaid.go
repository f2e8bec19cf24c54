package importer

import (
	"fmt"
	"regexp"
	"strings"

	"treepilot/source"
)

var (
	mermaidHeader = regexp.MustCompile(`^(graph|flowchart)\s+(TB|TD|BT|RL|LR)?`)
	// A node declaration: I1[["Jane Doe<br/>(b. 1950)"]], I2("John Doe"), I3[Mary]
	mermaidNode = regexp.MustCompile(`^(\w+)\s*(\[\[|\(\(|\[|\(|\{)\s*"?(.*?)"?\s*(\]\]|\)\)|\]|\)|\})$`)
	// A chain of edges: I2 --> I1 --> I10
	mermaidEdge  = regexp.MustCompile(`^\w+(\s*(-->|---|==>|-\.->)\s*(\|[^|]*\|)?\s*\w+)+$`)
	mermaidArrow = regexp.MustCompile(`\s*(?:-->|---|==>|-\.->)\s*(?:\|[^|]*\|)?\s*`)
	mermaidClass = regexp.MustCompile(`^class\s+([\w,]+)\s+(\w+)$`)
)

// MermaidImporter reads the flowcharts written by the Mermaid exporter. Nodes
// are people and every edge runs from a parent to a child.
type MermaidImporter struct{}

// NewMermaidImporter creates a new Mermaid importer
func NewMermaidImporter() *MermaidImporter {
	return &MermaidImporter{}
}

// CanImport checks if the content looks like a Mermaid flowchart
func (m *MermaidImporter) CanImport(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%%") {
			continue
		}
		return mermaidHeader.MatchString(line)
	}
	return false
}

// Import converts a Mermaid flowchart to a family document
func (m *MermaidImporter) Import(content string) (*source.Document, error) {
	if !m.CanImport(content) {
		return nil, fmt.Errorf("not a Mermaid flowchart")
	}
	b := newGraphBuilder()
	for n, raw := range strings.Split(content, "\n") {
		line := strings.TrimSuffix(strings.TrimSpace(raw), ";")
		switch {
		case line == "", strings.HasPrefix(line, "%%"), mermaidHeader.MatchString(line):
		case strings.HasPrefix(line, "classDef "), strings.HasPrefix(line, "style "),
			strings.HasPrefix(line, "subgraph "), line == "end":
		case mermaidClass.MatchString(line):
			match := mermaidClass.FindStringSubmatch(line)
			for _, node := range strings.Split(match[1], ",") {
				b.gender(node, match[2])
			}
		case mermaidEdge.MatchString(line):
			nodes := mermaidArrow.Split(line, -1)
			for i := 1; i < len(nodes); i++ {
				b.edge(nodes[i-1], nodes[i])
			}
		case mermaidNode.MatchString(line):
			match := mermaidNode.FindStringSubmatch(line)
			b.label(match[1], strings.ReplaceAll(match[3], "#quot;", `"`), "<br/>")
		default:
			return nil, fmt.Errorf("line %d: unrecognised Mermaid statement %q", n+1, line)
		}
	}
	doc, err := b.document()
	if err != nil {
		return nil, fmt.Errorf("mermaid: %w", err)
	}
	return doc, nil
}

// GetFormatName returns the format name
func (m *MermaidImporter) GetFormatName() string {
	return "Mermaid"
}

// GetFileExtensions returns common file extensions
func (m *MermaidImporter) GetFileExtensions() []string {
	return []string{".mmd", ".mermaid"}
}
