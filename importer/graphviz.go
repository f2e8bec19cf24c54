package importer

import (
	"fmt"
	"regexp"
	"strings"

	"treepilot/source"
)

var (
	dotHeader = regexp.MustCompile(`^(strict\s+)?digraph\b`)
	dotEdge   = regexp.MustCompile(`^"?(\w+)"?\s*->\s*"?(\w+)"?\s*(\[.*\])?$`)
	dotNode   = regexp.MustCompile(`^"?(\w+)"?\s*\[(.*)\]$`)
	dotAttr   = regexp.MustCompile(`(\w+)\s*=\s*("((?:[^"\\]|\\.)*)"|([^,\s]+))`)
)

// GraphvizImporter reads the DOT digraphs written by the Graphviz exporter.
// Edges run from a parent to a child and the class attribute carries gender.
type GraphvizImporter struct{}

// NewGraphvizImporter creates a new Graphviz importer
func NewGraphvizImporter() *GraphvizImporter {
	return &GraphvizImporter{}
}

// CanImport checks if the content is a DOT digraph
func (g *GraphvizImporter) CanImport(content string) bool {
	return dotHeader.MatchString(strings.TrimSpace(content))
}

// Import converts a DOT digraph to a family document
func (g *GraphvizImporter) Import(content string) (*source.Document, error) {
	if !g.CanImport(content) {
		return nil, fmt.Errorf("not a Graphviz digraph")
	}
	b := newGraphBuilder()
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSuffix(strings.TrimSpace(raw), ";")
		switch {
		case line == "", line == "}", strings.HasPrefix(line, "//"), dotHeader.MatchString(line):
		case strings.HasPrefix(line, "node "), strings.HasPrefix(line, "edge "), strings.HasPrefix(line, "graph "):
		case dotEdge.MatchString(line):
			match := dotEdge.FindStringSubmatch(line)
			b.edge(match[1], match[2])
		case dotNode.MatchString(line):
			match := dotNode.FindStringSubmatch(line)
			attrs := g.parseAttributes(match[2])
			if label, ok := attrs["label"]; ok {
				b.label(match[1], label, "\n")
			} else {
				b.person(match[1])
			}
			if class, ok := attrs["class"]; ok {
				b.gender(match[1], class)
			}
		}
	}
	doc, err := b.document()
	if err != nil {
		return nil, fmt.Errorf("graphviz: %w", err)
	}
	return doc, nil
}

// parseAttributes parses a DOT attribute list into a map. Quoted values are
// unescaped, so a \n inside a label becomes a newline.
func (g *GraphvizImporter) parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)
	for _, match := range dotAttr.FindAllStringSubmatch(attrStr, -1) {
		value := match[4]
		if strings.HasPrefix(match[2], `"`) {
			value = unescapeDOT(match[3])
		}
		attrs[match[1]] = value
	}
	return attrs
}

func unescapeDOT(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n', 'l', 'r':
			sb.WriteByte('\n')
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// GetFormatName returns the format name
func (g *GraphvizImporter) GetFormatName() string {
	return "Graphviz"
}

// GetFileExtensions returns common file extensions
func (g *GraphvizImporter) GetFileExtensions() []string {
	return []string{".dot", ".gv"}
}
