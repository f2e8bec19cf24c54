package export

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"treepilot/core"
	"treepilot/layout"
)

// MermaidExporter exports the tree to a Mermaid flowchart
type MermaidExporter struct{}

// NewMermaidExporter creates a new Mermaid exporter
func NewMermaidExporter() *MermaidExporter {
	return &MermaidExporter{}
}

// Export writes the tree as Mermaid syntax
func (e *MermaidExporter) Export(_ context.Context, s Scene, w io.Writer) error {
	if s.Layout.Empty() {
		return fmt.Errorf("scene has no nodes")
	}
	_, err := io.WriteString(w, e.flowchart(s.Layout))
	return err
}

func (e *MermaidExporter) flowchart(res *layout.Result) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	nodeMap := nodeIDs(res)
	classes := make(map[string][]string)
	seen := make(map[string]bool)
	for _, p := range res.Positions {
		id := nodeMap[p.Key]
		if seen[id] {
			continue
		}
		seen[id] = true
		sb.WriteString(fmt.Sprintf("    %s%s\n", id, e.formatNodeWithShape(e.getNodeLabel(p), e.getNodeShape(p))))
		className := e.getColorClassName(gender(p))
		classes[className] = append(classes[className], id)
	}

	edges := parentEdges(res, nodeMap)
	if len(edges) > 0 {
		sb.WriteString("\n")
	}
	for _, edge := range edges {
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", edge[0], edge[1]))
	}

	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)
	sb.WriteString("\n")
	for _, name := range names {
		sb.WriteString(e.getClassDefinition(name))
		sb.WriteString("\n")
	}
	for _, name := range names {
		sb.WriteString(fmt.Sprintf("    class %s %s\n", strings.Join(classes[name], ","), name))
	}
	return sb.String()
}

// getNodeLabel joins the name and lifespan of a person
func (e *MermaidExporter) getNodeLabel(p layout.Position) string {
	if p.Node == nil {
		return e.escapeLabel(p.ID)
	}
	label := p.Node.Name
	if ls := p.Node.Lifespan(); ls != "" {
		label += "<br/>" + ls
	}
	return e.escapeLabel(label)
}

// escapeLabel escapes special characters in labels
func (e *MermaidExporter) escapeLabel(label string) string {
	label = strings.ReplaceAll(label, `"`, "#quot;")
	return `"` + label + `"`
}

// getNodeShape picks the root out with a double border
func (e *MermaidExporter) getNodeShape(p layout.Position) string {
	if p.Direction == core.DirectionRoot || p.Depth == 0 {
		return "double"
	}
	return "rounded"
}

// formatNodeWithShape formats a node with its shape for Mermaid
func (e *MermaidExporter) formatNodeWithShape(label string, shape string) string {
	switch shape {
	case "rounded":
		return fmt.Sprintf("(%s)", label)
	case "double":
		return fmt.Sprintf("[[%s]]", label)
	default:
		return fmt.Sprintf("[%s]", label)
	}
}

// GetFileExtension returns the recommended file extension
func (e *MermaidExporter) GetFileExtension() string {
	return ".mmd"
}

// GetFormatName returns the format name
func (e *MermaidExporter) GetFormatName() string {
	return "Mermaid"
}

// getColorClassName maps a gender to a class name
func (e *MermaidExporter) getColorClassName(g core.Gender) string {
	switch g {
	case core.GenderMale:
		return "male"
	case core.GenderFemale:
		return "female"
	default:
		return "unknown"
	}
}

// getClassDefinition returns the style of a gender class
func (e *MermaidExporter) getClassDefinition(className string) string {
	switch className {
	case "male":
		return "    classDef male fill:#dbe7f6,stroke:#4a7fc1,color:#000"
	case "female":
		return "    classDef female fill:#f6dbe6,stroke:#c1557f,color:#000"
	default:
		return "    classDef unknown fill:#eeeeee,stroke:#8a8a8a,color:#000"
	}
}

// nodeIDs maps layout keys to diagram-safe person identifiers. Repeated
// appearances of one person share an identifier.
func nodeIDs(res *layout.Result) map[string]string {
	ids := make(map[string]string, len(res.Positions))
	for _, p := range res.Positions {
		ids[p.Key] = diagramID(p.ID)
	}
	return ids
}

// diagramID turns "@I1@" into "I1" and replaces anything else Mermaid and DOT
// would not accept in a bare identifier.
func diagramID(personID string) string {
	id := []rune(strings.Trim(personID, "@"))
	for i, r := range id {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			id[i] = '_'
		}
	}
	if len(id) == 0 || id[0] >= '0' && id[0] <= '9' {
		return "P" + string(id)
	}
	return string(id)
}

// parentEdges lists each parent and child pair once, older generation first.
func parentEdges(res *layout.Result, ids map[string]string) [][2]string {
	var edges [][2]string
	seen := make(map[[2]string]bool)
	for _, l := range res.Links {
		from, ok := ids[l.Source]
		if !ok {
			continue
		}
		to, ok := ids[l.Target]
		if !ok {
			continue
		}
		// Ancestor links point from the older generation to the younger one.
		if p, ok := res.Find(l.Target); ok && p.Direction == core.DirectionAncestor {
			from, to = to, from
		}
		edge := [2]string{from, to}
		if seen[edge] {
			continue
		}
		seen[edge] = true
		edges = append(edges, edge)
	}
	return edges
}

func gender(p layout.Position) core.Gender {
	if p.Node == nil {
		return core.GenderUnknown
	}
	return p.Node.Gender
}
