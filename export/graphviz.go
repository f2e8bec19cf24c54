package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"treepilot/core"
	"treepilot/layout"
)

// Points per inch in DOT positions.
const dotScale = 72.0

// GraphvizExporter exports the tree to Graphviz DOT syntax
type GraphvizExporter struct{}

// NewGraphvizExporter creates a new Graphviz exporter
func NewGraphvizExporter() *GraphvizExporter {
	return &GraphvizExporter{}
}

// Export writes the tree as DOT. Node positions are pinned so that neato -n
// reproduces the tidy layout; dot ignores them and ranks left to right.
func (e *GraphvizExporter) Export(_ context.Context, s Scene, w io.Writer) error {
	if s.Layout.Empty() {
		return fmt.Errorf("scene has no nodes")
	}
	res := s.Layout

	var sb strings.Builder
	sb.WriteString("digraph family {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, style=\"rounded,filled\", fontname=\"Helvetica\"];\n")
	sb.WriteString("  edge [arrowhead=none, color=\"#9aa5b1\"];\n\n")

	ids := nodeIDs(res)
	seen := make(map[string]bool)
	for _, p := range res.Positions {
		if seen[ids[p.Key]] {
			continue
		}
		seen[ids[p.Key]] = true
		attrs := e.getNodeAttributes(p, s.Size)
		sb.WriteString(fmt.Sprintf("  %s [label=\"%s\", %s];\n", ids[p.Key], e.getNodeLabel(p), attrs))
	}

	edges := parentEdges(res, ids)
	if len(edges) > 0 {
		sb.WriteString("\n")
	}
	for _, edge := range edges {
		sb.WriteString(fmt.Sprintf("  %s -> %s;\n", edge[0], edge[1]))
	}

	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// getNodeLabel joins the name and lifespan of a person
func (e *GraphvizExporter) getNodeLabel(p layout.Position) string {
	if p.Node == nil {
		return e.escapeLabel(p.ID)
	}
	label := e.escapeLabel(p.Node.Name)
	if ls := p.Node.Lifespan(); ls != "" {
		label += `\n` + e.escapeLabel(ls)
	}
	return label
}

// escapeLabel escapes special characters in labels
func (e *GraphvizExporter) escapeLabel(label string) string {
	label = strings.ReplaceAll(label, `\`, `\\`)
	label = strings.ReplaceAll(label, `"`, `\"`)
	return label
}

// getNodeAttributes builds the fill colour and pinned position of a person
func (e *GraphvizExporter) getNodeAttributes(p layout.Position, size core.Size) string {
	fill := map[core.Gender]string{
		core.GenderMale:   "#dbe7f6",
		core.GenderFemale: "#f6dbe6",
	}[gender(p)]
	if fill == "" {
		fill = "#eeeeee"
	}
	attrs := []string{
		fmt.Sprintf("class=\"%s\"", gender(p)),
		fmt.Sprintf("fillcolor=\"%s\"", fill),
		fmt.Sprintf("color=\"%s\"", markerColor(gender(p))),
		// DOT's y axis points up.
		fmt.Sprintf("pos=\"%.2f,%.2f!\"", p.X/dotScale, (size.Height-p.Y)/dotScale),
	}
	if p.Direction == core.DirectionRoot || p.Depth == 0 {
		attrs = append(attrs, "penwidth=2")
	}
	return strings.Join(attrs, ", ")
}

// GetFileExtension returns the recommended file extension
func (e *GraphvizExporter) GetFileExtension() string {
	return ".dot"
}

// GetFormatName returns the format name
func (e *GraphvizExporter) GetFormatName() string {
	return "Graphviz DOT"
}
