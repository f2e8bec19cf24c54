// Package export writes a laid-out family tree to image and text formats.
package export

import (
	"context"
	"fmt"
	"io"

	"treepilot/core"
	"treepilot/layout"
	"treepilot/viewport"
)

// Format represents an export format
type Format string

const (
	// FormatSVG exports a standalone SVG drawing
	FormatSVG Format = "svg"
	// FormatHTML exports the SVG drawing embedded in a page
	FormatHTML Format = "html"
	// FormatJSON exports the layout result
	FormatJSON Format = "json"
	// FormatPNG exports a raster screenshot of the SVG drawing
	FormatPNG Format = "png"
	// FormatMermaid exports a Mermaid flowchart of the tree
	FormatMermaid Format = "mermaid"
	// FormatGraphviz exports Graphviz DOT syntax
	FormatGraphviz Format = "dot"
)

// Scene is one layout pass seen through a viewport transform.
type Scene struct {
	Layout    *layout.Result
	Transform viewport.Transform
	Size      core.Size
	Title     string
	// Highlight is the key of a node drawn emphasised, if any.
	Highlight string
}

// NewScene frames a layout result with the fit transform for its own drawing area.
func NewScene(res *layout.Result, padding float64) Scene {
	s := Scene{Layout: res, Transform: viewport.Identity}
	if res == nil {
		return s
	}
	s.Size = res.Size
	s.Transform = viewport.Fit(res.Bounds(), res.Size, padding)
	return s
}

func (s Scene) validate() error {
	if s.Layout.Empty() {
		return fmt.Errorf("scene has no nodes")
	}
	if s.Size.Empty() {
		return fmt.Errorf("scene has an empty drawing area")
	}
	return nil
}

// Exporter interface for different export formats
type Exporter interface {
	// Export writes the scene in the target format
	Export(ctx context.Context, s Scene, w io.Writer) error
	// GetFileExtension returns the recommended file extension for this format
	GetFileExtension() string
	// GetFormatName returns a human-readable name for this format
	GetFormatName() string
}

// NewExporter creates an exporter for the specified format
func NewExporter(format Format) (Exporter, error) {
	switch format {
	case FormatSVG:
		return NewSVGExporter(), nil
	case FormatHTML:
		return NewHTMLExporter(), nil
	case FormatJSON:
		return NewJSONExporter(), nil
	case FormatPNG:
		return NewPNGExporter(), nil
	case FormatMermaid:
		return NewMermaidExporter(), nil
	case FormatGraphviz:
		return NewGraphvizExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// ParseFormat converts a string to a Format
func ParseFormat(s string) (Format, error) {
	switch s {
	case "svg":
		return FormatSVG, nil
	case "html", "htm":
		return FormatHTML, nil
	case "json":
		return FormatJSON, nil
	case "png":
		return FormatPNG, nil
	case "mermaid", "mmd":
		return FormatMermaid, nil
	case "dot", "graphviz", "gv":
		return FormatGraphviz, nil
	default:
		return "", fmt.Errorf("unknown format: %s", s)
	}
}

// GetAvailableFormats returns a list of all available export formats
func GetAvailableFormats() []Format {
	return []Format{
		FormatSVG,
		FormatHTML,
		FormatJSON,
		FormatPNG,
		FormatMermaid,
		FormatGraphviz,
	}
}

// GetFormatDescriptions returns human-readable descriptions of all formats
func GetFormatDescriptions() map[Format]string {
	return map[Format]string{
		FormatSVG:      "SVG drawing of the fitted tree",
		FormatHTML:     "Standalone HTML page with the SVG drawing",
		FormatJSON:     "Layout result with node positions and links",
		FormatPNG:      "PNG screenshot rendered by headless Chrome",
		FormatMermaid:  "Mermaid flowchart syntax (for Markdown)",
		FormatGraphviz: "Graphviz DOT syntax",
	}
}
