package export

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"
)

// HTMLExporter wraps the SVG drawing in a standalone page
type HTMLExporter struct {
	svg *SVGExporter
}

// NewHTMLExporter creates a new HTML exporter
func NewHTMLExporter() *HTMLExporter {
	return &HTMLExporter{svg: NewSVGExporter()}
}

// Export writes the scene as an HTML page
func (e *HTMLExporter) Export(_ context.Context, s Scene, w io.Writer) error {
	doc, err := e.svg.Render(s)
	if err != nil {
		return err
	}
	title := s.Title
	if title == "" {
		title = "Family tree"
	}

	var page strings.Builder
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString(title))
	page.WriteString("<style>\n")
	page.WriteString("body { margin: 0; background: #f5f7fa; font-family: Helvetica, Arial, sans-serif; }\n")
	page.WriteString(".tree-container { margin: 24px auto; width: fit-content; background: #fff; box-shadow: 0 1px 4px rgba(0,0,0,.15); }\n")
	page.WriteString(".person { cursor: pointer; }\n")
	page.WriteString(".person:hover circle { r: 9; }\n")
	page.WriteString("</style>\n</head>\n<body>\n<div class=\"tree-container\">\n")
	page.Write(doc)
	page.WriteString("</div>\n</body>\n</html>\n")

	_, err = io.WriteString(w, page.String())
	return err
}

// GetFileExtension returns the file extension for HTML
func (e *HTMLExporter) GetFileExtension() string {
	return ".html"
}

// GetFormatName returns the format name
func (e *HTMLExporter) GetFormatName() string {
	return "HTML"
}
