package export

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"strconv"

	"treepilot/core"
	"treepilot/layout"
)

// Marker colours by gender.
var genderColors = map[core.Gender]string{
	core.GenderMale:    "#4a7fc1",
	core.GenderFemale:  "#c1557f",
	core.GenderUnknown: "#8a8a8a",
}

const (
	markerRadius     = 6
	emphasisRadius   = 9
	labelOffset      = 12
	lifespanFontSize = 10
)

// SVGExporter exports a scene to a standalone SVG document
type SVGExporter struct{}

// NewSVGExporter creates a new SVG exporter
func NewSVGExporter() *SVGExporter {
	return &SVGExporter{}
}

// Export writes the scene as SVG
func (e *SVGExporter) Export(_ context.Context, s Scene, w io.Writer) error {
	doc, err := e.Render(s)
	if err != nil {
		return err
	}
	_, err = w.Write(doc)
	return err
}

// Render returns the SVG document for the scene.
func (e *SVGExporter) Render(s Scene) ([]byte, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	var svg bytes.Buffer
	fmt.Fprintf(&svg, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s" font-family="Helvetica, Arial, sans-serif">`+"\n",
		num(s.Size.Width), num(s.Size.Height), num(s.Size.Width), num(s.Size.Height))
	if s.Title != "" {
		fmt.Fprintf(&svg, "<title>%s</title>\n", html.EscapeString(s.Title))
	}
	fmt.Fprintf(&svg, `<rect width="100%%" height="100%%" fill="#ffffff"/>`+"\n")
	t := s.Transform
	fmt.Fprintf(&svg, `<g class="tree" transform="translate(%s,%s) scale(%s)">`+"\n", num(t.X), num(t.Y), num(t.K))

	svg.WriteString(`<g class="links" fill="none" stroke="#9aa5b1" stroke-width="1.5">` + "\n")
	for _, l := range s.Layout.Links {
		fmt.Fprintf(&svg, `<path d="%s" data-source="%s" data-target="%s"/>`+"\n",
			l.Path, html.EscapeString(l.Source), html.EscapeString(l.Target))
	}
	svg.WriteString("</g>\n")

	svg.WriteString(`<g class="nodes">` + "\n")
	for _, p := range s.Layout.Positions {
		drawPerson(&svg, p, p.Key == s.Highlight)
	}
	svg.WriteString("</g>\n</g>\n</svg>\n")
	return svg.Bytes(), nil
}

func drawPerson(svg *bytes.Buffer, p layout.Position, emphasised bool) {
	gender, name, lifespan := core.GenderUnknown, p.ID, ""
	if p.Node != nil {
		gender, name, lifespan = p.Node.Gender, p.Node.Name, p.Node.Lifespan()
	}
	color := markerColor(gender)
	r := markerRadius
	if emphasised {
		r = emphasisRadius
	}

	fmt.Fprintf(svg, `<g class="person %s" data-id="%s" transform="translate(%s,%s)">`+"\n",
		gender, html.EscapeString(p.Key), num(p.X), num(p.Y))
	fmt.Fprintf(svg, `<circle r="%d" fill="%s" stroke="#ffffff" stroke-width="2"/>`+"\n", r, color)

	// Labels sit on the side facing away from the root.
	anchor, dx, dy := "start", labelOffset, 4
	switch p.Direction {
	case core.DirectionDescendant:
		anchor, dx = "end", -labelOffset
	case core.DirectionRoot:
		anchor, dx, dy = "middle", 0, -labelOffset-4
	}
	fmt.Fprintf(svg, `<text x="%d" y="%d" text-anchor="%s" font-size="12" fill="#1f2933">%s</text>`+"\n",
		dx, dy, anchor, html.EscapeString(name))
	if lifespan != "" {
		fmt.Fprintf(svg, `<text x="%d" y="%d" text-anchor="%s" font-size="%d" fill="#616e7c">%s</text>`+"\n",
			dx, dy+lifespanFontSize+3, anchor, lifespanFontSize, html.EscapeString(lifespan))
	}
	svg.WriteString("</g>\n")
}

func markerColor(g core.Gender) string {
	if c, ok := genderColors[g]; ok {
		return c
	}
	return genderColors[core.GenderUnknown]
}

// GetFileExtension returns the file extension for SVG
func (e *SVGExporter) GetFileExtension() string {
	return ".svg"
}

// GetFormatName returns the format name
func (e *SVGExporter) GetFormatName() string {
	return "SVG"
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
