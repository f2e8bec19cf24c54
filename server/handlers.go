package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"treepilot/core"
	"treepilot/export"
	"treepilot/family"
	"treepilot/layout"
	"treepilot/source"
	"treepilot/viewport"
)

// Drawing area used when a render request gives none.
const (
	defaultWidth  = 1200
	defaultHeight = 800
)

func (s *Server) individuals(w http.ResponseWriter, r *http.Request) {
	list, err := s.provider.Individuals(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"individuals": list})
}

func (s *Server) youngest(w http.ResponseWriter, r *http.Request) {
	list, err := s.provider.Youngest(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"individuals": list})
}

func (s *Server) person(w http.ResponseWriter, r *http.Request) {
	d, err := s.details.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) tree(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rec, err := s.provider.Tree(r.Context(), chi.URLParam(r, "id"), q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tree": rec})
}

// layoutResponse is a render of one tree without a session.
type layoutResponse struct {
	Layout    *layout.Result     `json:"layout"`
	Transform viewport.Transform `json:"transform"`
	Extent    family.Extent      `json:"extent"`
}

func (s *Server) layout(w http.ResponseWriter, r *http.Request) {
	res, rec, err := s.render(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, layoutResponse{
		Layout:    res,
		Transform: viewport.Fit(res.Bounds(), res.Size, s.viewOpts.Viewport.Padding),
		Extent:    family.Measure(rec),
	})
}

func (s *Server) svg(w http.ResponseWriter, r *http.Request) {
	s.writeExport(w, r, export.FormatSVG)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	s.writeExport(w, r, format)
}

var contentTypes = map[export.Format]string{
	export.FormatSVG:      "image/svg+xml",
	export.FormatHTML:     "text/html; charset=utf-8",
	export.FormatJSON:     "application/json",
	export.FormatPNG:      "image/png",
	export.FormatMermaid:  "text/plain; charset=utf-8",
	export.FormatGraphviz: "text/vnd.graphviz",
}

func (s *Server) writeExport(w http.ResponseWriter, r *http.Request, format export.Format) {
	res, rec, err := s.render(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	exporter, err := export.NewExporter(format)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	scene := export.NewScene(res, s.viewOpts.Viewport.Padding)
	scene.Title = rec.Name()

	// Buffer so that a failed export can still answer with a JSON error.
	var buf bytes.Buffer
	if err := exporter.Export(r.Context(), scene, &buf); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// render fetches, shapes and lays out the tree a request describes. The
// query depths are both the fetch depth and the displayed depth.
func (s *Server) render(r *http.Request) (*layout.Result, *family.Record, error) {
	q, err := parseQuery(r)
	if err != nil {
		return nil, nil, err
	}
	size, err := parseSize(r)
	if err != nil {
		return nil, nil, err
	}
	rec, err := s.provider.Tree(r.Context(), chi.URLParam(r, "id"), q)
	if err != nil {
		return nil, nil, err
	}
	tree := family.Shape(rec, family.ShapeOptions{
		Mode:            q.Kind.Mode(),
		Depth:           q.Depth(),
		AncestorDepth:   q.Ancestors,
		DescendantDepth: q.Descendants,
	})
	start := time.Now()
	res, err := s.engine.Layout(tree, size)
	if err != nil {
		return nil, nil, err
	}
	s.metrics.ObserveLayout(string(q.Kind.Mode()), len(res.Positions), time.Since(start))
	return res, rec, nil
}

func parseQuery(r *http.Request) (source.TreeQuery, error) {
	v := r.URL.Query()
	kind, err := source.ParseKind(v.Get("mode"))
	if err != nil {
		return source.TreeQuery{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	q := source.TreeQuery{Kind: kind, Ancestors: source.DefaultDepth, Descendants: source.DefaultDepth}
	if q.Ancestors, err = intParam(v.Get("ancestors"), q.Ancestors); err != nil {
		return q, err
	}
	if q.Descendants, err = intParam(v.Get("descendants"), q.Descendants); err != nil {
		return q, err
	}
	// A single-direction request may give just "depth".
	if d := v.Get("depth"); d != "" {
		n, err := intParam(d, 0)
		if err != nil {
			return q, err
		}
		q.Ancestors, q.Descendants = n, n
	}
	return q.Normalize(), nil
}

func parseSize(r *http.Request) (core.Size, error) {
	v := r.URL.Query()
	w, err := intParam(v.Get("width"), defaultWidth)
	if err != nil {
		return core.Size{}, err
	}
	h, err := intParam(v.Get("height"), defaultHeight)
	if err != nil {
		return core.Size{}, err
	}
	if w <= 0 || h <= 0 {
		return core.Size{}, fmt.Errorf("%w: width and height must be positive", errBadRequest)
	}
	return core.Size{Width: float64(w), Height: float64(h)}, nil
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errBadRequest, s)
	}
	return n, nil
}
