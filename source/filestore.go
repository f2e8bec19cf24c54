package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"treepilot/core"
	"treepilot/family"
	"treepilot/metrics"
	"treepilot/validation"
)

// Individual is one person in a family file. Relationships are stored once,
// as parent references; children are derived.
type Individual struct {
	ID          string              `json:"id" yaml:"id"`
	FirstName   string              `json:"firstName,omitempty" yaml:"first_name,omitempty"`
	LastName    string              `json:"lastName,omitempty" yaml:"last_name,omitempty"`
	FullName    string              `json:"fullName,omitempty" yaml:"full_name,omitempty"`
	Gender      string              `json:"gender,omitempty" yaml:"gender,omitempty"`
	BirthYear   *int                `json:"birthYear,omitempty" yaml:"birth_year,omitempty"`
	BirthPlace  string              `json:"birthPlace,omitempty" yaml:"birth_place,omitempty"`
	DeathYear   *int                `json:"deathYear,omitempty" yaml:"death_year,omitempty"`
	DeathPlace  string              `json:"deathPlace,omitempty" yaml:"death_place,omitempty"`
	Occupation  string              `json:"occupation,omitempty" yaml:"occupation,omitempty"`
	Notes       []string            `json:"notes,omitempty" yaml:"notes,omitempty"`
	CustomFacts map[string][]string `json:"customFacts,omitempty" yaml:"custom_facts,omitempty"`
	Parents     []string            `json:"parents,omitempty" yaml:"parents,omitempty"`
}

func (in *Individual) name() string {
	if in.FullName != "" {
		return in.FullName
	}
	return strings.TrimSpace(in.FirstName + " " + in.LastName)
}

// Document is the on-disk family file.
type Document struct {
	Individuals []Individual `json:"individuals" yaml:"individuals"`
}

// ParseDocument decodes a family file. format is "json" or "yaml".
func ParseDocument(data []byte, format string) (*Document, error) {
	var doc Document
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse family yaml: %w", err)
		}
	case "json", "":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse family json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported family file format %q", format)
	}
	return &doc, nil
}

// FormatOf returns the document format implied by a file name.
func FormatOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// graph is an immutable, indexed view of one loaded document.
type graph struct {
	order    []string
	people   map[string]*Individual
	children map[string][]string
}

func newGraph(doc *Document) (*graph, error) {
	g := &graph{
		people:   make(map[string]*Individual, len(doc.Individuals)),
		children: make(map[string][]string),
	}
	for i := range doc.Individuals {
		in := doc.Individuals[i]
		in.ID = family.NormalizeID(in.ID)
		if in.ID == "" {
			return nil, fmt.Errorf("individual %d has no id", i)
		}
		if _, dup := g.people[in.ID]; dup {
			return nil, fmt.Errorf("duplicate individual id %s", in.ID)
		}
		for j, p := range in.Parents {
			in.Parents[j] = family.NormalizeID(p)
		}
		g.people[in.ID] = &in
		g.order = append(g.order, in.ID)
	}

	parents := make(map[string][]string, len(g.people))
	for _, id := range g.order {
		in := g.people[id]
		for _, p := range in.Parents {
			if _, ok := g.people[p]; !ok {
				return nil, fmt.Errorf("individual %s references unknown parent %s", id, p)
			}
			g.children[p] = append(g.children[p], id)
		}
		parents[id] = in.Parents
	}
	if err := validation.CheckAncestry(parents); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *graph) summary(id string) *family.Record {
	in := g.people[id]
	return &family.Record{
		ID:         in.ID,
		FullName:   in.name(),
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Gender:     in.Gender,
		BirthYear:  in.BirthYear,
		DeathYear:  in.DeathYear,
		BirthPlace: in.BirthPlace,
	}
}

// build walks next from id until depth reaches limit. Leaves have no child list.
func (g *graph) build(id string, dir core.Direction, depth, limit int, next func(string) []string) *family.Record {
	r := g.summary(id)
	r.Direction = dir
	if depth >= limit {
		return r
	}
	for _, n := range next(id) {
		r.Children = append(r.Children, g.build(n, dir, depth+1, limit, next))
	}
	return r
}

func (g *graph) parentsOf(id string) []string  { return g.people[id].Parents }
func (g *graph) childrenOf(id string) []string { return g.children[id] }

func (g *graph) tree(id string, q TreeQuery) *family.Record {
	switch q.Kind {
	case AncestorTree:
		return g.build(id, core.DirectionNone, 0, q.Ancestors, g.parentsOf)
	case DescendantTree:
		return g.build(id, core.DirectionNone, 0, q.Descendants, g.childrenOf)
	}

	root := g.summary(id)
	root.Direction = core.DirectionRoot
	for _, p := range g.parentsOf(id) {
		root.Ancestors = append(root.Ancestors, g.build(p, core.DirectionAncestor, 1, q.Ancestors, g.parentsOf))
	}
	for _, c := range g.childrenOf(id) {
		root.Descendants = append(root.Descendants, g.build(c, core.DirectionDescendant, 1, q.Descendants, g.childrenOf))
	}
	// A zero depth hides the whole side.
	if q.Ancestors == 0 {
		root.Ancestors = nil
	}
	if q.Descendants == 0 {
		root.Descendants = nil
	}
	return root
}

func (g *graph) detail(id string) *family.Detail {
	in := g.people[id]
	d := &family.Detail{
		ID:          in.ID,
		FullName:    in.name(),
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Gender:      in.Gender,
		BirthYear:   in.BirthYear,
		BirthPlace:  in.BirthPlace,
		DeathYear:   in.DeathYear,
		DeathPlace:  in.DeathPlace,
		Occupation:  in.Occupation,
		Notes:       append([]string{}, in.Notes...),
		CustomFacts: make(map[string][]string, len(in.CustomFacts)),
	}
	for k, v := range in.CustomFacts {
		d.CustomFacts[strings.ToUpper(k)] = append([]string{}, v...)
	}
	return d
}

// FileStore serves trees and details from a family file. It is safe for
// concurrent use; Reload swaps the whole data set at once.
type FileStore struct {
	path    string
	logger  *zap.Logger
	metrics *metrics.Collector

	mu sync.RWMutex
	g  *graph
}

// Open loads a family file.
func Open(path string, logger *zap.Logger, m *metrics.Collector) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FileStore{path: path, logger: logger, metrics: m}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewMemoryStore serves a document that never changes. Watch is not available.
func NewMemoryStore(doc *Document, logger *zap.Logger, m *metrics.Collector) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	g, err := newGraph(doc)
	if err != nil {
		return nil, fmt.Errorf("load family: %w", err)
	}
	return &FileStore{logger: logger, metrics: m, g: g}, nil
}

// Path returns the file backing the store, or "" for a memory store.
func (s *FileStore) Path() string {
	return s.path
}

// Reload re-reads the file. On error the previous data stays in place.
func (s *FileStore) Reload() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read family file: %w", err)
	}
	doc, err := ParseDocument(data, FormatOf(s.path))
	if err != nil {
		return err
	}
	g, err := newGraph(doc)
	if err != nil {
		return fmt.Errorf("load %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.g = g
	s.mu.Unlock()

	s.logger.Info("family file loaded",
		zap.String("path", s.path),
		zap.Int("individuals", len(g.order)),
	)
	return nil
}

func (s *FileStore) current() *graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g
}

// Tree implements TreeProvider.
func (s *FileStore) Tree(ctx context.Context, id string, q TreeQuery) (*family.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g := s.current()
	id = family.NormalizeID(id)
	if _, ok := g.people[id]; !ok {
		err := fmt.Errorf("%w: %s", family.ErrPersonNotFound, id)
		s.metrics.ProviderRequest("tree", err)
		return nil, err
	}
	s.metrics.ProviderRequest("tree", nil)
	return g.tree(id, q.Normalize()), nil
}

// PersonDetail implements DetailProvider.
func (s *FileStore) PersonDetail(ctx context.Context, id string) (*family.Detail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g := s.current()
	id = family.NormalizeID(id)
	if _, ok := g.people[id]; !ok {
		err := fmt.Errorf("%w: %s", family.ErrPersonNotFound, id)
		s.metrics.ProviderRequest("detail", err)
		return nil, err
	}
	s.metrics.ProviderRequest("detail", nil)
	return g.detail(id), nil
}

// Individuals lists everyone in file order.
func (s *FileStore) Individuals(ctx context.Context) ([]*family.Record, error) {
	return s.list(ctx, func(*graph, string) bool { return true })
}

// RootAncestors lists everyone without parents.
func (s *FileStore) RootAncestors(ctx context.Context) ([]*family.Record, error) {
	return s.list(ctx, func(g *graph, id string) bool { return len(g.parentsOf(id)) == 0 })
}

// Youngest lists everyone without children, the usual starting points.
func (s *FileStore) Youngest(ctx context.Context) ([]*family.Record, error) {
	return s.list(ctx, func(g *graph, id string) bool { return len(g.childrenOf(id)) == 0 })
}

func (s *FileStore) list(ctx context.Context, keep func(*graph, string) bool) ([]*family.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g := s.current()
	out := make([]*family.Record, 0, len(g.order))
	for _, id := range g.order {
		if keep(g, id) {
			out = append(out, g.summary(id))
		}
	}
	return out, nil
}
