package importer

import (
	"fmt"
	"slices"
	"strings"

	"treepilot/core"
	"treepilot/family"
	"treepilot/source"
)

// graphBuilder collects people and parent edges from a diagram in the order
// they first appear.
type graphBuilder struct {
	order  []string
	people map[string]*source.Individual
}

func newGraphBuilder() *graphBuilder {
	return &graphBuilder{people: make(map[string]*source.Individual)}
}

// person returns the individual for a diagram node, creating it on first use.
func (b *graphBuilder) person(node string) *source.Individual {
	id := family.NormalizeID(node)
	if in, ok := b.people[id]; ok {
		return in
	}
	in := &source.Individual{ID: id}
	b.people[id] = in
	b.order = append(b.order, id)
	return in
}

// label sets the name and lifespan from a node label. Lines are separated by
// sep; a trailing lifespan line such as "(1920-1990)" fills in the years.
func (b *graphBuilder) label(node, text, sep string) {
	in := b.person(node)
	lines := strings.Split(text, sep)
	if len(lines) > 1 {
		if birth, death, ok := family.ParseLifespan(lines[len(lines)-1]); ok {
			in.BirthYear, in.DeathYear = birth, death
			lines = lines[:len(lines)-1]
		}
	}
	in.FullName = strings.TrimSpace(strings.Join(lines, " "))
}

func (b *graphBuilder) gender(node, class string) {
	switch g := core.ParseGender(class); g {
	case core.GenderMale:
		b.person(node).Gender = "M"
	case core.GenderFemale:
		b.person(node).Gender = "F"
	}
}

// edge records that parent is a parent of child.
func (b *graphBuilder) edge(parent, child string) {
	p := b.person(parent)
	c := b.person(child)
	if !slices.Contains(c.Parents, p.ID) {
		c.Parents = append(c.Parents, p.ID)
	}
}

func (b *graphBuilder) document() (*source.Document, error) {
	if len(b.order) == 0 {
		return nil, fmt.Errorf("no people found")
	}
	doc := &source.Document{Individuals: make([]source.Individual, 0, len(b.order))}
	for _, id := range b.order {
		doc.Individuals = append(doc.Individuals, *b.people[id])
	}
	return doc, nil
}
