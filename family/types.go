// Package family holds the person-centric tree model consumed by the layout engine,
// along with depth truncation and depth/extent analysis.
package family

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"treepilot/core"
)

// ErrPersonNotFound is returned by providers when an identifier matches nobody.
var ErrPersonNotFound = errors.New("person not found")

// Record is a person record as returned by a tree data provider. Single-direction
// trees use Children; bidirectional trees use Ancestors and Descendants on the root,
// with each entry recursing through Children.
type Record struct {
	ID          string         `json:"id"`
	FullName    string         `json:"fullName,omitempty"`
	FirstName   string         `json:"firstName,omitempty"`
	LastName    string         `json:"lastName,omitempty"`
	Gender      string         `json:"gender,omitempty"`
	BirthYear   *int           `json:"birthYear,omitempty"`
	DeathYear   *int           `json:"deathYear,omitempty"`
	BirthPlace  string         `json:"birthPlace,omitempty"`
	Direction   core.Direction `json:"direction,omitempty"`
	Children    []*Record      `json:"children,omitempty"`
	Ancestors   []*Record      `json:"ancestors,omitempty"`
	Descendants []*Record      `json:"descendants,omitempty"`
}

// Name returns the display name, falling back to the identifier.
func (r *Record) Name() string {
	if r.FullName != "" {
		return r.FullName
	}
	if n := strings.TrimSpace(r.FirstName + " " + r.LastName); n != "" {
		return n
	}
	return r.ID
}

// PersonNode is a node of the display tree handed to the layout engine.
type PersonNode struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Gender    core.Gender    `json:"gender"`
	BirthYear *int           `json:"birthYear,omitempty"`
	DeathYear *int           `json:"deathYear,omitempty"`
	Direction core.Direction `json:"direction,omitempty"`
	Children  []*PersonNode  `json:"children,omitempty"`

	// Synthetic marks the "all ancestors" / "all descendants" containers. They are
	// laid out but never drawn.
	Synthetic bool `json:"-"`
}

// IsLeaf reports whether the node has no children for layout purposes.
func (n *PersonNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// Lifespan formats the birth and death years as "(1850-1921)", "(b. 1850)" or "".
func (n *PersonNode) Lifespan() string {
	return Lifespan(n.BirthYear, n.DeathYear)
}

// Lifespan formats optional birth and death years.
func Lifespan(birth, death *int) string {
	switch {
	case birth != nil && death != nil:
		return fmt.Sprintf("(%d-%d)", *birth, *death)
	case birth != nil:
		return fmt.Sprintf("(b. %d)", *birth)
	case death != nil:
		return fmt.Sprintf("(d. %d)", *death)
	default:
		return ""
	}
}

// ParseLifespan reverses Lifespan. ok is false when s is not a lifespan.
func ParseLifespan(s string) (birth, death *int, ok bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return nil, nil, false
	}
	inner := s[1 : len(s)-1]
	var b, d int
	switch {
	case strings.HasPrefix(inner, "b. "):
		if _, err := fmt.Sscanf(inner, "b. %d", &b); err != nil {
			return nil, nil, false
		}
		return &b, nil, true
	case strings.HasPrefix(inner, "d. "):
		if _, err := fmt.Sscanf(inner, "d. %d", &d); err != nil {
			return nil, nil, false
		}
		return nil, &d, true
	default:
		if _, err := fmt.Sscanf(inner, "%d-%d", &b, &d); err != nil {
			return nil, nil, false
		}
		return &b, &d, true
	}
}

// Walk visits n and every descendant node depth first. Returning false from fn
// stops descending below that node.
func (n *PersonNode) Walk(fn func(node *PersonNode, depth int) bool) {
	var visit func(node *PersonNode, depth int)
	visit = func(node *PersonNode, depth int) {
		if node == nil || !fn(node, depth) {
			return
		}
		for _, c := range node.Children {
			visit(c, depth+1)
		}
	}
	visit(n, 0)
}

// Detail is the extended record shown in a popover.
type Detail struct {
	ID          string              `json:"id"`
	FullName    string              `json:"fullName"`
	FirstName   string              `json:"firstName,omitempty"`
	LastName    string              `json:"lastName,omitempty"`
	Gender      string              `json:"gender,omitempty"`
	BirthYear   *int                `json:"birthYear,omitempty"`
	BirthPlace  string              `json:"birthPlace,omitempty"`
	DeathYear   *int                `json:"deathYear,omitempty"`
	DeathPlace  string              `json:"deathPlace,omitempty"`
	Occupation  string              `json:"occupation,omitempty"`
	Notes       []string            `json:"notes"`
	CustomFacts map[string][]string `json:"customFacts"`
}

// Lines renders the detail as plain text lines, the way popovers list it.
func (d *Detail) Lines() []string {
	lines := []string{d.FullName}
	if g := core.ParseGender(d.Gender); g != core.GenderUnknown {
		lines = append(lines, "Gender: "+string(g))
	}
	if d.BirthYear != nil || d.BirthPlace != "" {
		lines = append(lines, "Born: "+yearPlace(d.BirthYear, d.BirthPlace))
	}
	if d.DeathYear != nil || d.DeathPlace != "" {
		lines = append(lines, "Died: "+yearPlace(d.DeathYear, d.DeathPlace))
	}
	if d.Occupation != "" {
		lines = append(lines, "Occupation: "+d.Occupation)
	}
	for _, n := range d.Notes {
		lines = append(lines, "- "+n)
	}
	for _, tag := range slices.Sorted(maps.Keys(d.CustomFacts)) {
		for _, v := range d.CustomFacts[tag] {
			lines = append(lines, tag+": "+v)
		}
	}
	return lines
}

func yearPlace(year *int, place string) string {
	switch {
	case year != nil && place != "":
		return fmt.Sprintf("%d, %s", *year, place)
	case year != nil:
		return fmt.Sprintf("%d", *year)
	default:
		return place
	}
}

// NormalizeID maps "I1" and "@I1@" to the same GEDCOM pointer form.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "@") && strings.HasSuffix(id, "@") && len(id) > 1 {
		return id
	}
	return "@" + strings.Trim(id, "@") + "@"
}
