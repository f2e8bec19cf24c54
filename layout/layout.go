// Package layout provides the tidy tree layout used to position people in 2D space.
package layout

import (
	"treepilot/core"
	"treepilot/family"
	"treepilot/geometry"
)

// LayoutEngine positions a shaped tree inside a drawing area.
type LayoutEngine interface {
	// Layout returns a fresh result; the input tree is not modified.
	Layout(tree *family.ShapedTree, size core.Size) (*Result, error)

	// Name returns the name of this layout algorithm.
	Name() string
}

// Position is the model-space location of one drawn person.
type Position struct {
	// Key is unique within a result. It equals ID except when the same person is
	// reached twice (pedigree collapse), where later occurrences get a suffix.
	Key       string             `json:"key"`
	ID        string             `json:"id"`
	X         float64            `json:"x"`
	Y         float64            `json:"y"`
	Depth     int                `json:"depth"`
	Direction core.Direction     `json:"direction,omitempty"`
	Node      *family.PersonNode `json:"-"`
}

// Point returns the position as a core.Point.
func (p Position) Point() core.Point {
	return core.Point{X: p.X, Y: p.Y}
}

// Link is a parent to child connector.
type Link struct {
	Source string         `json:"source"`
	Target string         `json:"target"`
	Curve  geometry.Cubic `json:"-"`
	Path   string         `json:"path"`
}

// Result is one complete layout pass. It is never mutated after Layout returns.
type Result struct {
	Mode      family.Mode `json:"mode"`
	Size      core.Size   `json:"size"`
	Root      string      `json:"root"`
	Positions []Position  `json:"nodes"`
	Links     []Link      `json:"links"`

	index map[string]int
}

// Empty reports whether the pass produced nothing to draw.
func (r *Result) Empty() bool {
	return r == nil || len(r.Positions) == 0
}

// Find returns the position for a key.
func (r *Result) Find(key string) (Position, bool) {
	if r == nil {
		return Position{}, false
	}
	i, ok := r.index[key]
	if !ok {
		return Position{}, false
	}
	return r.Positions[i], true
}

// Bounds returns the bounding box of every node position.
func (r *Result) Bounds() core.Bounds {
	b := core.EmptyBounds()
	if r == nil {
		return b
	}
	for _, p := range r.Positions {
		b = b.Extend(p.Point())
	}
	return b
}

// HitTest returns the key of the node whose marker contains the model point.
func (r *Result) HitTest(p core.Point, radius float64) (string, bool) {
	if r == nil {
		return "", false
	}
	best, bestDist := "", radius
	for _, pos := range r.Positions {
		if d := pos.Point().Distance(p); d <= bestDist {
			best, bestDist = pos.Key, d
		}
	}
	return best, best != ""
}

func (r *Result) reindex() {
	r.index = make(map[string]int, len(r.Positions))
	for i, p := range r.Positions {
		r.index[p.Key] = i
	}
}
