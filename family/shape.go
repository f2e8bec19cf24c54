package family

import (
	"fmt"

	"treepilot/core"
)

// Mode selects between a single-direction tree and the bidirectional view.
type Mode string

const (
	ModeSingle        Mode = "single"
	ModeBidirectional Mode = "bidirectional"
)

// ParseMode accepts the query-string spellings used by the HTTP API.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "bidirectional", "both":
		return ModeBidirectional, nil
	case "single", "ancestors", "descendants":
		return ModeSingle, nil
	default:
		return "", fmt.Errorf("unknown tree mode: %q", s)
	}
}

// ShapeOptions carries the per-direction depth limits.
type ShapeOptions struct {
	Mode            Mode
	Depth           int // single mode
	AncestorDepth   int // bidirectional mode
	DescendantDepth int // bidirectional mode
}

// ShapedTree is a depth-truncated tree ready for layout.
type ShapedTree struct {
	Mode Mode
	// Root is the shared root. In single mode it carries the truncated children;
	// in bidirectional mode it has none and the two containers below hold the sides.
	Root        *PersonNode
	Ancestors   *PersonNode
	Descendants *PersonNode
}

// Count returns the number of real (drawn) nodes.
func (t *ShapedTree) Count() int {
	if t == nil || t.Root == nil {
		return 0
	}
	if t.Mode == ModeSingle {
		return Count(t.Root)
	}
	n := 1
	if t.Ancestors != nil {
		n += Count(t.Ancestors) - 1
	}
	if t.Descendants != nil {
		n += Count(t.Descendants) - 1
	}
	return n
}

// Depths reports the deepest generation present on each side of the shaped tree.
func (t *ShapedTree) Depths() (ancestors, descendants int) {
	if t == nil {
		return 0, 0
	}
	if t.Mode == ModeSingle {
		return 0, MaxDepth(t.Root)
	}
	return MaxDepth(t.Ancestors), MaxDepth(t.Descendants)
}

// Truncate returns a copy of root in which every node at depth >= limit has no
// children. Deeper subtrees are dropped rather than copied. The input is not modified.
func Truncate(root *PersonNode, limit int) *PersonNode {
	if root == nil {
		return nil
	}
	if limit < 0 {
		limit = 0
	}
	return truncate(root, 0, limit)
}

func truncate(n *PersonNode, depth, limit int) *PersonNode {
	out := *n
	out.Children = nil
	if depth >= limit || len(n.Children) == 0 {
		return &out
	}
	out.Children = make([]*PersonNode, 0, len(n.Children))
	for _, c := range n.Children {
		out.Children = append(out.Children, truncate(c, depth+1, limit))
	}
	return &out
}

// FromRecord converts a provider record into a PersonNode tree following Children,
// stopping at limit generations below the record. dir is stamped on every node
// unless the record carries its own tag.
func FromRecord(r *Record, dir core.Direction, limit int) *PersonNode {
	if r == nil {
		return nil
	}
	if limit < 0 {
		limit = 0
	}
	return fromRecord(r, dir, 0, limit)
}

func fromRecord(r *Record, dir core.Direction, depth, limit int) *PersonNode {
	n := personFromRecord(r, dir)
	if depth >= limit || len(r.Children) == 0 {
		return n
	}
	n.Children = make([]*PersonNode, 0, len(r.Children))
	for _, c := range r.Children {
		n.Children = append(n.Children, fromRecord(c, dir, depth+1, limit))
	}
	return n
}

func personFromRecord(r *Record, dir core.Direction) *PersonNode {
	d := r.Direction
	if d == core.DirectionNone {
		d = dir
	}
	return &PersonNode{
		ID:        r.ID,
		Name:      r.Name(),
		Gender:    core.ParseGender(r.Gender),
		BirthYear: r.BirthYear,
		DeathYear: r.DeathYear,
		Direction: d,
	}
}

// Container ids never collide with GEDCOM pointers, which are wrapped in '@'.
const (
	AncestorContainerID   = "~ancestors"
	DescendantContainerID = "~descendants"
)

// Shape builds the depth-truncated display tree for a record.
func Shape(r *Record, opts ShapeOptions) *ShapedTree {
	if r == nil {
		return nil
	}
	if opts.Mode == ModeSingle {
		return &ShapedTree{
			Mode: ModeSingle,
			Root: FromRecord(r, core.DirectionNone, opts.Depth),
		}
	}

	root := personFromRecord(r, core.DirectionRoot)
	root.Direction = core.DirectionRoot
	return &ShapedTree{
		Mode:        ModeBidirectional,
		Root:        root,
		Ancestors:   container(AncestorContainerID, r.Ancestors, core.DirectionAncestor, opts.AncestorDepth),
		Descendants: container(DescendantContainerID, r.Descendants, core.DirectionDescendant, opts.DescendantDepth),
	}
}

// container wraps a side list in a synthetic node so that generation 1 sits at depth 1.
func container(id string, list []*Record, dir core.Direction, limit int) *PersonNode {
	c := &PersonNode{ID: id, Direction: dir, Synthetic: true}
	if limit <= 0 || len(list) == 0 {
		return c
	}
	c.Children = make([]*PersonNode, 0, len(list))
	for _, r := range list {
		c.Children = append(c.Children, fromRecord(r, dir, 1, limit))
	}
	return c
}
