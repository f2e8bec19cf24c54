package layout

import (
	"errors"
	"fmt"
	"math"

	"treepilot/core"
	"treepilot/family"
	"treepilot/geometry"
)

// ErrInvalidOptions is returned when spacing options cannot produce a layout.
var ErrInvalidOptions = errors.New("invalid layout options")

// Options controls spacing. Separations are in units of NodeSpacing.
type Options struct {
	NodeSpacing       float64 `json:"nodeSpacing" yaml:"node_spacing" toml:"node_spacing" validate:"gt=0"`
	GenerationSpacing float64 `json:"generationSpacing" yaml:"generation_spacing" toml:"generation_spacing" validate:"gt=0"`
	SiblingSeparation float64 `json:"siblingSeparation" yaml:"sibling_separation" toml:"sibling_separation" validate:"gt=0"`
	CousinSeparation  float64 `json:"cousinSeparation" yaml:"cousin_separation" toml:"cousin_separation" validate:"gt=0"`
	Margin            float64 `json:"margin" yaml:"margin" toml:"margin" validate:"gte=0"`
}

// DefaultOptions returns the reference spacing policy: cousins 1.5x further apart than siblings.
func DefaultOptions() Options {
	return Options{
		NodeSpacing:       36,
		GenerationSpacing: 200,
		SiblingSeparation: 1,
		CousinSeparation:  1.5,
		Margin:            80,
	}
}

// Validate checks that every spacing is positive.
func (o Options) Validate() error {
	if o.NodeSpacing <= 0 || o.GenerationSpacing <= 0 {
		return fmt.Errorf("%w: spacing must be positive", ErrInvalidOptions)
	}
	if o.SiblingSeparation <= 0 || o.CousinSeparation <= 0 {
		return fmt.Errorf("%w: separation must be positive", ErrInvalidOptions)
	}
	return nil
}

// TreeLayout is the horizontal tidy tree: generations along x, siblings along y.
type TreeLayout struct {
	opts Options
	sep  separation
}

// NewTreeLayout creates a TreeLayout. Invalid options fall back to the defaults.
func NewTreeLayout(opts Options) *TreeLayout {
	if opts.Validate() != nil {
		opts = DefaultOptions()
	}
	return &TreeLayout{
		opts: opts,
		sep:  siblingAware(opts.SiblingSeparation, opts.CousinSeparation),
	}
}

// Name returns the name of this layout algorithm.
func (l *TreeLayout) Name() string {
	return "TidyTree"
}

// Options returns the spacing in use.
func (l *TreeLayout) Options() Options {
	return l.opts
}

// Layout positions every drawn node of tree inside an area of the given size.
// A zero-area viewport or a nil tree yields an empty result.
func (l *TreeLayout) Layout(tree *family.ShapedTree, size core.Size) (*Result, error) {
	res := &Result{Size: size, Positions: []Position{}, Links: []Link{}}
	if size.Empty() || tree == nil || tree.Root == nil {
		res.reindex()
		return res, nil
	}
	res.Mode = tree.Mode

	b := newBuilder(res)
	if tree.Mode == family.ModeSingle {
		l.placeSingle(b, tree.Root, size)
	} else {
		l.placeBidirectional(b, tree, size)
	}
	res.reindex()
	return res, nil
}

func (l *TreeLayout) placeSingle(b *builder, root *family.PersonNode, size core.Size) {
	t := l.side(root, size)
	anchor := core.Point{X: l.opts.Margin, Y: size.Height / 2}
	rx := t.x
	project := func(n *tnode) core.Point {
		return core.Point{
			X: anchor.X + float64(n.depth)*l.opts.GenerationSpacing,
			Y: anchor.Y + n.x - rx,
		}
	}
	rootKey := b.add(t.node, project(t), 0)
	b.res.Root = rootKey
	l.emitChildren(b, t, rootKey, project)
}

func (l *TreeLayout) placeBidirectional(b *builder, tree *family.ShapedTree, size core.Size) {
	center := size.Center()
	rootKey := b.add(tree.Root, center, 0)
	b.res.Root = rootKey

	for _, side := range []struct {
		container *family.PersonNode
		sign      float64
	}{
		{tree.Ancestors, 1},
		{tree.Descendants, -1},
	} {
		if side.container == nil || side.container.IsLeaf() {
			continue
		}
		t := l.side(side.container, size)
		cx := t.x
		sign := side.sign
		project := func(n *tnode) core.Point {
			return core.Point{
				X: center.X + sign*float64(n.depth)*l.opts.GenerationSpacing,
				Y: center.Y + n.x - cx,
			}
		}
		l.emitChildren(b, t, rootKey, project)
	}
}

// side runs the tidy algorithm for one tree and scales it to its breadth extent,
// which grows with the node count and never drops below the viewport height.
func (l *TreeLayout) side(root *family.PersonNode, size core.Size) *tnode {
	t := buildTidy(root)
	tidy(t, l.sep)
	drawn := family.Count(root)
	if root.Synthetic {
		drawn--
	}
	extent := math.Max(size.Height, float64(drawn)*l.opts.NodeSpacing)
	fitBreadth(t, extent, l.sep)
	return t
}

func (l *TreeLayout) emitChildren(b *builder, t *tnode, parentKey string, project func(*tnode) core.Point) {
	from, _ := b.res.Find(parentKey)
	for _, c := range t.children {
		p := project(c)
		key := b.add(c.node, p, c.depth)
		curve := geometry.HorizontalLink(from.Point(), p)
		b.res.Links = append(b.res.Links, Link{
			Source: parentKey,
			Target: key,
			Curve:  curve,
			Path:   curve.SVGPath(),
		})
		l.emitChildren(b, c, key, project)
	}
}

// builder accumulates positions and hands out unique keys.
type builder struct {
	res  *Result
	seen map[string]int
}

func newBuilder(res *Result) *builder {
	res.index = make(map[string]int)
	return &builder{res: res, seen: make(map[string]int)}
}

func (b *builder) add(n *family.PersonNode, p core.Point, depth int) string {
	b.seen[n.ID]++
	key := n.ID
	if c := b.seen[n.ID]; c > 1 {
		key = fmt.Sprintf("%s#%d", n.ID, c)
	}
	b.res.Positions = append(b.res.Positions, Position{
		Key:       key,
		ID:        n.ID,
		X:         p.X,
		Y:         p.Y,
		Depth:     depth,
		Direction: n.Direction,
		Node:      n,
	})
	b.res.index[key] = len(b.res.Positions) - 1
	return key
}
