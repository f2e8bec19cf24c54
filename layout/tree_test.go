package layout

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treepilot/core"
	"treepilot/family"
	"treepilot/family/familytest"
)

var viewport = core.Size{Width: 1200, Height: 800}

func shapeBidi(r *family.Record, anc, desc int) *family.ShapedTree {
	return family.Shape(r, family.ShapeOptions{
		Mode:            family.ModeBidirectional,
		AncestorDepth:   anc,
		DescendantDepth: desc,
	})
}

func shapeSingle(r *family.Record, depth int) *family.ShapedTree {
	return family.Shape(r, family.ShapeOptions{Mode: family.ModeSingle, Depth: depth})
}

func TestTreeLayout_JaneDoeScenario(t *testing.T) {
	l := NewTreeLayout(DefaultOptions())
	res, err := l.Layout(shapeBidi(familytest.JaneDoe(), 1, 2), viewport)
	require.NoError(t, err)

	require.Len(t, res.Positions, 9)
	assert.Len(t, res.Links, 8)

	root, ok := res.Find("@I1@")
	require.True(t, ok)
	assert.Equal(t, "@I1@", res.Root)
	assert.Equal(t, viewport.Center(), root.Point(), "root must sit at the viewport centre")
	assert.Equal(t, core.DirectionRoot, root.Direction)

	counts := map[core.Direction]int{}
	for _, p := range res.Positions {
		counts[p.Direction]++
		switch p.Direction {
		case core.DirectionAncestor:
			assert.Greater(t, p.X, root.X, "%s should be on the ancestor side", p.ID)
		case core.DirectionDescendant:
			assert.Less(t, p.X, root.X, "%s should be on the descendant side", p.ID)
		}
		assert.NotNil(t, p.Node)
		assert.Equal(t, p.ID, p.Node.ID)
	}
	assert.Equal(t, 1, counts[core.DirectionRoot])
	assert.Equal(t, 2, counts[core.DirectionAncestor])
	assert.Equal(t, 6, counts[core.DirectionDescendant])

	gen1, _ := res.Find("@I2@")
	assert.InDelta(t, root.X+DefaultOptions().GenerationSpacing, gen1.X, 1e-9)
	grand, _ := res.Find("@I20@")
	assert.InDelta(t, root.X-2*DefaultOptions().GenerationSpacing, grand.X, 1e-9)
}

func TestTreeLayout_NodeAndLinkCounts(t *testing.T) {
	l := NewTreeLayout(DefaultOptions())
	trees := map[string]*family.ShapedTree{
		"chain":      shapeSingle(familytest.Chain(6), 6),
		"wide":       shapeSingle(familytest.Wide(12), 3),
		"bidi full":  shapeBidi(familytest.JaneDoe(), 5, 5),
		"bidi cut":   shapeBidi(familytest.JaneDoe(), 0, 1),
		"root alone": shapeBidi(familytest.Lonely(), 4, 4),
	}
	for name, tree := range trees {
		t.Run(name, func(t *testing.T) {
			res, err := l.Layout(tree, viewport)
			require.NoError(t, err)
			n := tree.Count()
			assert.Len(t, res.Positions, n)
			assert.Len(t, res.Links, n-1)

			keys := map[string]bool{}
			for _, p := range res.Positions {
				assert.False(t, keys[p.Key], "duplicate key %s", p.Key)
				keys[p.Key] = true
			}
			for _, link := range res.Links {
				assert.True(t, keys[link.Source])
				assert.True(t, keys[link.Target])
				assert.NotEmpty(t, link.Path)
			}
		})
	}
}

func TestTreeLayout_RootOnly(t *testing.T) {
	res, err := NewTreeLayout(DefaultOptions()).Layout(shapeBidi(familytest.Lonely(), 3, 3), viewport)
	require.NoError(t, err)
	require.Len(t, res.Positions, 1)
	assert.Empty(t, res.Links)
	assert.Equal(t, viewport.Center(), res.Positions[0].Point())
}

func TestTreeLayout_ZeroViewport(t *testing.T) {
	l := NewTreeLayout(DefaultOptions())
	for _, size := range []core.Size{{}, {Width: 800}, {Height: 600}, {Width: -1, Height: 10}} {
		res, err := l.Layout(shapeBidi(familytest.JaneDoe(), 2, 2), size)
		require.NoError(t, err)
		assert.True(t, res.Empty())
		assert.Empty(t, res.Links)
	}

	res, err := l.Layout(nil, viewport)
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestTreeLayout_CousinSeparation(t *testing.T) {
	rec := &family.Record{ID: "r", Children: []*family.Record{
		{ID: "A", Children: []*family.Record{{ID: "a1"}, {ID: "a2"}}},
		{ID: "B", Children: []*family.Record{{ID: "b1"}, {ID: "b2"}}},
	}}
	res, err := NewTreeLayout(DefaultOptions()).Layout(shapeSingle(rec, 2), viewport)
	require.NoError(t, err)

	y := func(key string) float64 {
		p, ok := res.Find(key)
		require.True(t, ok, key)
		return p.Y
	}
	sibling := y("a2") - y("a1")
	cousin := y("b1") - y("a2")
	require.Greater(t, sibling, 0.0)
	assert.InDelta(t, 1.5, cousin/sibling, 1e-9)
	assert.InDelta(t, sibling, y("b2")-y("b1"), 1e-9)

	// Parents centre over their children.
	assert.InDelta(t, (y("a1")+y("a2"))/2, y("A"), 1e-9)
}

func TestTreeLayout_ExtentGrowsWithNodeCount(t *testing.T) {
	small := core.Size{Width: 400, Height: 100}
	opts := DefaultOptions()
	res, err := NewTreeLayout(opts).Layout(shapeSingle(familytest.Wide(50), 1), small)
	require.NoError(t, err)

	var ys []float64
	for _, p := range res.Positions {
		if p.Depth == 1 {
			ys = append(ys, p.Y)
		}
	}
	sort.Float64s(ys)
	require.Len(t, ys, 50)
	for i := 1; i < len(ys); i++ {
		assert.GreaterOrEqual(t, ys[i]-ys[i-1], opts.NodeSpacing-1e-9, "rows must not compress below the node spacing")
	}
	assert.Greater(t, res.Bounds().Height(), small.Height)
}

func TestTreeLayout_NoOverlapWithinGeneration(t *testing.T) {
	res, err := NewTreeLayout(DefaultOptions()).Layout(shapeBidi(familytest.JaneDoe(), 5, 5), viewport)
	require.NoError(t, err)

	type slot struct {
		dir   core.Direction
		depth int
	}
	rows := map[slot][]float64{}
	for _, p := range res.Positions {
		rows[slot{p.Direction, p.Depth}] = append(rows[slot{p.Direction, p.Depth}], p.Y)
	}
	for s, ys := range rows {
		sort.Float64s(ys)
		for i := 1; i < len(ys); i++ {
			assert.Greater(t, ys[i]-ys[i-1], 1.0, "nodes collide at %v", s)
		}
	}
}

func TestTreeLayout_SingleModeRootAnchor(t *testing.T) {
	opts := DefaultOptions()
	res, err := NewTreeLayout(opts).Layout(shapeSingle(familytest.Chain(3), 3), viewport)
	require.NoError(t, err)
	root, ok := res.Find(res.Root)
	require.True(t, ok)
	assert.Equal(t, opts.Margin, root.X)
	assert.Equal(t, viewport.Height/2, root.Y)

	// A straight chain stays on one line.
	for _, p := range res.Positions {
		assert.InDelta(t, root.Y, p.Y, 1e-9)
	}
}

func TestTreeLayout_DuplicatePeopleGetDistinctKeys(t *testing.T) {
	shared := &family.Record{ID: "@I9@"}
	rec := &family.Record{ID: "@I1@", Ancestors: []*family.Record{
		{ID: "@I2@", Children: []*family.Record{shared}},
		{ID: "@I3@", Children: []*family.Record{shared}},
	}}
	res, err := NewTreeLayout(DefaultOptions()).Layout(shapeBidi(rec, 2, 0), viewport)
	require.NoError(t, err)

	_, first := res.Find("@I9@")
	second, dup := res.Find("@I9@#2")
	assert.True(t, first)
	require.True(t, dup)
	assert.Equal(t, "@I9@", second.ID)
}

func TestTreeLayout_HitTest(t *testing.T) {
	res, err := NewTreeLayout(DefaultOptions()).Layout(shapeBidi(familytest.JaneDoe(), 1, 1), viewport)
	require.NoError(t, err)

	key, ok := res.HitTest(viewport.Center().Add(core.Point{X: 3, Y: -2}), 8)
	assert.True(t, ok)
	assert.Equal(t, "@I1@", key)

	_, ok = res.HitTest(core.Point{X: -5000, Y: -5000}, 8)
	assert.False(t, ok)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())
	bad := DefaultOptions()
	bad.CousinSeparation = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidOptions)

	l := NewTreeLayout(Options{})
	assert.Equal(t, DefaultOptions(), l.Options())
	assert.False(t, math.IsNaN(l.Options().NodeSpacing))
}
