package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"treepilot/core"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.1, Clamp(0.01, 0.1, 3))
	assert.Equal(t, 3.0, Clamp(10, 0.1, 3))
	assert.Equal(t, 1.5, Clamp(1.5, 0.1, 3))
	assert.Equal(t, 0, ClampInt(-2, 0, 5))
	assert.Equal(t, 5, ClampInt(9, 0, 5))
}

func TestHorizontalLinkEndpoints(t *testing.T) {
	from := core.Point{X: 0, Y: 0}
	to := core.Point{X: 100, Y: 50}
	c := HorizontalLink(from, to)

	assert.Equal(t, from, c.At(0))
	assert.Equal(t, to, c.At(1))
	assert.Equal(t, core.Point{X: 50, Y: 0}, c.C1)
	assert.Equal(t, core.Point{X: 50, Y: 50}, c.C2)

	mid := c.At(0.5)
	assert.InDelta(t, 50, mid.X, 1e-9)
	assert.InDelta(t, 25, mid.Y, 1e-9)
}

func TestSample(t *testing.T) {
	c := HorizontalLink(core.Point{}, core.Point{X: 10, Y: 10})
	pts := c.Sample(4)
	assert.Len(t, pts, 5)
	assert.Equal(t, core.Point{}, pts[0])
	assert.Equal(t, core.Point{X: 10, Y: 10}, pts[4])
}

func TestSVGPath(t *testing.T) {
	c := HorizontalLink(core.Point{X: 0, Y: 0}, core.Point{X: 100, Y: 33.333})
	assert.Equal(t, "M0,0C50,0 50,33.33 100,33.33", c.SVGPath())
}
