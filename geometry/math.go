package geometry

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"treepilot/core"
)

// Clamp returns v limited to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt returns v limited to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NearlyEqual compares floats with an absolute tolerance.
func NearlyEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

// Cubic is a cubic Bezier segment.
type Cubic struct {
	Start, C1, C2, End core.Point
}

// HorizontalLink builds the curve d3.linkHorizontal draws between a parent and a child:
// both control points sit on the x midpoint, so the curve leaves and enters horizontally.
func HorizontalLink(from, to core.Point) Cubic {
	mx := (from.X + to.X) / 2
	return Cubic{
		Start: from,
		C1:    core.Point{X: mx, Y: from.Y},
		C2:    core.Point{X: mx, Y: to.Y},
		End:   to,
	}
}

// At evaluates the curve at t in [0, 1].
func (c Cubic) At(t float64) core.Point {
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	d := 3 * u * t * t
	e := t * t * t
	return core.Point{
		X: a*c.Start.X + b*c.C1.X + d*c.C2.X + e*c.End.X,
		Y: a*c.Start.Y + b*c.C1.Y + d*c.C2.Y + e*c.End.Y,
	}
}

// Sample returns n+1 evenly spaced points along the curve, endpoints included.
func (c Cubic) Sample(n int) []core.Point {
	if n < 1 {
		n = 1
	}
	pts := make([]core.Point, 0, n+1)
	for i := 0; i <= n; i++ {
		pts = append(pts, c.At(float64(i)/float64(n)))
	}
	return pts
}

// SVGPath renders the curve as an SVG path data string.
func (c Cubic) SVGPath() string {
	var b strings.Builder
	fmt.Fprintf(&b, "M%s,%sC%s,%s %s,%s %s,%s",
		num(c.Start.X), num(c.Start.Y),
		num(c.C1.X), num(c.C1.Y),
		num(c.C2.X), num(c.C2.Y),
		num(c.End.X), num(c.End.Y))
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
