// Package core contains the fundamental types shared by the treepilot layout and interaction code.
package core

import "math"

// Point represents a 2D coordinate, either in model space or in screen space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Distance returns the euclidean distance between two points.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Direction tags a node in a bidirectional tree.
type Direction string

const (
	DirectionNone       Direction = ""
	DirectionRoot       Direction = "root"
	DirectionAncestor   Direction = "ancestor"
	DirectionDescendant Direction = "descendant"
)

// String returns the string representation of a Direction.
func (d Direction) String() string {
	if d == DirectionNone {
		return "none"
	}
	return string(d)
}

// Opposite returns the opposite growth direction. Root and none map to themselves.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionAncestor:
		return DirectionDescendant
	case DirectionDescendant:
		return DirectionAncestor
	default:
		return d
	}
}

// Gender is the gender category shown on a person marker.
type Gender string

const (
	GenderUnknown Gender = "unknown"
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
)

// ParseGender accepts GEDCOM style single letters as well as full words.
func ParseGender(s string) Gender {
	switch s {
	case "M", "m", "male", "Male", "MALE":
		return GenderMale
	case "F", "f", "female", "Female", "FEMALE":
		return GenderFemale
	default:
		return GenderUnknown
	}
}

// Size is a pixel extent of a drawing area.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether the area has no measurable size.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Center returns the center point of the area.
func (s Size) Center() Point {
	return Point{X: s.Width / 2, Y: s.Height / 2}
}

// Bounds represents a rectangular area.
type Bounds struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// EmptyBounds returns bounds that any Extend call will replace.
func EmptyBounds() Bounds {
	return Bounds{
		Min: Point{X: math.Inf(1), Y: math.Inf(1)},
		Max: Point{X: math.Inf(-1), Y: math.Inf(-1)},
	}
}

// Extend grows the bounds to include p.
func (b Bounds) Extend(p Point) Bounds {
	return Bounds{
		Min: Point{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y)},
		Max: Point{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y)},
	}
}

// IsEmpty returns true if no point was ever added.
func (b Bounds) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y
}

// Width returns the width of the bounds.
func (b Bounds) Width() float64 {
	if b.IsEmpty() {
		return 0
	}
	return b.Max.X - b.Min.X
}

// Height returns the height of the bounds.
func (b Bounds) Height() float64 {
	if b.IsEmpty() {
		return 0
	}
	return b.Max.Y - b.Min.Y
}

// Center returns the center point of the bounds.
func (b Bounds) Center() Point {
	return Point{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
}

// Contains checks if a point is within the bounds, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Inset returns the bounds grown by pad on every side.
func (b Bounds) Inset(pad float64) Bounds {
	return Bounds{
		Min: Point{X: b.Min.X - pad, Y: b.Min.Y - pad},
		Max: Point{X: b.Max.X + pad, Y: b.Max.Y + pad},
	}
}
