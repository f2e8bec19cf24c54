// Package viewport maintains the pan/zoom transform applied to a laid-out tree.
package viewport

import (
	"math"
	"sync"

	"treepilot/core"
	"treepilot/geometry"
)

// Transform is a uniform scale followed by a translation: screen = model*K + (X, Y).
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

// Identity is the transform that leaves coordinates unchanged.
var Identity = Transform{K: 1}

// Apply maps a model-space point to screen space.
func (t Transform) Apply(p core.Point) core.Point {
	return core.Point{X: p.X*t.K + t.X, Y: p.Y*t.K + t.Y}
}

// Invert maps a screen-space point back to model space.
func (t Transform) Invert(p core.Point) core.Point {
	if t.K == 0 {
		return p
	}
	return core.Point{X: (p.X - t.X) / t.K, Y: (p.Y - t.Y) / t.K}
}

// ApplyBounds maps both corners of b to screen space.
func (t Transform) ApplyBounds(b core.Bounds) core.Bounds {
	return core.Bounds{Min: t.Apply(b.Min), Max: t.Apply(b.Max)}
}

// Fit returns the transform that shows the whole of b, plus padding on every
// side, inside a viewport of the given size. The scale is the largest value not
// above 1 for which both axes fit, and the box is centred. Empty bounds or an
// empty viewport yield the identity.
func Fit(b core.Bounds, size core.Size, padding float64) Transform {
	if b.IsEmpty() || size.Empty() {
		return Identity
	}
	padding = math.Max(padding, 0)
	k := 1.0
	if w := b.Width() + 2*padding; w > 0 {
		k = math.Min(k, size.Width/w)
	}
	if h := b.Height() + 2*padding; h > 0 {
		k = math.Min(k, size.Height/h)
	}
	c := b.Center()
	return Transform{
		X: size.Width/2 - c.X*k,
		Y: size.Height/2 - c.Y*k,
		K: k,
	}
}

// Options bounds the user-controlled zoom.
type Options struct {
	MinScale float64 `json:"minScale" yaml:"min_scale" toml:"min_scale" validate:"gt=0"`
	MaxScale float64 `json:"maxScale" yaml:"max_scale" toml:"max_scale" validate:"gtfield=MinScale"`
	Padding  float64 `json:"padding" yaml:"padding" toml:"padding" validate:"gte=0"`
}

// DefaultOptions allows zooming between 0.1x and 3x with 40px of fit padding.
func DefaultOptions() Options {
	return Options{MinScale: 0.1, MaxScale: 3, Padding: 40}
}

// Listener is called with the new transform after every change.
type Listener func(Transform)

// Controller owns the transform of one view. It is safe for concurrent use;
// listeners run on the goroutine that made the change, after the lock is released.
type Controller struct {
	mu        sync.RWMutex
	opts      Options
	size      core.Size
	t         Transform
	listeners map[int]Listener
	nextID    int
}

// NewController creates a controller with the identity transform.
func NewController(opts Options) *Controller {
	if opts.MinScale <= 0 || opts.MaxScale < opts.MinScale {
		opts = DefaultOptions()
	}
	return &Controller{
		opts:      opts,
		t:         Identity,
		listeners: make(map[int]Listener),
	}
}

// Options returns the zoom limits in use.
func (c *Controller) Options() Options {
	return c.opts
}

// Transform returns the current transform.
func (c *Controller) Transform() Transform {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.t
}

// Size returns the viewport size last passed to Resize.
func (c *Controller) Size() core.Size {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}

// Resize records the viewport size used by FitTo.
func (c *Controller) Resize(size core.Size) {
	c.mu.Lock()
	c.size = size
	c.mu.Unlock()
}

// FitTo replaces the transform with the fit transform for b. The fit scale is
// never clamped to MinScale, so a very large tree is still shown whole.
func (c *Controller) FitTo(b core.Bounds) Transform {
	return c.update(func(_ Transform, size core.Size) Transform {
		return Fit(b, size, c.opts.Padding)
	})
}

// Set replaces the transform, clamping its scale.
func (c *Controller) Set(t Transform) {
	t.K = geometry.Clamp(t.K, c.opts.MinScale, c.opts.MaxScale)
	c.update(func(Transform, core.Size) Transform { return t })
}

// Pan moves the drawing by a screen-space delta. Panning is unclamped.
func (c *Controller) Pan(dx, dy float64) {
	c.update(func(t Transform, _ core.Size) Transform {
		t.X += dx
		t.Y += dy
		return t
	})
}

// ZoomAt multiplies the scale by factor, keeping the model point under the
// screen point at fixed. The resulting scale is clamped.
func (c *Controller) ZoomAt(factor float64, at core.Point) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	c.update(func(t Transform, _ core.Size) Transform {
		return zoomed(t, t.K*factor, at, c.opts)
	})
}

// SetScale sets an absolute scale around the viewport centre.
func (c *Controller) SetScale(k float64) {
	c.update(func(t Transform, size core.Size) Transform {
		return zoomed(t, k, size.Center(), c.opts)
	})
}

func zoomed(t Transform, k float64, at core.Point, opts Options) Transform {
	k = geometry.Clamp(k, opts.MinScale, opts.MaxScale)
	model := t.Invert(at)
	return Transform{X: at.X - model.X*k, Y: at.Y - model.Y*k, K: k}
}

// ToScreen maps a model point through the current transform.
func (c *Controller) ToScreen(p core.Point) core.Point {
	return c.Transform().Apply(p)
}

// ToModel maps a screen point back to model space.
func (c *Controller) ToModel(p core.Point) core.Point {
	return c.Transform().Invert(p)
}

// Subscribe registers fn for transform changes and returns a function that removes it.
func (c *Controller) Subscribe(fn Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// update derives the next transform from the current one under the write
// lock, so concurrent gestures compose. Listeners run after the lock is released.
func (c *Controller) update(next func(Transform, core.Size) Transform) Transform {
	c.mu.Lock()
	t := next(c.t, c.size)
	if t == c.t {
		c.mu.Unlock()
		return t
	}
	c.t = t
	listeners := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(t)
	}
	return t
}
