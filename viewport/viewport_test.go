package viewport

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treepilot/core"
)

func bounds(minX, minY, maxX, maxY float64) core.Bounds {
	return core.Bounds{Min: core.Point{X: minX, Y: minY}, Max: core.Point{X: maxX, Y: maxY}}
}

func TestTransformApplyInvert(t *testing.T) {
	tr := Transform{X: 10, Y: -20, K: 2}
	p := core.Point{X: 3, Y: 4}
	s := tr.Apply(p)
	assert.Equal(t, core.Point{X: 16, Y: -12}, s)
	assert.Equal(t, p, tr.Invert(s))
	assert.Equal(t, p, Identity.Apply(p))
}

func TestFit(t *testing.T) {
	size := core.Size{Width: 800, Height: 600}
	const pad = 40

	tests := []struct {
		name   string
		b      core.Bounds
		wantK  float64
		center bool
	}{
		{"small box is not enlarged", bounds(0, 0, 100, 50), 1, true},
		{"wide box limited by width", bounds(0, 0, 3000, 100), 800.0 / 3080, true},
		{"tall box limited by height", bounds(-500, -2000, 500, 2000), 600.0 / 4080, true},
		{"single point", bounds(5, 5, 5, 5), 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Fit(tt.b, size, pad)
			assert.InDelta(t, tt.wantK, tr.K, 1e-9)
			assert.Greater(t, tr.K, 0.0)
			assert.LessOrEqual(t, tr.K, 1.0)

			screen := tr.ApplyBounds(tt.b.Inset(pad))
			assert.GreaterOrEqual(t, screen.Min.X, -1e-9)
			assert.GreaterOrEqual(t, screen.Min.Y, -1e-9)
			assert.LessOrEqual(t, screen.Max.X, size.Width+1e-9)
			assert.LessOrEqual(t, screen.Max.Y, size.Height+1e-9)

			c := tr.Apply(tt.b.Center())
			assert.InDelta(t, size.Width/2, c.X, 1e-9)
			assert.InDelta(t, size.Height/2, c.Y, 1e-9)
		})
	}

	assert.Equal(t, Identity, Fit(core.EmptyBounds(), size, pad))
	assert.Equal(t, Identity, Fit(bounds(0, 0, 10, 10), core.Size{}, pad))
}

func TestFitBelowMinScaleIsNotClamped(t *testing.T) {
	c := NewController(DefaultOptions())
	c.Resize(core.Size{Width: 100, Height: 100})
	tr := c.FitTo(bounds(0, 0, 100000, 10))
	assert.Less(t, tr.K, c.Options().MinScale)
	assert.Equal(t, tr, c.Transform())
}

func TestControllerPanAndZoom(t *testing.T) {
	c := NewController(DefaultOptions())
	c.Resize(core.Size{Width: 800, Height: 600})

	c.Pan(15, -5)
	assert.Equal(t, Transform{X: 15, Y: -5, K: 1}, c.Transform())

	anchor := core.Point{X: 200, Y: 100}
	model := c.ToModel(anchor)
	c.ZoomAt(2, anchor)
	assert.InDelta(t, 2, c.Transform().K, 1e-9)
	got := c.ToScreen(model)
	assert.InDelta(t, anchor.X, got.X, 1e-9)
	assert.InDelta(t, anchor.Y, got.Y, 1e-9)

	c.ZoomAt(100, anchor)
	assert.Equal(t, 3.0, c.Transform().K)
	c.ZoomAt(0.0001, anchor)
	assert.Equal(t, 0.1, c.Transform().K)

	before := c.Transform()
	c.ZoomAt(-1, anchor)
	c.ZoomAt(0, anchor)
	assert.Equal(t, before, c.Transform())

	c.SetScale(10)
	assert.Equal(t, 3.0, c.Transform().K)

	c.Set(Transform{X: 1, Y: 2, K: 0.01})
	assert.Equal(t, Transform{X: 1, Y: 2, K: 0.1}, c.Transform())
}

func TestConcurrentPansCompose(t *testing.T) {
	c := NewController(DefaultOptions())
	var notified sync.WaitGroup
	notified.Add(100)
	c.Subscribe(func(Transform) { notified.Done() })

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Pan(1, -2)
		}()
	}
	wg.Wait()
	notified.Wait()
	assert.Equal(t, Transform{X: 100, Y: -200, K: 1}, c.Transform())
}

func TestControllerSubscribe(t *testing.T) {
	c := NewController(DefaultOptions())
	var got []Transform
	unsubscribe := c.Subscribe(func(tr Transform) { got = append(got, tr) })

	c.Pan(1, 0)
	c.Pan(0, 0) // no change, no notification
	c.Pan(0, 1)
	require.Len(t, got, 2)
	assert.Equal(t, Transform{X: 1, Y: 1, K: 1}, got[1])

	unsubscribe()
	c.Pan(5, 5)
	assert.Len(t, got, 2)
}

func TestNewControllerFallsBackToDefaults(t *testing.T) {
	c := NewController(Options{MinScale: 2, MaxScale: 1})
	assert.Equal(t, DefaultOptions(), c.Options())
}
