// Package view holds the controller for one tree view. It owns the tree data,
// depth controls, layout, viewport, popover state and detail lookups, and tells
// subscribers when any of them change.
package view

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"treepilot/core"
	"treepilot/detail"
	"treepilot/family"
	"treepilot/interaction"
	"treepilot/layout"
	"treepilot/metrics"
	"treepilot/source"
	"treepilot/viewport"
)

// EventKind says what changed.
type EventKind string

const (
	EventLayout    EventKind = "layout"
	EventTransform EventKind = "transform"
	EventPopover   EventKind = "popover"
	EventDetail    EventKind = "detail"
	EventError     EventKind = "error"
)

// Event is delivered to subscribers after a change.
type Event struct {
	Kind    EventKind             `json:"kind"`
	Popover *interaction.Snapshot `json:"popover,omitempty"`
	Detail  *detail.Entry         `json:"detail,omitempty"`
	Err     error                 `json:"-"`
}

// Placeholder texts for sides without data.
const (
	NoAncestors   = "No ancestor data available for this person"
	NoDescendants = "No descendant data available for this person"
	NoChildren    = "No further generations available for this person"
)

// Options configures a view.
type Options struct {
	Layout      layout.Options      `json:"layout" yaml:"layout" toml:"layout"`
	Viewport    viewport.Options    `json:"viewport" yaml:"viewport" toml:"viewport"`
	Interaction interaction.Options `json:"interaction" yaml:"interaction" toml:"interaction"`

	// Initial generations shown on each side.
	AncestorDepth   int `json:"ancestorDepth" yaml:"ancestor_depth" toml:"ancestor_depth" validate:"gte=0"`
	DescendantDepth int `json:"descendantDepth" yaml:"descendant_depth" toml:"descendant_depth" validate:"gte=0"`
	// FetchDepth is the depth requested from the provider.
	FetchDepth int `json:"fetchDepth" yaml:"fetch_depth" toml:"fetch_depth" validate:"gte=1,lte=20"`
	// MarkerRadius is the hit radius of a node marker in screen pixels.
	MarkerRadius float64 `json:"markerRadius" yaml:"marker_radius" toml:"marker_radius" validate:"gt=0"`
}

// DefaultOptions shows one ancestor and two descendant generations of a ten-generation fetch.
func DefaultOptions() Options {
	return Options{
		Layout:          layout.DefaultOptions(),
		Viewport:        viewport.DefaultOptions(),
		Interaction:     interaction.DefaultOptions(),
		AncestorDepth:   1,
		DescendantDepth: 2,
		FetchDepth:      10,
		MarkerRadius:    8,
	}
}

// Deps are the collaborators of a view. Only Details is required for popovers;
// Trees is needed for Load and for depth changes beyond the fetched data.
type Deps struct {
	Trees   source.TreeProvider
	Details *detail.Cache
	Clock   interaction.Clock
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// Depths is the state of the two depth controls.
type Depths struct {
	Ancestors          int                 `json:"ancestors"`
	Descendants        int                 `json:"descendants"`
	AncestorControl    family.DepthControl `json:"ancestorControl"`
	DescendantControl  family.DepthControl `json:"descendantControl"`
	AncestorsEnabled   bool                `json:"ancestorsEnabled"`
	DescendantsEnabled bool                `json:"descendantsEnabled"`
}

// View is the controller of one rendered tree.
type View struct {
	opts    Options
	engine  layout.LayoutEngine
	trees   source.TreeProvider
	cache   *detail.Cache
	logger  *zap.Logger
	metrics *metrics.Collector

	vp    *viewport.Controller
	hover *interaction.Controller

	// result is swapped whole so readers never see a half-built layout.
	result atomic.Pointer[layout.Result]

	// layoutMu serialises relayouts.
	layoutMu sync.Mutex

	mu          sync.RWMutex
	personID    string
	kind        source.Kind
	record      *family.Record
	fetched     int
	anc, desc   family.DepthControl
	ancDepth    int
	descDepth   int
	pointerKey  string
	detailID    string
	detailEntry detail.Entry
	closed      bool
	listeners   map[int]func(Event)
	nextID      int

	unsubscribe []func()
}

// New creates an empty view. Call Load or SetData, then Resize.
func New(deps Deps, opts Options) *View {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.FetchDepth <= 0 {
		opts.FetchDepth = DefaultOptions().FetchDepth
	}
	if opts.MarkerRadius <= 0 {
		opts.MarkerRadius = DefaultOptions().MarkerRadius
	}
	v := &View{
		opts:      opts,
		engine:    layout.NewTreeLayout(opts.Layout),
		trees:     deps.Trees,
		cache:     deps.Details,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		vp:        viewport.NewController(opts.Viewport),
		hover:     interaction.New(deps.Clock, opts.Interaction, deps.Logger),
		kind:      source.Bidirectional,
		ancDepth:  opts.AncestorDepth,
		descDepth: opts.DescendantDepth,
		listeners: make(map[int]func(Event)),
	}

	v.hover.SetLocator(v.locate)
	v.unsubscribe = append(v.unsubscribe,
		v.vp.Subscribe(v.onTransform),
		v.hover.Subscribe(v.onPopover),
	)
	if v.cache != nil {
		v.unsubscribe = append(v.unsubscribe, v.cache.Subscribe(v.onDetail))
	}
	return v
}

// Load fetches the tree around id and lays it out.
func (v *View) Load(ctx context.Context, id string, kind source.Kind) error {
	if v.trees == nil {
		return errors.New("view has no tree provider")
	}
	q := source.TreeQuery{Kind: kind, Ancestors: v.opts.FetchDepth, Descendants: v.opts.FetchDepth}
	rec, err := v.trees.Tree(ctx, id, q)
	if err != nil {
		return fmt.Errorf("load tree %s: %w", id, err)
	}
	v.setData(rec, kind, v.opts.FetchDepth)
	return nil
}

// SetData replaces the tree data with a record that is complete at any depth.
func (v *View) SetData(rec *family.Record, kind source.Kind) {
	v.setData(rec, kind, 0)
}

func (v *View) setData(rec *family.Record, kind source.Kind, fetched int) {
	ext := family.Measure(rec)
	v.mu.Lock()
	v.record = rec
	v.kind = kind
	v.fetched = fetched
	if rec != nil {
		v.personID = rec.ID
	}
	if kind.Mode() == family.ModeSingle {
		v.anc = family.DepthControl{}
		v.desc = family.DepthControl{Available: ext.Children, FetchLimit: fetched}
	} else {
		v.anc = family.DepthControl{Available: ext.Ancestors, FetchLimit: fetched}
		v.desc = family.DepthControl{Available: ext.Descendants, FetchLimit: fetched}
	}
	// New data makes any pending detail response stale.
	v.detailID = ""
	v.detailEntry = detail.Entry{}
	v.mu.Unlock()

	v.logger.Debug("tree data set",
		zap.String("person_id", v.PersonID()),
		zap.String("kind", string(kind)),
		zap.Int("ancestors", ext.Ancestors),
		zap.Int("descendants", ext.Descendants+ext.Children),
	)
	v.relayout()
	v.hover.Close()
}

// SetDepth changes the generation count shown in one direction. In single-
// direction views both directions address the one depth control. A request past
// the fetched data refetches when a provider is available.
func (v *View) SetDepth(ctx context.Context, dir core.Direction, n int) error {
	v.mu.Lock()
	ctl := &v.desc
	depth := &v.descDepth
	if dir == core.DirectionAncestor && v.kind.Mode() == family.ModeBidirectional {
		ctl, depth = &v.anc, &v.ancDepth
	}
	n = ctl.Clamp(n)
	needsFetch := ctl.NeedsFetch(n) && v.trees != nil && v.fetched < source.MaxQueryDepth
	id, kind, fetched := v.personID, v.kind, v.fetched
	if !needsFetch {
		*depth = n
	}
	v.mu.Unlock()

	if needsFetch {
		want := fetched * 2
		if want > source.MaxQueryDepth {
			want = source.MaxQueryDepth
		}
		rec, err := v.trees.Tree(ctx, id, source.TreeQuery{Kind: kind, Ancestors: want, Descendants: want})
		if err != nil {
			v.emit(Event{Kind: EventError, Err: err})
			return fmt.Errorf("refetch tree %s: %w", id, err)
		}
		v.mu.Lock()
		if dir == core.DirectionAncestor && kind.Mode() == family.ModeBidirectional {
			v.ancDepth = n
		} else {
			v.descDepth = n
		}
		v.mu.Unlock()
		v.setData(rec, kind, want)
		return nil
	}
	v.relayout()
	return nil
}

// Resize sets the drawing area. Layout waits until the area is non-empty.
func (v *View) Resize(width, height float64) {
	v.vp.Resize(core.Size{Width: width, Height: height})
	v.relayout()
}

func (v *View) relayout() {
	v.layoutMu.Lock()
	defer v.layoutMu.Unlock()

	v.mu.Lock()
	rec, kind := v.record, v.kind
	v.ancDepth = v.anc.Clamp(v.ancDepth)
	v.descDepth = v.desc.Clamp(v.descDepth)
	opts := family.ShapeOptions{
		Mode:            kind.Mode(),
		Depth:           v.descDepth,
		AncestorDepth:   v.ancDepth,
		DescendantDepth: v.descDepth,
	}
	v.mu.Unlock()

	size := v.vp.Size()
	if rec == nil || size.Empty() {
		return
	}

	tree := family.Shape(rec, opts)
	start := time.Now()
	res, err := v.engine.Layout(tree, size)
	if err != nil {
		v.logger.Error("layout failed", zap.Error(err))
		v.emit(Event{Kind: EventError, Err: err})
		return
	}
	v.metrics.ObserveLayout(string(opts.Mode), len(res.Positions), time.Since(start))

	v.result.Store(res)
	v.vp.FitTo(res.Bounds())
	v.hover.Forget(func(key string) bool {
		_, ok := res.Find(key)
		return ok
	})
	v.hover.Reanchor()
	v.emit(Event{Kind: EventLayout})
}

// Result returns the current layout, or nil before the first layout.
func (v *View) Result() *layout.Result {
	return v.result.Load()
}

// PersonID returns the root person of the view.
func (v *View) PersonID() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.personID
}

// Kind returns the tree kind in use.
func (v *View) Kind() source.Kind {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.kind
}

// Depths returns the depth control state.
func (v *View) Depths() Depths {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return Depths{
		Ancestors:          v.ancDepth,
		Descendants:        v.descDepth,
		AncestorControl:    v.anc,
		DescendantControl:  v.desc,
		AncestorsEnabled:   v.anc.Enabled(),
		DescendantsEnabled: v.desc.Enabled(),
	}
}

// Placeholders returns the explanatory texts for directions without data.
func (v *View) Placeholders() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.record == nil {
		return nil
	}
	var out []string
	if v.kind.Mode() == family.ModeSingle {
		if !v.desc.Enabled() {
			out = append(out, NoChildren)
		}
		return out
	}
	if !v.anc.Enabled() {
		out = append(out, NoAncestors)
	}
	if !v.desc.Enabled() {
		out = append(out, NoDescendants)
	}
	return out
}

// Viewport exposes the pan/zoom controller.
func (v *View) Viewport() *viewport.Controller {
	return v.vp
}

// Interaction exposes the popover controller.
func (v *View) Interaction() *interaction.Controller {
	return v.hover
}

// Pan moves the drawing by a screen delta.
func (v *View) Pan(dx, dy float64) { v.vp.Pan(dx, dy) }

// ZoomAt zooms by factor around a screen point.
func (v *View) ZoomAt(factor float64, at core.Point) { v.vp.ZoomAt(factor, at) }

// Refit reapplies the fit transform to the current layout.
func (v *View) Refit() {
	if res := v.Result(); !res.Empty() {
		v.vp.FitTo(res.Bounds())
	}
}

// NodeAt returns the key of the node under a screen point.
func (v *View) NodeAt(screen core.Point) (string, bool) {
	res := v.Result()
	if res.Empty() {
		return "", false
	}
	t := v.vp.Transform()
	return res.HitTest(t.Invert(screen), v.opts.MarkerRadius/t.K)
}

// PointerMove translates a screen position into enter and leave transitions.
func (v *View) PointerMove(screen core.Point) {
	key, _ := v.NodeAt(screen)
	v.mu.Lock()
	prev := v.pointerKey
	v.pointerKey = key
	v.mu.Unlock()
	if prev == key {
		return
	}
	if prev != "" {
		v.hover.PointerLeave(prev)
	}
	if key != "" {
		v.hover.PointerEnter(key)
	}
}

// PointerEnter and PointerLeave forward node-level pointer events.
func (v *View) PointerEnter(key string) {
	v.mu.Lock()
	v.pointerKey = key
	v.mu.Unlock()
	v.hover.PointerEnter(key)
}

func (v *View) PointerLeave(key string) {
	v.mu.Lock()
	if v.pointerKey == key {
		v.pointerKey = ""
	}
	v.mu.Unlock()
	v.hover.PointerLeave(key)
}

// TogglePin pins the hovered node, or unpins when something is pinned.
func (v *View) TogglePin() {
	if v.hover.State() == interaction.Pinned {
		v.hover.Unpin()
		return
	}
	v.hover.Pin()
}

// Pin pins the hovered node. It reports whether anything was pinned.
func (v *View) Pin() bool { return v.hover.Pin() }

// PinNode pins a node by key.
func (v *View) PinNode(key string) {
	if res := v.Result(); res != nil {
		if _, ok := res.Find(key); ok {
			v.hover.PinNode(key)
		}
	}
}

// Unpin clears the pin.
func (v *View) Unpin() { v.hover.Unpin() }

// ClosePopover dismisses every popover.
func (v *View) ClosePopover() { v.hover.Close() }

// Emphasized reports whether a node marker is drawn enlarged.
func (v *View) Emphasized(key string) bool { return v.hover.Emphasized(key) }

// Detail returns the detail entry of the displayed popover.
func (v *View) Detail() detail.Entry {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.detailEntry
}

// ShowDetail makes id the active detail lookup. Responses for any other id are
// discarded when they arrive.
func (v *View) ShowDetail(id string) {
	v.mu.Lock()
	if v.closed || id == v.detailID {
		v.mu.Unlock()
		return
	}
	v.detailID = id
	v.detailEntry = detail.Entry{ID: id}
	v.mu.Unlock()

	if id == "" || v.cache == nil {
		return
	}
	e := v.cache.Request(id)
	v.mu.Lock()
	// The lookup may have settled through onDetail already.
	if v.detailID != id {
		v.mu.Unlock()
		return
	}
	if v.detailEntry.Status != detail.Ready && v.detailEntry.Status != detail.Failed {
		v.detailEntry = e
	}
	cur := v.detailEntry
	v.mu.Unlock()
	v.emit(Event{Kind: EventDetail, Detail: &cur})
}

// Subscribe registers fn for view events and returns a function that removes it.
func (v *View) Subscribe(fn func(Event)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextID
	v.nextID++
	v.listeners[id] = fn
	return func() {
		v.mu.Lock()
		delete(v.listeners, id)
		v.mu.Unlock()
	}
}

// Close stops timers and drops subscribers. The view must not be used afterwards.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.listeners = map[int]func(Event){}
	unsub := v.unsubscribe
	v.unsubscribe = nil
	v.mu.Unlock()

	v.hover.Dispose()
	for _, fn := range unsub {
		fn()
	}
}

func (v *View) locate(key string) (core.Point, bool) {
	res := v.Result()
	if res == nil {
		return core.Point{}, false
	}
	p, ok := res.Find(key)
	if !ok {
		return core.Point{}, false
	}
	return v.vp.ToScreen(p.Point()), true
}

func (v *View) onTransform(viewport.Transform) {
	v.hover.Reanchor()
	v.emit(Event{Kind: EventTransform})
}

func (v *View) onPopover(s interaction.Snapshot) {
	id := ""
	if s.Active != "" {
		if p, ok := v.Result().Find(s.Active); ok {
			id = p.ID
		}
	}
	v.ShowDetail(id)
	v.emit(Event{Kind: EventPopover, Popover: &s})
}

func (v *View) onDetail(e detail.Entry) {
	v.mu.Lock()
	if v.closed || e.ID != v.detailID {
		v.mu.Unlock()
		v.logger.Debug("discarding stale detail", zap.String("person_id", e.ID))
		return
	}
	v.detailEntry = e
	v.mu.Unlock()
	v.emit(Event{Kind: EventDetail, Detail: &e})
}

func (v *View) emit(e Event) {
	v.mu.RLock()
	if v.closed {
		v.mu.RUnlock()
		return
	}
	listeners := make([]func(Event), 0, len(v.listeners))
	for _, fn := range v.listeners {
		listeners = append(listeners, fn)
	}
	v.mu.RUnlock()
	for _, fn := range listeners {
		fn(e)
	}
}
