// Package interaction implements the hover and pin popover state machine of a tree view.
package interaction

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"treepilot/core"
)

// State is the externally visible popover state.
type State int

const (
	Idle State = iota
	Hovering
	Pinned
)

func (s State) String() string {
	switch s {
	case Hovering:
		return "hovering"
	case Pinned:
		return "pinned"
	default:
		return "idle"
	}
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Options holds the popover delays.
type Options struct {
	OpenDelay  time.Duration `json:"openDelay" yaml:"open_delay" toml:"open_delay" validate:"gte=0"`
	CloseDelay time.Duration `json:"closeDelay" yaml:"close_delay" toml:"close_delay" validate:"gte=0"`
}

// DefaultOptions returns a 300ms open delay and a 100ms close delay.
func DefaultOptions() Options {
	return Options{OpenDelay: 300 * time.Millisecond, CloseDelay: 100 * time.Millisecond}
}

// Locator maps a node key to its current screen position.
type Locator func(key string) (core.Point, bool)

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	State   State  `json:"state"`
	Hovered string `json:"hovered,omitempty"`
	Pinned  string `json:"pinned,omitempty"`
	// Active is the node whose popover is displayed. Pinned wins over hovered.
	Active string     `json:"active,omitempty"`
	Anchor core.Point `json:"anchor"`
	// Anchored is false when no popover is displayed or the node is not on screen.
	Anchored bool `json:"anchored"`
}

// Listener receives the new snapshot after every visible change.
type Listener func(Snapshot)

// Controller tracks pointer and pin state for one view.
//
// Timer callbacks may run on another goroutine, so all state is guarded by a
// mutex and every scheduled callback carries the generation it was armed in.
// A callback whose generation is stale, or that fires after Dispose, does nothing.
type Controller struct {
	mu     sync.Mutex
	clock  Clock
	opts   Options
	logger *zap.Logger
	locate Locator

	pointer string // node currently under the pointer
	hovered string // visible hover
	pinned  string
	anchor  core.Point
	placed  bool

	open, close       Timer
	openGen, closeGen uint64
	disposed          bool

	listeners map[int]Listener
	nextID    int
}

// New creates an idle controller. A nil clock uses real time; a nil logger logs nothing.
func New(clock Clock, opts Options, logger *zap.Logger) *Controller {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.OpenDelay < 0 || opts.CloseDelay < 0 {
		opts = DefaultOptions()
	}
	return &Controller{
		clock:     clock,
		opts:      opts,
		logger:    logger,
		listeners: make(map[int]Listener),
	}
}

// SetLocator installs the model-to-screen lookup used for popover anchors.
func (c *Controller) SetLocator(fn Locator) {
	c.mu.Lock()
	c.locate = fn
	c.mu.Unlock()
	c.Reanchor()
}

// PointerEnter records that the pointer moved onto a node. The hover becomes
// visible once the open delay elapses with the pointer still on that node.
func (c *Controller) PointerEnter(key string) {
	c.mu.Lock()
	if c.disposed || key == "" {
		c.mu.Unlock()
		return
	}
	c.pointer = key
	c.stopClose()

	if key == c.pinned || key == c.hovered {
		c.stopOpen()
		c.mu.Unlock()
		return
	}

	c.stopOpen()
	c.openGen++
	gen := c.openGen
	c.open = c.clock.AfterFunc(c.opts.OpenDelay, func() { c.fireOpen(gen, key) })
	c.mu.Unlock()
}

// PointerLeave records that the pointer left a node. A pending open is
// cancelled; a visible hover is cleared after the close delay. A leave for a
// node the pointer is no longer on is stale and ignored.
func (c *Controller) PointerLeave(key string) {
	c.mu.Lock()
	if c.disposed || key == "" || key != c.pointer {
		c.mu.Unlock()
		return
	}
	c.pointer = ""
	c.stopOpen()
	if c.hovered != "" && c.close == nil {
		c.closeGen++
		gen := c.closeGen
		c.close = c.clock.AfterFunc(c.opts.CloseDelay, func() { c.fireClose(gen) })
	}
	c.mu.Unlock()
}

// Pin pins the visible hover. It reports whether anything was pinned.
func (c *Controller) Pin() bool {
	c.mu.Lock()
	if c.disposed || c.hovered == "" {
		c.mu.Unlock()
		return false
	}
	key := c.hovered
	c.mu.Unlock()
	c.PinNode(key)
	return true
}

// PinNode pins key directly, as a click on its marker does.
func (c *Controller) PinNode(key string) {
	c.mu.Lock()
	if c.disposed || key == "" {
		c.mu.Unlock()
		return
	}
	c.stopOpen()
	c.stopClose()
	c.pinned = key
	if c.hovered == key {
		c.hovered = ""
	}
	c.logger.Debug("popover pinned", zap.String("person_id", key))
	snap := c.commit()
	c.mu.Unlock()
	c.notify(snap)
}

// Unpin clears the pin immediately. The node under the pointer, or a visible
// hover of another node, becomes the displayed popover; otherwise the state is idle.
func (c *Controller) Unpin() {
	c.mu.Lock()
	if c.disposed || c.pinned == "" {
		c.mu.Unlock()
		return
	}
	c.logger.Debug("popover unpinned", zap.String("person_id", c.pinned))
	if c.pointer == c.pinned {
		c.stopOpen()
		c.stopClose()
		c.hovered = c.pinned
	}
	c.pinned = ""
	snap := c.commit()
	c.mu.Unlock()
	c.notify(snap)
}

// Close dismisses every popover and cancels pending timers.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.stopOpen()
	c.stopClose()
	changed := c.pinned != "" || c.hovered != ""
	c.pinned, c.hovered = "", ""
	snap := c.commit()
	c.mu.Unlock()
	if changed {
		c.notify(snap)
	}
}

// Reanchor recomputes the screen anchor of the displayed popover without
// changing state. Call it after every viewport transform change.
func (c *Controller) Reanchor() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	before, placed := c.anchor, c.placed
	snap := c.commit()
	c.mu.Unlock()
	if snap.Active != "" && (snap.Anchor != before || snap.Anchored != placed) {
		c.notify(snap)
	}
}

// Forget drops any hover or pin of keys that no longer exist, for example after a relayout.
func (c *Controller) Forget(exists func(key string) bool) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	changed := false
	if c.pinned != "" && !exists(c.pinned) {
		c.pinned, changed = "", true
	}
	if c.hovered != "" && !exists(c.hovered) {
		c.hovered, changed = "", true
		c.stopClose()
	}
	if c.pointer != "" && !exists(c.pointer) {
		c.pointer = ""
		c.stopOpen()
	}
	snap := c.commit()
	c.mu.Unlock()
	if changed {
		c.notify(snap)
	}
}

// State returns the current popover state.
func (c *Controller) State() State {
	return c.Snapshot().State
}

// Active returns the node whose popover is displayed, or "".
func (c *Controller) Active() string {
	return c.Snapshot().Active
}

// Emphasized reports whether a node marker is drawn enlarged.
func (c *Controller) Emphasized(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return key != "" && (key == c.hovered || key == c.pinned)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Subscribe registers fn for state changes and returns a function that removes it.
func (c *Controller) Subscribe(fn Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Dispose stops all timers and listeners. Later calls and late timer fires are ignored.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopOpen()
	c.stopClose()
	c.disposed = true
	c.listeners = map[int]Listener{}
}

func (c *Controller) fireOpen(gen uint64, key string) {
	c.mu.Lock()
	if c.disposed || gen != c.openGen || c.pointer != key {
		c.mu.Unlock()
		return
	}
	c.open = nil
	c.hovered = key
	c.logger.Debug("popover opened", zap.String("person_id", key))
	snap := c.commit()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Controller) fireClose(gen uint64) {
	c.mu.Lock()
	if c.disposed || gen != c.closeGen {
		c.mu.Unlock()
		return
	}
	c.close = nil
	if c.hovered == "" {
		c.mu.Unlock()
		return
	}
	c.logger.Debug("popover closed", zap.String("person_id", c.hovered))
	c.hovered = ""
	snap := c.commit()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Controller) stopOpen() {
	if c.open != nil {
		c.open.Stop()
		c.open = nil
	}
	c.openGen++
}

func (c *Controller) stopClose() {
	if c.close != nil {
		c.close.Stop()
		c.close = nil
	}
	c.closeGen++
}

// commit refreshes the anchor and returns the snapshot. Callers hold c.mu.
func (c *Controller) commit() Snapshot {
	active := c.activeKey()
	c.anchor, c.placed = core.Point{}, false
	if active != "" && c.locate != nil {
		c.anchor, c.placed = c.locate(active)
	}
	return c.snapshot()
}

func (c *Controller) activeKey() string {
	if c.pinned != "" {
		return c.pinned
	}
	return c.hovered
}

func (c *Controller) snapshot() Snapshot {
	s := Snapshot{
		Hovered:  c.hovered,
		Pinned:   c.pinned,
		Active:   c.activeKey(),
		Anchor:   c.anchor,
		Anchored: c.placed,
	}
	switch {
	case c.pinned != "":
		s.State = Pinned
	case c.hovered != "":
		s.State = Hovering
	}
	return s
}

func (c *Controller) notify(s Snapshot) {
	c.mu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}
