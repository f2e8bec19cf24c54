// Package terminal is the interactive family tree explorer for text terminals.
package terminal

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"treepilot/core"
	"treepilot/family"
	"treepilot/interaction"
	"treepilot/view"
)

// Every terminal cell stands for a CellWidth x CellHeight block of view space.
const (
	CellWidth  = 8
	CellHeight = 16
)

const (
	zoomStep = 1.25
	panCells = 4
)

var errStop = errors.New("explorer stopped")

type cell struct{ x, y int }

// Explorer draws a view on a tcell screen and turns keys and mouse input into
// view operations.
type Explorer struct {
	screen tcell.Screen
	view   *view.View
	logger *zap.Logger

	// Regions of the last frame that belong to a node marker or label.
	hits map[cell]string

	hovered  string
	dragging bool
	dragFrom cell
	showHelp bool
	status   string
}

// Open creates and initialises a terminal screen with mouse reporting on.
func Open() (tcell.Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create screen: %w", err)
	}
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise screen: %w", err)
	}
	s.EnableMouse()
	s.HideCursor()
	return s, nil
}

// New creates an explorer. The screen must already be initialised.
func New(screen tcell.Screen, v *view.View, logger *zap.Logger) *Explorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Explorer{
		screen: screen,
		view:   v,
		logger: logger,
		hits:   make(map[cell]string),
	}
}

// Run processes events until the user quits or ctx is cancelled.
func (e *Explorer) Run(ctx context.Context) error {
	unsubscribe := e.view.Subscribe(func(ev view.Event) {
		_ = e.screen.PostEvent(tcell.NewEventInterrupt(ev))
	})
	defer unsubscribe()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = e.screen.PostEvent(tcell.NewEventInterrupt(errStop))
		case <-done:
		}
	}()

	e.resize()
	e.draw()
	for {
		ev := e.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if !e.handle(ctx, ev) {
			return nil
		}
		e.draw()
	}
}

// handle applies one event and reports whether the explorer keeps running.
func (e *Explorer) handle(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		e.resize()
		e.screen.Sync()
	case *tcell.EventKey:
		return e.handleKey(ctx, ev)
	case *tcell.EventMouse:
		e.handleMouse(ev)
	case *tcell.EventInterrupt:
		switch data := ev.Data().(type) {
		case error:
			if data == errStop {
				return false
			}
		case view.Event:
			if data.Kind == view.EventError && data.Err != nil {
				e.status = data.Err.Error()
			}
		}
	}
	return true
}

func (e *Explorer) handleKey(ctx context.Context, ev *tcell.EventKey) bool {
	w, h := e.canvasSize()
	center := core.Point{X: float64(w*CellWidth) / 2, Y: float64(h*CellHeight) / 2}

	switch ev.Key() {
	case tcell.KeyCtrlC:
		return false
	case tcell.KeyEscape:
		if e.showHelp {
			e.showHelp = false
			return true
		}
		e.view.ClosePopover()
		return true
	case tcell.KeyLeft:
		e.view.Pan(panCells*CellWidth, 0)
		return true
	case tcell.KeyRight:
		e.view.Pan(-panCells*CellWidth, 0)
		return true
	case tcell.KeyUp:
		e.view.Pan(0, panCells*CellHeight)
		return true
	case tcell.KeyDown:
		e.view.Pan(0, -panCells*CellHeight)
		return true
	case tcell.KeyRune:
	default:
		return true
	}

	e.status = ""
	switch ev.Rune() {
	case 'q':
		return false
	case '?':
		e.showHelp = !e.showHelp
	case 'p':
		wasIdle := e.view.Interaction().State() == interaction.Idle
		e.view.TogglePin()
		if wasIdle {
			e.status = "hover a person to pin their details"
		}
	case '+', '=':
		e.view.ZoomAt(zoomStep, center)
	case '-', '_':
		e.view.ZoomAt(1/zoomStep, center)
	case 'f':
		e.view.Refit()
	case '[':
		e.stepDepth(ctx, core.DirectionAncestor, -1)
	case ']':
		e.stepDepth(ctx, core.DirectionAncestor, 1)
	case '{':
		e.stepDepth(ctx, core.DirectionDescendant, -1)
	case '}':
		e.stepDepth(ctx, core.DirectionDescendant, 1)
	}
	return true
}

// stepDepth moves one depth control. Single-direction views have only the
// descendant control, which both key pairs address.
func (e *Explorer) stepDepth(ctx context.Context, dir core.Direction, delta int) {
	d := e.view.Depths()
	current := d.Descendants
	if dir == core.DirectionAncestor && e.view.Kind().Mode() == family.ModeBidirectional {
		current = d.Ancestors
	}
	if err := e.view.SetDepth(ctx, dir, current+delta); err != nil {
		e.logger.Warn("depth change failed", zap.Error(err))
		e.status = err.Error()
	}
}

func (e *Explorer) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	at := cell{x, y}
	buttons := ev.Buttons()

	switch {
	case buttons&tcell.WheelUp != 0:
		e.view.ZoomAt(zoomStep, cellCenter(at))
		return
	case buttons&tcell.WheelDown != 0:
		e.view.ZoomAt(1/zoomStep, cellCenter(at))
		return
	case buttons&tcell.Button1 != 0:
		if !e.dragging {
			e.dragging, e.dragFrom = true, at
			if key, ok := e.hits[at]; ok {
				e.view.PinNode(key)
			}
			return
		}
		if at != e.dragFrom {
			e.view.Pan(float64((at.x-e.dragFrom.x)*CellWidth), float64((at.y-e.dragFrom.y)*CellHeight))
			e.dragFrom = at
		}
		return
	}

	e.dragging = false
	e.hover(e.hits[at])
}

// hover moves the pointer onto key, or off every node when key is empty.
func (e *Explorer) hover(key string) {
	if key == e.hovered {
		return
	}
	if e.hovered != "" {
		e.view.PointerLeave(e.hovered)
	}
	e.hovered = key
	if key != "" {
		e.view.PointerEnter(key)
	}
}

func (e *Explorer) resize() {
	w, h := e.canvasSize()
	e.view.Resize(float64(w*CellWidth), float64(h*CellHeight))
}

// canvasSize is the screen minus the status line.
func (e *Explorer) canvasSize() (int, int) {
	w, h := e.screen.Size()
	if h > 0 {
		h--
	}
	return w, h
}

func cellCenter(c cell) core.Point {
	return core.Point{X: (float64(c.x) + 0.5) * CellWidth, Y: (float64(c.y) + 0.5) * CellHeight}
}

func cellOf(p core.Point) cell {
	return cell{floorDiv(p.X, CellWidth), floorDiv(p.Y, CellHeight)}
}

func floorDiv(v, size float64) int {
	n := int(v / size)
	if v < 0 && float64(n)*size != v {
		n--
	}
	return n
}
