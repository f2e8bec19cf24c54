package terminal

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"treepilot/core"
	"treepilot/detail"
	"treepilot/family"
	"treepilot/interaction"
	"treepilot/layout"
	"treepilot/viewport"
)

var (
	styleLink     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleName     = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleLifespan = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleNote     = tcell.StyleDefault.Foreground(tcell.ColorGray).Italic(true)
	styleStatus   = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	styleWarning  = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorYellow)
	styleBox      = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleError    = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

var markerColors = map[core.Gender]tcell.Color{
	core.GenderMale:    tcell.ColorSteelBlue,
	core.GenderFemale:  tcell.ColorPaleVioletRed,
	core.GenderUnknown: tcell.ColorGray,
}

const (
	markerRune     = '●'
	emphasisRune   = '◉'
	linkRune       = '·'
	popoverWidth   = 40
	popoverPadding = 1
)

func (e *Explorer) draw() {
	e.screen.Clear()
	clear(e.hits)

	res := e.view.Result()
	t := e.view.Viewport().Transform()
	if !res.Empty() {
		e.drawLinks(res, t)
		for _, p := range res.Positions {
			e.drawPerson(p, t)
		}
	}
	e.drawPlaceholders()
	e.drawPopover(res)
	e.drawStatus(t)
	if e.showHelp {
		e.drawHelp()
	}
	e.screen.Show()
}

func (e *Explorer) drawLinks(res *layout.Result, t viewport.Transform) {
	for _, l := range res.Links {
		from, to := t.Apply(l.Curve.Start), t.Apply(l.Curve.End)
		n := int(math.Max(8, from.Distance(to)/CellWidth*2))
		for _, p := range l.Curve.Sample(n) {
			c := cellOf(t.Apply(p))
			e.set(c.x, c.y, linkRune, styleLink)
		}
	}
}

func (e *Explorer) drawPerson(p layout.Position, t viewport.Transform) {
	if p.Node == nil {
		return
	}
	at := cellOf(t.Apply(p.Point()))
	color, ok := markerColors[p.Node.Gender]
	if !ok {
		color = markerColors[core.GenderUnknown]
	}
	marker, style := markerRune, tcell.StyleDefault.Foreground(color)
	if e.view.Emphasized(p.Key) {
		marker, style = emphasisRune, style.Bold(true)
	}
	e.set(at.x, at.y, marker, style)
	e.hits[at] = p.Key

	name := p.Node.Name
	if life := p.Node.Lifespan(); life != "" {
		name += " " + life
	}
	// Labels grow away from the root: ancestors to the right, descendants to the left.
	var x, y int
	switch p.Direction {
	case core.DirectionDescendant:
		x, y = at.x-2-textWidth(name), at.y
	case core.DirectionRoot:
		x, y = at.x-textWidth(name)/2, at.y-1
	default:
		x, y = at.x+2, at.y
	}
	nameEnd := x + textWidth(p.Node.Name)
	for i, r := range []rune(name) {
		st := styleName
		if x+i >= nameEnd {
			st = styleLifespan
		}
		if e.set(x+i, y, r, st) {
			e.hits[cell{x + i, y}] = p.Key
		}
	}
}

func (e *Explorer) drawPlaceholders() {
	for i, text := range e.view.Placeholders() {
		e.text(1, i, text, styleNote)
	}
}

// drawPopover boxes the detail of the displayed popover next to its anchor.
func (e *Explorer) drawPopover(res *layout.Result) {
	snap := e.view.Interaction().Snapshot()
	if snap.Active == "" || !snap.Anchored {
		return
	}
	pos, ok := res.Find(snap.Active)
	if !ok {
		return
	}

	title := pos.ID
	if pos.Node != nil {
		title = pos.Node.Name
	}
	if snap.State == interaction.Pinned {
		title += " (pinned)"
	}

	entry := e.view.Detail()
	var lines []string
	style := styleBox
	switch {
	case entry.ID != pos.ID || entry.Status == detail.Loading || entry.Status == detail.Absent:
		lines = []string{"Loading..."}
	case entry.Status == detail.Failed:
		lines, style = []string{entry.Message()}, styleError
	case entry.Record == nil:
		lines = []string{"No further details"}
	default:
		lines = entry.Record.Lines()[1:]
		if len(lines) == 0 {
			lines = []string{"No further details"}
		}
	}

	width, height := e.screen.Size()
	boxW := popoverWidth
	if boxW > width {
		boxW = width
	}
	boxH := len(lines) + 2
	anchor := cellOf(snap.Anchor)
	x, y := anchor.x+2, anchor.y-1
	if x+boxW > width {
		x = anchor.x - 2 - boxW
	}
	x = max(0, x)
	y = max(0, min(y, height-1-boxH))

	e.box(x, y, boxW, boxH, title)
	for i, line := range lines {
		e.text(x+1+popoverPadding, y+1+i, truncate(line, boxW-2-2*popoverPadding), style)
	}
}

func (e *Explorer) drawStatus(t viewport.Transform) {
	width, height := e.screen.Size()
	if height == 0 {
		return
	}
	row := height - 1
	for x := 0; x < width; x++ {
		e.screen.SetContent(x, row, ' ', nil, styleStatus)
	}
	if e.status != "" {
		e.text(1, row, truncate(e.status, width-2), styleWarning)
		return
	}

	d := e.view.Depths()
	var line string
	if e.view.Kind().Mode() == family.ModeBidirectional {
		line = fmt.Sprintf(" %s  ancestors %d/%d  descendants %d/%d  zoom %.2f",
			e.view.PersonID(), d.Ancestors, d.AncestorControl.Max(), d.Descendants, d.DescendantControl.Max(), t.K)
	} else {
		line = fmt.Sprintf(" %s  %s %d/%d  zoom %.2f",
			e.view.PersonID(), e.view.Kind(), d.Descendants, d.DescendantControl.Max(), t.K)
	}
	e.text(0, row, truncate(line, width), styleStatus)
	hint := "? help  q quit "
	if textWidth(line)+textWidth(hint) < width {
		e.text(width-textWidth(hint), row, hint, styleStatus)
	}
}

func (e *Explorer) drawHelp() {
	lines := helpLines()
	w := 0
	for _, l := range lines {
		w = max(w, textWidth(l))
	}
	width, height := e.screen.Size()
	boxW, boxH := w+4, len(lines)+2
	x, y := max(0, (width-boxW)/2), max(0, (height-boxH)/2)
	e.fill(x, y, boxW, boxH)
	e.box(x, y, boxW, boxH, "treepilot help")
	for i, l := range lines {
		e.text(x+2, y+1+i, l, styleBox)
	}
}

// set writes one cell inside the canvas and reports whether it was visible.
func (e *Explorer) set(x, y int, r rune, style tcell.Style) bool {
	w, h := e.canvasSize()
	if x < 0 || y < 0 || x >= w || y >= h {
		return false
	}
	e.screen.SetContent(x, y, r, nil, style)
	return true
}

func (e *Explorer) text(x, y int, s string, style tcell.Style) {
	for i, r := range []rune(s) {
		e.screen.SetContent(x+i, y, r, nil, style)
	}
}

func (e *Explorer) fill(x, y, w, h int) {
	for row := y; row < y+h; row++ {
		for col := x; col < x+w; col++ {
			e.screen.SetContent(col, row, ' ', nil, styleBox)
		}
	}
}

func (e *Explorer) box(x, y, w, h int, title string) {
	e.fill(x, y, w, h)
	for col := x + 1; col < x+w-1; col++ {
		e.screen.SetContent(col, y, '─', nil, styleBox)
		e.screen.SetContent(col, y+h-1, '─', nil, styleBox)
	}
	for row := y + 1; row < y+h-1; row++ {
		e.screen.SetContent(x, row, '│', nil, styleBox)
		e.screen.SetContent(x+w-1, row, '│', nil, styleBox)
	}
	e.screen.SetContent(x, y, '┌', nil, styleBox)
	e.screen.SetContent(x+w-1, y, '┐', nil, styleBox)
	e.screen.SetContent(x, y+h-1, '└', nil, styleBox)
	e.screen.SetContent(x+w-1, y+h-1, '┘', nil, styleBox)
	if title != "" {
		e.text(x+2, y, truncate(" "+title+" ", w-4), styleBox.Bold(true))
	}
}

func textWidth(s string) int {
	return len([]rune(s))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
