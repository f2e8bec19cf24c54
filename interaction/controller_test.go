package interaction

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treepilot/core"
)

const ms = time.Millisecond

func newTest(t *testing.T) (*Controller, *ManualClock) {
	t.Helper()
	clock := NewManualClock()
	c := New(clock, DefaultOptions(), nil)
	t.Cleanup(c.Dispose)
	return c, clock
}

func TestHoverOpensAfterDelay(t *testing.T) {
	c, clock := newTest(t)

	c.PointerEnter("@I1@")
	clock.Advance(299 * ms)
	assert.Equal(t, Idle, c.State())
	assert.False(t, c.Emphasized("@I1@"))

	clock.Advance(1 * ms)
	assert.Equal(t, Hovering, c.State())
	assert.Equal(t, "@I1@", c.Active())
	assert.True(t, c.Emphasized("@I1@"))
}

func TestLeaveBeforeOpenDelayShowsNothing(t *testing.T) {
	c, clock := newTest(t)
	var events []Snapshot
	c.Subscribe(func(s Snapshot) { events = append(events, s) })

	c.PointerEnter("@I1@")
	clock.Advance(100 * ms)
	c.PointerLeave("@I1@")
	clock.Advance(time.Second)

	assert.Equal(t, Idle, c.State())
	assert.Empty(t, events)
	assert.Zero(t, clock.Pending())
}

func TestCloseDelayAndReentry(t *testing.T) {
	c, clock := newTest(t)
	c.PointerEnter("@I1@")
	clock.Advance(300 * ms)
	require.Equal(t, Hovering, c.State())

	c.PointerLeave("@I1@")
	clock.Advance(99 * ms)
	assert.Equal(t, Hovering, c.State(), "close delay not yet elapsed")

	c.PointerEnter("@I1@")
	clock.Advance(time.Second)
	assert.Equal(t, Hovering, c.State(), "re-entry cancels the close")

	c.PointerLeave("@I1@")
	clock.Advance(100 * ms)
	assert.Equal(t, Idle, c.State())
	assert.False(t, c.Emphasized("@I1@"))
}

func TestEnterOtherNodeCancelsClose(t *testing.T) {
	c, clock := newTest(t)
	c.PointerEnter("@I1@")
	clock.Advance(300 * ms)

	c.PointerLeave("@I1@")
	clock.Advance(50 * ms)
	c.PointerEnter("@I2@")
	clock.Advance(100 * ms)
	assert.Equal(t, "@I1@", c.Active(), "close was cancelled by entering another node")

	clock.Advance(200 * ms)
	assert.Equal(t, "@I2@", c.Active())
	assert.False(t, c.Emphasized("@I1@"))
}

func TestPinThenLeaveKeepsPopover(t *testing.T) {
	c, clock := newTest(t)
	c.PointerEnter("@I1@")
	clock.Advance(300 * ms)

	require.True(t, c.Pin())
	c.PointerLeave("@I1@")
	clock.Advance(time.Second)

	s := c.Snapshot()
	assert.Equal(t, Pinned, s.State)
	assert.Equal(t, "@I1@", s.Active)
	assert.Empty(t, s.Hovered)
	assert.True(t, c.Emphasized("@I1@"))
}

func TestPinWithoutHoverDoesNothing(t *testing.T) {
	c, clock := newTest(t)
	assert.False(t, c.Pin())
	c.PointerEnter("@I1@")
	clock.Advance(100 * ms)
	assert.False(t, c.Pin(), "hover not visible yet")
	assert.Equal(t, Idle, c.State())
}

func TestUnpinOutsideAnyNodeIsImmediatelyIdle(t *testing.T) {
	c, clock := newTest(t)
	c.PinNode("@I1@")
	c.PointerLeave("@I1@")
	c.Unpin()
	assert.Equal(t, Idle, c.State())
	assert.Empty(t, c.Active())
	assert.Zero(t, clock.Pending())
}

func TestUnpinWhilePointerOnNodeShowsHover(t *testing.T) {
	c, clock := newTest(t)
	c.PointerEnter("@I1@")
	clock.Advance(300 * ms)
	require.True(t, c.Pin())

	c.Unpin()
	s := c.Snapshot()
	assert.Equal(t, Hovering, s.State)
	assert.Equal(t, "@I1@", s.Active)

	c.PointerLeave("@I1@")
	clock.Advance(100 * ms)
	assert.Equal(t, Idle, c.State())
}

func TestUnpinAfterLeavingPinnedNodeIsIdle(t *testing.T) {
	c, clock := newTest(t)
	c.PointerEnter("@I1@")
	clock.Advance(300 * ms)
	require.True(t, c.Pin())
	c.PointerLeave("@I1@")

	c.Unpin()
	assert.Equal(t, Idle, c.State())
	assert.Zero(t, clock.Pending())
}

func TestStaleLeaveKeepsPendingOpen(t *testing.T) {
	c, clock := newTest(t)
	c.PointerEnter("@I1@")
	c.PointerEnter("@I2@")
	c.PointerLeave("@I1@")
	clock.Advance(400 * ms)

	s := c.Snapshot()
	assert.Equal(t, Hovering, s.State)
	assert.Equal(t, "@I2@", s.Active)
}

func TestStaleLeaveKeepsVisibleHover(t *testing.T) {
	c, clock := newTest(t)
	c.PointerEnter("@I1@")
	clock.Advance(300 * ms)
	c.PointerEnter("@I2@")
	c.PointerLeave("@I1@")
	clock.Advance(100 * ms)
	assert.Equal(t, "@I1@", c.Active(), "still waiting for @I2@ to open")

	clock.Advance(200 * ms)
	assert.Equal(t, "@I2@", c.Active())
}

func TestPinnedNodeSuppressesHoverTimers(t *testing.T) {
	c, clock := newTest(t)
	c.PinNode("@I1@")

	c.PointerEnter("@I1@")
	assert.Zero(t, clock.Pending())
	c.PointerLeave("@I1@")
	assert.Zero(t, clock.Pending())
	assert.Equal(t, Pinned, c.State())
}

func TestHoverOtherNodeWhilePinned(t *testing.T) {
	c, clock := newTest(t)
	c.PinNode("@I1@")

	c.PointerEnter("@I2@")
	clock.Advance(300 * ms)

	s := c.Snapshot()
	assert.Equal(t, Pinned, s.State)
	assert.Equal(t, "@I1@", s.Active, "pinned popover stays displayed")
	assert.Equal(t, "@I2@", s.Hovered)
	assert.True(t, c.Emphasized("@I2@"))

	c.Unpin()
	assert.Equal(t, Hovering, c.State())
	assert.Equal(t, "@I2@", c.Active())
}

func TestCloseClearsEverything(t *testing.T) {
	c, clock := newTest(t)
	c.PinNode("@I1@")
	c.PointerEnter("@I2@")
	clock.Advance(300 * ms)
	c.PointerEnter("@I3@")

	c.Close()
	assert.Equal(t, Idle, c.State())
	clock.Advance(time.Second)
	assert.Equal(t, Idle, c.State())
}

func TestReanchorFollowsLocator(t *testing.T) {
	c, clock := newTest(t)
	offset := core.Point{}
	c.SetLocator(func(key string) (core.Point, bool) {
		if key != "@I1@" {
			return core.Point{}, false
		}
		return core.Point{X: 10, Y: 20}.Add(offset), true
	})

	var events []Snapshot
	c.Subscribe(func(s Snapshot) { events = append(events, s) })

	c.PinNode("@I1@")
	require.Len(t, events, 1)
	assert.Equal(t, core.Point{X: 10, Y: 20}, events[0].Anchor)
	assert.True(t, events[0].Anchored)

	offset = core.Point{X: 5, Y: 5}
	c.Reanchor()
	require.Len(t, events, 2)
	assert.Equal(t, core.Point{X: 15, Y: 25}, events[1].Anchor)
	assert.Equal(t, Pinned, events[1].State)

	c.Reanchor()
	assert.Len(t, events, 2, "unchanged anchor does not notify")
	_ = clock
}

func TestForgetDropsMissingNodes(t *testing.T) {
	c, _ := newTest(t)
	c.PinNode("@I9@")
	c.Forget(func(key string) bool { return key != "@I9@" })
	assert.Equal(t, Idle, c.State())
}

func TestDisposeIgnoresLateTimers(t *testing.T) {
	c, clock := newTest(t)
	notified := false
	c.Subscribe(func(Snapshot) { notified = true })

	c.PointerEnter("@I1@")
	c.Dispose()
	clock.Advance(time.Second)
	c.PointerEnter("@I2@")
	clock.Advance(time.Second)

	assert.Equal(t, Idle, c.State())
	assert.False(t, notified)
}

func TestTimersAreReplacedNotStacked(t *testing.T) {
	c, clock := newTest(t)
	for _, id := range []string{"@I1@", "@I2@", "@I3@", "@I4@"} {
		c.PointerEnter(id)
		clock.Advance(100 * ms)
	}
	assert.Equal(t, 1, clock.Pending())
	clock.Advance(200 * ms)
	assert.Equal(t, "@I4@", c.Active())
}

func TestRealClockConcurrentUse(t *testing.T) {
	c := New(RealClock{}, Options{OpenDelay: ms, CloseDelay: ms}, nil)
	defer c.Dispose()

	opened := make(chan struct{})
	var once sync.Once
	c.Subscribe(func(s Snapshot) {
		if s.State == Hovering {
			once.Do(func() { close(opened) })
		}
	})
	c.PointerEnter("@I1@")
	select {
	case <-opened:
	case <-time.After(2 * time.Second):
		t.Fatal("hover did not open")
	}
	assert.Equal(t, "@I1@", c.Active())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "hovering", Hovering.String())
	assert.Equal(t, "pinned", Pinned.String())
}
