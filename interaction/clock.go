package interaction

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock schedules callbacks with time.AfterFunc. Callbacks run on their own goroutine.
type RealClock struct{}

// AfterFunc implements Clock.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualClock is a Clock whose time only moves when Advance is called.
// Due callbacks run synchronously inside Advance, in deadline order.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	clock   *ManualClock
	at      time.Duration
	seq     int
	f       func()
	stopped bool
}

// NewManualClock returns a clock at time zero.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// AfterFunc implements Clock.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &manualTimer{clock: c, at: c.now + d, seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Stop cancels the timer. It reports whether the call prevented the callback.
func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward by d and fires every timer that falls due.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		sort.Slice(c.timers, func(i, j int) bool {
			if c.timers[i].at == c.timers[j].at {
				return c.timers[i].seq < c.timers[j].seq
			}
			return c.timers[i].at < c.timers[j].at
		})
		var due *manualTimer
		for len(c.timers) > 0 {
			t := c.timers[0]
			if t.stopped {
				c.timers = c.timers[1:]
				continue
			}
			if t.at <= target {
				due = t
				c.timers = c.timers[1:]
				t.stopped = true
				c.now = t.at
			}
			break
		}
		if due == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		due.f()
	}
}

// Pending returns the number of timers that have not fired or been stopped.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}
