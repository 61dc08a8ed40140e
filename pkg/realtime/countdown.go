package realtime

import (
	"fmt"
	"sync"
	"time"
)

// TimerState is the lifecycle state of a Countdown.
type TimerState int

const (
	TimerStopped TimerState = iota
	TimerRunning
	TimerFrozen
)

func (s TimerState) String() string {
	switch s {
	case TimerStopped:
		return "stopped"
	case TimerRunning:
		return "running"
	case TimerFrozen:
		return "frozen"
	default:
		return fmt.Sprintf("TimerState(%d)", int(s))
	}
}

// DefaultTickInterval is the period between countdown ticks.
const DefaultTickInterval = time.Second

// Countdown emits a tick once per interval while running. A freeze suspends
// ticking for a window and resumes on its own when the window elapses.
// The owner keeps the remaining time; Countdown only paces it.
//
// Callbacks are invoked without the countdown's lock held, so they may call
// back into Stop or Freeze. Every state change bumps an epoch and callbacks
// scheduled under an older epoch are dropped.
type Countdown struct {
	mu       sync.Mutex
	sched    Scheduler
	interval time.Duration
	state    TimerState
	epoch    uint64
	ticker   Task
	thaw     Task
	onTick   func()
	onThaw   func()
}

// NewCountdown creates a stopped countdown ticking every interval on sched.
func NewCountdown(sched Scheduler, interval time.Duration) *Countdown {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Countdown{sched: sched, interval: interval}
}

// State returns the current timer state.
func (c *Countdown) State() TimerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins ticking, replacing any previous tick source and pending thaw.
func (c *Countdown) Start(onTick func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.onTick = onTick
	c.onThaw = nil
	c.state = TimerRunning
	c.armLocked()
}

// Stop halts ticking and drops any pending thaw.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.epoch++
	c.state = TimerStopped
	c.onTick = nil
	c.onThaw = nil
}

// Freeze suspends ticking for window. Freezing an already frozen countdown
// restarts the window instead of adding to it. It reports false, doing
// nothing, when the countdown is stopped.
func (c *Countdown) Freeze(window time.Duration, onThaw func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case TimerStopped:
		return false
	case TimerRunning:
		if c.ticker != nil {
			c.ticker.Cancel()
			c.ticker = nil
		}
		c.state = TimerFrozen
	case TimerFrozen:
		if c.thaw != nil {
			c.thaw.Cancel()
			c.thaw = nil
		}
	}
	c.onThaw = onThaw
	c.epoch++
	epoch := c.epoch
	c.thaw = c.sched.After(window, func() { c.resume(epoch) })
	return true
}

func (c *Countdown) armLocked() {
	c.epoch++
	epoch := c.epoch
	c.ticker = c.sched.Every(c.interval, func() { c.fire(epoch) })
}

func (c *Countdown) cancelLocked() {
	if c.ticker != nil {
		c.ticker.Cancel()
		c.ticker = nil
	}
	if c.thaw != nil {
		c.thaw.Cancel()
		c.thaw = nil
	}
}

func (c *Countdown) fire(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch || c.state != TimerRunning {
		c.mu.Unlock()
		return
	}
	tick := c.onTick
	c.mu.Unlock()
	if tick != nil {
		tick()
	}
}

func (c *Countdown) resume(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch || c.state != TimerFrozen {
		c.mu.Unlock()
		return
	}
	c.thaw = nil
	c.state = TimerRunning
	c.armLocked()
	thaw := c.onThaw
	c.onThaw = nil
	c.mu.Unlock()
	if thaw != nil {
		thaw()
	}
}
