/*
Package throttle provides a write gate for noisy boolean signals.

It bounds how often an "active" flag (e.g. a typing indicator) is written to a
remote store: the first write is debounced after the initial signal, repeat
writes are spaced by a minimum interval, and the flag expires to false after an
idle window with no new signals. The gate holds no timers of its own; callers
poll Tick on their own schedule, which keeps the logic testable with a fake
clock.
*/
package throttle

import (
	"time"

	"seotracker/internal/pkg/clockx"
)

// Gate tracks a desired boolean state and decides when writes should be issued.
// It is not safe for concurrent use; callers are expected to drive it from a
// single event loop.
type Gate struct {
	clock       clockx.Clock
	debounce    time.Duration
	minInterval time.Duration
	idle        time.Duration

	desired      bool
	desiredSince time.Time
	lastSignal   time.Time

	written   bool
	lastWrite time.Time
}

// NewGate constructs a Gate. debounce delays the first true write after a
// burst starts, minInterval spaces successive writes, and idle is the gap
// after which the signal decays to false.
func NewGate(clock clockx.Clock, debounce, minInterval, idle time.Duration) *Gate {
	return &Gate{
		clock:       clock,
		debounce:    debounce,
		minInterval: minInterval,
		idle:        idle,
	}
}

// Signal records one unit of activity (e.g. a keystroke).
func (g *Gate) Signal() {
	now := g.clock.Now()

	if !g.desired {
		g.desired = true
		g.desiredSince = now
	}
	g.lastSignal = now
}

// Clear drops the desired state immediately (e.g. the draft was emptied).
// The false write, if one is owed, is issued by the next Tick.
func (g *Gate) Clear() {
	g.desired = false
}

// Tick evaluates the gate at the current clock time. It returns the value to
// write and whether a write should be issued now.
func (g *Gate) Tick() (value bool, write bool) {
	now := g.clock.Now()

	if g.desired && now.Sub(g.lastSignal) >= g.idle {
		g.desired = false
	}

	switch {
	case g.desired && !g.written:
		if now.Sub(g.desiredSince) >= g.debounce && g.intervalElapsed(now) {
			g.written = true
			g.lastWrite = now
			return true, true
		}

	case g.desired && g.written:
		if g.intervalElapsed(now) {
			g.lastWrite = now
			return true, true
		}

	case !g.desired && g.written:
		g.written = false
		g.lastWrite = now
		return false, true
	}

	return g.written, false
}

// Written reports the last value the gate asked callers to write.
func (g *Gate) Written() bool {
	return g.written
}

func (g *Gate) intervalElapsed(now time.Time) bool {
	return g.lastWrite.IsZero() || now.Sub(g.lastWrite) >= g.minInterval
}
