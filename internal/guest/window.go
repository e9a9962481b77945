package guest

import (
	"math"
	"time"

	"nightswarm/internal/protocol"
)

// WindowState tracks how many snapshots the window has seen.
type WindowState int

const (
	// WindowEmpty means no snapshot was ever received.
	WindowEmpty WindowState = iota
	// WindowHasOne means exactly one snapshot was received; it is applied
	// directly with no blending.
	WindowHasOne
	// WindowSteady means two or more snapshots are buffered and every frame
	// blends between the newest pair.
	WindowSteady
)

// Window holds the previous/current snapshot pair and their wall-clock
// arrival times. Snapshots are values: once buffered they are never
// mutated, and prev/cur are never aliased.
type Window struct {
	state  WindowState
	prev   protocol.StateMessage
	prevAt time.Time
	cur    protocol.StateMessage
	curAt  time.Time
}

// State reports the window's phase.
func (w *Window) State() WindowState {
	return w.state
}

// Accepts reports whether a snapshot would advance the window. Simulation
// time orders snapshots: anything at or before the buffered current is not
// an advance. A stale frame that arrives late is simply superseded.
func (w *Window) Accepts(msg protocol.StateMessage) bool {
	if w.state == WindowEmpty {
		return true
	}
	return msg.GameTime > w.cur.GameTime
}

// Observe feeds a received snapshot into the window. Returns false when the
// snapshot was discarded as stale. Snapshots whose simulation time equals
// the buffered current (a paused host keeps sending) refresh the current's
// non-positional fields in place without rotating, so pause and game-over
// flags still propagate.
func (w *Window) Observe(msg protocol.StateMessage, arrivedAt time.Time) bool {
	switch w.state {
	case WindowEmpty:
		w.cur = msg
		w.curAt = arrivedAt
		w.state = WindowHasOne
		return true
	default:
		if msg.GameTime < w.cur.GameTime {
			return false
		}
		if msg.GameTime == w.cur.GameTime {
			w.cur = msg
			return true
		}
		if !arrivedAt.After(w.curAt) {
			arrivedAt = w.curAt.Add(time.Millisecond)
		}
		w.prev = w.cur
		w.prevAt = w.curAt
		w.cur = msg
		w.curAt = arrivedAt
		w.state = WindowSteady
		return true
	}
}

// Blend computes the interpolation factor for a render instant. Clamped to
// [0,1]: before the pair it holds at 0, after it freezes at 1 rather than
// extrapolating. With a single buffered snapshot the factor is always 1.
func (w *Window) Blend(now time.Time) float64 {
	if w.state != WindowSteady {
		return 1
	}
	span := w.curAt.Sub(w.prevAt).Seconds()
	if span <= 0 {
		return 1
	}
	t := now.Sub(w.curAt).Seconds() / span
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// Current returns the newest buffered snapshot. Nil while empty.
func (w *Window) Current() *protocol.StateMessage {
	if w.state == WindowEmpty {
		return nil
	}
	return &w.cur
}

// Previous returns the older snapshot of the steady pair. Nil until steady.
func (w *Window) Previous() *protocol.StateMessage {
	if w.state != WindowSteady {
		return nil
	}
	return &w.prev
}

// Lerp blends linearly; the result always lies on the segment a-b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// LerpAngle blends along the shorter angular path, wrapping at ±π, so a yaw
// crossing the seam never swings the long way around.
func LerpAngle(a, b, t float64) float64 {
	diff := math.Mod(b-a, 2*math.Pi)
	if diff > math.Pi {
		diff -= 2 * math.Pi
	} else if diff < -math.Pi {
		diff += 2 * math.Pi
	}
	return normalizeAngle(a + diff*t)
}

func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
