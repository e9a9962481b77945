package guest

import (
	"math"
	"testing"
	"time"

	"nightswarm/internal/protocol"
)

func snap(gameTime float64) protocol.StateMessage {
	return protocol.StateMessage{GameTime: gameTime}
}

func TestWindowStates(t *testing.T) {
	var w Window
	if w.State() != WindowEmpty {
		t.Fatalf("fresh window not empty")
	}
	if w.Current() != nil || w.Previous() != nil {
		t.Fatalf("empty window exposes snapshots")
	}

	base := time.Now()
	if !w.Observe(snap(1), base) {
		t.Fatalf("first snapshot rejected")
	}
	if w.State() != WindowHasOne {
		t.Fatalf("expected HasOne after first snapshot")
	}
	if w.Blend(base.Add(time.Hour)) != 1 {
		t.Fatalf("single snapshot must render at t=1")
	}

	if !w.Observe(snap(2), base.Add(50*time.Millisecond)) {
		t.Fatalf("second snapshot rejected")
	}
	if w.State() != WindowSteady {
		t.Fatalf("expected Steady after second snapshot")
	}
	if w.Previous() == nil || w.Previous().GameTime != 1 {
		t.Fatalf("previous snapshot not retained")
	}
}

func TestBlendIsClamped(t *testing.T) {
	var w Window
	base := time.Now()
	w.Observe(snap(1), base)
	w.Observe(snap(2), base.Add(50*time.Millisecond))

	curAt := base.Add(50 * time.Millisecond)
	if got := w.Blend(curAt.Add(-time.Hour)); got != 0 {
		t.Fatalf("blend before the pair = %v, want 0", got)
	}
	if got := w.Blend(curAt.Add(25 * time.Millisecond)); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("midpoint blend = %v, want 0.5", got)
	}
	// Arrivals stopped: motion freezes at t=1, never extrapolates.
	if got := w.Blend(curAt.Add(time.Hour)); got != 1 {
		t.Fatalf("blend after the pair = %v, want 1", got)
	}
}

func TestStaleSnapshotIsDiscarded(t *testing.T) {
	var w Window
	base := time.Now()
	w.Observe(snap(1), base)
	w.Observe(snap(3), base.Add(50*time.Millisecond))

	if w.Observe(snap(2), base.Add(60*time.Millisecond)) {
		t.Fatalf("older-than-current snapshot accepted")
	}
	if w.Current().GameTime != 3 || w.Previous().GameTime != 1 {
		t.Fatalf("window mutated by stale snapshot: cur=%v prev=%v",
			w.Current().GameTime, w.Previous().GameTime)
	}
}

func TestEqualTimeSnapshotRefreshesFlagsWithoutRotating(t *testing.T) {
	var w Window
	base := time.Now()
	w.Observe(snap(1), base)
	w.Observe(snap(2), base.Add(50*time.Millisecond))

	paused := snap(2)
	paused.Paused = true
	if !w.Observe(paused, base.Add(90*time.Millisecond)) {
		t.Fatalf("equal-time snapshot rejected")
	}
	if !w.Current().Paused {
		t.Fatalf("pause flag did not propagate")
	}
	if w.Previous().GameTime != 1 {
		t.Fatalf("equal-time snapshot rotated the window")
	}
}

func TestOutOfOrderArrivalTimestampStillOrdersWindow(t *testing.T) {
	var w Window
	base := time.Now()
	w.Observe(snap(1), base)
	// Arrival clock did not advance; the window must still keep
	// previousArrivalTime strictly before currentArrivalTime.
	w.Observe(snap(2), base)
	if got := w.Blend(base.Add(time.Hour)); got != 1 {
		t.Fatalf("degenerate span produced blend %v", got)
	}
}

func TestLerpStaysOnSegment(t *testing.T) {
	for _, tc := range []float64{0, 0.25, 0.5, 0.75, 1} {
		got := Lerp(10, 14, tc)
		if got < 10 || got > 14 {
			t.Fatalf("Lerp(10,14,%v) = %v escapes the segment", tc, got)
		}
	}
	if got := Lerp(10, 14, 0.5); got != 12 {
		t.Fatalf("midpoint = %v, want 12", got)
	}
}

func TestLerpAngleTakesShortArcThroughPi(t *testing.T) {
	// 3.0 and -3.0 are ~0.28 rad apart across the seam; the long way
	// through 0 is ~6 rad. The midpoint must sit at the seam.
	got := LerpAngle(3.0, -3.0, 0.5)
	if math.Abs(math.Abs(got)-math.Pi) > 1e-9 {
		t.Fatalf("midpoint %v is not at ±π", got)
	}
	// Quarter blend moves toward the seam from a, not toward zero.
	quarter := LerpAngle(3.0, -3.0, 0.25)
	if quarter <= 3.0 {
		t.Fatalf("quarter blend %v moved the long way", quarter)
	}
}

func TestLerpAngleIdentityAtEndpoints(t *testing.T) {
	if got := LerpAngle(1.2, -2.8, 0); got != 1.2 {
		t.Fatalf("t=0 returned %v", got)
	}
	got := LerpAngle(1.2, -2.8, 1)
	if math.Abs(normalizeAngle(got-(-2.8))) > 1e-9 {
		t.Fatalf("t=1 returned %v, want -2.8", got)
	}
}
