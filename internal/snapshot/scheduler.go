package snapshot

import (
	"nightswarm/internal/protocol"
	"nightswarm/internal/sim"
)

// SchedulerConfig tunes how often snapshots leave the host. All cadences are
// tick-count divisors, never time-based, so the send rate tracks the
// simulation rate even when tick deltas stretch.
type SchedulerConfig struct {
	// SendEvery emits a snapshot every Nth simulation tick.
	SendEvery int
	// GemCadence and VisualCadence thin the gem and weapon-visual arrays to
	// every Nth sent snapshot. At 1 (the default) every snapshot carries
	// them; higher values trade latency on low-urgency entities for
	// bandwidth. Thinned sends repeat the previously sent array rather than
	// sending it empty, so guests never read a skipped frame as a mass
	// despawn; spawns and removals land at the next refresh.
	GemCadence    int
	VisualCadence int
}

// DefaultSchedulerConfig sends every third tick with no category thinning.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{SendEvery: 3, GemCadence: 1, VisualCadence: 1}
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.SendEvery <= 0 {
		c.SendEvery = DefaultSchedulerConfig().SendEvery
	}
	if c.GemCadence <= 0 {
		c.GemCadence = 1
	}
	if c.VisualCadence <= 0 {
		c.VisualCadence = 1
	}
	return c
}

// Scheduler decides, per simulation tick, whether a snapshot goes out.
type Scheduler struct {
	cfg   SchedulerConfig
	tick  uint64
	sends uint64

	lastGems    []protocol.GemState
	lastVisuals []protocol.WeaponVisualState
}

// NewScheduler builds a scheduler with the given cadences.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	return &Scheduler{cfg: cfg.withDefaults()}
}

// Tick advances the tick counter and, when the cadence lines up, encodes and
// returns a snapshot to send.
func (s *Scheduler) Tick(w *sim.World) (protocol.StateMessage, bool) {
	s.tick++
	if s.tick%uint64(s.cfg.SendEvery) != 0 {
		return protocol.StateMessage{}, false
	}

	msg := Encode(w)
	s.sends++

	if s.cfg.GemCadence > 1 {
		if s.sends%uint64(s.cfg.GemCadence) == 0 || s.lastGems == nil {
			s.lastGems = msg.Gems
		} else {
			msg.Gems = s.lastGems
		}
	}
	if s.cfg.VisualCadence > 1 {
		if s.sends%uint64(s.cfg.VisualCadence) == 0 || s.lastVisuals == nil {
			s.lastVisuals = msg.WeaponVisuals
		} else {
			msg.WeaponVisuals = s.lastVisuals
		}
	}

	return msg, true
}

// Sends reports how many snapshots have been emitted.
func (s *Scheduler) Sends() uint64 {
	return s.sends
}
