package sim

import (
	"math"
	"testing"
)

func stepWorld(w *World, seconds float64) []StepEvents {
	const dt = 1.0 / 30
	var events []StepEvents
	for elapsed := 0.0; elapsed < seconds; elapsed += dt {
		ev := w.Step(dt)
		if len(ev.LevelUps) > 0 || len(ev.BuffGrants) > 0 || ev.BossWave > 0 || ev.GameOver {
			events = append(events, ev)
		}
	}
	return events
}

func TestStepIsDeterministicForSeed(t *testing.T) {
	run := func() (int, float64, int) {
		w := NewWorld(Config{}, 42, []int{0, 1})
		w.SetIntent(0, 1, 0)
		stepWorld(w, 20)
		p := w.Participants()[0]
		return w.Kills, p.X, w.Enemies.Len()
	}
	kills1, x1, enemies1 := run()
	kills2, x2, enemies2 := run()
	if kills1 != kills2 || x1 != x2 || enemies1 != enemies2 {
		t.Fatalf("same seed diverged: kills %d/%d x %v/%v enemies %d/%d",
			kills1, kills2, x1, x2, enemies1, enemies2)
	}
}

func TestPausedWorldDoesNotAdvance(t *testing.T) {
	w := NewWorld(Config{}, 7, []int{0})
	stepWorld(w, 2)
	elapsed := w.Elapsed
	enemies := w.Enemies.Len()

	w.SetPaused(true)
	ev := w.Step(1)
	if len(ev.LevelUps) != 0 || ev.BossWave != 0 {
		t.Fatalf("paused step produced events: %+v", ev)
	}
	if w.Elapsed != elapsed || w.Enemies.Len() != enemies {
		t.Fatalf("paused world advanced: elapsed %v->%v enemies %d->%d",
			elapsed, w.Elapsed, enemies, w.Enemies.Len())
	}

	w.SetPaused(false)
	w.Step(1.0 / 30)
	if w.Elapsed <= elapsed {
		t.Fatalf("world did not resume after unpause")
	}
}

func TestWavesSpawnEnemiesAndBossWaveFires(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WaveInterval = 0.5
	w := NewWorld(cfg, 11, []int{0})

	bossWave := 0
	for _, ev := range stepWorld(w, 5) {
		if ev.BossWave > 0 {
			bossWave = ev.BossWave
		}
	}
	if w.Wave < cfg.BossEveryWaves {
		t.Fatalf("expected at least %d waves, got %d", cfg.BossEveryWaves, w.Wave)
	}
	if bossWave == 0 {
		t.Fatalf("no boss wave event in %d waves", w.Wave)
	}
	if bossWave%cfg.BossEveryWaves != 0 {
		t.Fatalf("boss wave %d not a multiple of %d", bossWave, cfg.BossEveryWaves)
	}
}

func TestParticipantStaysInsideArena(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ArenaRadius = 10
	w := NewWorld(cfg, 3, []int{0})
	w.SetIntent(0, 1, 0)
	stepWorld(w, 10)
	p := w.Participants()[0]
	if r := math.Hypot(p.X, p.Z); r > cfg.ArenaRadius+1e-9 {
		t.Fatalf("participant escaped the arena: radius %v > %v", r, cfg.ArenaRadius)
	}
}

func TestApplyUpgradeChangesAuthoritativeStats(t *testing.T) {
	w := NewWorld(Config{}, 1, []int{0, 2})

	before, _ := w.ParticipantBySlot(2)
	damage := before.Damage
	if !w.ApplyUpgrade(2, Upgrade{ID: "damage"}) {
		t.Fatalf("expected damage upgrade to apply")
	}
	after, _ := w.ParticipantBySlot(2)
	if after.Damage <= damage {
		t.Fatalf("damage did not increase: %v -> %v", damage, after.Damage)
	}

	if w.ApplyUpgrade(9, Upgrade{ID: "damage"}) {
		t.Fatalf("upgrade applied to unknown slot")
	}
	if w.ApplyUpgrade(0, Upgrade{ID: "nonsense"}) {
		t.Fatalf("unknown upgrade id applied")
	}
}

func TestGenerateUpgradesDrawsDistinctCandidates(t *testing.T) {
	w := NewWorld(Config{}, 5, []int{0})
	offer := w.GenerateUpgrades()
	if len(offer) != OfferCount {
		t.Fatalf("expected %d candidates, got %d", OfferCount, len(offer))
	}
	seen := make(map[string]bool)
	for _, u := range offer {
		if seen[u.ID] {
			t.Fatalf("duplicate candidate %q in offer", u.ID)
		}
		seen[u.ID] = true
	}
}
