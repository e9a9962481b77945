package sim

import (
	"math"
	"math/rand"
)

// Enemy archetypes.
const (
	EnemyCrawler = "crawler"
	EnemyLurker  = "lurker"
	EnemySpitter = "spitter"
	EnemyBoss    = "boss"
)

// Chest buffs.
const (
	BuffHaste    = "haste"
	BuffBulwark  = "bulwark"
	BuffMagnet   = "magnet"
	BuffFullHeal = "full_heal"
)

// Participant is one human-controlled character. Participants live in a
// fixed array in frozen roster order, not in an arena: the roster never
// churns mid-game, and the wire format identifies them positionally.
type Participant struct {
	Slot      int
	X, Z      float64
	Yaw       float64
	Health    float64
	MaxHealth float64
	Alive     bool
	Level     int
	XP        int
	NextXP    int

	MoveX, MoveZ float64

	Speed        float64
	Damage       float64
	FireInterval float64
	MagnetRadius float64

	fireCooldown float64
}

// Enemy is one hostile entity.
type Enemy struct {
	Kind          string
	X, Z          float64
	Yaw           float64
	Health        float64
	MaxHealth     float64
	Speed         float64
	ContactDamage float64
	Flash         float64
	XPValue       int
	Boss          bool

	shotCooldown float64
}

// Projectile is a player-fired shot.
type Projectile struct {
	Kind   string
	X, Z   float64
	Yaw    float64
	Speed  float64
	Damage float64
	TTL    float64
}

// EnemyProjectile is an enemy-fired shot.
type EnemyProjectile struct {
	X, Z   float64
	VX, VZ float64
	Damage float64
	TTL    float64
}

// Gem is a dropped experience pickup.
type Gem struct {
	X, Z  float64
	Value int
}

// WeaponVisual is a transient weapon effect mirrored to guests for display
// only.
type WeaponVisual struct {
	Kind   string
	X, Z   float64
	Yaw    float64
	Charge float64
	TTL    float64
}

// Chest is a boss reward waiting to be opened.
type Chest struct {
	X, Z   float64
	Opened bool
	Buff   string
}

// Config tunes the simulation. Zero values are replaced by DefaultConfig.
type Config struct {
	ArenaRadius     float64
	WaveInterval    float64
	BossEveryWaves  int
	BaseWaveSize    int
	WaveSizeGrowth  int
	SpawnRingRadius float64
	PickupRadius    float64
}

// DefaultConfig returns the tuning used by the host binary.
func DefaultConfig() Config {
	return Config{
		ArenaRadius:     60,
		WaveInterval:    8,
		BossEveryWaves:  5,
		BaseWaveSize:    6,
		WaveSizeGrowth:  2,
		SpawnRingRadius: 45,
		PickupRadius:    1.2,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ArenaRadius <= 0 {
		c.ArenaRadius = d.ArenaRadius
	}
	if c.WaveInterval <= 0 {
		c.WaveInterval = d.WaveInterval
	}
	if c.BossEveryWaves <= 0 {
		c.BossEveryWaves = d.BossEveryWaves
	}
	if c.BaseWaveSize <= 0 {
		c.BaseWaveSize = d.BaseWaveSize
	}
	if c.WaveSizeGrowth < 0 {
		c.WaveSizeGrowth = d.WaveSizeGrowth
	}
	if c.SpawnRingRadius <= 0 {
		c.SpawnRingRadius = d.SpawnRingRadius
	}
	if c.PickupRadius <= 0 {
		c.PickupRadius = d.PickupRadius
	}
	return c
}

// World owns all authoritative simulation state. It is stepped by the host
// loop only; everything else reads it.
type World struct {
	cfg Config
	rng *rand.Rand

	Elapsed  float64
	Kills    int
	Wave     int
	Paused   bool
	GameOver bool

	BossActive    bool
	BossHealth    float64
	BossMaxHealth float64
	bossID        uint64

	participants []Participant

	Enemies          *Arena[Enemy]
	Projectiles      *Arena[Projectile]
	EnemyProjectiles *Arena[EnemyProjectile]
	Gems             *Arena[Gem]
	WeaponVisuals    *Arena[WeaponVisual]
	Chests           *Arena[Chest]

	waveTimer float64
}

// NewWorld builds a world for the frozen roster slots, seeded for
// deterministic stepping.
func NewWorld(cfg Config, seed int64, slots []int) *World {
	cfg = cfg.withDefaults()
	w := &World{
		cfg:              cfg,
		rng:              rand.New(rand.NewSource(seed)),
		participants:     make([]Participant, 0, len(slots)),
		Enemies:          NewArena[Enemy](128),
		Projectiles:      NewArena[Projectile](256),
		EnemyProjectiles: NewArena[EnemyProjectile](128),
		Gems:             NewArena[Gem](256),
		WeaponVisuals:    NewArena[WeaponVisual](64),
		Chests:           NewArena[Chest](8),
		waveTimer:        cfg.WaveInterval * 0.25,
	}
	for i, slot := range slots {
		angle := 2 * math.Pi * float64(i) / float64(max(len(slots), 1))
		w.participants = append(w.participants, Participant{
			Slot:         slot,
			X:            math.Cos(angle) * 3,
			Z:            math.Sin(angle) * 3,
			Health:       100,
			MaxHealth:    100,
			Alive:        true,
			Level:        1,
			NextXP:       xpForLevel(1),
			Speed:        9,
			Damage:       10,
			FireInterval: 0.6,
			MagnetRadius: 4,
		})
	}
	return w
}

// Participants exposes the roster-ordered participant array. Callers must
// not retain the slice across steps.
func (w *World) Participants() []Participant {
	return w.participants
}

// ParticipantBySlot returns a pointer to the participant for a wire slot.
func (w *World) ParticipantBySlot(slot int) (*Participant, bool) {
	for i := range w.participants {
		if w.participants[i].Slot == slot {
			return &w.participants[i], true
		}
	}
	return nil, false
}

// SetIntent records a participant's latest movement intent. Vectors longer
// than unit length are normalized.
func (w *World) SetIntent(slot int, mx, mz float64) bool {
	p, ok := w.ParticipantBySlot(slot)
	if !ok {
		return false
	}
	length := math.Hypot(mx, mz)
	if length > 1 {
		mx /= length
		mz /= length
	}
	p.MoveX = mx
	p.MoveZ = mz
	return true
}

// SetPaused gates the step. Used by the upgrade coordinator while a remote
// pick is in flight.
func (w *World) SetPaused(paused bool) {
	w.Paused = paused
}

func (w *World) randomFloat() float64 {
	if w != nil && w.rng != nil {
		return w.rng.Float64()
	}
	return rand.Float64()
}

func (w *World) randomAngle() float64 {
	return w.randomFloat() * 2 * math.Pi
}

func (w *World) randomRange(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + w.randomFloat()*(max-min)
}

func xpForLevel(level int) int {
	return 5 + level*5
}
