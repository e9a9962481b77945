package sim

import "math"

// LevelUp reports that a participant crossed an experience threshold during
// a step.
type LevelUp struct {
	Slot  int
	Level int
}

// BuffGrant reports a chest opened by a participant.
type BuffGrant struct {
	Slot int
	Buff string
}

// StepEvents carries everything a step produced that the session layer must
// react to. The world never talks to the network itself.
type StepEvents struct {
	LevelUps   []LevelUp
	BuffGrants []BuffGrant
	BossWave   int // 0 when no boss wave started this step
	GameOver   bool
}

// Step advances the world by dt seconds. Deterministic for a given seed and
// input sequence. A paused or finished world does not advance.
func (w *World) Step(dt float64) StepEvents {
	var events StepEvents
	if w.Paused || w.GameOver || dt <= 0 {
		return events
	}

	w.Elapsed += dt

	w.waveTimer -= dt
	if w.waveTimer <= 0 {
		w.waveTimer += w.cfg.WaveInterval
		events.BossWave = w.spawnWave()
	}

	w.stepParticipants(dt)
	w.stepEnemies(dt)
	w.stepProjectiles(dt)
	w.stepEnemyProjectiles(dt)
	w.stepGems(dt, &events)
	w.stepWeaponVisuals(dt)
	w.stepChests(&events)

	if w.allParticipantsDown() {
		w.GameOver = true
		events.GameOver = true
	}
	return events
}

// spawnWave places the next wave on a ring around the arena center. Returns
// the wave number when it is a boss wave, 0 otherwise.
func (w *World) spawnWave() int {
	w.Wave++
	bossWave := w.Wave%w.cfg.BossEveryWaves == 0

	count := w.cfg.BaseWaveSize + (w.Wave-1)*w.cfg.WaveSizeGrowth
	for i := 0; i < count; i++ {
		w.spawnEnemy(w.rollEnemyKind())
	}

	if !bossWave {
		return 0
	}
	id := w.spawnEnemy(EnemyBoss)
	if boss, ok := w.Enemies.Get(id); ok {
		w.bossID = id
		w.BossActive = true
		w.BossHealth = boss.Health
		w.BossMaxHealth = boss.MaxHealth
	}
	return w.Wave
}

func (w *World) rollEnemyKind() string {
	roll := w.randomFloat()
	switch {
	case roll < 0.55:
		return EnemyCrawler
	case roll < 0.85:
		return EnemyLurker
	default:
		return EnemySpitter
	}
}

func (w *World) spawnEnemy(kind string) uint64 {
	angle := w.randomAngle()
	dist := w.randomRange(w.cfg.SpawnRingRadius*0.9, w.cfg.SpawnRingRadius)
	e := Enemy{
		Kind: kind,
		X:    math.Cos(angle) * dist,
		Z:    math.Sin(angle) * dist,
	}
	scale := 1 + float64(w.Wave)*0.15
	switch kind {
	case EnemyCrawler:
		e.Health = 12 * scale
		e.Speed = 4.5
		e.ContactDamage = 8
		e.XPValue = 1
	case EnemyLurker:
		e.Health = 26 * scale
		e.Speed = 3.2
		e.ContactDamage = 14
		e.XPValue = 2
	case EnemySpitter:
		e.Health = 16 * scale
		e.Speed = 2.6
		e.ContactDamage = 6
		e.XPValue = 3
		e.shotCooldown = w.randomRange(0.5, 2)
	case EnemyBoss:
		e.Health = 400 * scale
		e.Speed = 2.2
		e.ContactDamage = 25
		e.XPValue = 25
		e.Boss = true
	}
	e.MaxHealth = e.Health
	return w.Enemies.Spawn(e)
}

func (w *World) stepParticipants(dt float64) {
	for i := range w.participants {
		p := &w.participants[i]
		if !p.Alive {
			continue
		}

		if p.MoveX != 0 || p.MoveZ != 0 {
			p.X += p.MoveX * p.Speed * dt
			p.Z += p.MoveZ * p.Speed * dt
			p.Yaw = math.Atan2(p.MoveZ, p.MoveX)
			w.clampToArena(&p.X, &p.Z)
		}

		p.fireCooldown -= dt
		if p.fireCooldown <= 0 {
			if tx, tz, ok := w.nearestEnemy(p.X, p.Z); ok {
				p.fireCooldown = p.FireInterval
				yaw := math.Atan2(tz-p.Z, tx-p.X)
				w.Projectiles.Spawn(Projectile{
					Kind:   "bolt",
					X:      p.X,
					Z:      p.Z,
					Yaw:    yaw,
					Speed:  22,
					Damage: p.Damage,
					TTL:    2.5,
				})
				w.WeaponVisuals.Spawn(WeaponVisual{
					Kind: "muzzle",
					X:    p.X,
					Z:    p.Z,
					Yaw:  yaw,
					TTL:  0.2,
				})
			}
		}
	}
}

func (w *World) stepEnemies(dt float64) {
	var shots []EnemyProjectile
	w.Enemies.ForEach(func(id uint64, e *Enemy) {
		if e.Flash > 0 {
			e.Flash = math.Max(0, e.Flash-dt*4)
		}

		target, ok := w.nearestLivingParticipant(e.X, e.Z)
		if !ok {
			return
		}
		dx, dz := target.X-e.X, target.Z-e.Z
		dist := math.Hypot(dx, dz)
		if dist > 1e-6 {
			e.Yaw = math.Atan2(dz, dx)
		}

		// Spitters hold range and shoot; everything else closes in.
		if e.Kind == EnemySpitter && dist < 14 {
			e.shotCooldown -= dt
			if e.shotCooldown <= 0 {
				e.shotCooldown = 2.4
				inv := 1 / math.Max(dist, 1e-6)
				shots = append(shots, EnemyProjectile{
					X: e.X, Z: e.Z,
					VX: dx * inv * 10, VZ: dz * inv * 10,
					Damage: 10,
					TTL:    3,
				})
			}
			return
		}

		if dist > 1e-6 {
			e.X += dx / dist * e.Speed * dt
			e.Z += dz / dist * e.Speed * dt
		}
		if dist < 1.1 {
			target.Health -= e.ContactDamage * dt
			if target.Health <= 0 {
				target.Health = 0
				target.Alive = false
			}
		}
	})
	for _, shot := range shots {
		w.EnemyProjectiles.Spawn(shot)
	}
}

func (w *World) stepProjectiles(dt float64) {
	var expired []uint64
	type hit struct {
		enemy  uint64
		damage float64
	}
	var hits []hit

	w.Projectiles.ForEach(func(id uint64, pr *Projectile) {
		pr.TTL -= dt
		if pr.TTL <= 0 {
			expired = append(expired, id)
			return
		}
		pr.X += math.Cos(pr.Yaw) * pr.Speed * dt
		pr.Z += math.Sin(pr.Yaw) * pr.Speed * dt

		var struck uint64
		w.Enemies.ForEach(func(eid uint64, e *Enemy) {
			if struck != 0 {
				return
			}
			if math.Hypot(e.X-pr.X, e.Z-pr.Z) < 1.0 {
				struck = eid
			}
		})
		if struck != 0 {
			hits = append(hits, hit{enemy: struck, damage: pr.Damage})
			expired = append(expired, id)
		}
	})

	for _, id := range expired {
		w.Projectiles.Despawn(id)
	}
	for _, h := range hits {
		e, ok := w.Enemies.Get(h.enemy)
		if !ok {
			continue
		}
		e.Health -= h.damage
		e.Flash = 1
		if h.enemy == w.bossID {
			w.BossHealth = math.Max(0, e.Health)
		}
		if e.Health <= 0 {
			w.killEnemy(h.enemy)
		}
	}
}

func (w *World) killEnemy(id uint64) {
	e, ok := w.Enemies.Get(id)
	if !ok {
		return
	}
	w.Kills++
	w.Gems.Spawn(Gem{X: e.X, Z: e.Z, Value: e.XPValue})
	if e.Boss {
		w.Chests.Spawn(Chest{X: e.X, Z: e.Z, Buff: w.rollBuff()})
		if id == w.bossID {
			w.BossActive = false
			w.BossHealth = 0
			w.bossID = 0
		}
	}
	w.Enemies.Despawn(id)
}

func (w *World) rollBuff() string {
	switch int(w.randomFloat() * 4) {
	case 0:
		return BuffHaste
	case 1:
		return BuffBulwark
	case 2:
		return BuffMagnet
	default:
		return BuffFullHeal
	}
}

func (w *World) stepEnemyProjectiles(dt float64) {
	var expired []uint64
	w.EnemyProjectiles.ForEach(func(id uint64, ep *EnemyProjectile) {
		ep.TTL -= dt
		if ep.TTL <= 0 {
			expired = append(expired, id)
			return
		}
		ep.X += ep.VX * dt
		ep.Z += ep.VZ * dt
		for i := range w.participants {
			p := &w.participants[i]
			if !p.Alive {
				continue
			}
			if math.Hypot(p.X-ep.X, p.Z-ep.Z) < 0.9 {
				p.Health -= ep.Damage
				if p.Health <= 0 {
					p.Health = 0
					p.Alive = false
				}
				expired = append(expired, id)
				return
			}
		}
	})
	for _, id := range expired {
		w.EnemyProjectiles.Despawn(id)
	}
}

func (w *World) stepGems(dt float64, events *StepEvents) {
	type pickup struct {
		gem   uint64
		owner *Participant
		value int
	}
	var pickups []pickup

	w.Gems.ForEach(func(id uint64, g *Gem) {
		owner, ok := w.nearestLivingParticipant(g.X, g.Z)
		if !ok {
			return
		}
		dx, dz := owner.X-g.X, owner.Z-g.Z
		dist := math.Hypot(dx, dz)
		if dist < w.cfg.PickupRadius {
			pickups = append(pickups, pickup{gem: id, owner: owner, value: g.Value})
			return
		}
		if dist < owner.MagnetRadius {
			pull := 14.0
			g.X += dx / dist * pull * dt
			g.Z += dz / dist * pull * dt
		}
	})

	for _, pu := range pickups {
		w.Gems.Despawn(pu.gem)
		pu.owner.XP += pu.value
		for pu.owner.XP >= pu.owner.NextXP {
			pu.owner.XP -= pu.owner.NextXP
			pu.owner.Level++
			pu.owner.NextXP = xpForLevel(pu.owner.Level)
			events.LevelUps = append(events.LevelUps, LevelUp{Slot: pu.owner.Slot, Level: pu.owner.Level})
		}
	}
}

func (w *World) stepWeaponVisuals(dt float64) {
	var expired []uint64
	w.WeaponVisuals.ForEach(func(id uint64, v *WeaponVisual) {
		v.TTL -= dt
		if v.TTL <= 0 {
			expired = append(expired, id)
			return
		}
		v.Charge = math.Min(1, v.Charge+dt*5)
	})
	for _, id := range expired {
		w.WeaponVisuals.Despawn(id)
	}
}

func (w *World) stepChests(events *StepEvents) {
	var opened []uint64
	w.Chests.ForEach(func(id uint64, c *Chest) {
		if c.Opened {
			opened = append(opened, id)
			return
		}
		owner, ok := w.nearestLivingParticipant(c.X, c.Z)
		if !ok {
			return
		}
		if math.Hypot(owner.X-c.X, owner.Z-c.Z) < w.cfg.PickupRadius {
			c.Opened = true
			w.applyBuff(owner, c.Buff)
			events.BuffGrants = append(events.BuffGrants, BuffGrant{Slot: owner.Slot, Buff: c.Buff})
		}
	})
	// Opened chests linger for one snapshot so guests can play the open
	// animation, then despawn.
	for _, id := range opened {
		w.Chests.Despawn(id)
	}
}

func (w *World) applyBuff(p *Participant, buff string) {
	switch buff {
	case BuffHaste:
		p.Speed *= 1.15
		p.FireInterval *= 0.85
	case BuffBulwark:
		p.MaxHealth += 25
		p.Health += 25
	case BuffMagnet:
		p.MagnetRadius *= 1.5
	case BuffFullHeal:
		p.Health = p.MaxHealth
	}
}

func (w *World) clampToArena(x, z *float64) {
	dist := math.Hypot(*x, *z)
	if dist > w.cfg.ArenaRadius {
		scale := w.cfg.ArenaRadius / dist
		*x *= scale
		*z *= scale
	}
}

func (w *World) nearestEnemy(x, z float64) (float64, float64, bool) {
	best := math.MaxFloat64
	var bx, bz float64
	found := false
	w.Enemies.ForEach(func(_ uint64, e *Enemy) {
		d := math.Hypot(e.X-x, e.Z-z)
		if d < best {
			best = d
			bx, bz = e.X, e.Z
			found = true
		}
	})
	return bx, bz, found
}

func (w *World) nearestLivingParticipant(x, z float64) (*Participant, bool) {
	best := math.MaxFloat64
	var target *Participant
	for i := range w.participants {
		p := &w.participants[i]
		if !p.Alive {
			continue
		}
		d := math.Hypot(p.X-x, p.Z-z)
		if d < best {
			best = d
			target = p
		}
	}
	return target, target != nil
}

func (w *World) allParticipantsDown() bool {
	for i := range w.participants {
		if w.participants[i].Alive {
			return false
		}
	}
	return len(w.participants) > 0
}
