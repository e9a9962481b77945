package snapshot

import (
	"nightswarm/internal/protocol"
	"nightswarm/internal/sim"
)

// Encode walks the live entity collections and scalar game state into one
// wire snapshot. Pure read: the world is never mutated, and the returned
// message shares no memory with it, so a buffered snapshot stays immutable
// no matter how the simulation moves on.
func Encode(w *sim.World) protocol.StateMessage {
	msg := protocol.StateMessage{
		GameTime:      w.Elapsed,
		Kills:         w.Kills,
		GameOver:      w.GameOver,
		Paused:        w.Paused,
		Wave:          w.Wave,
		BossActive:    w.BossActive,
		BossHealth:    w.BossHealth,
		BossMaxHealth: w.BossMaxHealth,
	}

	participants := w.Participants()
	msg.Players = make([]protocol.PlayerState, 0, len(participants))
	for i := range participants {
		p := &participants[i]
		msg.Players = append(msg.Players, protocol.PlayerState{
			X:         p.X,
			Z:         p.Z,
			Yaw:       p.Yaw,
			Health:    p.Health,
			MaxHealth: p.MaxHealth,
			Alive:     p.Alive,
			Level:     p.Level,
		})
	}

	msg.Enemies = make([]protocol.EnemyState, 0, w.Enemies.Len())
	w.Enemies.ForEach(func(id uint64, e *sim.Enemy) {
		msg.Enemies = append(msg.Enemies, protocol.EnemyState{
			ID:        id,
			X:         e.X,
			Z:         e.Z,
			Yaw:       e.Yaw,
			Health:    e.Health,
			MaxHealth: e.MaxHealth,
			Kind:      e.Kind,
			Flash:     e.Flash,
		})
	})

	msg.Projectiles = make([]protocol.ProjectileState, 0, w.Projectiles.Len())
	w.Projectiles.ForEach(func(id uint64, pr *sim.Projectile) {
		msg.Projectiles = append(msg.Projectiles, protocol.ProjectileState{
			ID:   id,
			X:    pr.X,
			Z:    pr.Z,
			Yaw:  pr.Yaw,
			Kind: pr.Kind,
		})
	})

	msg.EnemyProjectiles = make([]protocol.EnemyProjectileState, 0, w.EnemyProjectiles.Len())
	w.EnemyProjectiles.ForEach(func(id uint64, ep *sim.EnemyProjectile) {
		msg.EnemyProjectiles = append(msg.EnemyProjectiles, protocol.EnemyProjectileState{
			ID: id,
			X:  ep.X,
			Z:  ep.Z,
		})
	})

	msg.Gems = make([]protocol.GemState, 0, w.Gems.Len())
	w.Gems.ForEach(func(id uint64, g *sim.Gem) {
		msg.Gems = append(msg.Gems, protocol.GemState{
			ID:    id,
			X:     g.X,
			Z:     g.Z,
			Value: g.Value,
		})
	})

	msg.WeaponVisuals = make([]protocol.WeaponVisualState, 0, w.WeaponVisuals.Len())
	w.WeaponVisuals.ForEach(func(id uint64, v *sim.WeaponVisual) {
		msg.WeaponVisuals = append(msg.WeaponVisuals, protocol.WeaponVisualState{
			ID:     id,
			X:      v.X,
			Z:      v.Z,
			Yaw:    v.Yaw,
			Kind:   v.Kind,
			Charge: v.Charge,
		})
	})

	msg.Chests = make([]protocol.ChestState, 0, w.Chests.Len())
	w.Chests.ForEach(func(id uint64, c *sim.Chest) {
		msg.Chests = append(msg.Chests, protocol.ChestState{
			ID:     id,
			X:      c.X,
			Z:      c.Z,
			Opened: c.Opened,
		})
	})

	return msg
}

// EntityCount reports how many entity entries a snapshot carries, for the
// telemetry broadcast counters.
func EntityCount(msg protocol.StateMessage) int {
	return len(msg.Players) + len(msg.Enemies) + len(msg.Projectiles) +
		len(msg.EnemyProjectiles) + len(msg.Gems) + len(msg.WeaponVisuals) + len(msg.Chests)
}
