package guest

import (
	"testing"

	"nightswarm/internal/protocol"
)

type recordingFactory struct {
	created   []uint64
	destroyed []uint64
}

func (f *recordingFactory) Create(cat Category, id uint64) any {
	f.created = append(f.created, id)
	return id
}

func (f *recordingFactory) Destroy(cat Category, id uint64, handle any) {
	f.destroyed = append(f.destroyed, id)
}

func TestReconcileCreatesAndRemovesExactlyOnce(t *testing.T) {
	factory := &recordingFactory{}
	l := NewLifecycle(factory)

	s1 := &protocol.StateMessage{
		Enemies: []protocol.EnemyState{{ID: 1}, {ID: 2}},
		Gems:    []protocol.GemState{{ID: 10}},
	}
	created, removed := l.Reconcile(s1)
	if created != 3 || removed != 0 {
		t.Fatalf("first reconcile: created=%d removed=%d", created, removed)
	}

	// id 2 despawned, id 3 spawned.
	s2 := &protocol.StateMessage{
		Enemies: []protocol.EnemyState{{ID: 1}, {ID: 3}},
		Gems:    []protocol.GemState{{ID: 10}},
	}
	created, removed = l.Reconcile(s2)
	if created != 1 || removed != 1 {
		t.Fatalf("second reconcile: created=%d removed=%d", created, removed)
	}
	if _, ok := l.Proxy(CategoryEnemy, 2); ok {
		t.Fatalf("proxy for despawned id 2 survives")
	}
	if _, ok := l.Proxy(CategoryEnemy, 3); !ok {
		t.Fatalf("no proxy for newly seen id 3")
	}

	// Reconciling the same snapshot again changes nothing.
	created, removed = l.Reconcile(s2)
	if created != 0 || removed != 0 {
		t.Fatalf("idempotent reconcile: created=%d removed=%d", created, removed)
	}

	if len(factory.destroyed) != 1 || factory.destroyed[0] != 2 {
		t.Fatalf("destroy calls: %v", factory.destroyed)
	}
}

func TestReconcileKeepsCategoriesSeparate(t *testing.T) {
	l := NewLifecycle(nil)
	// The same numeric id in two categories is two distinct entities.
	msg := &protocol.StateMessage{
		Enemies:     []protocol.EnemyState{{ID: 5}},
		Projectiles: []protocol.ProjectileState{{ID: 5}},
	}
	l.Reconcile(msg)
	if l.Count(CategoryEnemy) != 1 || l.Count(CategoryProjectile) != 1 {
		t.Fatalf("category counts: enemies=%d projectiles=%d",
			l.Count(CategoryEnemy), l.Count(CategoryProjectile))
	}

	l.Reconcile(&protocol.StateMessage{Projectiles: []protocol.ProjectileState{{ID: 5}}})
	if l.Count(CategoryEnemy) != 0 {
		t.Fatalf("enemy proxy survived its id vanishing")
	}
	if l.Count(CategoryProjectile) != 1 {
		t.Fatalf("projectile proxy removed by enemy despawn")
	}
}

func TestNilFactoryYieldsHandlelessProxies(t *testing.T) {
	l := NewLifecycle(nil)
	l.Reconcile(&protocol.StateMessage{Chests: []protocol.ChestState{{ID: 7}}})
	proxy, ok := l.Proxy(CategoryChest, 7)
	if !ok {
		t.Fatalf("chest proxy missing")
	}
	if proxy.Handle != nil {
		t.Fatalf("nil factory produced a handle: %v", proxy.Handle)
	}
}
