package guest

import (
	"nightswarm/internal/protocol"
)

// Category names the entity collections a guest mirrors. Participants are
// not a category here: the roster is frozen, so participant proxies never
// churn.
type Category string

const (
	CategoryEnemy           Category = "enemy"
	CategoryProjectile      Category = "projectile"
	CategoryEnemyProjectile Category = "enemy_projectile"
	CategoryGem             Category = "gem"
	CategoryWeaponVisual    Category = "weapon_visual"
	CategoryChest           Category = "chest"
)

var categories = []Category{
	CategoryEnemy,
	CategoryProjectile,
	CategoryEnemyProjectile,
	CategoryGem,
	CategoryWeaponVisual,
	CategoryChest,
}

// Transform is the blended pose the interpolator writes each frame.
type Transform struct {
	X, Z float64
	Yaw  float64
}

// Proxy is a guest-local visual stand-in for one host entity. The renderer
// owns Handle; the interpolator owns Transform.
type Proxy struct {
	Transform Transform
	Handle    any
}

// ProxyFactory builds and releases renderable handles. Rendering is an
// external collaborator; the zero factory (nil) is valid and yields
// handle-less proxies, which is what the headless binary and the tests use.
type ProxyFactory interface {
	Create(cat Category, id uint64) any
	Destroy(cat Category, id uint64, handle any)
}

// Lifecycle owns the proxy maps. Only Reconcile creates or destroys
// entries; the interpolator just writes transforms into proxies it is
// handed, so a blend can never race a removal.
type Lifecycle struct {
	factory ProxyFactory
	proxies map[Category]map[uint64]*Proxy
}

// NewLifecycle builds an empty proxy registry.
func NewLifecycle(factory ProxyFactory) *Lifecycle {
	l := &Lifecycle{
		factory: factory,
		proxies: make(map[Category]map[uint64]*Proxy, len(categories)),
	}
	for _, cat := range categories {
		l.proxies[cat] = make(map[uint64]*Proxy)
	}
	return l
}

// Reconcile mutates the proxy set to match one snapshot: every id seen for
// the first time gets exactly one proxy, every id that vanished loses its
// proxy. Runs once per snapshot arrival, before the snapshot becomes the
// interpolation target.
func (l *Lifecycle) Reconcile(msg *protocol.StateMessage) (created, removed int) {
	present := make(map[Category]map[uint64]bool, len(categories))
	for _, cat := range categories {
		present[cat] = make(map[uint64]bool)
	}
	for _, e := range msg.Enemies {
		present[CategoryEnemy][e.ID] = true
	}
	for _, p := range msg.Projectiles {
		present[CategoryProjectile][p.ID] = true
	}
	for _, p := range msg.EnemyProjectiles {
		present[CategoryEnemyProjectile][p.ID] = true
	}
	for _, g := range msg.Gems {
		present[CategoryGem][g.ID] = true
	}
	for _, v := range msg.WeaponVisuals {
		present[CategoryWeaponVisual][v.ID] = true
	}
	for _, c := range msg.Chests {
		present[CategoryChest][c.ID] = true
	}

	for _, cat := range categories {
		existing := l.proxies[cat]
		for id := range present[cat] {
			if _, ok := existing[id]; ok {
				continue
			}
			proxy := &Proxy{}
			if l.factory != nil {
				proxy.Handle = l.factory.Create(cat, id)
			}
			existing[id] = proxy
			created++
		}
		for id, proxy := range existing {
			if present[cat][id] {
				continue
			}
			if l.factory != nil {
				l.factory.Destroy(cat, id, proxy.Handle)
			}
			delete(existing, id)
			removed++
		}
	}
	return created, removed
}

// Proxy returns the live proxy for an id, if any.
func (l *Lifecycle) Proxy(cat Category, id uint64) (*Proxy, bool) {
	p, ok := l.proxies[cat][id]
	return p, ok
}

// Count reports how many proxies a category holds.
func (l *Lifecycle) Count(cat Category) int {
	return len(l.proxies[cat])
}
