package sim

// Arena stores one category of pooled entities. Slots are dense and reused
// through a free list, while identifiers come from a separate monotonic
// counter, so an id is never reassigned to a different logical entity no
// matter how often its slot is recycled.
type Arena[T any] struct {
	slots  []arenaSlot[T]
	free   []int
	index  map[uint64]int
	nextID uint64
	live   int
}

type arenaSlot[T any] struct {
	id    uint64
	alive bool
	value T
}

// NewArena builds an empty arena with room for capacity entities before the
// first growth.
func NewArena[T any](capacity int) *Arena[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Arena[T]{
		slots: make([]arenaSlot[T], 0, capacity),
		index: make(map[uint64]int, capacity),
	}
}

// Spawn places a value into a free slot (growing if none is free) and
// returns its freshly assigned identifier.
func (a *Arena[T]) Spawn(value T) uint64 {
	a.nextID++
	id := a.nextID

	var idx int
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[idx] = arenaSlot[T]{id: id, alive: true, value: value}
	} else {
		idx = len(a.slots)
		a.slots = append(a.slots, arenaSlot[T]{id: id, alive: true, value: value})
	}
	a.index[id] = idx
	a.live++
	return id
}

// Despawn releases the entity with the given id. Returns false if the id is
// not live.
func (a *Arena[T]) Despawn(id uint64) bool {
	idx, ok := a.index[id]
	if !ok {
		return false
	}
	delete(a.index, id)
	var zero T
	a.slots[idx] = arenaSlot[T]{value: zero}
	a.free = append(a.free, idx)
	a.live--
	return true
}

// Get returns a pointer to the live entity with the given id.
func (a *Arena[T]) Get(id uint64) (*T, bool) {
	idx, ok := a.index[id]
	if !ok {
		return nil, false
	}
	return &a.slots[idx].value, true
}

// Len reports the number of live entities.
func (a *Arena[T]) Len() int {
	return a.live
}

// ForEach visits every live entity in slot order. The visitor may mutate the
// entity through the pointer but must not spawn or despawn during the walk;
// collect ids and apply afterwards.
func (a *Arena[T]) ForEach(visit func(id uint64, value *T)) {
	for i := range a.slots {
		if a.slots[i].alive {
			visit(a.slots[i].id, &a.slots[i].value)
		}
	}
}

// Clear releases every live entity. Identifier history is preserved: the
// counter keeps climbing across clears.
func (a *Arena[T]) Clear() {
	for i := range a.slots {
		if a.slots[i].alive {
			var zero T
			a.slots[i] = arenaSlot[T]{value: zero}
			a.free = append(a.free, i)
		}
	}
	a.index = make(map[uint64]int)
	a.live = 0
}
