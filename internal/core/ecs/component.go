package ecs

// ComponentType is the stable key a component type receives when it is
// registered with a World. It indexes masks and the registry's store table.
type ComponentType uint8

// column is the type-erased view of a Store the Registry keeps so it can
// bulk-remove an entity's data on despawn.
type column interface {
	Type() ComponentType
	Name() string
	Len() int
	Has(id EntityID) bool
	remove(id EntityID) bool
}

// Component is a value bound to its store, ready to be attached to an
// entity. Build one with Store.With.
type Component interface {
	Type() ComponentType
	insert(id EntityID)
}

type boundComponent[T any] struct {
	store *Store[T]
	value T
}

func (c boundComponent[T]) Type() ComponentType { return c.store.typ }
func (c boundComponent[T]) insert(id EntityID)  { c.store.insert(id, c.value) }

// Store is a sparse-set column for one component type. Values live densely
// in data; sparse maps an entity slot index to its dense position + 1.
// No reflect on the hot path, pure generics.
//
// Pointers returned by Get and by queries stay valid until the next
// structural change (flush, Insert, Remove, Despawn).
type Store[T any] struct {
	typ      ComponentType
	name     string
	world    *World
	sparse   []int32
	entities []EntityID
	data     []T
}

func newStore[T any](w *World, typ ComponentType, name string) *Store[T] {
	return &Store[T]{
		typ:      typ,
		name:     name,
		world:    w,
		sparse:   make([]int32, 0, 256),
		entities: make([]EntityID, 0, 256),
		data:     make([]T, 0, 256),
	}
}

func (s *Store[T]) Type() ComponentType { return s.typ }
func (s *Store[T]) Name() string        { return s.name }
func (s *Store[T]) Len() int            { return len(s.data) }

// With binds a value to this store for Spawn, Insert or CommandBuffer.Add.
func (s *Store[T]) With(v T) Component {
	return boundComponent[T]{store: s, value: v}
}

// pos returns the dense position of id, or -1. A slot occupied by another
// generation counts as absent.
func (s *Store[T]) pos(id EntityID) int {
	idx := id.Index()
	if int(idx) >= len(s.sparse) {
		return -1
	}
	p := int(s.sparse[idx]) - 1
	if p < 0 || s.entities[p] != id {
		return -1
	}
	return p
}

func (s *Store[T]) Has(id EntityID) bool {
	return s.pos(id) >= 0
}

// Get returns the component of id. Stale handles and entities without the
// component both read as absent.
func (s *Store[T]) Get(id EntityID) (*T, bool) {
	p := s.pos(id)
	if p < 0 {
		return nil, false
	}
	return &s.data[p], true
}

// Replace overwrites the value of a component the entity already has. It is
// not a structural change and is legal during a tick.
func (s *Store[T]) Replace(id EntityID, v T) error {
	if s.world != nil && !s.world.pool.Alive(id) {
		return ErrStaleEntity
	}
	p := s.pos(id)
	if p < 0 {
		return ErrMissingComponent
	}
	s.data[p] = v
	return nil
}

// Each calls fn for every (entity, component) pair in dense order.
func (s *Store[T]) Each(fn func(EntityID, *T)) {
	for i := range s.data {
		fn(s.entities[i], &s.data[i])
	}
}

func (s *Store[T]) insert(id EntityID, v T) {
	if p := s.pos(id); p >= 0 {
		s.data[p] = v
		return
	}
	idx := int(id.Index())
	for len(s.sparse) <= idx {
		s.sparse = append(s.sparse, 0)
	}
	s.entities = append(s.entities, id)
	s.data = append(s.data, v)
	s.sparse[idx] = int32(len(s.data))
	if s.world != nil {
		s.world.registry.mark(id, s.typ)
	}
}

// remove swap-deletes the entity's component, keeping the column dense.
func (s *Store[T]) remove(id EntityID) bool {
	p := s.pos(id)
	if p < 0 {
		return false
	}
	last := len(s.data) - 1
	if p != last {
		s.data[p] = s.data[last]
		s.entities[p] = s.entities[last]
		s.sparse[s.entities[p].Index()] = int32(p + 1)
	}
	var zero T
	s.data[last] = zero
	s.data = s.data[:last]
	s.entities = s.entities[:last]
	s.sparse[id.Index()] = 0
	if s.world != nil {
		s.world.registry.unmark(id, s.typ)
	}
	return true
}
