package ecs

import "fmt"

// typeKey gives every Go type a distinct comparable key without reflection:
// typeKey[A]{} and typeKey[B]{} are unequal map keys whenever A != B.
type typeKey[T any] struct{}

// Registry tracks all component stores, maps Go types to their stable
// ComponentType, and keeps the archetype mask of every entity slot.
type Registry struct {
	stores []column
	byKey  map[any]ComponentType
	byName map[string]ComponentType
	masks  []Mask
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]column, 0, 16),
		byKey:  make(map[any]ComponentType, 16),
		byName: make(map[string]ComponentType, 16),
		masks:  make([]Mask, 0, 1024),
	}
}

// Register returns the store for T, creating it on first use. The name is
// used in logs and errors and must be unique per World. Registering is a
// structural change and panics while a tick is executing.
func Register[T any](w *World, name string) *Store[T] {
	r := w.registry
	if t, ok := r.byKey[typeKey[T]{}]; ok {
		return r.stores[t].(*Store[T])
	}
	w.mustBeIdle("register component " + name)
	if _, taken := r.byName[name]; taken {
		panic(fmt.Sprintf("ecs: component name %q already registered for another type", name))
	}
	if len(r.stores) >= maxComponentTypes {
		panic(fmt.Sprintf("ecs: cannot register %q: limit of %d component types reached", name, maxComponentTypes))
	}
	t := ComponentType(len(r.stores))
	s := newStore[T](w, t, name)
	r.stores = append(r.stores, s)
	r.byKey[typeKey[T]{}] = t
	r.byName[name] = t
	return s
}

// StoreOf looks up the store for T without registering it.
func StoreOf[T any](w *World) (*Store[T], bool) {
	t, ok := w.registry.byKey[typeKey[T]{}]
	if !ok {
		return nil, false
	}
	return w.registry.stores[t].(*Store[T]), true
}

// Has reports whether t names a registered component type.
func (r *Registry) Has(t ComponentType) bool {
	return int(t) < len(r.stores)
}

// Name returns the registered name of t, or a placeholder for unknown types.
func (r *Registry) Name(t ComponentType) string {
	if !r.Has(t) {
		return fmt.Sprintf("component#%d", t)
	}
	return r.stores[t].Name()
}

// Lookup resolves a registered name.
func (r *Registry) Lookup(name string) (ComponentType, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Len returns the number of registered component types.
func (r *Registry) Len() int { return len(r.stores) }

// Names renders the types in m by name, for logging.
func (r *Registry) Names(m Mask) []string {
	types := m.Types()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = r.Name(t)
	}
	return out
}

func (r *Registry) mask(id EntityID) Mask {
	idx := int(id.Index())
	if idx >= len(r.masks) {
		return Mask{}
	}
	return r.masks[idx]
}

func (r *Registry) mark(id EntityID, t ComponentType) {
	idx := int(id.Index())
	for len(r.masks) <= idx {
		r.masks = append(r.masks, Mask{})
	}
	r.masks[idx] = r.masks[idx].With(t)
}

func (r *Registry) unmark(id EntityID, t ComponentType) {
	idx := int(id.Index())
	if idx < len(r.masks) {
		r.masks[idx] = r.masks[idx].Without(t)
	}
}

// removeComponent detaches a single component type from id.
func (r *Registry) removeComponent(id EntityID, t ComponentType) bool {
	if !r.Has(t) {
		return false
	}
	return r.stores[t].remove(id)
}

// RemoveAll clears the given entity from every store its archetype names.
func (r *Registry) RemoveAll(id EntityID) {
	for _, t := range r.mask(id).Types() {
		r.stores[t].remove(id)
	}
}
