package ecs

import (
	"fmt"

	"github.com/robotcards/meadow/internal/core/event"
)

// World is the top-level ECS container. It owns the entity pool, the component
// registry and the lifecycle event bus.
//
// Structural changes made directly on the World (Spawn, Despawn, Insert,
// Remove) are for seeding and host code between ticks. While a schedule is
// executing, or any query is open, they panic with ErrWorldBusy; systems go
// through their CommandBuffer instead.
type World struct {
	pool      *EntityPool
	registry  *Registry
	bus       *event.Bus
	executing bool
	iterating int // open query cursors
}

func NewWorld() *World {
	return &World{
		pool:     NewEntityPool(),
		registry: NewRegistry(),
		bus:      event.NewBus(),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }
func (w *World) Bus() *event.Bus     { return w.bus }

// Len returns the number of live entities.
func (w *World) Len() int { return w.pool.Len() }

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// ArchetypeOf returns the set of component types attached to id. Dead
// handles report false.
func (w *World) ArchetypeOf(id EntityID) (Mask, bool) {
	if !w.pool.Alive(id) {
		return Mask{}, false
	}
	return w.registry.mask(id), true
}

// Spawn creates an entity carrying the given components.
func (w *World) Spawn(components ...Component) EntityID {
	w.mustBeIdle("spawn")
	id := w.pool.Create()
	for _, c := range components {
		c.insert(id)
	}
	return id
}

// Despawn destroys id and removes all of its components. It reports false
// if the entity was already dead.
func (w *World) Despawn(id EntityID) bool {
	w.mustBeIdle("despawn")
	return w.despawn(id)
}

// Insert attaches (or overwrites) a component on a live entity.
func (w *World) Insert(id EntityID, c Component) error {
	w.mustBeIdle("insert")
	return w.insert(id, c)
}

// Remove detaches a component type from id. It reports false when the entity
// is dead or did not carry the type.
func (w *World) Remove(id EntityID, t ComponentType) bool {
	w.mustBeIdle("remove")
	return w.remove(id, t)
}

// Executing reports whether a schedule currently owns the world.
func (w *World) Executing() bool { return w.executing }

// BeginExecute marks the world as exclusively owned by a running schedule.
func (w *World) BeginExecute() error {
	if w.executing {
		return ErrWorldBusy
	}
	w.executing = true
	return nil
}

// EndExecute releases the ownership taken by BeginExecute.
func (w *World) EndExecute() {
	w.executing = false
}

func (w *World) mustBeIdle(op string) {
	if w.executing || w.iterating > 0 {
		panic(fmt.Errorf("%s: %w", op, ErrWorldBusy))
	}
}

func (w *World) despawn(id EntityID) bool {
	if !w.pool.Alive(id) {
		return false
	}
	w.registry.RemoveAll(id)
	w.pool.Destroy(id)
	return true
}

func (w *World) insert(id EntityID, c Component) error {
	if !w.pool.Alive(id) {
		return ErrEntityNotAlive
	}
	if !w.registry.Has(c.Type()) {
		return ErrUnknownComponent
	}
	c.insert(id)
	return nil
}

func (w *World) remove(id EntityID, t ComponentType) bool {
	if !w.pool.Alive(id) {
		return false
	}
	return w.registry.removeComponent(id, t)
}
