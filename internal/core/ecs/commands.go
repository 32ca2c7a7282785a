package ecs

import (
	"fmt"

	"github.com/robotcards/meadow/internal/core/event"
)

type commandKind uint8

const (
	cmdSpawn commandKind = iota
	cmdDespawn
	cmdAdd
	cmdRemove
)

type command struct {
	kind       commandKind
	entity     EntityID
	components []Component
	typ        ComponentType
}

// FlushStats counts what a flush actually changed. Commands aimed at dead
// entities are skipped, not errors.
type FlushStats struct {
	Spawned   int
	Despawned int
	Added     int
	Removed   int
	Skipped   int
	// Collapsed counts spawns cancelled by a later despawn in the same buffer.
	Collapsed int
}

// CommandBuffer records structural mutations during a tick and applies them
// in enqueue order at Flush. Recording never touches component storage, so
// open queries keep a fixed entity set.
//
// Spawn reserves the entity handle up front: the handle can be targeted by
// later commands in the same buffer, but is not alive until Flush. A spawn
// whose handle is despawned later in the same buffer never comes to life:
// the reservation is released, no lifecycle events are emitted, and the
// commands between the two are dropped.
type CommandBuffer struct {
	world    *World
	commands []command
	reserved []EntityID
}

func NewCommandBuffer(w *World) *CommandBuffer {
	return &CommandBuffer{
		world:    w,
		commands: make([]command, 0, 64),
	}
}

// Len returns the number of recorded commands.
func (b *CommandBuffer) Len() int { return len(b.commands) }

// Spawn records the creation of an entity with the given components and
// returns its reserved handle.
func (b *CommandBuffer) Spawn(components ...Component) EntityID {
	id := b.world.pool.Reserve()
	b.reserved = append(b.reserved, id)
	b.commands = append(b.commands, command{kind: cmdSpawn, entity: id, components: components})
	return id
}

func (b *CommandBuffer) Despawn(id EntityID) {
	b.commands = append(b.commands, command{kind: cmdDespawn, entity: id})
}

// Add records attaching (or overwriting) a component.
func (b *CommandBuffer) Add(id EntityID, c Component) {
	b.commands = append(b.commands, command{kind: cmdAdd, entity: id, components: []Component{c}})
}

func (b *CommandBuffer) RemoveComponent(id EntityID, t ComponentType) {
	b.commands = append(b.commands, command{kind: cmdRemove, entity: id, typ: t})
}

// Flush applies every recorded command in order, emits lifecycle events and
// clears the buffer. It is the only place a running schedule changes world
// structure, and it panics if any query is still open.
func (b *CommandBuffer) Flush() FlushStats {
	var st FlushStats
	w := b.world
	if w.iterating > 0 {
		panic(fmt.Errorf("flush with %d open queries: %w", w.iterating, ErrWorldBusy))
	}
	lastDespawn := b.reservedDespawns()
	var collapsed map[EntityID]struct{}
	for i, c := range b.commands {
		if _, ok := collapsed[c.entity]; ok {
			continue
		}
		switch c.kind {
		case cmdSpawn:
			if j, ok := lastDespawn[c.entity]; ok && j > i {
				if collapsed == nil {
					collapsed = make(map[EntityID]struct{})
				}
				collapsed[c.entity] = struct{}{}
				w.pool.Release(c.entity)
				st.Collapsed++
				continue
			}
			if !w.pool.Activate(c.entity) {
				st.Skipped++
				continue
			}
			for _, comp := range c.components {
				comp.insert(c.entity)
			}
			st.Spawned++
			event.Emit(w.bus, EntitySpawned{Entity: c.entity, Archetype: w.registry.mask(c.entity)})
		case cmdDespawn:
			if !w.despawn(c.entity) {
				st.Skipped++
				continue
			}
			st.Despawned++
			event.Emit(w.bus, EntityDespawned{Entity: c.entity})
		case cmdAdd:
			if err := w.insert(c.entity, c.components[0]); err != nil {
				st.Skipped++
				continue
			}
			st.Added++
		case cmdRemove:
			if !w.remove(c.entity, c.typ) {
				st.Skipped++
				continue
			}
			st.Removed++
		}
	}
	b.reset()
	return st
}

// reservedDespawns maps each handle reserved by this buffer to the index of
// its last despawn command.
func (b *CommandBuffer) reservedDespawns() map[EntityID]int {
	if len(b.reserved) == 0 {
		return nil
	}
	var last map[EntityID]int
	for i, c := range b.commands {
		if c.kind != cmdDespawn {
			continue
		}
		if last == nil {
			last = make(map[EntityID]int, len(b.reserved))
			for _, id := range b.reserved {
				last[id] = -1
			}
		}
		if _, ok := last[c.entity]; ok {
			last[c.entity] = i
		}
	}
	return last
}

// Discard drops every recorded command and returns reserved handles that
// never came to life to the pool.
func (b *CommandBuffer) Discard() {
	for _, id := range b.reserved {
		b.world.pool.Release(id)
	}
	b.reset()
}

func (b *CommandBuffer) reset() {
	clear(b.commands)
	b.commands = b.commands[:0]
	b.reserved = b.reserved[:0]
}
