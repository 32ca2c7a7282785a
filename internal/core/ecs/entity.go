package ecs

import "fmt"

// EntityID encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale refs.
// Generations start at 1, so the zero EntityID never addresses a live entity.
type EntityID uint64

// Null is the zero handle. It is never alive.
const Null EntityID = 0

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == Null }

func (id EntityID) String() string {
	return fmt.Sprintf("%d:%d", id.Index(), id.Generation())
}

// EntityPool manages entity allocation with generational indices and a free list.
//
// A slot is in one of three states: free, reserved (handed out by Reserve but
// not yet alive) or alive. Reservation lets a command buffer return a usable
// handle for an entity that only comes to life at flush.
type EntityPool struct {
	generations []uint32
	alive       []bool
	freeList    []uint32
	nextIndex   uint32
	live        int
}

func NewEntityPool() *EntityPool {
	return &EntityPool{
		generations: make([]uint32, 0, 1024),
		alive:       make([]bool, 0, 1024),
		freeList:    make([]uint32, 0, 256),
	}
}

// Create allocates a slot and marks it alive immediately.
func (p *EntityPool) Create() EntityID {
	id := p.Reserve()
	p.Activate(id)
	return id
}

// Reserve takes a slot off the free list (or grows the pool) without making
// it alive. The returned handle fails Alive until Activate is called.
func (p *EntityPool) Reserve() EntityID {
	if len(p.freeList) > 0 {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		return NewEntityID(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	p.generations = append(p.generations, 1)
	p.alive = append(p.alive, false)
	return NewEntityID(idx, p.generations[idx])
}

// Activate brings a reserved handle to life. It reports false if the handle
// is stale or already alive.
func (p *EntityPool) Activate(id EntityID) bool {
	idx := id.Index()
	if idx >= p.nextIndex || p.generations[idx] != id.Generation() || p.alive[idx] {
		return false
	}
	p.alive[idx] = true
	p.live++
	return true
}

// Release returns a reserved, never-activated handle to the free list.
func (p *EntityPool) Release(id EntityID) {
	idx := id.Index()
	if idx >= p.nextIndex || p.generations[idx] != id.Generation() || p.alive[idx] {
		return
	}
	p.retire(idx)
}

func (p *EntityPool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx >= p.nextIndex {
		return false
	}
	return p.alive[idx] && p.generations[idx] == id.Generation()
}

// Destroy retires a live handle. It reports false when the handle was
// already dead (stale reference or never activated).
func (p *EntityPool) Destroy(id EntityID) bool {
	if !p.Alive(id) {
		return false
	}
	idx := id.Index()
	p.alive[idx] = false
	p.live--
	p.retire(idx)
	return true
}

func (p *EntityPool) retire(idx uint32) {
	p.generations[idx]++
	if p.generations[idx] == 0 {
		p.generations[idx] = 1 // wrapped; zero generation is reserved for Null
	}
	p.freeList = append(p.freeList, idx)
}

// Len returns the number of live entities.
func (p *EntityPool) Len() int { return p.live }

// Cap returns the number of slots ever allocated.
func (p *EntityPool) Cap() int { return int(p.nextIndex) }

// Each calls fn for every live entity in slot order.
func (p *EntityPool) Each(fn func(EntityID)) {
	for idx := uint32(0); idx < p.nextIndex; idx++ {
		if p.alive[idx] {
			fn(NewEntityID(idx, p.generations[idx]))
		}
	}
}
