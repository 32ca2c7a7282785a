package world

import (
	"fmt"

	"github.com/robotcards/meadow/internal/component"
	"github.com/robotcards/meadow/internal/core/ecs"
	"github.com/robotcards/meadow/internal/core/event"
	"github.com/robotcards/meadow/internal/data"
)

// gridCellSize is the side of a blade index cell, in meadow units.
const gridCellSize = 4

// Meadow bundles the ECS world with the component stores of this
// simulation. It is the context object the host threads through the tick
// loop; there is no package-level world.
type Meadow struct {
	World     *ecs.World
	Positions *ecs.Store[component.Position]
	Blades    *ecs.Store[component.Blade]
	Robots    *ecs.Store[component.Robot]

	// Grass indexes blade positions. Seed fills it directly; blades spawned
	// or despawned later enter and leave it when the schedule dispatches the
	// previous tick's lifecycle events.
	Grass *Grid
}

// NewMeadow creates an empty world with every meadow component registered.
func NewMeadow() *Meadow {
	w := ecs.NewWorld()
	m := &Meadow{
		World:     w,
		Positions: ecs.Register[component.Position](w, "position"),
		Blades:    ecs.Register[component.Blade](w, "blade"),
		Robots:    ecs.Register[component.Robot](w, "robot"),
		Grass:     NewGrid(gridCellSize),
	}
	event.Subscribe(w.Bus(), func(ev ecs.EntitySpawned) {
		if !ev.Archetype.ContainsAll(ecs.MaskOf(m.Blades.Type(), m.Positions.Type())) {
			return
		}
		// The event is a tick old; the blade may be gone already.
		if p, ok := m.Positions.Get(ev.Entity); ok && m.Blades.Has(ev.Entity) {
			m.Grass.Add(ev.Entity, *p)
		}
	})
	event.Subscribe(w.Bus(), func(ev ecs.EntityDespawned) {
		m.Grass.Remove(ev.Entity)
	})
	return m
}

// Seed populates the world from a seed table. Everything is recorded into a
// single command buffer and applied with one flush. Returns the number of
// entities spawned.
func (m *Meadow) Seed(seed *data.Seed) (int, error) {
	if m.World.Executing() {
		return 0, fmt.Errorf("seed: %w", ecs.ErrWorldBusy)
	}
	buf := ecs.NewCommandBuffer(m.World)

	for _, r := range seed.Robots {
		buf.Spawn(
			m.Robots.With(component.Robot{Radius: r.Radius, CuttingHeight: r.CuttingHeight}),
			m.Positions.With(component.Position{X: r.X, Y: r.Y}),
		)
	}

	for _, g := range seed.Meadows {
		spacing := g.Spacing
		if spacing == 0 {
			spacing = 1
		}
		for x := 0; x < g.Width; x++ {
			for y := 0; y < g.Height; y++ {
				buf.Spawn(
					m.Blades.With(component.Blade{Height: g.BladeHeight}),
					m.Positions.With(component.Position{
						X: g.OriginX + float64(x)*spacing,
						Y: g.OriginY + float64(y)*spacing,
					}),
				)
			}
		}
	}

	st := buf.Flush()
	m.EachBlade(func(id ecs.EntityID, p component.Position, _ component.Blade) {
		m.Grass.Add(id, p)
	})
	return st.Spawned, nil
}

// EachBlade calls fn for every blade that also has a position. Read-only,
// for the host between ticks.
func (m *Meadow) EachBlade(fn func(ecs.EntityID, component.Position, component.Blade)) {
	m.Blades.Each(func(id ecs.EntityID, b *component.Blade) {
		if p, ok := m.Positions.Get(id); ok {
			fn(id, *p, *b)
		}
	})
}

// EachRobot calls fn for every robot that also has a position.
func (m *Meadow) EachRobot(fn func(ecs.EntityID, component.Position, component.Robot)) {
	m.Robots.Each(func(id ecs.EntityID, r *component.Robot) {
		if p, ok := m.Positions.Get(id); ok {
			fn(id, *p, *r)
		}
	})
}

// InReach counts the blades within the robot's radius that stand taller
// than its cutting height. ok is false if id is not a positioned robot.
func (m *Meadow) InReach(id ecs.EntityID) (n int, ok bool) {
	r, hasRobot := m.Robots.Get(id)
	p, hasPos := m.Positions.Get(id)
	if !hasRobot || !hasPos {
		return 0, false
	}
	for _, bid := range m.Grass.Nearby(*p, r.Radius) {
		b, okB := m.Blades.Get(bid)
		bp, okP := m.Positions.Get(bid)
		if !okB || !okP || b.Height <= r.CuttingHeight {
			continue
		}
		dx, dy := bp.X-p.X, bp.Y-p.Y
		if dx*dx+dy*dy <= r.Radius*r.Radius {
			n++
		}
	}
	return n, true
}

// Stats is a snapshot of the population for status lines and logs.
type Stats struct {
	Entities  int
	Blades    int
	Robots    int
	InReach   int // summed over robots
	MinHeight float64
	MaxHeight float64
}

func (m *Meadow) Stats() Stats {
	st := Stats{
		Entities: m.World.Len(),
		Blades:   m.Blades.Len(),
		Robots:   m.Robots.Len(),
	}
	first := true
	m.Blades.Each(func(_ ecs.EntityID, b *component.Blade) {
		if first || b.Height < st.MinHeight {
			st.MinHeight = b.Height
		}
		if first || b.Height > st.MaxHeight {
			st.MaxHeight = b.Height
		}
		first = false
	})
	m.Robots.Each(func(id ecs.EntityID, _ *component.Robot) {
		n, _ := m.InReach(id)
		st.InReach += n
	})
	return st
}
