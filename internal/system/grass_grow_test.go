package system

import (
	"testing"

	"github.com/robotcards/meadow/internal/component"
	"github.com/robotcards/meadow/internal/core/ecs"
	coresys "github.com/robotcards/meadow/internal/core/system"
	"github.com/robotcards/meadow/internal/data"
	"github.com/robotcards/meadow/internal/world"
	"go.uber.org/zap/zaptest"
)

func buildSchedule(t *testing.T, systems ...coresys.System) *coresys.Schedule {
	t.Helper()
	b := coresys.NewBuilder(zaptest.NewLogger(t))
	for _, s := range systems {
		b.Add(s)
	}
	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return s
}

func TestGrassGrowsOneUnitPerTick(t *testing.T) {
	m := world.NewMeadow()
	n, err := m.Seed(data.DefaultSeed())
	if err != nil {
		t.Fatal(err)
	}
	if n != 101 || m.World.Len() != 101 {
		t.Fatalf("seeded %d entities (world %d), want 101", n, m.World.Len())
	}

	var robot ecs.EntityID
	m.EachRobot(func(id ecs.EntityID, _ component.Position, _ component.Robot) { robot = id })

	s := buildSchedule(t, NewGrassGrowSystem(m.Blades, nil))
	for i := 0; i < 5; i++ {
		if err := s.Execute(m.World, nil); err != nil {
			t.Fatalf("tick %d: %v", i+1, err)
		}
	}

	blades := 0
	m.EachBlade(func(id ecs.EntityID, _ component.Position, b component.Blade) {
		blades++
		if b.Height != 6.0 {
			t.Errorf("blade %s height %v, want 6", id, b.Height)
		}
	})
	if blades != 100 {
		t.Errorf("%d blades, want 100", blades)
	}

	r, ok := m.Robots.Get(robot)
	if !ok || r.Radius != 1 || r.CuttingHeight != 0.4 {
		t.Errorf("robot changed: %+v", r)
	}
	p, _ := m.Positions.Get(robot)
	if p.X != 50 || p.Y != 50 {
		t.Errorf("robot moved to (%v, %v)", p.X, p.Y)
	}
	if m.World.Len() != 101 {
		t.Errorf("entity count changed to %d", m.World.Len())
	}
}

func TestGrassGrowIsUnbounded(t *testing.T) {
	m := world.NewMeadow()
	e := m.World.Spawn(m.Blades.With(component.Blade{Height: 1e6}))
	s := buildSchedule(t, NewGrassGrowSystem(m.Blades, nil))
	if err := s.Execute(m.World, nil); err != nil {
		t.Fatal(err)
	}
	if b, _ := m.Blades.Get(e); b.Height != 1e6+1 {
		t.Errorf("height %v, want %v", b.Height, 1e6+1)
	}
}

func TestGrassGrowCustomStep(t *testing.T) {
	m := world.NewMeadow()
	short := m.World.Spawn(m.Blades.With(component.Blade{Height: 1}))
	tall := m.World.Spawn(m.Blades.With(component.Blade{Height: 10}))
	step := func(h float64) float64 {
		if h >= 5 {
			return 0
		}
		return 0.5
	}
	s := buildSchedule(t, NewGrassGrowSystem(m.Blades, step))
	for i := 0; i < 2; i++ {
		if err := s.Execute(m.World, nil); err != nil {
			t.Fatal(err)
		}
	}
	if b, _ := m.Blades.Get(short); b.Height != 2 {
		t.Errorf("short blade %v, want 2", b.Height)
	}
	if b, _ := m.Blades.Get(tall); b.Height != 10 {
		t.Errorf("tall blade %v, want 10", b.Height)
	}
}

func TestGrassGrowDeclaresOnlyBlades(t *testing.T) {
	m := world.NewMeadow()
	a := NewGrassGrowSystem(m.Blades, nil).Access()
	if !a.Allows(m.Blades.Type(), ecs.Write) {
		t.Error("grass growth must write blades")
	}
	if a.Allows(m.Positions.Type(), ecs.Read) || a.Allows(m.Robots.Type(), ecs.Read) {
		t.Error("grass growth declares components it never touches")
	}
}
