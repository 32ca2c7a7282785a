package system

import (
	"github.com/robotcards/meadow/internal/component"
	"github.com/robotcards/meadow/internal/core/ecs"
	coresys "github.com/robotcards/meadow/internal/core/system"
)

// DefaultGrowthStep is how much every blade grows per tick.
const DefaultGrowthStep = 1.0

// StepFunc returns the growth applied to a blade of the given height.
type StepFunc func(height float64) float64

// GrassGrowSystem grows every blade once per tick, unconditionally and
// without an upper bound. Phase 2 (Update), writes Blade.
type GrassGrowSystem struct {
	blades *ecs.Store[component.Blade]
	step   StepFunc
}

// NewGrassGrowSystem creates the system. A nil step grows every blade by
// DefaultGrowthStep.
func NewGrassGrowSystem(blades *ecs.Store[component.Blade], step StepFunc) *GrassGrowSystem {
	return &GrassGrowSystem{blades: blades, step: step}
}

func (s *GrassGrowSystem) Name() string         { return "grass_grow" }
func (s *GrassGrowSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }
func (s *GrassGrowSystem) Access() ecs.Access   { return ecs.NewAccess().Writing(s.blades.Type()) }

func (s *GrassGrowSystem) Update(v *ecs.View) {
	q := ecs.NewQuery1(v, s.blades.Write())
	for q.Next() {
		b := q.Get()
		if s.step == nil {
			b.Height += DefaultGrowthStep
			continue
		}
		b.Height += s.step(b.Height)
	}
}
