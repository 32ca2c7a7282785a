package data

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// RobotSpawn places one mobile actor.
type RobotSpawn struct {
	X             float64 `yaml:"x"`
	Y             float64 `yaml:"y"`
	Radius        float64 `yaml:"radius"`
	CuttingHeight float64 `yaml:"cutting_height"`
}

// MeadowSpawn lays out a Width×Height grid of blades starting at the origin,
// Spacing units apart, all with the same initial height.
type MeadowSpawn struct {
	OriginX     float64 `yaml:"origin_x"`
	OriginY     float64 `yaml:"origin_y"`
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	Spacing     float64 `yaml:"spacing"` // 0 = 1 unit
	BladeHeight float64 `yaml:"blade_height"`
}

// Cells returns the number of blades the grid produces.
func (m MeadowSpawn) Cells() int { return m.Width * m.Height }

// Seed is the initial world population loaded at startup.
type Seed struct {
	Robots  []RobotSpawn  `yaml:"robots"`
	Meadows []MeadowSpawn `yaml:"meadows"`
}

// Count returns the number of entities the seed spawns.
func (s *Seed) Count() int {
	n := len(s.Robots)
	for _, m := range s.Meadows {
		n += m.Cells()
	}
	return n
}

// DefaultSeed is the stock startup world: one robot at (50,50) and a 10×10
// meadow of blades with height 1.
func DefaultSeed() *Seed {
	return &Seed{
		Robots: []RobotSpawn{
			{X: 50, Y: 50, Radius: 1, CuttingHeight: 0.4},
		},
		Meadows: []MeadowSpawn{
			{Width: 10, Height: 10, Spacing: 1, BladeHeight: 1},
		},
	}
}

// LoadSeed loads a seed table from a YAML file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	if err := s.normalize(); err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return &s, nil
}

func (s *Seed) normalize() error {
	for i := range s.Meadows {
		m := &s.Meadows[i]
		if !finite(m.OriginX, m.OriginY, m.Spacing, m.BladeHeight) {
			return fmt.Errorf("meadow %d: non-finite origin, spacing or blade height", i)
		}
		if m.Width < 0 || m.Height < 0 {
			return fmt.Errorf("meadow %d: negative size %dx%d", i, m.Width, m.Height)
		}
		if m.Spacing < 0 {
			return fmt.Errorf("meadow %d: negative spacing %g", i, m.Spacing)
		}
		if m.Spacing == 0 {
			m.Spacing = 1
		}
	}
	for i, r := range s.Robots {
		if !finite(r.X, r.Y, r.Radius, r.CuttingHeight) {
			return fmt.Errorf("robot %d: non-finite position, radius or cutting height", i)
		}
		if r.Radius < 0 {
			return fmt.Errorf("robot %d: negative radius %g", i, r.Radius)
		}
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
