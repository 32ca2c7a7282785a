package world

import (
	"math"

	"github.com/robotcards/meadow/internal/component"
	"github.com/robotcards/meadow/internal/core/ecs"
)

// Grid is a cell-based spatial index over entity positions. Lookups scan the
// cells overlapping a square around the query point; callers do the exact
// distance filtering. Accessed only from the tick loop goroutine, no locks.
type Grid struct {
	cellSize float64
	cells    map[cellKey]map[ecs.EntityID]struct{}
	where    map[ecs.EntityID]cellKey
}

type cellKey struct {
	cx int32
	cy int32
}

func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 || !finite(cellSize) {
		cellSize = 1
	}
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[cellKey]map[ecs.EntityID]struct{}),
		where:    make(map[ecs.EntityID]cellKey),
	}
}

// coord maps a finite coordinate to its cell, clamped to the int32 range.
func (g *Grid) coord(v float64) int32 {
	c := math.Floor(v / g.cellSize)
	switch {
	case c <= math.MinInt32:
		return math.MinInt32
	case c >= math.MaxInt32:
		return math.MaxInt32
	}
	return int32(c)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (g *Grid) key(p component.Position) cellKey {
	return cellKey{cx: g.coord(p.X), cy: g.coord(p.Y)}
}

// Len returns the number of indexed entities.
func (g *Grid) Len() int { return len(g.where) }

// Add places id at p, moving it if it is already indexed. A non-finite
// position has no cell and takes id out of the index.
func (g *Grid) Add(id ecs.EntityID, p component.Position) {
	if !finite(p.X, p.Y) {
		g.Remove(id)
		return
	}
	k := g.key(p)
	if old, ok := g.where[id]; ok {
		if old == k {
			return
		}
		g.drop(id, old)
	}
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
	g.where[id] = k
}

// Remove takes id out of the index. Unknown ids are ignored.
func (g *Grid) Remove(id ecs.EntityID) {
	if k, ok := g.where[id]; ok {
		g.drop(id, k)
	}
}

func (g *Grid) drop(id ecs.EntityID, k cellKey) {
	delete(g.where, id)
	cell := g.cells[k]
	delete(cell, id)
	if len(cell) == 0 {
		delete(g.cells, k)
	}
}

// Nearby returns every indexed entity whose cell overlaps the square of
// half-width radius around p. When the square spans more cells than are
// occupied, the occupied cells are filtered instead, so the cost is bounded
// by the index size. A non-finite p or NaN radius matches nothing.
func (g *Grid) Nearby(p component.Position, radius float64) []ecs.EntityID {
	if !finite(p.X, p.Y) || math.IsNaN(radius) {
		return nil
	}
	if radius < 0 {
		radius = 0
	}
	x0, x1 := g.coord(p.X-radius), g.coord(p.X+radius)
	y0, y1 := g.coord(p.Y-radius), g.coord(p.Y+radius)

	var result []ecs.EntityID
	span := (float64(x1) - float64(x0) + 1) * (float64(y1) - float64(y0) + 1)
	if span > float64(len(g.cells)) {
		for k, cell := range g.cells {
			if k.cx < x0 || k.cx > x1 || k.cy < y0 || k.cy > y1 {
				continue
			}
			for id := range cell {
				result = append(result, id)
			}
		}
		return result
	}
	for cx := x0; ; cx++ {
		for cy := y0; ; cy++ {
			for id := range g.cells[cellKey{cx: cx, cy: cy}] {
				result = append(result, id)
			}
			if cy == y1 {
				break
			}
		}
		if cx == x1 {
			break
		}
	}
	return result
}
