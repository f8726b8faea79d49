package world

import (
	"math"

	"github.com/annel0/voxelmap/internal/grid"
)

// PathGraph - представление карты для поиска пути по клеткам
type PathGraph struct {
	m *Map
}

// Passable проверяет, можно ли стоять в клетке:
// сама клетка не препятствие, а под ней твёрдый блок
func (g *PathGraph) Passable(c grid.Coordinate) bool {
	reg := g.m.cfg.Blocks
	if reg.IsObstacle(g.m.GetBlock(c)) {
		return false
	}
	return reg.IsObstacle(g.m.GetBlock(c.Above(-1)))
}

// Neighbours возвращает проходимые соседние клетки в той же плоскости
func (g *PathGraph) Neighbours(c grid.Coordinate) []grid.Coordinate {
	out := make([]grid.Coordinate, 0, grid.SectorCount)
	for s := grid.Sector(0); s < grid.SectorCount; s++ {
		n := c.Neighbour(s)
		if g.Passable(n) {
			out = append(out, n)
		}
	}
	return out
}

// Cost возвращает расстояние между центрами клеток
func (g *PathGraph) Cost(a, b grid.Coordinate) float64 {
	geo := g.m.cfg.Geometry
	pa, pb := geo.CoordinateToPoint(a), geo.CoordinateToPoint(b)
	dx := float64(pa.X - pb.X)
	dy := float64(pa.Y - pb.Y)
	dz := float64(pa.Z - pb.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
