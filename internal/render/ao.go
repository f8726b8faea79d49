package render

import (
	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/world/block"
)

// Occluder отвечает, занята ли клетка с точки зрения затенения
type Occluder interface {
	Occludes(coord grid.Coordinate) bool
}

// AOCalculator заполняет маски затенения углов чанка
type AOCalculator interface {
	CalculateAO(rc *RenderChunk, occ Occluder, zRenderLimit int)
}

// DefaultAOCalculator отмечает занятые клетки вокруг каждой видимой грани.
// Порядок направлений: вверх, вверх-вправо, вправо, вниз-вправо,
// вниз, вниз-влево, влево, вверх-влево.
type DefaultAOCalculator struct{}

// CalculateAO пересчитывает маски всех клеток ниже предела
func (DefaultAOCalculator) CalculateAO(rc *RenderChunk, occ Occluder, zRenderLimit int) {
	rc.ForEachCell(func(coord grid.Coordinate, cell *RenderBlock) {
		if coord.Z >= zRenderLimit || cell.IsEmpty() || !cell.HasSides() {
			cell.SetAO(0)
			return
		}
		var mask uint32
		for side := block.Side(0); side < block.SideCount; side++ {
			ring := aoRing(coord, side)
			for dir, n := range ring {
				if occ.Occludes(n) {
					mask |= 1 << (uint(side)*8 + uint(dir))
				}
			}
		}
		cell.SetAO(mask)
	})
}

// aoRing возвращает 8 клеток вокруг грани
func aoRing(c grid.Coordinate, side block.Side) [8]grid.Coordinate {
	switch side {
	case block.SideTop:
		// Кольцо соседей в слое выше, направления - секторы сетки
		up := c.Above(1)
		var ring [8]grid.Coordinate
		for s := grid.Sector(0); s < grid.SectorCount; s++ {
			ring[s] = up.Neighbour(s)
		}
		return ring
	case block.SideLeft:
		return planeRing(c.Neighbour(grid.SectorBottomLeft), grid.SectorBottomRight, grid.SectorTopLeft)
	default:
		return planeRing(c.Neighbour(grid.SectorBottomRight), grid.SectorTopRight, grid.SectorBottomLeft)
	}
}

// planeRing - кольцо в вертикальной плоскости грани с центром base
func planeRing(base grid.Coordinate, right, left grid.Sector) [8]grid.Coordinate {
	r := base.Neighbour(right)
	l := base.Neighbour(left)
	return [8]grid.Coordinate{
		base.Above(1),
		r.Above(1),
		r,
		r.Above(-1),
		base.Above(-1),
		l.Above(-1),
		l,
		l.Above(1),
	}
}
