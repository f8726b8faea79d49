package render

import (
	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/world/block"
)

// CellLookup находит клетку отрисовки по абсолютной координате,
// в том числе в соседних чанках
type CellLookup interface {
	Cell(coord grid.Coordinate) (*RenderBlock, bool)
}

// Соседи, закрывающие грани: левую - нижний левый в том же слое,
// правую - нижний правый, верхнюю - клетка выше
var sideNeighbour = [block.SideCount]func(grid.Coordinate) grid.Coordinate{
	block.SideLeft:  func(c grid.Coordinate) grid.Coordinate { return c.Neighbour(grid.SectorBottomLeft) },
	block.SideTop:   func(c grid.Coordinate) grid.Coordinate { return c.Above(1) },
	block.SideRight: func(c grid.Coordinate) grid.Coordinate { return c.Neighbour(grid.SectorBottomRight) },
}

// DetectHiddenSurfaces пересчитывает маски скрытых граней чанка.
// Обрабатываются только клетки ниже zRenderLimit; клетки на пределе и выше
// считаются неотрисовываемыми и ничего не закрывают.
func DetectHiddenSurfaces(rc *RenderChunk, lookup CellLookup, zRenderLimit int) {
	if rc == nil {
		panic("render: nil chunk passed to hidden surface detection")
	}
	rc.ForEachCell(func(coord grid.Coordinate, cell *RenderBlock) {
		cell.clip = clipOf(cell, coord, lookup, zRenderLimit)
	})
}

func clipOf(cell *RenderBlock, coord grid.Coordinate, lookup CellLookup, zRenderLimit int) uint8 {
	if coord.Z >= zRenderLimit || cell.IsEmpty() {
		return 0
	}
	var clip uint8
	for side := block.Side(0); side < block.SideCount; side++ {
		n := sideNeighbour[side](coord)
		if n.Z >= zRenderLimit {
			continue
		}
		neighbour, ok := lookup.Cell(n)
		if !ok {
			continue
		}
		// Поверхности жидкости сливаются, а не закрывают друг друга
		if neighbour.Hides() || (cell.IsLiquid() && neighbour.IsLiquid()) {
			clip |= 1 << side
		}
	}
	return clip
}
