package render

import (
	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/vec"
	"github.com/annel0/voxelmap/internal/world"
	"github.com/annel0/voxelmap/internal/world/block"
)

// RenderChunk - кеш отрисовки одного чанка, клетка в клетку с его блоками
type RenderChunk struct {
	cfg    *world.WorldConfig
	key    vec.Vec2
	origin grid.Coordinate
	cells  []RenderBlock

	cameraAccessCounter int
}

// NewRenderChunk копирует атрибуты блоков чанка
func NewRenderChunk(cfg *world.WorldConfig, c *world.Chunk) *RenderChunk {
	rc := &RenderChunk{
		cfg:    cfg,
		key:    c.Key(),
		origin: c.Origin(),
		cells:  make([]RenderBlock, 0, cfg.BlocksPerChunk()),
	}
	c.ForEach(func(_ grid.Coordinate, b block.Block) {
		rc.cells = append(rc.cells, newRenderBlock(b, cfg.Blocks.Properties(b)))
	})
	return rc
}

// Key возвращает координаты чанка
func (rc *RenderChunk) Key() vec.Vec2 { return rc.key }

// Origin возвращает верхнюю левую клетку
func (rc *RenderChunk) Origin() grid.Coordinate { return rc.origin }

// Cell возвращает клетку по абсолютной координате
func (rc *RenderChunk) Cell(coord grid.Coordinate) (*RenderBlock, bool) {
	x := coord.X - rc.origin.X
	y := coord.Y - rc.origin.Y
	if x < 0 || x >= rc.cfg.BlocksX || y < 0 || y >= rc.cfg.BlocksY || coord.Z < 0 || coord.Z >= rc.cfg.BlocksZ {
		return nil, false
	}
	return &rc.cells[(coord.Z*rc.cfg.BlocksY+y)*rc.cfg.BlocksX+x], true
}

// ForEachCell обходит клетки по слоям снизу вверх
func (rc *RenderChunk) ForEachCell(fn func(coord grid.Coordinate, cell *RenderBlock)) {
	i := 0
	for z := 0; z < rc.cfg.BlocksZ; z++ {
		for y := 0; y < rc.cfg.BlocksY; y++ {
			for x := 0; x < rc.cfg.BlocksX; x++ {
				fn(grid.Coordinate{X: rc.origin.X + x, Y: rc.origin.Y + y, Z: z}, &rc.cells[i])
				i++
			}
		}
	}
}

// CellsCopy возвращает копию всех клеток
func (rc *RenderChunk) CellsCopy() []RenderBlock {
	out := make([]RenderBlock, len(rc.cells))
	copy(out, rc.cells)
	return out
}
