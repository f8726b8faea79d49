package render

import (
	"sort"

	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/world"
	"github.com/annel0/voxelmap/internal/world/block"
)

// Renderable - то, что видит отрисовщик для одной клетки
type Renderable interface {
	Coordinate() grid.Coordinate
	SpriteID() block.BlockID
	SpriteValue() uint8
	LightLevelR(side block.Side, vertex int) float32
	LightLevelG(side block.Side, vertex int) float32
	LightLevelB(side block.Side, vertex int) float32
	ShouldBeRendered(cam *world.Camera) bool
	// Covered возвращает клетки, которые рисуются раньше этой
	Covered() []Renderable
}

// coveringSectors - соседи в слое, лежащие за клеткой
var coveringSectors = [...]grid.Sector{grid.SectorTopLeft, grid.SectorTop, grid.SectorTopRight}

type renderCell struct {
	*RenderBlock
	coord   grid.Coordinate
	storage *RenderStorage
}

// Renderable возвращает представление клетки для отрисовщика
func (s *RenderStorage) Renderable(coord grid.Coordinate) (Renderable, bool) {
	cell, ok := s.Cell(coord)
	if !ok {
		return nil, false
	}
	return renderCell{RenderBlock: cell, coord: coord, storage: s}, true
}

func (r renderCell) Coordinate() grid.Coordinate { return r.coord }

// ShouldBeRendered: клетка не пуста, ниже предела, видна хотя бы одна грань
// и центр попадает в обзор камеры с запасом в одну клетку
func (r renderCell) ShouldBeRendered(cam *world.Camera) bool {
	if r.IsEmpty() || r.coord.Z >= r.storage.zRenderLimit || r.IsFullyClipped() {
		return false
	}
	g := r.storage.cfg.Geometry
	return cam.CanSee(g.CoordinateToPoint(r.coord), g.DiagLength)
}

func (r renderCell) Covered() []Renderable {
	out := make([]Renderable, 0, len(coveringSectors)+1)
	if r.coord.Z > 0 {
		if c, ok := r.storage.Renderable(r.coord.Above(-1)); ok && !c.(renderCell).IsEmpty() {
			out = append(out, c)
		}
	}
	for _, sector := range coveringSectors {
		if c, ok := r.storage.Renderable(r.coord.Neighbour(sector)); ok && !c.(renderCell).IsEmpty() {
			out = append(out, c)
		}
	}
	return out
}

// CollectVisible возвращает видимые камерой клетки в порядке отрисовки:
// снизу вверх, в слое - сверху вниз по экрану
func (s *RenderStorage) CollectVisible(cam *world.Camera) []Renderable {
	var out []Renderable
	for _, key := range s.Chunks() {
		s.chunks[key].ForEachCell(func(coord grid.Coordinate, cell *RenderBlock) {
			r := renderCell{RenderBlock: cell, coord: coord, storage: s}
			if r.ShouldBeRendered(cam) {
				out = append(out, r)
			}
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Coordinate(), out[j].Coordinate()
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return out
}
