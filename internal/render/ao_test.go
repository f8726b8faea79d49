package render

import (
	"testing"

	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/world/block"
	"github.com/stretchr/testify/assert"
)

func TestAmbientOcclusionBits(t *testing.T) {
	cfg := newTestConfig(t)
	src := newTestSource(cfg)

	c := grid.Coordinate{X: 3, Y: 4, Z: 1}
	src.set(t, cfg, c, stone())
	src.set(t, cfg, c.Above(1).Neighbour(grid.SectorTop), stone())
	src.set(t, cfg, c.Neighbour(grid.SectorBottomLeft).Above(-1), stone())

	s := newTestStorage(t, cfg, src, 0)
	cell := mustCell(t, s, c)

	assert.True(t, cell.HasAO(block.SideTop, 0), "сосед сверху над верхней гранью")
	assert.False(t, cell.HasAO(block.SideTop, 4))
	assert.Equal(t, uint8(1), cell.AO(block.SideTop))
	assert.True(t, cell.HasAO(block.SideLeft, 4), "блок под левым соседом")
	assert.False(t, cell.HasAO(block.SideRight, 0))
}

func TestAmbientOcclusionGround(t *testing.T) {
	cfg := newTestConfig(t)
	src := newTestSource(cfg)

	c := grid.Coordinate{X: 6, Y: 2, Z: 0}
	src.set(t, cfg, c, stone())
	s := newTestStorage(t, cfg, src, 0)
	cell := mustCell(t, s, c)

	// Ниже нулевого слоя - грунт: нижние направления боковых граней заняты
	for _, side := range []block.Side{block.SideLeft, block.SideRight} {
		assert.True(t, cell.HasAO(side, 3), "грань %v", side)
		assert.True(t, cell.HasAO(side, 4), "грань %v", side)
		assert.True(t, cell.HasAO(side, 5), "грань %v", side)
		assert.False(t, cell.HasAO(side, 0), "грань %v", side)
	}
	assert.Equal(t, uint8(0), cell.AO(block.SideTop))
}

func TestAmbientOcclusionIgnoresTransparent(t *testing.T) {
	cfg := newTestConfig(t)
	src := newTestSource(cfg)

	c := grid.Coordinate{X: 3, Y: 4, Z: 1}
	src.set(t, cfg, c, stone())
	src.set(t, cfg, c.Above(1).Neighbour(grid.SectorRight), block.New(block.GlassBlockID, 0))
	s := newTestStorage(t, cfg, src, 0)

	assert.False(t, mustCell(t, s, c).HasAO(block.SideTop, int(grid.SectorRight)))
}
