package world

import (
	"testing"

	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/vec"
	"github.com/annel0/voxelmap/internal/world/block"
	"github.com/annel0/voxelmap/internal/world/block/implementations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkSetAndGetBlock(t *testing.T) {
	cfg := newTestConfig(t)
	c := NewChunk(cfg, vec.Vec2{X: -1, Y: 2})

	assert.Equal(t, grid.Coordinate{X: -4, Y: 8}, c.Origin())
	assert.False(t, c.IsModified())

	coord := grid.Coordinate{X: -2, Y: 9, Z: 3}
	require.NoError(t, c.SetBlock(coord, block.New(block.SandBlockID, 1)))
	assert.True(t, c.IsModified())
	assert.Equal(t, block.SandBlockID, c.GetBlock(coord).ID)
	assert.True(t, c.GetBlock(coord.Above(1)).IsEmpty(), "над чанком пусто")

	assert.ErrorIs(t, c.SetBlock(grid.Coordinate{X: 0, Y: 9, Z: 0}, block.New(1, 0)), ErrOutOfChunk)
	assert.ErrorIs(t, c.SetBlock(coord.Above(1), block.New(1, 0)), ErrOutOfChunk)
	assert.Panics(t, func() { c.GetBlock(grid.Coordinate{X: -2, Y: 9, Z: -1}) }, "отрицательный z обрабатывает карта")
}

func TestChunkLogicLifecycle(t *testing.T) {
	cfg := newTestConfig(t)
	c := NewChunk(cfg, vec.Vec2{})
	coord := grid.Coordinate{X: 1, Y: 1, Z: 1}

	require.NoError(t, c.SetBlock(coord, block.New(implementations.TorchBlockID, 0)))
	logic, ok := c.Logic(coord)
	require.True(t, ok, "факел создаёт логику")
	assert.Equal(t, coord, logic.Coordinate())

	require.NoError(t, c.SetBlock(coord, block.New(block.StoneBlockID, 0)))
	_, ok = c.Logic(coord)
	assert.False(t, ok, "логика заменённого блока удалена")
	assert.Empty(t, c.Logics())
}

func TestChunkGenerate(t *testing.T) {
	cfg := newTestConfig(t)
	c := NewChunk(cfg, vec.Vec2{X: 3})

	entities := c.Generate(NewFlatGenerator(2))
	assert.Empty(t, entities)
	assert.False(t, c.IsModified(), "сгенерированный чанк не требует сохранения")
	assert.Equal(t, cfg.BlocksX*cfg.BlocksY*2, c.CountBlocks())
	assert.Equal(t, block.GrassBlockID, c.GetBlock(c.Origin().Above(1)).ID)
	assert.Equal(t, block.DirtBlockID, c.GetBlock(c.Origin()).ID)
	assert.True(t, c.IsLayerEmpty(2))
}

func TestWorldConfigValidate(t *testing.T) {
	_, err := NewWorldConfig(4, 5, 4, grid.DefaultGeometry(), nil)
	assert.ErrorIs(t, err, ErrInvalidDimensions, "нечётная длина чанка")

	_, err = NewWorldConfig(0, 4, 4, grid.DefaultGeometry(), nil)
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = NewWorldConfig(4, 4, 4, grid.Geometry{EdgeLength: 10, DiagLength: 11}, nil)
	assert.ErrorIs(t, err, grid.ErrInvalidGeometry)
}

func TestGenerators(t *testing.T) {
	cfg := newTestConfig(t)

	a := NewPerlinGenerator(99, cfg)
	b := NewPerlinGenerator(99, cfg)
	for x := -10; x < 10; x++ {
		for y := -10; y < 10; y++ {
			require.Equal(t, a.Height(x, y), b.Height(x, y))
			assert.Equal(t, block.BedrockBlockID, a.Generate(x, y, 0).ID, "нижний слой - бедрок")
			for z := 0; z < cfg.BlocksZ; z++ {
				assert.Equal(t, a.Generate(x, y, z), b.Generate(x, y, z))
				ea, eb := a.SpawnEntities(x, y, z), b.SpawnEntities(x, y, z)
				require.Equal(t, len(ea), len(eb))
				for i := range ea {
					assert.Equal(t, ea[i].ID(), eb[i].ID(), "ID сущностей детерминированы")
				}
			}
		}
	}

	assert.True(t, AirGenerator{}.Generate(0, 0, 0).IsEmpty())
}
