package render

import (
	"testing"

	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/vec"
	"github.com/annel0/voxelmap/internal/world"
	"github.com/annel0/voxelmap/internal/world/block"
	"github.com/annel0/voxelmap/internal/world/block/implementations"
	"github.com/stretchr/testify/require"
)

// fakeSource - набор заранее созданных чанков
type fakeSource struct {
	chunks map[vec.Vec2]*world.Chunk
}

func (f *fakeSource) GetChunk(key vec.Vec2) (*world.Chunk, bool) {
	c, ok := f.chunks[key]
	return c, ok
}

func newTestConfig(t *testing.T) *world.WorldConfig {
	t.Helper()
	reg := block.NewRegistry(block.DefaultCustomThreshold)
	require.NoError(t, implementations.RegisterDefaults(reg))
	cfg, err := world.NewWorldConfig(8, 8, 6, grid.DefaultGeometry(), reg)
	require.NoError(t, err)
	return cfg
}

// newTestSource создаёт пустые чанки вокруг (0, 0)
func newTestSource(cfg *world.WorldConfig) *fakeSource {
	src := &fakeSource{chunks: make(map[vec.Vec2]*world.Chunk)}
	for _, key := range (vec.Vec2{}).Neighbourhood() {
		src.chunks[key] = world.NewChunk(cfg, key)
	}
	return src
}

func (f *fakeSource) set(t *testing.T, cfg *world.WorldConfig, coord grid.Coordinate, b block.Block) {
	t.Helper()
	c, ok := f.chunks[cfg.ChunkOf(coord)]
	require.True(t, ok, "чанк для %v не создан", coord)
	require.NoError(t, c.SetBlock(coord, b))
}

func stone() block.Block { return block.New(block.StoneBlockID, 0) }

// cameraAt возвращает камеру над чанком
func cameraAt(cfg *world.WorldConfig, key vec.Vec2) *world.Camera {
	p := cfg.Geometry.CoordinateToPoint(cfg.ChunkOrigin(key).Add(1, 1, 0))
	return world.NewCamera(p, 2000, 2000)
}

// newTestStorage строит кеш чанков вокруг (0, 0) за один тик
func newTestStorage(t *testing.T, cfg *world.WorldConfig, src *fakeSource, limit int) *RenderStorage {
	t.Helper()
	s := NewRenderStorage(cfg, src, Options{ZRenderLimit: limit})
	s.AddCamera(cameraAt(cfg, vec.Vec2{}))
	s.Update(0.01)
	require.Len(t, s.Chunks(), 9)
	return s
}

func mustCell(t *testing.T, s *RenderStorage, coord grid.Coordinate) *RenderBlock {
	t.Helper()
	cell, ok := s.Cell(coord)
	require.True(t, ok, "клетка %v не найдена", coord)
	return cell
}
