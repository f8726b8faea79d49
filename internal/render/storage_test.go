package render

import (
	"context"
	"testing"
	"time"

	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/light"
	"github.com/annel0/voxelmap/internal/vec"
	"github.com/annel0/voxelmap/internal/world"
	"github.com/annel0/voxelmap/internal/world/block"
	"github.com/annel0/voxelmap/internal/world/block/implementations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMetrics struct {
	rebuilds int
	rebaked  int
	chunks   int
}

func (m *countingMetrics) IncChunkRebuilds()     { m.rebuilds++ }
func (m *countingMetrics) AddRebakedCells(n int) { m.rebaked += n }
func (m *countingMetrics) SetRenderChunks(n int) { m.chunks = n }

func TestStreamingFollowsCamera(t *testing.T) {
	cfg := newTestConfig(t)
	src := newTestSource(cfg)
	metrics := &countingMetrics{}

	s := NewRenderStorage(cfg, src, Options{Metrics: metrics})
	cam := cameraAt(cfg, vec.Vec2{})
	s.AddCamera(cam)
	s.Update(0.01)

	assert.Len(t, s.Chunks(), 9)
	assert.Equal(t, 9, metrics.rebuilds)
	assert.Equal(t, 9, metrics.chunks)
	assert.Equal(t, uint64(9), s.Snapshot().Rebuilds)

	// Повторный тик не перестраивает кеши
	s.Update(0.01)
	assert.Equal(t, 9, metrics.rebuilds)

	// Камера ушла туда, где чанков нет: всё выгружено
	cam.SetPosition(cameraAt(cfg, vec.Vec2{X: 1}).Position())
	s.Update(0.01)
	assert.Len(t, s.Chunks(), 6, "остаются только чанки в окрестности новой позиции")

	cam.SetEnabled(false)
	s.Update(0.01)
	assert.Empty(t, s.Chunks())
	assert.Equal(t, 0, metrics.chunks)
}

func TestOnlyResidentChunksAreCached(t *testing.T) {
	cfg := newTestConfig(t)
	src := &fakeSource{chunks: map[vec.Vec2]*world.Chunk{
		{X: 0, Y: 0}: world.NewChunk(cfg, vec.Vec2{}),
	}}
	s := NewRenderStorage(cfg, src, Options{})
	s.AddCamera(cameraAt(cfg, vec.Vec2{}))
	s.Update(0.01)

	assert.Equal(t, []vec.Vec2{{X: 0, Y: 0}}, s.Chunks())

	s.ChunkUnloaded(vec.Vec2{})
	_, ok := s.GetChunk(vec.Vec2{})
	assert.False(t, ok)
}

func TestChunkChangedRebuildsCache(t *testing.T) {
	cfg := newTestConfig(t)
	src := newTestSource(cfg)
	c := grid.Coordinate{X: 3, Y: 4, Z: 0}
	src.set(t, cfg, c, stone())
	s := newTestStorage(t, cfg, src, 0)

	glow := light.FromFloat(0.3, 0.3, 0.3)
	s.AddLightlevel(c, block.SideTop, glow)

	chunk, _ := src.GetChunk(cfg.ChunkOf(c))
	src.set(t, cfg, c.Above(2), stone())
	s.ChunkChanged(chunk, c.Above(2))
	s.Update(0.01)

	assert.Equal(t, uint64(10), s.Snapshot().Rebuilds)
	assert.False(t, mustCell(t, s, c.Above(2)).IsEmpty())
	// Вклад пережил перестройку, тень пересчитана
	assert.Equal(t, light.Neutral.Add(glow).Scale(ShadowNear), mustCell(t, s, c).LightLevel(block.SideTop, 0))
}

func TestCollectVisibleOrder(t *testing.T) {
	cfg := newTestConfig(t)
	src := newTestSource(cfg)
	c := grid.Coordinate{X: 3, Y: 4, Z: 1}
	src.set(t, cfg, c, stone())
	src.set(t, cfg, c.Above(-1), stone())
	src.set(t, cfg, c.Neighbour(grid.SectorTop), stone())
	src.set(t, cfg, c.Neighbour(grid.SectorTopRight), block.New(block.GlassBlockID, 0))

	s := newTestStorage(t, cfg, src, 0)
	cam := cameraAt(cfg, vec.Vec2{})

	r, ok := s.Renderable(c)
	require.True(t, ok)
	assert.Equal(t, block.StoneBlockID, r.SpriteID())
	assert.Len(t, r.Covered(), 3, "клетка снизу и два соседа сзади")

	visible := s.CollectVisible(cam)
	require.Len(t, visible, 4)
	pos := make(map[grid.Coordinate]int)
	for i, v := range visible {
		pos[v.Coordinate()] = i
	}
	for _, cov := range r.Covered() {
		assert.Less(t, pos[cov.Coordinate()], pos[c], "%v рисуется раньше %v", cov.Coordinate(), c)
	}
}

func TestRenderFollowsMap(t *testing.T) {
	cfg := newTestConfig(t)
	m, err := world.NewMap(cfg, world.MapOptions{Generator: world.NewFlatGenerator(1), Workers: 2})
	require.NoError(t, err)
	defer m.Close(context.Background())

	s := NewRenderStorage(cfg, m, Options{})
	m.AddListener(s)
	m.SetLightSink(s)

	cam := cameraAt(cfg, vec.Vec2{})
	m.AddCamera(cam)
	s.AddCamera(cam)

	tick := func() {
		m.Update(0.01)
		s.Update(0.01)
	}
	deadline := time.Now().Add(5 * time.Second)
	for len(s.Chunks()) < 9 && time.Now().Before(deadline) {
		tick()
		time.Sleep(2 * time.Millisecond)
	}
	require.Len(t, s.Chunks(), 9)

	torch := grid.Coordinate{X: 3, Y: 4, Z: 1}
	ground := torch.Above(-1)
	require.NoError(t, m.SetBlock(torch, block.New(implementations.TorchBlockID, 0)))
	tick()

	lit := mustCell(t, s, ground).LightLevel(block.SideTop, 0)
	assert.Greater(t, lit.R(), light.Neutral.R(), "земля под факелом освещена")
	side := mustCell(t, s, ground.Neighbour(grid.SectorRight)).LightLevel(block.SideTop, 0)
	assert.Greater(t, side.R(), light.Neutral.R())
	assert.Less(t, side.R(), lit.R())

	require.NoError(t, m.SetBlock(torch, block.Block{}))
	tick()
	tick()
	assert.Equal(t, light.Neutral, mustCell(t, s, ground).LightLevel(block.SideTop, 0), "свет погас")
}
