package world

import (
	"testing"
	"time"

	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/light"
	"github.com/annel0/voxelmap/internal/vec"
	"github.com/annel0/voxelmap/internal/world/block"
	"github.com/annel0/voxelmap/internal/world/block/implementations"
	"github.com/stretchr/testify/require"
)

// newTestConfig создаёт маленькие чанки 4x4x4 с пользовательскими блоками
func newTestConfig(t *testing.T) *WorldConfig {
	t.Helper()
	reg := block.NewRegistry(block.DefaultCustomThreshold)
	require.NoError(t, implementations.RegisterDefaults(reg))
	cfg, err := NewWorldConfig(4, 4, 4, grid.DefaultGeometry(), reg)
	require.NoError(t, err)
	return cfg
}

// pointInChunk возвращает точку внутри чанка
func pointInChunk(cfg *WorldConfig, key vec.Vec2) grid.Point {
	origin := cfg.ChunkOrigin(key)
	return cfg.Geometry.CoordinateToPoint(origin.Add(1, 1, 0))
}

// updateUntil крутит тики, пока условие не выполнится
func updateUntil(t *testing.T, m *Map, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		m.Update(0.01)
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("условие не выполнено за отведённое время")
}

func resident(m *Map, key vec.Vec2) func() bool {
	return func() bool {
		_, ok := m.GetChunk(key)
		return ok
	}
}

func residentCount(m *Map, n int) func() bool {
	return func() bool {
		return len(m.Chunks()) == n
	}
}

// recordingSink запоминает вклады освещения
type recordingSink struct {
	calls map[grid.Coordinate]light.Color
}

func (s *recordingSink) AddLightlevel(coord grid.Coordinate, side block.Side, color light.Color) {
	if s.calls == nil {
		s.calls = make(map[grid.Coordinate]light.Color)
	}
	s.calls[coord] = s.calls[coord].Max(color)
}

// recordingListener запоминает события чанков
type recordingListener struct {
	loaded   []vec.Vec2
	unloaded []vec.Vec2
	changed  []grid.Coordinate
}

func (l *recordingListener) ChunkLoaded(c *Chunk)       { l.loaded = append(l.loaded, c.Key()) }
func (l *recordingListener) ChunkUnloaded(key vec.Vec2) { l.unloaded = append(l.unloaded, key) }
func (l *recordingListener) ChunkChanged(c *Chunk, coord grid.Coordinate) {
	l.changed = append(l.changed, coord)
}
