package world

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/storage"
	"github.com/annel0/voxelmap/internal/vec"
	"github.com/annel0/voxelmap/internal/world/block"
	"github.com/annel0/voxelmap/internal/world/block/implementations"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMap(t *testing.T, cfg *WorldConfig, opts MapOptions) *Map {
	t.Helper()
	if opts.Workers == 0 {
		opts.Workers = 2
	}
	m, err := NewMap(cfg, opts)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close(context.Background()) })
	return m
}

func TestEvictionWithTwoCameras(t *testing.T) {
	cfg := newTestConfig(t)
	m := newTestMap(t, cfg, MapOptions{Generator: NewFlatGenerator(1)})
	listener := &recordingListener{}
	m.AddListener(listener)

	origin := vec.Vec2{}
	camA := NewCamera(pointInChunk(cfg, origin), 100, 100)
	camB := NewCamera(pointInChunk(cfg, vec.Vec2{X: 1, Y: 1}), 100, 100)
	m.AddCamera(camA)
	m.AddCamera(camB)

	updateUntil(t, m, resident(m, origin))

	// A уходит, B всё ещё покрывает (0,0)
	camA.SetPosition(pointInChunk(cfg, vec.Vec2{X: 10, Y: 10}))
	m.Update(0.01)
	_, ok := m.GetChunk(origin)
	assert.True(t, ok, "чанк нужен камере B и не должен выгружаться")

	// Обе камеры ушли
	camB.SetPosition(pointInChunk(cfg, vec.Vec2{X: 10, Y: 10}))
	m.Update(0.01)
	_, ok = m.GetChunk(origin)
	assert.False(t, ok, "чанк выгружен на следующем проходе")
	assert.Contains(t, listener.unloaded, origin)
	assert.Contains(t, listener.loaded, origin)
}

func TestDisabledCameraDoesNotHoldChunks(t *testing.T) {
	cfg := newTestConfig(t)
	m := newTestMap(t, cfg, MapOptions{})
	cam := NewCamera(pointInChunk(cfg, vec.Vec2{}), 100, 100)
	m.AddCamera(cam)

	updateUntil(t, m, residentCount(m, 9))

	cam.SetEnabled(false)
	m.Update(0.01)
	assert.Empty(t, m.Chunks())
}

// gatedStorage задерживает чтение до открытия ворот и считает обращения
type gatedStorage struct {
	storage.ChunkStorage
	gate  chan struct{}
	mu    sync.Mutex
	loads map[vec.Vec2]int
}

func (s *gatedStorage) LoadChunk(ctx context.Context, slot int, key vec.Vec2) ([]byte, error) {
	s.mu.Lock()
	s.loads[key]++
	s.mu.Unlock()

	select {
	case <-s.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.ChunkStorage.LoadChunk(ctx, slot, key)
}

func (s *gatedStorage) count(key vec.Vec2) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads[key]
}

func TestAtMostOneLoadInFlight(t *testing.T) {
	cfg := newTestConfig(t)
	files, err := storage.NewFileStorage(t.TempDir(), "chk")
	require.NoError(t, err)
	st := &gatedStorage{ChunkStorage: files, gate: make(chan struct{}), loads: make(map[vec.Vec2]int)}

	m := newTestMap(t, cfg, MapOptions{Storage: st, Workers: 4})
	key := vec.Vec2{X: 2, Y: 3}

	assert.True(t, m.RequestChunk(key), "первый запрос ставит загрузку")
	assert.False(t, m.RequestChunk(key), "повторный запрос не создаёт вторую загрузку")
	assert.True(t, m.IsLoading(key))

	close(st.gate)
	updateUntil(t, m, resident(m, key))

	assert.False(t, m.RequestChunk(key), "загруженный чанк не запрашивается")
	assert.Equal(t, 1, st.count(key), "ровно одна фоновая загрузка")
	assert.Equal(t, uint64(1), m.Snapshot().Loaded, "ровно одно слияние")
}

func TestResidentChunksNeverOverlap(t *testing.T) {
	cfg := newTestConfig(t)
	m := newTestMap(t, cfg, MapOptions{Generator: NewFlatGenerator(1)})

	centers := []vec.Vec2{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: -5, Y: -5}}
	for _, c := range centers {
		m.AddCamera(NewCamera(pointInChunk(cfg, c), 100, 100))
	}
	updateUntil(t, m, residentCount(m, 27))

	chunks := m.Chunks()
	for i, a := range chunks {
		a.ForEach(func(coord grid.Coordinate, _ block.Block) {
			require.Equal(t, a.Key(), cfg.ChunkOf(coord))
		})
		for _, b := range chunks[i+1:] {
			overlapX := a.Origin().X < b.Origin().X+cfg.BlocksX && b.Origin().X < a.Origin().X+cfg.BlocksX
			overlapY := a.Origin().Y < b.Origin().Y+cfg.BlocksY && b.Origin().Y < a.Origin().Y+cfg.BlocksY
			assert.False(t, overlapX && overlapY, "чанки %s и %s пересекаются", a.Key(), b.Key())
		}
	}
}

func TestCorruptChunkFallsBackToGeneration(t *testing.T) {
	cfg := newTestConfig(t)
	files, err := storage.NewFileStorage(t.TempDir(), "chk")
	require.NoError(t, err)

	key := vec.Vec2{}
	require.NoError(t, os.MkdirAll(files.Root()+"/save0", 0755))
	require.NoError(t, os.WriteFile(files.ChunkPath(0, key), []byte("not a chunk"), 0644))

	m := newTestMap(t, cfg, MapOptions{Storage: files, Generator: NewFlatGenerator(2)})
	require.True(t, m.RequestChunk(key))
	updateUntil(t, m, resident(m, key))

	assert.Equal(t, block.GrassBlockID, m.GetBlock(grid.Coordinate{X: 1, Y: 1, Z: 1}).ID, "чанк сгенерирован")
	assert.Equal(t, uint64(1), m.Snapshot().Generated)
}

func TestTemplateIsRestoredIntoSlot(t *testing.T) {
	cfg := newTestConfig(t)
	files, err := storage.NewFileStorage(t.TempDir(), "chk")
	require.NoError(t, err)

	key := vec.Vec2{X: 1}
	template := NewChunk(cfg, key)
	require.NoError(t, template.SetBlock(template.Origin(), block.New(block.ConcreteBlockID, 0)))
	data, err := EncodeChunk(template, nil)
	require.NoError(t, err)
	require.NoError(t, files.SaveTemplate(context.Background(), key, data))

	m := newTestMap(t, cfg, MapOptions{Storage: files, SaveSlot: 2, Generator: NewFlatGenerator(3)})
	require.True(t, m.RequestChunk(key))
	updateUntil(t, m, resident(m, key))

	assert.Equal(t, block.ConcreteBlockID, m.GetBlock(template.Origin()).ID)
	_, err = os.Stat(files.ChunkPath(2, key))
	assert.NoError(t, err, "шаблон скопирован в слот")
	assert.Zero(t, m.Snapshot().Generated)
}

func TestSaveOnCloseAndReload(t *testing.T) {
	cfg := newTestConfig(t)
	st, err := storage.NewBadgerStorage(storage.BadgerOptions{InMemory: true, Compress: true})
	require.NoError(t, err)
	defer st.Close()

	key := vec.Vec2{}
	coord := grid.Coordinate{X: 2, Y: 1, Z: 3}
	propID := uuid.New()

	first, err := NewMap(cfg, MapOptions{Storage: st, Generator: NewFlatGenerator(1), SaveOnEvict: true, Workers: 1})
	require.NoError(t, err)
	first.AddCamera(NewCamera(pointInChunk(cfg, key), 100, 100))
	updateUntil(t, first, resident(first, key))

	require.NoError(t, first.SetBlock(coord, block.New(block.GlassBlockID, 0)))
	first.AddEntity(NewProp(propID, cfg.Geometry.CoordinateToPoint(coord), 3, 1, true))
	first.AddEntity(NewProp(uuid.New(), cfg.Geometry.CoordinateToPoint(coord), 3, 1, false))
	require.NoError(t, first.Close(context.Background()))

	second := newTestMap(t, cfg, MapOptions{Storage: st, Generator: AirGenerator{}})
	require.True(t, second.RequestChunk(key))
	updateUntil(t, second, resident(second, key))

	assert.Equal(t, block.GlassBlockID, second.GetBlock(coord).ID, "изменение сохранено")
	assert.Equal(t, block.GrassBlockID, second.GetBlock(grid.Coordinate{X: 0, Y: 0, Z: 0}).ID, "сгенерированные блоки тоже сохранены")
	require.Len(t, second.Entities(), 1, "временная сущность не сохраняется")
	assert.Equal(t, propID, second.Entities()[0].ID())
}

func TestEvictionSavesModifiedChunkAndDropsEntities(t *testing.T) {
	cfg := newTestConfig(t)
	files, err := storage.NewFileStorage(t.TempDir(), "chk")
	require.NoError(t, err)

	m := newTestMap(t, cfg, MapOptions{Storage: files, SaveOnEvict: true})
	key := vec.Vec2{}
	cam := NewCamera(pointInChunk(cfg, key), 100, 100)
	m.AddCamera(cam)
	updateUntil(t, m, resident(m, key))

	coord := grid.Coordinate{X: 1, Y: 2, Z: 0}
	require.NoError(t, m.SetBlock(coord, block.New(block.StoneBlockID, 0)))
	m.AddEntity(NewProp(uuid.New(), cfg.Geometry.CoordinateToPoint(coord), 1, 0, true))

	cam.SetPosition(pointInChunk(cfg, vec.Vec2{X: 20}))
	m.Update(0.01)

	_, ok := m.GetChunk(key)
	require.False(t, ok)
	assert.Empty(t, m.Entities(), "сущности выгруженного чанка удалены")
	_, err = os.Stat(files.ChunkPath(0, key))
	assert.NoError(t, err, "изменённый чанк сохранён при выгрузке")
}

func TestSavedEntityMarksChunkModified(t *testing.T) {
	cfg := newTestConfig(t)
	files, err := storage.NewFileStorage(t.TempDir(), "chk")
	require.NoError(t, err)

	m := newTestMap(t, cfg, MapOptions{Storage: files, Generator: NewFlatGenerator(1)})
	key := vec.Vec2{}
	m.AddCamera(NewCamera(pointInChunk(cfg, key), 100, 100))
	updateUntil(t, m, resident(m, key))

	c, _ := m.GetChunk(key)
	require.False(t, c.IsModified())

	pos := cfg.Geometry.CoordinateToPoint(grid.Coordinate{X: 1, Y: 1, Z: 1})
	m.AddEntity(NewProp(uuid.New(), pos, 2, 0, false))
	assert.False(t, c.IsModified(), "временная сущность не требует сохранения")

	propID := uuid.New()
	m.AddEntity(NewProp(propID, pos, 2, 0, true))
	assert.True(t, c.IsModified(), "сохраняемая сущность помечает чанк")

	require.NoError(t, m.Save(context.Background()))
	data, err := files.LoadChunk(context.Background(), 0, key)
	require.NoError(t, err, "чанк без правок блоков записан ради сущности")
	decoded, err := DecodeChunk(cfg, key, data)
	require.NoError(t, err)
	require.Len(t, decoded.Entities, 1)
	assert.Equal(t, propID, decoded.Entities[0].ID())

	assert.True(t, m.RemoveEntity(propID))
	assert.True(t, c.IsModified(), "удаление сохраняемой сущности тоже требует записи")
}

func TestSavedEntitySurvivesEviction(t *testing.T) {
	cfg := newTestConfig(t)
	files, err := storage.NewFileStorage(t.TempDir(), "chk")
	require.NoError(t, err)

	m := newTestMap(t, cfg, MapOptions{Storage: files, Generator: NewFlatGenerator(1), SaveOnEvict: true})
	key := vec.Vec2{}
	cam := NewCamera(pointInChunk(cfg, key), 100, 100)
	m.AddCamera(cam)
	updateUntil(t, m, resident(m, key))

	propID := uuid.New()
	m.AddEntity(NewProp(propID, cfg.Geometry.CoordinateToPoint(grid.Coordinate{X: 2, Y: 2, Z: 1}), 2, 0, true))

	cam.SetPosition(pointInChunk(cfg, vec.Vec2{X: 20}))
	m.Update(0.01)
	_, ok := m.GetChunk(key)
	require.False(t, ok)
	require.Empty(t, m.Entities())

	cam.SetPosition(pointInChunk(cfg, key))
	updateUntil(t, m, resident(m, key))
	require.Len(t, m.Entities(), 1, "сущность вернулась вместе с чанком")
	assert.Equal(t, propID, m.Entities()[0].ID())
}

func TestMapBlockAccess(t *testing.T) {
	cfg := newTestConfig(t)
	m := newTestMap(t, cfg, MapOptions{Generator: NewFlatGenerator(2)})
	listener := &recordingListener{}
	m.AddListener(listener)

	assert.Equal(t, cfg.GroundBlock, m.GetBlock(grid.Coordinate{X: 100, Y: 100, Z: -1}), "ниже нуля - грунт")
	assert.True(t, m.GetBlock(grid.Coordinate{X: 100, Y: 100, Z: 1}).IsEmpty(), "незагруженный чанк пуст")
	assert.ErrorIs(t, m.SetBlock(grid.Coordinate{X: 100, Y: 100}, block.New(1, 0)), ErrChunkNotResident)

	m.AddCamera(NewCamera(pointInChunk(cfg, vec.Vec2{}), 100, 100))
	updateUntil(t, m, resident(m, vec.Vec2{}))

	coord := grid.Coordinate{X: 1, Y: 1, Z: 1}
	destroyed, err := m.DamageBlock(coord, 60)
	require.NoError(t, err)
	assert.False(t, destroyed)
	assert.Equal(t, uint8(40), m.GetBlock(coord).Health)

	destroyed, err = m.DamageBlock(coord, 60)
	require.NoError(t, err)
	assert.True(t, destroyed)
	assert.True(t, m.GetBlock(coord).IsEmpty())
	assert.Equal(t, []grid.Coordinate{coord, coord}, listener.changed)

	destroyed, err = m.DamageBlock(grid.Coordinate{X: 1, Y: 1, Z: -1}, 200)
	require.NoError(t, err, "грунт не разрушается, но и не ошибка")
	assert.False(t, destroyed)
	assert.Len(t, listener.changed, 2)

	assert.Equal(t, block.GrassBlockID, m.GetBlockAt(cfg.Geometry.CoordinateToPoint(grid.Coordinate{X: 2, Y: 2, Z: 1})).ID)
}

func TestBlockLogicRunsOnUpdate(t *testing.T) {
	cfg := newTestConfig(t)
	m := newTestMap(t, cfg, MapOptions{Generator: NewFlatGenerator(1)})
	sink := &recordingSink{}
	m.SetLightSink(sink)
	m.AddCamera(NewCamera(pointInChunk(cfg, vec.Vec2{}), 100, 100))
	updateUntil(t, m, resident(m, vec.Vec2{}))

	torch := grid.Coordinate{X: 1, Y: 2, Z: 1}
	barrel := grid.Coordinate{X: 2, Y: 2, Z: 1}
	require.NoError(t, m.SetBlock(torch, block.New(implementations.TorchBlockID, 0)))
	require.NoError(t, m.SetBlock(barrel, block.New(implementations.BarrelBlockID, 1)))

	m.Update(1)
	assert.Contains(t, sink.calls, torch.Above(-1), "факел освещает клетку под собой")
	assert.False(t, m.GetBlock(barrel).IsEmpty())

	for i := 0; i < 3; i++ {
		m.Update(1)
	}
	assert.True(t, m.GetBlock(barrel).IsEmpty(), "бочка исчезла по окончании фитиля")
}

func TestPathGraph(t *testing.T) {
	cfg := newTestConfig(t)
	m := newTestMap(t, cfg, MapOptions{Generator: NewFlatGenerator(1)})
	m.AddCamera(NewCamera(pointInChunk(cfg, vec.Vec2{}), 100, 100))
	updateUntil(t, m, residentCount(m, 9))

	g := m.Graph()
	c := grid.Coordinate{X: 1, Y: 2, Z: 1}
	assert.True(t, g.Passable(c))
	assert.Len(t, g.Neighbours(c), 8, "на ровной поверхности проходимы все соседи")

	require.NoError(t, m.SetBlock(c.Neighbour(grid.SectorRight), block.New(block.StoneBlockID, 0)))
	assert.NotContains(t, g.Neighbours(c), c.Neighbour(grid.SectorRight))
	assert.False(t, g.Passable(c.Above(1)), "над пустотой стоять нельзя")

	assert.InDelta(t, float64(cfg.Geometry.DiagLength), g.Cost(c, c.Neighbour(grid.SectorRight)), 1e-6)
}
