package render

import (
	"sort"
	"sync/atomic"

	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/light"
	"github.com/annel0/voxelmap/internal/logging"
	"github.com/annel0/voxelmap/internal/vec"
	"github.com/annel0/voxelmap/internal/world"
	"github.com/annel0/voxelmap/internal/world/block"
)

// Уровни падающей тени на верхней грани
const (
	ShadowNear float32 = 0.8 // Закрыто через одну клетку
	ShadowFar  float32 = 0.9 // Закрыто через две клетки
)

// ChunkSource отдаёт загруженные чанки карты
type ChunkSource interface {
	GetChunk(key vec.Vec2) (*world.Chunk, bool)
}

// RenderMetrics принимает статистику кеша отрисовки
type RenderMetrics interface {
	IncChunkRebuilds()
	AddRebakedCells(n int)
	SetRenderChunks(n int)
}

// Options задаёт параметры RenderStorage
type Options struct {
	ZRenderLimit int          // Клетки с z >= предела не отрисовываются; 0 - высота чанка
	AO           AOCalculator // nil - DefaultAOCalculator
	Metrics      RenderMetrics
}

// RenderStorage держит кеши отрисовки вокруг камер и пересчитывает
// скрытые грани, затенение и освещение. Работает в потоке обновления,
// кроме Snapshot.
type RenderStorage struct {
	cfg          *world.WorldConfig
	source       ChunkSource
	zRenderLimit int
	ao           AOCalculator
	metrics      RenderMetrics
	logger       *logging.Logger

	chunks  map[vec.Vec2]*RenderChunk
	cameras []*world.Camera

	dirty       map[grid.Coordinate]struct{}
	litLastTick map[grid.Coordinate]struct{}
	changed     map[vec.Vec2]struct{}
	reclip      map[vec.Vec2]struct{}
	reshade     bool // Предел изменился: тени всех клеток пересчитываются

	rebuilds uint64
	rebaked  uint64
	tick     uint64
	snapshot atomic.Value // Snapshot
}

// NewRenderStorage создаёт кеш отрисовки поверх источника чанков
func NewRenderStorage(cfg *world.WorldConfig, source ChunkSource, opts Options) *RenderStorage {
	limit := opts.ZRenderLimit
	if limit <= 0 || limit > cfg.BlocksZ {
		limit = cfg.BlocksZ
	}
	ao := opts.AO
	if ao == nil {
		ao = DefaultAOCalculator{}
	}
	s := &RenderStorage{
		cfg:          cfg,
		source:       source,
		zRenderLimit: limit,
		ao:           ao,
		metrics:      opts.Metrics,
		logger:       logging.GetRenderLogger(),
		chunks:       make(map[vec.Vec2]*RenderChunk),
		dirty:        make(map[grid.Coordinate]struct{}),
		litLastTick:  make(map[grid.Coordinate]struct{}),
		changed:      make(map[vec.Vec2]struct{}),
		reclip:       make(map[vec.Vec2]struct{}),
	}
	s.publishSnapshot()
	return s
}

// ZRenderLimit возвращает предел отрисовки по высоте
func (s *RenderStorage) ZRenderLimit() int {
	return s.zRenderLimit
}

// SetZRenderLimit меняет предел; грани и тени всех чанков пересчитываются
// на следующем тике
func (s *RenderStorage) SetZRenderLimit(limit int) {
	if limit <= 0 || limit > s.cfg.BlocksZ {
		limit = s.cfg.BlocksZ
	}
	if limit == s.zRenderLimit {
		return
	}
	s.zRenderLimit = limit
	s.reshade = true
	for key := range s.chunks {
		s.reclip[key] = struct{}{}
	}
}

// AddCamera регистрирует камеру
func (s *RenderStorage) AddCamera(c *world.Camera) {
	s.cameras = append(s.cameras, c)
}

// RemoveCamera убирает камеру
func (s *RenderStorage) RemoveCamera(c *world.Camera) {
	for i, cam := range s.cameras {
		if cam == c {
			s.cameras = append(s.cameras[:i], s.cameras[i+1:]...)
			return
		}
	}
}

// Update выполняет тик: освещение грязных клеток, перестройка изменённых
// чанков, подгрузка вокруг камер, затем пересчёт скрытых граней и AO
func (s *RenderStorage) Update(dt float32) {
	s.tick++
	s.rebakeDirty()
	s.reshadeAll()
	s.rebuildChanged()
	s.stream()
	s.clipPending()

	if s.metrics != nil {
		s.metrics.SetRenderChunks(len(s.chunks))
	}
	s.publishSnapshot()
}

// rebakeDirty пересчитывает освещение только отмеченных клеток.
// Клетки, освещённые в прошлом тике, пересчитываются снова, чтобы
// исчезнувший свет погас.
func (s *RenderStorage) rebakeDirty() {
	for coord := range s.litLastTick {
		s.dirty[coord] = struct{}{}
	}
	lit := make(map[grid.Coordinate]struct{})

	n := 0
	for coord := range s.dirty {
		cell, ok := s.Cell(coord)
		if !ok {
			continue
		}
		if cell.hasPending() {
			lit[coord] = struct{}{}
		}
		cell.bake(s.dropShadow(coord))
		n++
	}

	s.dirty = make(map[grid.Coordinate]struct{})
	s.litLastTick = lit
	s.rebaked += uint64(n)
	if s.metrics != nil && n > 0 {
		s.metrics.AddRebakedCells(n)
	}
}

// reshadeAll заново накладывает тень на все клетки после смены предела.
// Накопленный свет не меняется.
func (s *RenderStorage) reshadeAll() {
	if !s.reshade {
		return
	}
	s.reshade = false
	for _, rc := range s.chunks {
		rc.ForEachCell(func(coord grid.Coordinate, cell *RenderBlock) {
			if !cell.IsEmpty() {
				cell.apply(s.dropShadow(coord))
			}
		})
	}
}

// dropShadow возвращает множитель верхней грани: закрытая клетка через одну
// или через две прозрачные клетки над ней даёт тень
func (s *RenderStorage) dropShadow(coord grid.Coordinate) float32 {
	if s.hidesAt(coord.Above(1)) {
		return 1
	}
	if s.hidesAt(coord.Above(2)) {
		return ShadowNear
	}
	if s.hidesAt(coord.Above(3)) {
		return ShadowFar
	}
	return 1
}

// hidesAt возвращает true, если клетка отрисовывается и закрывает соседей
func (s *RenderStorage) hidesAt(coord grid.Coordinate) bool {
	if coord.Z >= s.zRenderLimit {
		return false
	}
	cell, ok := s.Cell(coord)
	return ok && cell.Hides()
}

// Occludes реализует Occluder: грунт ниже нуля тоже затеняет
func (s *RenderStorage) Occludes(coord grid.Coordinate) bool {
	if coord.Z < 0 {
		return true
	}
	return s.hidesAt(coord)
}

// rebuildChanged строит кеши изменённых чанков заново. Применённые вклады
// освещения переносятся в новый кеш, тень считается по новым блокам.
func (s *RenderStorage) rebuildChanged() {
	for key := range s.changed {
		old, ok := s.chunks[key]
		if !ok {
			continue
		}
		chunk, resident := s.source.GetChunk(key)
		if !resident {
			s.drop(key)
			continue
		}
		rc := s.build(chunk, old)
		rc.cameraAccessCounter = old.cameraAccessCounter
	}
	s.changed = make(map[vec.Vec2]struct{})
}

// stream держит кеши для окрестности 3x3 каждой включённой камеры
func (s *RenderStorage) stream() {
	for _, rc := range s.chunks {
		rc.cameraAccessCounter = 0
	}
	for _, cam := range s.cameras {
		if !cam.Enabled() {
			continue
		}
		center := s.cfg.ChunkOfPoint(cam.Position())
		for _, key := range center.Neighbourhood() {
			rc, ok := s.chunks[key]
			if !ok {
				chunk, resident := s.source.GetChunk(key)
				if !resident {
					continue
				}
				rc = s.build(chunk, nil)
			}
			rc.cameraAccessCounter++
		}
	}
	for key, rc := range s.chunks {
		if rc.cameraAccessCounter <= 0 {
			s.drop(key)
		}
	}
}

// build создаёт кеш чанка с начальным освещением. Если задан prev,
// из него переносятся применённые вклады освещения.
func (s *RenderStorage) build(c *world.Chunk, prev *RenderChunk) *RenderChunk {
	rc := NewRenderChunk(s.cfg, c)
	if prev != nil {
		for i := range prev.cells {
			rc.cells[i].applied = prev.cells[i].applied
		}
	}
	s.chunks[rc.key] = rc

	rc.ForEachCell(func(coord grid.Coordinate, cell *RenderBlock) {
		if !cell.IsEmpty() {
			cell.apply(s.dropShadow(coord))
		}
	})

	s.markNeighbourhood(rc.key)
	s.rebuilds++
	if s.metrics != nil {
		s.metrics.IncChunkRebuilds()
	}
	s.logger.Debug("Построен кеш отрисовки чанка %s", rc.key)
	return rc
}

func (s *RenderStorage) drop(key vec.Vec2) {
	if _, ok := s.chunks[key]; !ok {
		return
	}
	delete(s.chunks, key)
	delete(s.reclip, key)
	for _, n := range key.Neighbourhood() {
		if _, ok := s.chunks[n]; ok {
			s.reclip[n] = struct{}{}
		}
	}
}

// markNeighbourhood отмечает чанк и его соседей для пересчёта скрытых граней
func (s *RenderStorage) markNeighbourhood(key vec.Vec2) {
	for _, n := range key.Neighbourhood() {
		if _, ok := s.chunks[n]; ok {
			s.reclip[n] = struct{}{}
		}
	}
}

// clipPending пересчитывает скрытые грани и AO отмеченных чанков
func (s *RenderStorage) clipPending() {
	for key := range s.reclip {
		rc, ok := s.chunks[key]
		if !ok {
			continue
		}
		DetectHiddenSurfaces(rc, s, s.zRenderLimit)
		s.ao.CalculateAO(rc, s, s.zRenderLimit)
	}
	s.reclip = make(map[vec.Vec2]struct{})
}

// Cell возвращает клетку отрисовки по абсолютной координате
func (s *RenderStorage) Cell(coord grid.Coordinate) (*RenderBlock, bool) {
	rc, ok := s.chunks[s.cfg.ChunkOf(coord)]
	if !ok {
		return nil, false
	}
	return rc.Cell(coord)
}

// GetChunk возвращает кеш чанка
func (s *RenderStorage) GetChunk(key vec.Vec2) (*RenderChunk, bool) {
	rc, ok := s.chunks[key]
	return rc, ok
}

// MarkDirty ставит клетку в очередь пересчёта освещения
func (s *RenderStorage) MarkDirty(coord grid.Coordinate) {
	s.dirty[coord] = struct{}{}
}

// AddLightlevel принимает вклад освещения грани клетки и отмечает её грязной.
// Повторные вызовы в одном тике объединяются по максимуму.
func (s *RenderStorage) AddLightlevel(coord grid.Coordinate, side block.Side, color light.Color) {
	cell, ok := s.Cell(coord)
	if !ok {
		return
	}
	cell.addPending(side, color)
	s.dirty[coord] = struct{}{}
}

// ChunkLoaded ничего не делает: кеш строится в проходе камер
func (s *RenderStorage) ChunkLoaded(c *world.Chunk) {}

// ChunkUnloaded удаляет кеш выгруженного чанка
func (s *RenderStorage) ChunkUnloaded(key vec.Vec2) {
	s.drop(key)
}

// ChunkChanged ставит кеш чанка на перестройку
func (s *RenderStorage) ChunkChanged(c *world.Chunk, coord grid.Coordinate) {
	if _, ok := s.chunks[c.Key()]; ok {
		s.changed[c.Key()] = struct{}{}
	}
}

// Chunks возвращает ключи кешей по порядку
func (s *RenderStorage) Chunks() []vec.Vec2 {
	keys := make([]vec.Vec2, 0, len(s.chunks))
	for key := range s.chunks {
		keys = append(keys, key)
	}
	sortKeys(keys)
	return keys
}

func sortKeys(keys []vec.Vec2) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Y != keys[j].Y {
			return keys[i].Y < keys[j].Y
		}
		return keys[i].X < keys[j].X
	})
}
