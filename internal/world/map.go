package world

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/light"
	"github.com/annel0/voxelmap/internal/logging"
	"github.com/annel0/voxelmap/internal/storage"
	"github.com/annel0/voxelmap/internal/vec"
	"github.com/annel0/voxelmap/internal/world/block"
	"github.com/google/uuid"
)

// MapOptions задаёт источники данных и параметры подгрузки
type MapOptions struct {
	Storage     storage.ChunkStorage // nil - только генерация
	Generator   Generator            // nil - AirGenerator
	SaveSlot    int
	SaveOnEvict bool // Сохранять изменённые чанки при выгрузке
	Workers     int  // Количество воркеров загрузки
	QueueSize   int  // Ёмкость очередей заданий и результатов
	Metrics     MapMetrics
}

// Map владеет загруженными чанками, сущностями и камерами.
// Все методы, кроме Snapshot, вызываются из потока обновления.
type Map struct {
	cfg         *WorldConfig
	storage     storage.ChunkStorage
	saveSlot    int
	saveOnEvict bool

	chunks   map[vec.Vec2]*Chunk
	pending  map[vec.Vec2]struct{}
	entities []Entity
	cameras  []*Camera

	loader    *chunkLoader
	listeners []ChunkListener
	lightSink LightSink
	metrics   MapMetrics
	logger    *logging.Logger

	tick      uint64
	loaded    uint64
	evicted   uint64
	generated uint64
	snapshot  atomic.Value // MapSnapshot
	closed    bool
}

// NewMap создаёт карту и запускает воркеры загрузки
func NewMap(cfg *WorldConfig, opts MapOptions) (*Map, error) {
	if cfg == nil {
		return nil, errors.New("world config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	gen := opts.Generator
	if gen == nil {
		gen = AirGenerator{}
	}

	logger := logging.GetMapLogger()
	m := &Map{
		cfg:         cfg,
		storage:     opts.Storage,
		saveSlot:    opts.SaveSlot,
		saveOnEvict: opts.SaveOnEvict,
		chunks:      make(map[vec.Vec2]*Chunk),
		pending:     make(map[vec.Vec2]struct{}),
		metrics:     opts.Metrics,
		logger:      logger,
	}
	m.loader = newChunkLoader(cfg, opts.Storage, gen, opts.Workers, opts.QueueSize, logger)
	m.publishSnapshot()
	return m, nil
}

// Config возвращает параметры карты
func (m *Map) Config() *WorldConfig {
	return m.cfg
}

// SaveSlot возвращает активный слот сохранения
func (m *Map) SaveSlot() int {
	return m.saveSlot
}

// AddCamera регистрирует камеру
func (m *Map) AddCamera(c *Camera) {
	m.cameras = append(m.cameras, c)
}

// RemoveCamera убирает камеру; её чанки выгрузятся на следующем проходе
func (m *Map) RemoveCamera(c *Camera) {
	for i, cam := range m.cameras {
		if cam == c {
			m.cameras = append(m.cameras[:i], m.cameras[i+1:]...)
			return
		}
	}
}

// Cameras возвращает зарегистрированные камеры
func (m *Map) Cameras() []*Camera {
	return m.cameras
}

// AddListener подписывает слушателя на события чанков
func (m *Map) AddListener(l ChunkListener) {
	m.listeners = append(m.listeners, l)
}

// SetLightSink задаёт получателя освещения от логики блоков
func (m *Map) SetLightSink(s LightSink) {
	m.lightSink = s
}

// Update выполняет один тик: выгрузка, запросы, приём загруженных чанков,
// логика блоков, сущности, публикация снимка
func (m *Map) Update(dt float32) {
	m.tick++
	m.evict()
	m.requestAroundCameras()
	m.mergeCompleted()
	m.updateLogic(dt)
	m.updateEntities(dt)

	if m.metrics != nil {
		m.metrics.SetResidentChunks(len(m.chunks))
		m.metrics.SetPendingLoads(len(m.pending))
	}
	m.publishSnapshot()
}

// evict выгружает чанки, которые не нужны ни одной камере
func (m *Map) evict() {
	for _, c := range m.chunks {
		c.resetAccess()
	}
	for _, cam := range m.cameras {
		if !cam.Enabled() {
			continue
		}
		center := m.cfg.ChunkOfPoint(cam.Position())
		for _, key := range center.Neighbourhood() {
			if c, ok := m.chunks[key]; ok {
				c.touch()
			}
		}
	}
	for key, c := range m.chunks {
		if c.ShouldEvict() {
			m.unload(key, c)
		}
	}
}

// unload сохраняет (при необходимости) и удаляет чанк вместе с его сущностями
func (m *Map) unload(key vec.Vec2, c *Chunk) {
	if m.saveOnEvict && c.IsModified() {
		if err := m.saveChunk(context.Background(), c); err != nil {
			m.logger.Error("Не удалось сохранить чанк %s при выгрузке: %v", key, err)
		}
	}
	c.Dispose()
	delete(m.chunks, key)

	kept := m.entities[:0]
	for _, e := range m.entities {
		if !c.ContainsPoint(e.Position()) {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(m.entities); i++ {
		m.entities[i] = nil
	}
	m.entities = kept

	m.evicted++
	if m.metrics != nil {
		m.metrics.IncChunksEvicted()
	}
	for _, l := range m.listeners {
		l.ChunkUnloaded(key)
	}
	m.logger.Debug("Чанк %s выгружен", key)
}

// requestAroundCameras запрашивает окрестность 3x3 каждой включённой камеры
func (m *Map) requestAroundCameras() {
	for _, cam := range m.cameras {
		if !cam.Enabled() {
			continue
		}
		center := m.cfg.ChunkOfPoint(cam.Position())
		for _, key := range center.Neighbourhood() {
			m.RequestChunk(key)
		}
	}
}

// RequestChunk ставит чанк в очередь загрузки.
// Возвращает true, если задание действительно поставлено: загруженный
// или уже загружаемый чанк повторно не запрашивается.
func (m *Map) RequestChunk(key vec.Vec2) bool {
	if m.closed {
		return false
	}
	if _, ok := m.chunks[key]; ok {
		return false
	}
	if _, ok := m.pending[key]; ok {
		return false
	}
	if !m.loader.enqueue(loadRequest{key: key, slot: m.saveSlot}) {
		// Очередь заполнена, повторим на следующем тике
		return false
	}
	m.pending[key] = struct{}{}
	return true
}

// IsLoading возвращает true, если чанк загружается
func (m *Map) IsLoading(key vec.Vec2) bool {
	_, ok := m.pending[key]
	return ok
}

// mergeCompleted принимает все готовые к этому тику чанки
func (m *Map) mergeCompleted() {
	for {
		res, ok := m.loader.poll()
		if !ok {
			return
		}
		m.merge(res)
	}
}

func (m *Map) merge(res loadResult) {
	delete(m.pending, res.key)
	if _, exists := m.chunks[res.key]; exists {
		m.logger.Warn("Чанк %s уже загружен, результат отброшен", res.key)
		res.chunk.Dispose()
		return
	}

	m.chunks[res.key] = res.chunk
	for _, e := range res.entities {
		m.addEntity(e)
	}

	m.loaded++
	if res.source == SourceGenerated {
		m.generated++
	}
	if m.metrics != nil {
		m.metrics.ObserveChunkLoad(string(res.source), res.duration)
	}
	for _, l := range m.listeners {
		l.ChunkLoaded(res.chunk)
	}
}

// updateLogic обновляет логику блоков в детерминированном порядке чанков
func (m *Map) updateLogic(dt float32) {
	ctx := logicContext{m: m}
	for _, c := range m.Chunks() {
		for _, l := range c.Logics() {
			l.Update(ctx, dt)
		}
	}
}

func (m *Map) updateEntities(dt float32) {
	kept := m.entities[:0]
	for _, e := range m.entities {
		before := e.Position()
		e.Update(dt)
		if r, ok := e.(Removable); ok && r.Removed() {
			m.markEntityChunk(before, e)
			continue
		}
		if after := e.Position(); m.cfg.ChunkOfPoint(after) != m.cfg.ChunkOfPoint(before) {
			m.markEntityChunk(before, e)
			m.markEntityChunk(after, e)
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(m.entities); i++ {
		m.entities[i] = nil
	}
	m.entities = kept
}

// GetChunk возвращает загруженный чанк по ключу
func (m *Map) GetChunk(key vec.Vec2) (*Chunk, bool) {
	c, ok := m.chunks[key]
	return c, ok
}

// ChunkAt возвращает загруженный чанк, содержащий клетку
func (m *Map) ChunkAt(coord grid.Coordinate) (*Chunk, bool) {
	return m.GetChunk(m.cfg.ChunkOf(coord))
}

// Chunks возвращает загруженные чанки, упорядоченные по ключу
func (m *Map) Chunks() []*Chunk {
	out := make([]*Chunk, 0, len(m.chunks))
	for _, c := range m.chunks {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].key, out[j].key
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return out
}

// GetBlock возвращает блок клетки. Ниже нуля - грунт,
// в незагруженных чанках - пустота.
func (m *Map) GetBlock(coord grid.Coordinate) block.Block {
	if coord.Z < 0 {
		return m.cfg.GroundBlock
	}
	c, ok := m.ChunkAt(coord)
	if !ok {
		return block.Block{}
	}
	return c.GetBlock(coord)
}

// GetBlockAt возвращает блок в точке мира
func (m *Map) GetBlockAt(p grid.Point) block.Block {
	return m.GetBlock(m.cfg.Geometry.PointToCoordinate(p))
}

// SetBlock записывает блок в загруженный чанк
func (m *Map) SetBlock(coord grid.Coordinate, b block.Block) error {
	c, ok := m.ChunkAt(coord)
	if !ok {
		return fmt.Errorf("%w: %s", ErrChunkNotResident, coord)
	}
	if err := c.SetBlock(coord, b); err != nil {
		return err
	}
	for _, l := range m.listeners {
		l.ChunkChanged(c, coord)
	}
	return nil
}

// DamageBlock наносит урон блоку. Разрушенный блок заменяется пустотой.
func (m *Map) DamageBlock(coord grid.Coordinate, amount uint8) (bool, error) {
	if coord.Z < 0 || coord.Z >= m.cfg.BlocksZ {
		return false, nil
	}
	c, ok := m.ChunkAt(coord)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrChunkNotResident, coord)
	}
	current := c.GetBlock(coord)
	if current.IsEmpty() {
		return false, nil
	}
	damaged, destroyed := m.cfg.Blocks.Damage(current, amount)
	if damaged == current {
		return false, nil
	}
	return destroyed, m.SetBlock(coord, damaged)
}

// AddLightlevel передаёт вклад освещения получателю, если он задан
func (m *Map) AddLightlevel(coord grid.Coordinate, side block.Side, color light.Color) {
	if m.lightSink != nil {
		m.lightSink.AddLightlevel(coord, side, color)
	}
}

// AddEntity добавляет сущность. Повторное добавление того же ID игнорируется.
// Чанк с сохраняемой сущностью помечается изменённым.
func (m *Map) AddEntity(e Entity) {
	if m.addEntity(e) {
		m.markEntityChunk(e.Position(), e)
	}
}

func (m *Map) addEntity(e Entity) bool {
	for _, existing := range m.entities {
		if existing.ID() == e.ID() {
			return false
		}
	}
	m.entities = append(m.entities, e)
	return true
}

// RemoveEntity удаляет сущность по ID
func (m *Map) RemoveEntity(id uuid.UUID) bool {
	for i, e := range m.entities {
		if e.ID() == id {
			m.entities = append(m.entities[:i], m.entities[i+1:]...)
			m.markEntityChunk(e.Position(), e)
			return true
		}
	}
	return false
}

// markEntityChunk помечает изменённым загруженный чанк, в котором лежит сохраняемая сущность
func (m *Map) markEntityChunk(pos grid.Point, e Entity) {
	if !e.ShouldBeSaved() {
		return
	}
	if c, ok := m.GetChunk(m.cfg.ChunkOfPoint(pos)); ok {
		c.MarkModified()
	}
}

// Entities возвращает список сущностей
func (m *Map) Entities() []Entity {
	return m.entities
}

// EntitiesIn возвращает сущности, находящиеся в горизонтальных границах чанка
func (m *Map) EntitiesIn(c *Chunk) []Entity {
	var out []Entity
	for _, e := range m.entities {
		if c.ContainsPoint(e.Position()) {
			out = append(out, e)
		}
	}
	return out
}

// saveChunk сериализует чанк вместе с сохраняемыми сущностями
func (m *Map) saveChunk(ctx context.Context, c *Chunk) error {
	if m.storage == nil {
		return nil
	}
	var saved []Entity
	for _, e := range m.EntitiesIn(c) {
		if e.ShouldBeSaved() {
			saved = append(saved, e)
		}
	}
	data, err := EncodeChunk(c, saved)
	if err != nil {
		return fmt.Errorf("ошибка сериализации чанка %s: %w", c.key, err)
	}
	if err := m.storage.SaveChunk(ctx, m.saveSlot, c.key, data); err != nil {
		return fmt.Errorf("ошибка сохранения чанка %s: %w", c.key, err)
	}
	c.MarkSaved()
	return nil
}

// Save сохраняет все изменённые чанки
func (m *Map) Save(ctx context.Context) error {
	var errs []error
	for _, c := range m.Chunks() {
		if !c.IsModified() {
			continue
		}
		if err := m.saveChunk(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close останавливает воркеры; при SaveOnEvict сохраняет изменённые чанки
func (m *Map) Close(ctx context.Context) error {
	if m.closed {
		return nil
	}
	m.closed = true
	m.loader.stop()

	var err error
	if m.saveOnEvict {
		err = m.Save(ctx)
	}
	for _, c := range m.chunks {
		c.Dispose()
	}
	return err
}

// Graph возвращает граф проходимости для поиска пути
func (m *Map) Graph() *PathGraph {
	return &PathGraph{m: m}
}

// logicContext даёт логике блоков доступ к карте
type logicContext struct {
	m *Map
}

func (c logicContext) GetBlock(coord grid.Coordinate) block.Block {
	return c.m.GetBlock(coord)
}

func (c logicContext) SetBlock(coord grid.Coordinate, b block.Block) {
	if err := c.m.SetBlock(coord, b); err != nil {
		c.m.logger.Debug("Логика блока не смогла изменить %s: %v", coord, err)
	}
}

func (c logicContext) AddLightlevel(coord grid.Coordinate, side block.Side, color light.Color) {
	c.m.AddLightlevel(coord, side, color)
}
