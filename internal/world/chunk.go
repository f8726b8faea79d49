package world

import (
	"fmt"

	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/vec"
	"github.com/annel0/voxelmap/internal/world/block"
)

// Chunk хранит блоки одного участка карты размером BlocksX x BlocksY x BlocksZ.
// Изменяется только из потока обновления либо воркером загрузки
// до передачи в Map.
type Chunk struct {
	cfg    *WorldConfig
	key    vec.Vec2
	origin grid.Coordinate

	// blocks[(z*BlocksY+y)*BlocksX+x], локальные индексы
	blocks []block.Block

	// Логика блоков хранится отдельно: она не попадает в сохранение
	logic map[grid.Coordinate]block.Logic

	modified            bool
	cameraAccessCounter int
}

// NewChunk создаёт пустой чанк
func NewChunk(cfg *WorldConfig, key vec.Vec2) *Chunk {
	return &Chunk{
		cfg:    cfg,
		key:    key,
		origin: cfg.ChunkOrigin(key),
		blocks: make([]block.Block, cfg.BlocksPerChunk()),
		logic:  make(map[grid.Coordinate]block.Logic),
	}
}

// Key возвращает координаты чанка
func (c *Chunk) Key() vec.Vec2 {
	return c.key
}

// Origin возвращает верхнюю левую клетку чанка
func (c *Chunk) Origin() grid.Coordinate {
	return c.origin
}

// Config возвращает параметры карты
func (c *Chunk) Config() *WorldConfig {
	return c.cfg
}

// Contains проверяет, попадает ли клетка в горизонтальные границы чанка
func (c *Chunk) Contains(coord grid.Coordinate) bool {
	return coord.X >= c.origin.X && coord.X < c.origin.X+c.cfg.BlocksX &&
		coord.Y >= c.origin.Y && coord.Y < c.origin.Y+c.cfg.BlocksY
}

// ContainsPoint проверяет, попадает ли точка в горизонтальные границы чанка
func (c *Chunk) ContainsPoint(p grid.Point) bool {
	coord := c.cfg.Geometry.PointToCoordinate(p)
	coord.Z = 0
	return c.Contains(coord)
}

// index переводит абсолютную координату в индекс массива
func (c *Chunk) index(coord grid.Coordinate) int {
	x := coord.X - c.origin.X
	y := coord.Y - c.origin.Y
	return (coord.Z*c.cfg.BlocksY+y)*c.cfg.BlocksX + x
}

// GetBlock возвращает блок по абсолютной координате.
// Клетки выше чанка пусты. Отрицательный z обрабатывает Map,
// здесь это ошибка вызывающего.
func (c *Chunk) GetBlock(coord grid.Coordinate) block.Block {
	if coord.Z < 0 {
		panic(fmt.Sprintf("chunk %s: negative z in GetBlock %s", c.key, coord))
	}
	if !c.Contains(coord) {
		panic(fmt.Sprintf("chunk %s: %s is outside of chunk", c.key, coord))
	}
	if coord.Z >= c.cfg.BlocksZ {
		return block.Block{}
	}
	return c.blocks[c.index(coord)]
}

// SetBlock записывает блок и обновляет его логику
func (c *Chunk) SetBlock(coord grid.Coordinate, b block.Block) error {
	if err := c.put(coord, b); err != nil {
		return err
	}
	c.modified = true
	return nil
}

// put записывает блок без отметки об изменении (загрузка и генерация)
func (c *Chunk) put(coord grid.Coordinate, b block.Block) error {
	if coord.Z < 0 || coord.Z >= c.cfg.BlocksZ || !c.Contains(coord) {
		return fmt.Errorf("%w: %s in chunk %s", ErrOutOfChunk, coord, c.key)
	}
	c.blocks[c.index(coord)] = b
	c.refreshLogic(coord, b)
	return nil
}

// refreshLogic заменяет логику клетки в соответствии с новым блоком
func (c *Chunk) refreshLogic(coord grid.Coordinate, b block.Block) {
	if old, ok := c.logic[coord]; ok {
		old.Dispose()
		delete(c.logic, coord)
	}
	if b.IsEmpty() {
		return
	}
	if logic := c.cfg.Blocks.NewLogic(b, coord); logic != nil {
		c.logic[coord] = logic
	}
}

// Logic возвращает логику клетки, если она есть
func (c *Chunk) Logic(coord grid.Coordinate) (block.Logic, bool) {
	l, ok := c.logic[coord]
	return l, ok
}

// Logics возвращает копию списка логик, пригодную для обхода
// с изменением блоков по ходу
func (c *Chunk) Logics() []block.Logic {
	out := make([]block.Logic, 0, len(c.logic))
	for _, l := range c.logic {
		out = append(out, l)
	}
	return out
}

// IsModified возвращает true, если чанк изменён после загрузки или сохранения
func (c *Chunk) IsModified() bool {
	return c.modified
}

// MarkModified помечает чанк для сохранения без изменения блоков (сущности)
func (c *Chunk) MarkModified() {
	c.modified = true
}

// MarkSaved сбрасывает флаг изменений
func (c *Chunk) MarkSaved() {
	c.modified = false
}

// IsLayerEmpty проверяет, что в слое нет ни одного блока
func (c *Chunk) IsLayerEmpty(z int) bool {
	layer := c.cfg.BlocksX * c.cfg.BlocksY
	for _, b := range c.blocks[z*layer : (z+1)*layer] {
		if !b.IsEmpty() {
			return false
		}
	}
	return true
}

// CountBlocks возвращает количество непустых клеток
func (c *Chunk) CountBlocks() int {
	n := 0
	for _, b := range c.blocks {
		if !b.IsEmpty() {
			n++
		}
	}
	return n
}

// ForEach обходит все клетки чанка по слоям снизу вверх
func (c *Chunk) ForEach(fn func(coord grid.Coordinate, b block.Block)) {
	i := 0
	for z := 0; z < c.cfg.BlocksZ; z++ {
		for y := 0; y < c.cfg.BlocksY; y++ {
			for x := 0; x < c.cfg.BlocksX; x++ {
				fn(grid.Coordinate{X: c.origin.X + x, Y: c.origin.Y + y, Z: z}, c.blocks[i])
				i++
			}
		}
	}
}

// Generate заполняет чанк генератором. Возвращает созданные сущности.
func (c *Chunk) Generate(gen Generator) []Entity {
	var entities []Entity
	for z := 0; z < c.cfg.BlocksZ; z++ {
		for y := 0; y < c.cfg.BlocksY; y++ {
			for x := 0; x < c.cfg.BlocksX; x++ {
				ax, ay := c.origin.X+x, c.origin.Y+y
				b := gen.Generate(ax, ay, z)
				c.blocks[(z*c.cfg.BlocksY+y)*c.cfg.BlocksX+x] = b
				if !b.IsEmpty() {
					c.refreshLogic(grid.Coordinate{X: ax, Y: ay, Z: z}, b)
				}
				entities = append(entities, gen.SpawnEntities(ax, ay, z)...)
			}
		}
	}
	return entities
}

// Dispose освобождает логику блоков при выгрузке
func (c *Chunk) Dispose() {
	for coord, l := range c.logic {
		l.Dispose()
		delete(c.logic, coord)
	}
}

// resetAccess обнуляет счётчик обращений камер перед проходом выгрузки
func (c *Chunk) resetAccess() {
	c.cameraAccessCounter = 0
}

// touch отмечает, что чанк нужен одной из камер
func (c *Chunk) touch() {
	c.cameraAccessCounter++
}

// ShouldEvict возвращает true, если ни одна камера не обратилась к чанку за проход
func (c *Chunk) ShouldEvict() bool {
	return c.cameraAccessCounter <= 0
}

// CameraAccess возвращает значение счётчика обращений
func (c *Chunk) CameraAccess() int {
	return c.cameraAccessCounter
}
