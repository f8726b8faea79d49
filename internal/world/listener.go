package world

import (
	"time"

	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/light"
	"github.com/annel0/voxelmap/internal/vec"
	"github.com/annel0/voxelmap/internal/world/block"
)

// ChunkListener получает уведомления о составе и изменениях загруженных чанков.
// Вызывается из потока обновления.
type ChunkListener interface {
	ChunkLoaded(c *Chunk)
	ChunkUnloaded(key vec.Vec2)
	ChunkChanged(c *Chunk, coord grid.Coordinate)
}

// LightSink принимает вклады освещения от логики блоков
type LightSink interface {
	AddLightlevel(coord grid.Coordinate, side block.Side, color light.Color)
}

// MapMetrics принимает статистику подгрузки. Реализация должна быть
// потокобезопасной.
type MapMetrics interface {
	ObserveChunkLoad(source string, duration time.Duration)
	IncChunksEvicted()
	SetResidentChunks(n int)
	SetPendingLoads(n int)
}

// LoadSource - откуда получен чанк
type LoadSource string

const (
	SourceSave      LoadSource = "save"
	SourceTemplate  LoadSource = "template"
	SourceGenerated LoadSource = "generated"
)
