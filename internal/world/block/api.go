package block

import (
	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/light"
)

// LogicContext определяет интерфейс для взаимодействия логики блоков с миром.
// Все методы вызываются только из потока обновления.
type LogicContext interface {
	// GetBlock возвращает блок в указанной клетке
	GetBlock(coord grid.Coordinate) Block

	// SetBlock устанавливает блок в указанной клетке
	SetBlock(coord grid.Coordinate, b Block)

	// AddLightlevel добавляет вклад освещения грани клетки
	AddLightlevel(coord grid.Coordinate, side Side, color light.Color)
}
