package block

import (
	"github.com/annel0/voxelmap/internal/grid"
)

// Behavior описывает пользовательский блок (ID не ниже порога Registry)
type Behavior interface {
	ID() BlockID
	Name(value uint8) string
	IsObstacle(value uint8) bool
	IsTransparent(value uint8) bool
	IsLiquid(value uint8) bool
	HasSides(value uint8) bool
	IsIndestructible(value uint8) bool
	// NewLogic возвращает логическое расширение или nil, если блок статичен
	NewLogic(b Block, coord grid.Coordinate) Logic
}

// Logic - состояние и поведение блока, которые не попадают в сохраняемые данные.
// Хранится рядом с чанком, а не внутри блока.
type Logic interface {
	// Coordinate возвращает клетку, к которой привязана логика
	Coordinate() grid.Coordinate
	// Update вызывается раз в тик из потока обновления
	Update(ctx LogicContext, dt float32)
	// Dispose вызывается при замене блока или выгрузке чанка
	Dispose()
}
