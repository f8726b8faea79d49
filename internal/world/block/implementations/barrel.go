package implementations

import (
	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/world/block"
)

// BarrelBlockID - бочка с фитилём
const BarrelBlockID block.BlockID = 41

// BarrelFuseSeconds - время горения фитиля
const BarrelFuseSeconds float32 = 3

// BarrelBehavior реализует поведение бочки. Value 1 - фитиль подожжён.
type BarrelBehavior struct{}

func (b *BarrelBehavior) ID() block.BlockID { return BarrelBlockID }

func (b *BarrelBehavior) Name(value uint8) string {
	if value == 1 {
		return "barrel (lit)"
	}
	return "barrel"
}

func (b *BarrelBehavior) IsObstacle(value uint8) bool       { return true }
func (b *BarrelBehavior) IsTransparent(value uint8) bool    { return false }
func (b *BarrelBehavior) IsLiquid(value uint8) bool         { return false }
func (b *BarrelBehavior) HasSides(value uint8) bool         { return true }
func (b *BarrelBehavior) IsIndestructible(value uint8) bool { return false }

// NewLogic создаёт таймер фитиля только для подожжённой бочки
func (b *BarrelBehavior) NewLogic(blk block.Block, coord grid.Coordinate) block.Logic {
	if blk.Value != 1 {
		return nil
	}
	return &BarrelLogic{coord: coord, remaining: BarrelFuseSeconds}
}

// BarrelLogic отсчитывает фитиль и убирает бочку по его окончании
type BarrelLogic struct {
	coord     grid.Coordinate
	remaining float32
	disposed  bool
}

func (l *BarrelLogic) Coordinate() grid.Coordinate { return l.coord }

// Remaining возвращает оставшееся время фитиля
func (l *BarrelLogic) Remaining() float32 { return l.remaining }

// Update уменьшает таймер; по окончании бочка исчезает
func (l *BarrelLogic) Update(ctx block.LogicContext, dt float32) {
	if l.disposed {
		return
	}
	l.remaining -= dt
	if l.remaining > 0 {
		return
	}
	// Блок мог быть заменён в этом же тике
	if ctx.GetBlock(l.coord).ID == BarrelBlockID {
		ctx.SetBlock(l.coord, block.Block{})
	}
	l.disposed = true
}

func (l *BarrelLogic) Dispose() { l.disposed = true }
