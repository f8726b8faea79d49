package implementations

import (
	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/light"
	"github.com/annel0/voxelmap/internal/world/block"
)

// TorchBlockID - факел, освещающий землю вокруг себя
const TorchBlockID block.BlockID = 40

// torchColor - тёплый свет факела (вклад поверх базового уровня)
var torchColor = light.FromFloat(0.45, 0.3, 0.1)

// TorchBehavior реализует поведение факела
type TorchBehavior struct{}

// ID возвращает идентификатор блока
func (b *TorchBehavior) ID() block.BlockID { return TorchBlockID }

// Name возвращает имя блока
func (b *TorchBehavior) Name(value uint8) string { return "torch" }

func (b *TorchBehavior) IsObstacle(value uint8) bool       { return false }
func (b *TorchBehavior) IsTransparent(value uint8) bool    { return true }
func (b *TorchBehavior) IsLiquid(value uint8) bool         { return false }
func (b *TorchBehavior) HasSides(value uint8) bool         { return false }
func (b *TorchBehavior) IsIndestructible(value uint8) bool { return false }

// NewLogic создаёт источник света. Value 1 - потушенный факел.
func (b *TorchBehavior) NewLogic(blk block.Block, coord grid.Coordinate) block.Logic {
	if blk.Value == 1 {
		return nil
	}
	return &TorchLogic{coord: coord}
}

// TorchLogic каждый тик подсвечивает верхние грани клеток под факелом и вокруг него
type TorchLogic struct {
	coord    grid.Coordinate
	disposed bool
}

// Coordinate возвращает клетку факела
func (l *TorchLogic) Coordinate() grid.Coordinate { return l.coord }

// Update добавляет вклад освещения
func (l *TorchLogic) Update(ctx block.LogicContext, dt float32) {
	if l.disposed {
		return
	}
	ground := l.coord.Above(-1)
	ctx.AddLightlevel(ground, block.SideTop, torchColor)
	for s := grid.Sector(0); s < grid.SectorCount; s++ {
		n := ground.Neighbour(s)
		ctx.AddLightlevel(n, block.SideTop, torchColor.Scale(0.5))
	}
}

// Dispose гасит факел
func (l *TorchLogic) Dispose() { l.disposed = true }
