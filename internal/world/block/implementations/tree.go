package implementations

import (
	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/world/block"
)

// TreeBlockID - ствол (value 0) и крона (value 1) дерева
const TreeBlockID block.BlockID = 42

// TreeBehavior – статичный блок дерева без логики
type TreeBehavior struct{}

func (b *TreeBehavior) ID() block.BlockID { return TreeBlockID }

func (b *TreeBehavior) Name(value uint8) string {
	if value == 1 {
		return "tree crown"
	}
	return "tree trunk"
}

func (b *TreeBehavior) IsObstacle(value uint8) bool { return true }

// IsTransparent - крона пропускает свет
func (b *TreeBehavior) IsTransparent(value uint8) bool { return value == 1 }

func (b *TreeBehavior) IsLiquid(value uint8) bool         { return false }
func (b *TreeBehavior) HasSides(value uint8) bool         { return true }
func (b *TreeBehavior) IsIndestructible(value uint8) bool { return false }

func (b *TreeBehavior) NewLogic(blk block.Block, coord grid.Coordinate) block.Logic { return nil }
