// Package world хранит блоки карты по чанкам и управляет их подгрузкой
// вокруг камер.
package world

import (
	"errors"
	"fmt"

	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/vec"
	"github.com/annel0/voxelmap/internal/world/block"
)

var (
	// ErrInvalidDimensions возвращается при некорректных размерах чанка
	ErrInvalidDimensions = errors.New("invalid chunk dimensions")
	// ErrOutOfChunk возвращается при обращении к клетке вне чанка
	ErrOutOfChunk = errors.New("coordinate outside of chunk")
	// ErrChunkNotResident возвращается при записи в незагруженный чанк
	ErrChunkNotResident = errors.New("chunk is not resident")
)

// WorldConfig - параметры карты, общие для всех чанков.
// Создаётся при старте и передаётся в конструкторы явно.
type WorldConfig struct {
	BlocksX  int // Ширина чанка в клетках
	BlocksY  int // Длина чанка в рядах, чётная
	BlocksZ  int // Высота чанка
	Geometry grid.Geometry

	Blocks   *block.Registry
	Entities *EntityRegistry

	// GroundBlock возвращается для клеток с z < 0
	GroundBlock block.Block
}

// NewWorldConfig создаёт конфигурацию со стандартными таблицами блоков и сущностей
func NewWorldConfig(blocksX, blocksY, blocksZ int, geometry grid.Geometry, blocks *block.Registry) (*WorldConfig, error) {
	if blocks == nil {
		blocks = block.NewRegistry(block.DefaultCustomThreshold)
	}
	cfg := &WorldConfig{
		BlocksX:     blocksX,
		BlocksY:     blocksY,
		BlocksZ:     blocksZ,
		Geometry:    geometry,
		Blocks:      blocks,
		Entities:    NewEntityRegistry(),
		GroundBlock: block.New(block.BedrockBlockID, 0),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет размеры. Чётная длина чанка сохраняет чётность рядов
// при переходе к локальным координатам.
func (c *WorldConfig) Validate() error {
	if c.BlocksX <= 0 || c.BlocksY <= 0 || c.BlocksZ <= 0 {
		return fmt.Errorf("%w: %dx%dx%d", ErrInvalidDimensions, c.BlocksX, c.BlocksY, c.BlocksZ)
	}
	if c.BlocksY%2 != 0 {
		return fmt.Errorf("%w: blocks y %d must be even", ErrInvalidDimensions, c.BlocksY)
	}
	if err := c.Geometry.Validate(); err != nil {
		return err
	}
	if c.Blocks == nil || c.Entities == nil {
		return fmt.Errorf("%w: block and entity registries are required", ErrInvalidDimensions)
	}
	return nil
}

// ChunkOf возвращает ключ чанка, содержащего клетку
func (c *WorldConfig) ChunkOf(coord grid.Coordinate) vec.Vec2 {
	return coord.ChunkOf(c.BlocksX, c.BlocksY)
}

// ChunkOfPoint возвращает ключ чанка, содержащего точку
func (c *WorldConfig) ChunkOfPoint(p grid.Point) vec.Vec2 {
	return c.ChunkOf(c.Geometry.PointToCoordinate(p))
}

// ChunkOrigin возвращает верхнюю левую клетку чанка
func (c *WorldConfig) ChunkOrigin(key vec.Vec2) grid.Coordinate {
	return grid.Coordinate{X: key.X * c.BlocksX, Y: key.Y * c.BlocksY}
}

// BlocksPerChunk возвращает количество клеток в чанке
func (c *WorldConfig) BlocksPerChunk() int {
	return c.BlocksX * c.BlocksY * c.BlocksZ
}
