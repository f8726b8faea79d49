package world

import (
	"fmt"
	"hash/fnv"
	"math"

	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/util"
	"github.com/annel0/voxelmap/internal/world/block"
	"github.com/annel0/voxelmap/internal/world/block/implementations"
	"github.com/google/uuid"
)

// Generator заполняет клетки, для которых нет сохранения.
// Вызывается из воркеров загрузки параллельно, поэтому реализации
// не должны иметь изменяемого состояния.
type Generator interface {
	// Generate возвращает блок для абсолютной координаты
	Generate(x, y, z int) block.Block
	// SpawnEntities возвращает сущности, появляющиеся в клетке
	SpawnEntities(x, y, z int) []Entity
}

// AirGenerator оставляет карту пустой
type AirGenerator struct{}

func (AirGenerator) Generate(x, y, z int) block.Block   { return block.Block{} }
func (AirGenerator) SpawnEntities(x, y, z int) []Entity { return nil }

// FlatGenerator строит ровную поверхность заданной высоты
type FlatGenerator struct {
	Height int         // Количество заполненных слоёв
	Top    block.Block // Верхний слой
	Fill   block.Block // Слои под верхним
}

// NewFlatGenerator создаёт равнину из земли с травой сверху
func NewFlatGenerator(height int) *FlatGenerator {
	return &FlatGenerator{
		Height: height,
		Top:    block.New(block.GrassBlockID, 0),
		Fill:   block.New(block.DirtBlockID, 0),
	}
}

func (g *FlatGenerator) Generate(x, y, z int) block.Block {
	switch {
	case z >= g.Height:
		return block.Block{}
	case z == g.Height-1:
		return g.Top
	default:
		return g.Fill
	}
}

func (g *FlatGenerator) SpawnEntities(x, y, z int) []Entity { return nil }

// Пороги генерации ландшафта
const (
	SandBand      = 1    // Высота песчаного пляжа над водой
	DefaultForest = 0.04 // Доля клеток травы с деревьями
	DefaultProps  = 0.01 // Доля клеток с декоративными объектами
)

// PerlinGenerator строит холмистый ландшафт по шуму Перлина
type PerlinGenerator struct {
	noise    *util.Noise
	geometry grid.Geometry

	NoiseScale    float64 // Масштаб шума (на клетку)
	BaseHeight    int     // Минимальная высота поверхности
	Amplitude     int     // Размах высот
	WaterLevel    int     // Клетки ниже заполняются водой
	ForestDensity float64 // Вероятность дерева на траве
	PropDensity   float64 // Вероятность декоративного объекта
}

// NewPerlinGenerator создаёт генератор под высоту чанка
func NewPerlinGenerator(seed int64, cfg *WorldConfig) *PerlinGenerator {
	blocksZ := cfg.BlocksZ
	base := blocksZ / 4
	if base < 1 {
		base = 1
	}
	return &PerlinGenerator{
		noise:         util.NewNoise(seed),
		geometry:      cfg.Geometry,
		NoiseScale:    0.05,
		BaseHeight:    base,
		Amplitude:     blocksZ / 2,
		WaterLevel:    base + blocksZ/8,
		ForestDensity: DefaultForest,
		PropDensity:   DefaultProps,
	}
}

// Height возвращает высоту поверхности в колонке (количество заполненных слоёв)
func (g *PerlinGenerator) Height(x, y int) int {
	// Ряды сдвинуты, поэтому шум берём в координатах мира
	wx := float64(x)
	if y&1 == 1 {
		wx += 0.5
	}
	wy := float64(y) / 2
	n := g.noise.Noise2D(wx*g.NoiseScale, wy*g.NoiseScale)
	return g.BaseHeight + int(math.Round(n*float64(g.Amplitude)))
}

func (g *PerlinGenerator) Generate(x, y, z int) block.Block {
	h := g.Height(x, y)
	switch {
	case z == 0:
		return block.New(block.BedrockBlockID, 0)
	case z < h-3:
		return block.New(block.StoneBlockID, 0)
	case z < h-1:
		return block.New(block.DirtBlockID, 0)
	case z == h-1:
		if h <= g.WaterLevel+SandBand {
			return block.New(block.SandBlockID, 0)
		}
		return block.New(block.GrassBlockID, 0)
	case z < g.WaterLevel:
		return block.New(block.WaterBlockID, 0)
	}

	if !g.hasTree(x, y, h) {
		return block.Block{}
	}
	switch z {
	case h:
		return block.New(implementations.TreeBlockID, 0)
	case h + 1:
		return block.New(implementations.TreeBlockID, 1)
	}
	return block.Block{}
}

func (g *PerlinGenerator) hasTree(x, y, h int) bool {
	return h > g.WaterLevel+SandBand && g.chance(x, y, "tree") < g.ForestDensity
}

// SpawnEntities ставит декоративный объект на траву без дерева.
// ID выводится из сида и координат, поэтому повторная генерация даёт те же сущности.
func (g *PerlinGenerator) SpawnEntities(x, y, z int) []Entity {
	h := g.Height(x, y)
	if z != h || h <= g.WaterLevel+SandBand || g.hasTree(x, y, h) {
		return nil
	}
	roll := g.chance(x, y, "prop")
	if roll >= g.PropDensity {
		return nil
	}

	name := fmt.Sprintf("prop:%d:%d:%d:%d", g.noise.Seed(), x, y, z)
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
	pos := g.geometry.CoordinateToPoint(grid.Coordinate{X: x, Y: y, Z: z})
	variant := uint8(roll / g.PropDensity * 4)
	return []Entity{NewProp(id, pos, 1, variant, true)}
}

// chance возвращает детерминированное число [0, 1) для колонки
func (g *PerlinGenerator) chance(x, y int, salt string) float64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%d:%d:%s", g.noise.Seed(), x, y, salt)
	return float64(h.Sum64()>>11) / float64(1<<53)
}
