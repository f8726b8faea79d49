// Package render строит по загруженным чанкам кеш данных для отрисовки:
// скрытые грани, затенение углов (AO) и освещённость вершин.
package render

import (
	"github.com/annel0/voxelmap/internal/light"
	"github.com/annel0/voxelmap/internal/world/block"
)

// VertexCount - вершин на грань
const VertexCount = 4

// Биты скрытых граней
const (
	ClipLeft  uint8 = 1 << block.SideLeft
	ClipTop   uint8 = 1 << block.SideTop
	ClipRight uint8 = 1 << block.SideRight

	ClipAll = ClipLeft | ClipTop | ClipRight
)

// RenderBlock - данные отрисовки одной клетки. Хранит копию атрибутов блока,
// а не ссылку на данные чанка.
type RenderBlock struct {
	id    block.BlockID
	value uint8
	props block.Properties

	clip uint8
	// ao: бит side*8+direction, direction - одно из 8 направлений вокруг грани
	ao uint32

	light   [block.SideCount][VertexCount]light.Color
	pending [block.SideCount]light.Color
	// applied - вклады, учтённые последним пересчётом
	applied [block.SideCount]light.Color
}

func newRenderBlock(b block.Block, props block.Properties) RenderBlock {
	rb := RenderBlock{id: b.ID, value: b.Value, props: props}
	rb.resetLight()
	return rb
}

// SpriteID возвращает идентификатор спрайта (ID блока)
func (b *RenderBlock) SpriteID() block.BlockID { return b.id }

// SpriteValue возвращает вариант спрайта
func (b *RenderBlock) SpriteValue() uint8 { return b.value }

// IsEmpty возвращает true для пустой клетки
func (b *RenderBlock) IsEmpty() bool { return b.id == block.AirBlockID }

func (b *RenderBlock) IsTransparent() bool { return b.props.Has(block.PropTransparent) }
func (b *RenderBlock) IsLiquid() bool      { return b.props.Has(block.PropLiquid) }
func (b *RenderBlock) HasSides() bool      { return b.props.Has(block.PropSides) }

// Hides возвращает true, если клетка закрывает соседнюю грань
func (b *RenderBlock) Hides() bool {
	return b.HasSides() && !b.IsTransparent()
}

// Clip возвращает маску скрытых граней
func (b *RenderBlock) Clip() uint8 { return b.clip }

// IsClipped проверяет, скрыта ли грань
func (b *RenderBlock) IsClipped(side block.Side) bool {
	return b.clip&(1<<side) != 0
}

// IsFullyClipped возвращает true, если скрыты все три грани
func (b *RenderBlock) IsFullyClipped() bool {
	return b.clip&ClipAll == ClipAll
}

// AO возвращает маску занятых направлений вокруг грани
func (b *RenderBlock) AO(side block.Side) uint8 {
	return uint8(b.ao >> (uint(side) * 8))
}

// HasAO проверяет бит направления dir (0..7) грани side
func (b *RenderBlock) HasAO(side block.Side, dir int) bool {
	return b.ao&(1<<(uint(side)*8+uint(dir))) != 0
}

// SetAO задаёт маску затенения всех граней
func (b *RenderBlock) SetAO(mask uint32) { b.ao = mask }

// LightLevel возвращает упакованный цвет вершины
func (b *RenderBlock) LightLevel(side block.Side, vertex int) light.Color {
	return b.light[side][vertex]
}

// LightLevelR возвращает яркость красного канала вершины (0..2)
func (b *RenderBlock) LightLevelR(side block.Side, vertex int) float32 {
	return b.light[side][vertex].Float(light.Red)
}

// LightLevelG возвращает яркость зелёного канала вершины (0..2)
func (b *RenderBlock) LightLevelG(side block.Side, vertex int) float32 {
	return b.light[side][vertex].Float(light.Green)
}

// LightLevelB возвращает яркость синего канала вершины (0..2)
func (b *RenderBlock) LightLevelB(side block.Side, vertex int) float32 {
	return b.light[side][vertex].Float(light.Blue)
}

// addPending накапливает вклад до ближайшего пересчёта.
// Вклады объединяются по максимуму, поэтому повтор в том же тике безопасен.
func (b *RenderBlock) addPending(side block.Side, color light.Color) {
	b.pending[side] = b.pending[side].Max(color)
}

// hasPending возвращает true, если есть хотя бы один вклад
func (b *RenderBlock) hasPending() bool {
	for _, c := range b.pending {
		if c != light.None {
			return true
		}
	}
	return false
}

func (b *RenderBlock) resetLight() {
	for side := range b.light {
		for v := range b.light[side] {
			b.light[side][v] = light.Neutral
		}
	}
}

// bake переносит накопленные вклады в применённые и пересчитывает освещение
func (b *RenderBlock) bake(shade float32) {
	b.applied = b.pending
	b.pending = [block.SideCount]light.Color{}
	b.apply(shade)
}

// apply пересчитывает освещение: нейтральный уровень плюс применённые вклады,
// верхняя грань умножается на тень shade
func (b *RenderBlock) apply(shade float32) {
	for side := range b.light {
		c := light.Neutral.Add(b.applied[side])
		if block.Side(side) == block.SideTop && shade < 1 {
			c = c.Scale(shade)
		}
		for v := range b.light[side] {
			b.light[side][v] = c
		}
	}
}
