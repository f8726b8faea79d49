package world

import (
	"github.com/annel0/voxelmap/internal/grid"
)

// Camera - точка интереса, вокруг которой держатся чанки.
// Используется только из потока обновления.
type Camera struct {
	position grid.Point
	enabled  bool

	// Размер видимой области в единицах мира
	ViewWidth  float32
	ViewHeight float32
}

// NewCamera создаёт включённую камеру
func NewCamera(pos grid.Point, viewWidth, viewHeight float32) *Camera {
	return &Camera{
		position:   pos,
		enabled:    true,
		ViewWidth:  viewWidth,
		ViewHeight: viewHeight,
	}
}

// Position возвращает центр камеры
func (c *Camera) Position() grid.Point {
	return c.position
}

// SetPosition перемещает камеру
func (c *Camera) SetPosition(p grid.Point) {
	c.position = p
}

// Enabled возвращает true, если камера участвует в подгрузке
func (c *Camera) Enabled() bool {
	return c.enabled
}

// SetEnabled включает или выключает камеру
func (c *Camera) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// CanSee проверяет, попадает ли точка с запасом margin в видимую область.
// Высота z поднимает объект на экране.
func (c *Camera) CanSee(p grid.Point, margin float32) bool {
	dx := p.X - c.position.X
	dy := (p.Y - p.Z) - (c.position.Y - c.position.Z)
	return abs32(dx) <= c.ViewWidth/2+margin && abs32(dy) <= c.ViewHeight/2+margin
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
