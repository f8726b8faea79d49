// Package grid переводит координаты между непрерывным пространством мира (Point)
// и дискретной сеткой со смещёнными рядами (Coordinate).
//
// Нечётные ряды (y) сдвинуты по горизонтали на половину ширины клетки
// («кирпичная кладка»). Каждая клетка в плоскости - ромб с полудиагоналями
// HalfDiag по обеим осям, центр которого совпадает с CoordinateToPoint.
package grid

import (
	"errors"
	"fmt"
)

// ErrInvalidGeometry возвращается при некорректных размерах клетки
var ErrInvalidGeometry = errors.New("invalid grid geometry")

// Geometry хранит размеры клетки в единицах мира
type Geometry struct {
	EdgeLength float32 // Высота клетки (ось z)
	DiagLength float32 // Длина диагонали ромба (ось x)
}

// DefaultGeometry возвращает размеры по умолчанию
func DefaultGeometry() Geometry {
	return Geometry{
		EdgeLength: 128,
		DiagLength: 180,
	}
}

// HalfDiag возвращает половину диагонали - шаг ряда по y
func (g Geometry) HalfDiag() float32 {
	return g.DiagLength / 2
}

// Validate проверяет, что геометрия пригодна для точного обратного преобразования.
// Диагональ должна быть чётным целым, иначе центры нечётных рядов
// не представимы точно.
func (g Geometry) Validate() error {
	if g.EdgeLength <= 0 {
		return fmt.Errorf("%w: edge length %v", ErrInvalidGeometry, g.EdgeLength)
	}
	if g.DiagLength <= 0 || g.DiagLength != float32(int(g.DiagLength)) || int(g.DiagLength)%2 != 0 {
		return fmt.Errorf("%w: diag length %v must be a positive even integer", ErrInvalidGeometry, g.DiagLength)
	}
	return nil
}
