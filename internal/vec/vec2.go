package vec

import (
	"fmt"
	"math"
)

// Vec2 представляет 2D координаты (используется как ключ чанка)
type Vec2 struct {
	X, Y int
}

// String возвращает представление "x,y", совпадающее с именем файла чанка
func (v Vec2) String() string {
	return fmt.Sprintf("%d,%d", v.X, v.Y)
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Neighbourhood возвращает окрестность 3x3 вокруг координаты, включая её саму.
// Порядок стабилен: построчно сверху вниз, слева направо.
func (v Vec2) Neighbourhood() [9]Vec2 {
	var out [9]Vec2
	i := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			out[i] = Vec2{X: v.X + dx, Y: v.Y + dy}
			i++
		}
	}
	return out
}

// IsAdjacent возвращает true, если чанки соседние (включая диагональ) или совпадают
func (v Vec2) IsAdjacent(other Vec2) bool {
	dx := v.X - other.X
	dy := v.Y - other.Y
	return dx >= -1 && dx <= 1 && dy >= -1 && dy <= 1
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// FloorDiv делит с округлением вниз (а не к нулю), чтобы отрицательные
// координаты попадали в правильный чанк.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FloorMod возвращает неотрицательный остаток для положительного делителя
func FloorMod(a, b int) int {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}
