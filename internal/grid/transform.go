package grid

import "math"

// Sector - направление к одному из 8 соседей клетки (по часовой стрелке от верхнего)
// или сама клетка.
type Sector uint8

const (
	SectorTop         Sector = iota // 0: y-2
	SectorTopRight                  // 1
	SectorRight                     // 2: x+1
	SectorBottomRight               // 3
	SectorBottom                    // 4: y+2
	SectorBottomLeft                // 5
	SectorLeft                      // 6: x-1
	SectorTopLeft                   // 7
	SectorSelf                      // 8

	SectorCount = 8 // Количество соседей без самой клетки
)

// Opposite возвращает противоположное направление. Для SectorSelf возвращает SectorSelf.
func Opposite(s Sector) Sector {
	if s >= SectorSelf {
		return SectorSelf
	}
	return (s + 4) % SectorCount
}

// GoToNeighbour смещает координату в соседнюю клетку и возвращает её же для цепочек.
// Сдвиг по x для диагональных направлений зависит от чётности текущего ряда,
// поэтому чётность вычисляется до шага.
func (c *Coordinate) GoToNeighbour(s Sector) *Coordinate {
	odd := c.IsOddRow()
	switch s {
	case SectorTop:
		c.Y -= 2
	case SectorTopRight:
		if odd {
			c.X++
		}
		c.Y--
	case SectorRight:
		c.X++
	case SectorBottomRight:
		if odd {
			c.X++
		}
		c.Y++
	case SectorBottom:
		c.Y += 2
	case SectorBottomLeft:
		if !odd {
			c.X--
		}
		c.Y++
	case SectorLeft:
		c.X--
	case SectorTopLeft:
		if !odd {
			c.X--
		}
		c.Y--
	}
	return c
}

// Neighbour возвращает соседнюю клетку, не изменяя исходную
func (c Coordinate) Neighbour(s Sector) Coordinate {
	n := c
	n.GoToNeighbour(s)
	return n
}

// SectorOf определяет, в какой клин квадрата DiagLength x DiagLength попадает смещение.
// Квадрат содержит центральный ромб (SectorSelf) и четыре угловых треугольника;
// направления 0, 2, 4, 6 получаются только на общих вершинах.
// Проверки выполняются строго по порядку и лишь уточняют предыдущий результат.
func (g Geometry) SectorOf(dx, dy float32) Sector {
	d := float64(g.DiagLength)
	return sectorOf(floorMod(float64(dx), d), floorMod(float64(dy), d), d/2)
}

// sectorOf работает с уже приведёнными к [0, 2h) смещениями
func sectorOf(x, y, h float64) Sector {
	result := SectorSelf
	if x+y <= h {
		result = SectorTopLeft
	}
	if x-y >= h {
		if result == SectorTopLeft {
			result = SectorTop
		} else {
			result = SectorTopRight
		}
	}
	if x+y >= 3*h {
		if result == SectorTopRight {
			result = SectorRight
		} else {
			result = SectorBottomRight
		}
	}
	if -x+y >= h {
		switch result {
		case SectorBottomRight:
			result = SectorBottom
		case SectorTopLeft:
			result = SectorLeft
		default:
			result = SectorBottomLeft
		}
	}
	return result
}

// PointToCoordinate переводит точку в клетку за O(1).
// Сначала грубая клетка (нечётный ряд в центре квадрата), затем один шаг к соседу.
func (g Geometry) PointToCoordinate(p Point) Coordinate {
	d := float64(g.DiagLength)
	qx, rx := floorDivMod(float64(p.X), d)
	qy, ry := floorDivMod(float64(p.Y), d)

	c := Coordinate{
		X: qx,
		Y: qy*2 + 1,
		Z: int(math.Floor(float64(p.Z) / float64(g.EdgeLength))),
	}
	c.GoToNeighbour(sectorOf(rx, ry, d/2))
	return c
}

// CoordinateToPoint возвращает центр клетки в пространстве мира
func (g Geometry) CoordinateToPoint(c Coordinate) Point {
	var shift float32
	if c.IsOddRow() {
		shift = g.HalfDiag()
	}
	return Point{
		X: float32(c.X)*g.DiagLength + shift,
		Y: float32(c.Y) * g.HalfDiag(),
		Z: float32(c.Z) * g.EdgeLength,
	}
}

// floorMod возвращает остаток в диапазоне [0, d)
func floorMod(v, d float64) float64 {
	_, m := floorDivMod(v, d)
	return m
}

// floorDivMod возвращает согласованные частное (с округлением вниз) и остаток в [0, d)
func floorDivMod(v, d float64) (int, float64) {
	q := math.Floor(v / d)
	m := v - q*d
	if m >= d {
		m -= d
		q++
	}
	if m < 0 {
		m += d
		q--
	}
	return int(q), m
}
