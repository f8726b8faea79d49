package grid

import (
	"fmt"

	"github.com/annel0/voxelmap/internal/vec"
)

// Point - позиция в непрерывном пространстве мира
type Point struct {
	X, Y, Z float32
}

// Add складывает две точки
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

func (p Point) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z)
}

// Coordinate - адрес клетки дискретной сетки
type Coordinate struct {
	X, Y, Z int
}

// IsOddRow возвращает true для сдвинутых рядов.
// y&1 корректно работает и для отрицательных y.
func (c Coordinate) IsOddRow() bool {
	return c.Y&1 == 1
}

// Add смещает координату
func (c Coordinate) Add(dx, dy, dz int) Coordinate {
	return Coordinate{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
}

// Above возвращает клетку на n уровней выше
func (c Coordinate) Above(n int) Coordinate {
	return Coordinate{X: c.X, Y: c.Y, Z: c.Z + n}
}

// ChunkOf возвращает ключ чанка, в котором лежит клетка
func (c Coordinate) ChunkOf(blocksX, blocksY int) vec.Vec2 {
	return vec.Vec2{X: vec.FloorDiv(c.X, blocksX), Y: vec.FloorDiv(c.Y, blocksY)}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("[%d, %d, %d]", c.X, c.Y, c.Z)
}

// positionKind различает варианты Position
type positionKind uint8

const (
	kindPoint positionKind = iota
	kindCoordinate
)

// Position - объединение Point | Coordinate
type Position struct {
	kind  positionKind
	point Point
	coord Coordinate
}

// AtPoint создаёт позицию из точки
func AtPoint(p Point) Position {
	return Position{kind: kindPoint, point: p}
}

// AtCoordinate создаёт позицию из координаты
func AtCoordinate(c Coordinate) Position {
	return Position{kind: kindCoordinate, coord: c}
}

// IsPoint возвращает true, если позиция хранит точку
func (p Position) IsPoint() bool {
	return p.kind == kindPoint
}

// ToPoint возвращает позицию как точку
func (p Position) ToPoint(g Geometry) Point {
	if p.kind == kindPoint {
		return p.point
	}
	return g.CoordinateToPoint(p.coord)
}

// ToCoordinate возвращает позицию как координату
func (p Position) ToCoordinate(g Geometry) Coordinate {
	if p.kind == kindCoordinate {
		return p.coord
	}
	return g.PointToCoordinate(p.point)
}

func (p Position) String() string {
	if p.kind == kindPoint {
		return "point" + p.point.String()
	}
	return "coord" + p.coord.String()
}
