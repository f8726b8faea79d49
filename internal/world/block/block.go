package block

import "fmt"

// BlockID представляет идентификатор блока
type BlockID uint8

// MaxHealth - здоровье целого блока
const MaxHealth uint8 = 100

// Block - блок как значение: идентификатор, вариант и здоровье.
// Нулевое значение означает «нет блока».
type Block struct {
	ID     BlockID // Тип блока, 0 - пусто
	Value  uint8   // Вариант/подтип
	Health uint8   // 0..100
}

// New создаёт целый блок
func New(id BlockID, value uint8) Block {
	if id == AirBlockID {
		return Block{}
	}
	return Block{ID: id, Value: value, Health: MaxHealth}
}

// IsEmpty возвращает true, если в клетке нет блока
func (b Block) IsEmpty() bool {
	return b.ID == AirBlockID
}

// Equal сравнивает блоки по (id, value); здоровье не учитывается
func (b Block) Equal(other Block) bool {
	return b.ID == other.ID && b.Value == other.Value
}

func (b Block) String() string {
	if b.IsEmpty() {
		return "<empty>"
	}
	return fmt.Sprintf("%d:%d(%d%%)", b.ID, b.Value, b.Health)
}

// Side - видимая грань клетки в изометрии
type Side uint8

const (
	SideLeft Side = iota
	SideTop
	SideRight

	SideCount = 3
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideTop:
		return "top"
	case SideRight:
		return "right"
	default:
		return "unknown"
	}
}
