package world

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/voxelmap/internal/grid"
	"github.com/google/uuid"
)

// ErrUnknownEntityClass возвращается при создании сущности незарегистрированного класса
var ErrUnknownEntityClass = errors.New("unknown entity class")

// Entity - объект карты вне сетки блоков
type Entity interface {
	// ID возвращает постоянный идентификатор
	ID() uuid.UUID
	// Class возвращает имя класса, по которому сущность восстанавливается
	Class() string
	Position() grid.Point
	SetPosition(p grid.Point)
	// ShouldBeSaved возвращает false для временных сущностей
	ShouldBeSaved() bool
	// Update вызывается раз в тик из потока обновления
	Update(dt float32)
	// MarshalPayload сериализует состояние класса (без ID и позиции)
	MarshalPayload() ([]byte, error)
	// UnmarshalPayload восстанавливает состояние класса
	UnmarshalPayload(data []byte) error
}

// Removable реализуют сущности, которые могут удалить себя сами
type Removable interface {
	Removed() bool
}

// EntityFactory создаёт пустую сущность класса с заданными ID и позицией
type EntityFactory func(id uuid.UUID, pos grid.Point) Entity

// EntityRegistry сопоставляет имена классов и фабрики
type EntityRegistry struct {
	mu        sync.RWMutex
	factories map[string]EntityFactory
}

// NewEntityRegistry создаёт реестр со встроенными классами
func NewEntityRegistry() *EntityRegistry {
	r := &EntityRegistry{factories: make(map[string]EntityFactory)}
	r.factories[PropClass] = func(id uuid.UUID, pos grid.Point) Entity {
		return &Prop{id: id, pos: pos, saved: true}
	}
	return r
}

// Register добавляет класс сущностей
func (r *EntityRegistry) Register(class string, factory EntityFactory) error {
	if class == "" || len(class) > 0xFFFF {
		return fmt.Errorf("invalid entity class name %q", class)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[class]; exists {
		return fmt.Errorf("entity class %q already registered", class)
	}
	r.factories[class] = factory
	return nil
}

// New создаёт сущность класса
func (r *EntityRegistry) New(class string, id uuid.UUID, pos grid.Point) (Entity, error) {
	r.mu.RLock()
	factory, ok := r.factories[class]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityClass, class)
	}
	return factory(id, pos), nil
}

// Classes возвращает отсортированный список классов
func (r *EntityRegistry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.factories))
	for class := range r.factories {
		out = append(out, class)
	}
	sort.Strings(out)
	return out
}

// PropClass - имя класса декоративных объектов
const PropClass = "prop"

// Prop - неподвижный декоративный объект со спрайтом
type Prop struct {
	id          uuid.UUID
	pos         grid.Point
	SpriteID    uint16
	SpriteValue uint8
	saved       bool
}

// NewProp создаёт декоративный объект
func NewProp(id uuid.UUID, pos grid.Point, spriteID uint16, spriteValue uint8, saved bool) *Prop {
	return &Prop{id: id, pos: pos, SpriteID: spriteID, SpriteValue: spriteValue, saved: saved}
}

func (p *Prop) ID() uuid.UUID              { return p.id }
func (p *Prop) Class() string              { return PropClass }
func (p *Prop) Position() grid.Point       { return p.pos }
func (p *Prop) SetPosition(pos grid.Point) { p.pos = pos }
func (p *Prop) ShouldBeSaved() bool        { return p.saved }
func (p *Prop) Update(dt float32)          {}

// MarshalPayload: uint16 спрайт, uint8 вариант
func (p *Prop) MarshalPayload() ([]byte, error) {
	buf := make([]byte, 3)
	binary.BigEndian.PutUint16(buf, p.SpriteID)
	buf[2] = p.SpriteValue
	return buf, nil
}

func (p *Prop) UnmarshalPayload(data []byte) error {
	if len(data) != 3 {
		return fmt.Errorf("prop payload: expected 3 bytes, got %d", len(data))
	}
	p.SpriteID = binary.BigEndian.Uint16(data)
	p.SpriteValue = data[2]
	return nil
}
