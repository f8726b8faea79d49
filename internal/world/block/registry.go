package block

import (
	"fmt"
	"sync"

	"github.com/annel0/voxelmap/internal/grid"
)

// Константы ID встроенных блоков
const (
	AirBlockID         BlockID = iota // 0
	GrassBlockID                      // 1
	DirtBlockID                       // 2
	StoneBlockID                      // 3
	AsphaltBlockID                    // 4
	CobblestoneBlockID                // 5
	PavementBlockID                   // 6
	ConcreteBlockID                   // 7
	SandBlockID                       // 8
	WaterBlockID                      // 9
	BedrockBlockID                    // 10
	GlassBlockID                      // 11

	// DefaultCustomThreshold - ID, начиная с которого правила задаются таблицей Behavior
	DefaultCustomThreshold BlockID = 40
)

var builtinNames = map[BlockID]string{
	AirBlockID:         "air",
	GrassBlockID:       "grass",
	DirtBlockID:        "dirt",
	StoneBlockID:       "stone",
	AsphaltBlockID:     "asphalt",
	CobblestoneBlockID: "cobblestone",
	PavementBlockID:    "pavement",
	ConcreteBlockID:    "concrete",
	SandBlockID:        "sand",
	WaterBlockID:       "water",
	BedrockBlockID:     "bedrock",
	GlassBlockID:       "glass",
}

// Properties - битовая маска свойств блока
type Properties uint8

const (
	PropObstacle Properties = 1 << iota
	PropTransparent
	PropLiquid
	PropSides
	PropIndestructible
)

// Has проверяет наличие всех указанных свойств
func (p Properties) Has(flags Properties) bool {
	return p&flags == flags
}

// Registry - таблица правил блоков. Встроенные ID ниже порога описаны
// фиксированными правилами, остальные - зарегистрированными Behavior.
// Регистрация выполняется при старте, чтение безопасно из воркеров загрузки.
type Registry struct {
	threshold BlockID
	behaviors map[BlockID]Behavior
	mu        sync.RWMutex
}

// NewRegistry создаёт пустую таблицу с указанным порогом
func NewRegistry(threshold BlockID) *Registry {
	if threshold == 0 {
		threshold = DefaultCustomThreshold
	}
	return &Registry{
		threshold: threshold,
		behaviors: make(map[BlockID]Behavior),
	}
}

// Threshold возвращает первый ID, обслуживаемый таблицей Behavior
func (r *Registry) Threshold() BlockID {
	return r.threshold
}

// Register добавляет поведение блока в регистр
func (r *Registry) Register(behavior Behavior) error {
	id := behavior.ID()
	if id < r.threshold {
		return fmt.Errorf("block id %d is reserved for built-in blocks (threshold %d)", id, r.threshold)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.behaviors[id]; exists {
		return fmt.Errorf("block id %d already registered", id)
	}
	r.behaviors[id] = behavior
	return nil
}

// Get возвращает поведение для указанного ID
func (r *Registry) Get(id BlockID) (Behavior, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	behavior, exists := r.behaviors[id]
	return behavior, exists
}

// Properties вычисляет все свойства блока одной маской
func (r *Registry) Properties(b Block) Properties {
	if b.IsEmpty() {
		return PropTransparent
	}

	if b.ID < r.threshold {
		return builtinProperties(b.ID)
	}

	behavior, exists := r.Get(b.ID)
	if !exists {
		// Неизвестный пользовательский блок считаем сплошным
		return PropObstacle | PropSides
	}

	var p Properties
	if behavior.IsObstacle(b.Value) {
		p |= PropObstacle
	}
	if behavior.IsTransparent(b.Value) {
		p |= PropTransparent
	}
	if behavior.IsLiquid(b.Value) {
		p |= PropLiquid
	}
	if behavior.HasSides(b.Value) {
		p |= PropSides
	}
	if behavior.IsIndestructible(b.Value) {
		p |= PropIndestructible
	}
	return p
}

func builtinProperties(id BlockID) Properties {
	switch id {
	case WaterBlockID:
		return PropTransparent | PropLiquid | PropSides
	case GlassBlockID:
		return PropObstacle | PropTransparent | PropSides
	case BedrockBlockID:
		return PropObstacle | PropSides | PropIndestructible
	default:
		return PropObstacle | PropSides
	}
}

// IsObstacle возвращает true, если сквозь блок нельзя пройти
func (r *Registry) IsObstacle(b Block) bool {
	return r.Properties(b).Has(PropObstacle)
}

// IsTransparent возвращает true, если блок пропускает свет
func (r *Registry) IsTransparent(b Block) bool {
	return r.Properties(b).Has(PropTransparent)
}

// IsLiquid возвращает true для жидкостей
func (r *Registry) IsLiquid(b Block) bool {
	return r.Properties(b).Has(PropLiquid)
}

// HasSides возвращает true, если у блока рисуются грани
func (r *Registry) HasSides(b Block) bool {
	return r.Properties(b).Has(PropSides)
}

// IsIndestructible возвращает true для неразрушаемых блоков
func (r *Registry) IsIndestructible(b Block) bool {
	return r.Properties(b).Has(PropIndestructible)
}

// Name возвращает имя блока
func (r *Registry) Name(b Block) string {
	if b.ID < r.threshold {
		if name, ok := builtinNames[b.ID]; ok {
			return name
		}
		return fmt.Sprintf("builtin-%d", b.ID)
	}
	if behavior, exists := r.Get(b.ID); exists {
		return behavior.Name(b.Value)
	}
	return fmt.Sprintf("unknown-%d", b.ID)
}

// NewLogic создаёт логическое расширение для блока, если оно предусмотрено
func (r *Registry) NewLogic(b Block, coord grid.Coordinate) Logic {
	if b.IsEmpty() || b.ID < r.threshold {
		return nil
	}
	behavior, exists := r.Get(b.ID)
	if !exists {
		return nil
	}
	return behavior.NewLogic(b, coord)
}

// Damage наносит урон блоку. Возвращает новое значение и признак разрушения.
// Неразрушаемые блоки не теряют здоровья.
func (r *Registry) Damage(b Block, amount uint8) (Block, bool) {
	if b.IsEmpty() || r.IsIndestructible(b) {
		return b, false
	}
	if amount >= b.Health {
		return Block{}, true
	}
	b.Health -= amount
	return b, false
}
