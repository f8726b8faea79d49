package implementations

import "github.com/annel0/voxelmap/internal/world/block"

// RegisterDefaults регистрирует все пользовательские блоки в таблице
func RegisterDefaults(reg *block.Registry) error {
	behaviors := []block.Behavior{
		&TorchBehavior{},
		&BarrelBehavior{},
		&TreeBehavior{},
	}
	for _, b := range behaviors {
		if err := reg.Register(b); err != nil {
			return err
		}
	}
	return nil
}
