package render

import "github.com/annel0/voxelmap/internal/vec"

// Snapshot - состояние кеша отрисовки на конец тика
type Snapshot struct {
	Tick         uint64     `json:"tick"`
	Chunks       []vec.Vec2 `json:"chunks"`
	ZRenderLimit int        `json:"z_render_limit"`
	LitCells     int        `json:"lit_cells"`
	Rebuilds     uint64     `json:"rebuilds"`
	Rebaked      uint64     `json:"rebaked"`
}

func (s *RenderStorage) publishSnapshot() {
	s.snapshot.Store(Snapshot{
		Tick:         s.tick,
		Chunks:       s.Chunks(),
		ZRenderLimit: s.zRenderLimit,
		LitCells:     len(s.litLastTick),
		Rebuilds:     s.rebuilds,
		Rebaked:      s.rebaked,
	})
}

// Snapshot возвращает последний опубликованный снимок; безопасен из любых горутин
func (s *RenderStorage) Snapshot() Snapshot {
	snap, _ := s.snapshot.Load().(Snapshot)
	return snap
}
