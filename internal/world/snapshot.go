package world

import "github.com/annel0/voxelmap/internal/vec"

// ChunkInfo - сведения о загруженном чанке
type ChunkInfo struct {
	Key          vec.Vec2 `json:"key"`
	Modified     bool     `json:"modified"`
	Blocks       int      `json:"blocks"`
	Logic        int      `json:"logic"`
	CameraAccess int      `json:"camera_access"`
}

// MapSnapshot - состояние карты на конец тика. Безопасно читать из любых горутин.
type MapSnapshot struct {
	Tick      uint64      `json:"tick"`
	Chunks    []ChunkInfo `json:"chunks"`
	Pending   int         `json:"pending"`
	Entities  int         `json:"entities"`
	Cameras   int         `json:"cameras"`
	Loaded    uint64      `json:"loaded"`
	Evicted   uint64      `json:"evicted"`
	Generated uint64      `json:"generated"`
}

func (m *Map) publishSnapshot() {
	snap := MapSnapshot{
		Tick:      m.tick,
		Chunks:    make([]ChunkInfo, 0, len(m.chunks)),
		Pending:   len(m.pending),
		Entities:  len(m.entities),
		Cameras:   len(m.cameras),
		Loaded:    m.loaded,
		Evicted:   m.evicted,
		Generated: m.generated,
	}
	for _, c := range m.Chunks() {
		snap.Chunks = append(snap.Chunks, ChunkInfo{
			Key:          c.key,
			Modified:     c.modified,
			Blocks:       c.CountBlocks(),
			Logic:        len(c.logic),
			CameraAccess: c.cameraAccessCounter,
		})
	}
	m.snapshot.Store(snap)
}

// Snapshot возвращает последний опубликованный снимок
func (m *Map) Snapshot() MapSnapshot {
	snap, _ := m.snapshot.Load().(MapSnapshot)
	return snap
}
