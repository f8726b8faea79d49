package world

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/vec"
	"github.com/annel0/voxelmap/internal/world/block"
	"github.com/google/uuid"
)

// Формат файла чанка:
//
//	для каждого слоя z = 0..BlocksZ-1:
//	  CommandMarker 'l'                     - пустой слой
//	  CommandMarker 'L' (id [value])*       - BlocksY*BlocksX клеток по строкам, value только при id != 0
//	CommandMarker 'e'                       - конец блоков
//	[CommandMarker 'E' count:u32 record*]   - сущности
//
// Запись сущности: класс (u16 длина + байты), uuid (16 байт),
// x, y, z (float32), данные класса (u32 длина + байты). Числа big-endian.
const (
	CommandMarker byte = 0x7E

	TagEmptyLayer byte = 'l'
	TagLayer      byte = 'L'
	TagEndBlocks  byte = 'e'
	TagEntities   byte = 'E'
)

// ErrCorruptChunk возвращается, если заголовок файла чанка не распознан
var ErrCorruptChunk = errors.New("corrupt chunk data")

// EncodeChunk сериализует блоки чанка и переданные сущности
func EncodeChunk(c *Chunk, entities []Entity) ([]byte, error) {
	cfg := c.cfg
	layer := cfg.BlocksX * cfg.BlocksY

	var buf bytes.Buffer
	buf.Grow(cfg.BlocksZ*2 + 4)

	for z := 0; z < cfg.BlocksZ; z++ {
		if c.IsLayerEmpty(z) {
			buf.WriteByte(CommandMarker)
			buf.WriteByte(TagEmptyLayer)
			continue
		}
		buf.WriteByte(CommandMarker)
		buf.WriteByte(TagLayer)
		for _, b := range c.blocks[z*layer : (z+1)*layer] {
			buf.WriteByte(byte(b.ID))
			if !b.IsEmpty() {
				buf.WriteByte(b.Value)
			}
		}
	}
	buf.WriteByte(CommandMarker)
	buf.WriteByte(TagEndBlocks)

	if len(entities) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteByte(CommandMarker)
	buf.WriteByte(TagEntities)
	binary.Write(&buf, binary.BigEndian, uint32(len(entities)))
	for _, e := range entities {
		if err := encodeEntity(&buf, e); err != nil {
			return nil, fmt.Errorf("entity %s: %w", e.ID(), err)
		}
	}
	return buf.Bytes(), nil
}

func encodeEntity(buf *bytes.Buffer, e Entity) error {
	class := e.Class()
	if len(class) > math.MaxUint16 {
		return fmt.Errorf("class name too long: %d", len(class))
	}
	payload, err := e.MarshalPayload()
	if err != nil {
		return err
	}

	binary.Write(buf, binary.BigEndian, uint16(len(class)))
	buf.WriteString(class)
	id := e.ID()
	buf.Write(id[:])
	pos := e.Position()
	binary.Write(buf, binary.BigEndian, [3]float32{pos.X, pos.Y, pos.Z})
	binary.Write(buf, binary.BigEndian, uint32(len(payload)))
	buf.Write(payload)
	return nil
}

// DecodedChunk - результат разбора файла чанка
type DecodedChunk struct {
	Chunk    *Chunk
	Entities []Entity

	// AbandonedLayers - слои, пропущенные из-за повреждения данных
	AbandonedLayers []int
	// SkippedEntities - сущности, которые не удалось восстановить
	SkippedEntities []error
}

// DecodeChunk восстанавливает чанк.
// Нераспознанное начало файла даёт ErrCorruptChunk. Повреждение дальше
// по файлу не фатально: испорченный слой остаётся пустым, разбор блоков
// прекращается, уже прочитанные слои сохраняются.
func DecodeChunk(cfg *WorldConfig, key vec.Vec2, data []byte) (*DecodedChunk, error) {
	if len(data) < 2 || data[0] != CommandMarker ||
		(data[1] != TagEmptyLayer && data[1] != TagLayer && data[1] != TagEndBlocks) {
		return nil, fmt.Errorf("%w: chunk %s: bad header", ErrCorruptChunk, key)
	}

	c := NewChunk(cfg, key)
	res := &DecodedChunk{Chunk: c}
	r := bytes.NewReader(data)

	if !decodeLayers(c, r, res) {
		return res, nil
	}
	decodeEntities(cfg, r, res)
	return res, nil
}

// decodeLayers читает слои до тега конца блоков.
// Возвращает false, если разбор прерван повреждением.
func decodeLayers(c *Chunk, r *bytes.Reader, res *DecodedChunk) bool {
	cfg := c.cfg
	layer := cfg.BlocksX * cfg.BlocksY
	cells := make([]block.Block, layer)

	for z := 0; ; z++ {
		marker, err1 := r.ReadByte()
		tag, err2 := r.ReadByte()
		if err1 != nil || err2 != nil || marker != CommandMarker {
			res.AbandonedLayers = append(res.AbandonedLayers, z)
			return false
		}

		switch tag {
		case TagEndBlocks:
			return true
		case TagEmptyLayer:
			continue
		case TagLayer:
		default:
			res.AbandonedLayers = append(res.AbandonedLayers, z)
			return false
		}

		if err := readLayer(r, cells); err != nil {
			res.AbandonedLayers = append(res.AbandonedLayers, z)
			return false
		}
		if z >= cfg.BlocksZ {
			// Лишний слой за пределами чанка
			res.AbandonedLayers = append(res.AbandonedLayers, z)
			continue
		}

		for i, b := range cells {
			if b.IsEmpty() {
				continue
			}
			coord := grid.Coordinate{
				X: c.origin.X + i%cfg.BlocksX,
				Y: c.origin.Y + i/cfg.BlocksX,
				Z: z,
			}
			c.put(coord, b)
		}
	}
}

// readLayer читает BlocksY*BlocksX пар (id, value)
func readLayer(r *bytes.Reader, cells []block.Block) error {
	for i := range cells {
		id, err := r.ReadByte()
		if err != nil {
			return err
		}
		if id == 0 {
			cells[i] = block.Block{}
			continue
		}
		value, err := r.ReadByte()
		if err != nil {
			return err
		}
		cells[i] = block.New(block.BlockID(id), value)
	}
	return nil
}

// decodeEntities читает необязательную секцию сущностей
func decodeEntities(cfg *WorldConfig, r *bytes.Reader, res *DecodedChunk) {
	marker, err := r.ReadByte()
	if err == io.EOF {
		return
	}
	tag, err2 := r.ReadByte()
	if err != nil || err2 != nil || marker != CommandMarker || tag != TagEntities {
		res.SkippedEntities = append(res.SkippedEntities, fmt.Errorf("%w: bad entity section", ErrCorruptChunk))
		return
	}

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		res.SkippedEntities = append(res.SkippedEntities, fmt.Errorf("%w: entity count: %v", ErrCorruptChunk, err))
		return
	}

	for i := uint32(0); i < count; i++ {
		e, err := decodeEntity(cfg, r)
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			res.SkippedEntities = append(res.SkippedEntities, fmt.Errorf("%w: entity %d truncated", ErrCorruptChunk, i))
			return
		}
		if err != nil {
			res.SkippedEntities = append(res.SkippedEntities, err)
			continue
		}
		res.Entities = append(res.Entities, e)
	}
}

// decodeEntity читает одну запись. Ошибка класса или данных не мешает
// читать следующие записи: запись прочитана целиком.
func decodeEntity(cfg *WorldConfig, r *bytes.Reader) (Entity, error) {
	var classLen uint16
	if err := binary.Read(r, binary.BigEndian, &classLen); err != nil {
		return nil, err
	}
	class := make([]byte, classLen)
	if _, err := io.ReadFull(r, class); err != nil {
		return nil, io.ErrUnexpectedEOF
	}

	var id uuid.UUID
	if _, err := io.ReadFull(r, id[:]); err != nil {
		return nil, io.ErrUnexpectedEOF
	}

	var pos [3]float32
	if err := binary.Read(r, binary.BigEndian, &pos); err != nil {
		return nil, io.ErrUnexpectedEOF
	}

	var payloadLen uint32
	if err := binary.Read(r, binary.BigEndian, &payloadLen); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	if int64(payloadLen) > int64(r.Len()) {
		return nil, io.ErrUnexpectedEOF
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, io.ErrUnexpectedEOF
	}

	e, err := cfg.Entities.New(string(class), id, grid.Point{X: pos[0], Y: pos[1], Z: pos[2]})
	if err != nil {
		return nil, fmt.Errorf("entity %s: %w", id, err)
	}
	if err := e.UnmarshalPayload(payload); err != nil {
		return nil, fmt.Errorf("entity %s payload: %w", id, err)
	}
	return e, nil
}
