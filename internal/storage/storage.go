// Package storage хранит сериализованные чанки карты.
// Формат данных определяется пакетом world, здесь только байты.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/voxelmap/internal/vec"
	"github.com/klauspost/compress/zstd"
)

var (
	// ErrChunkNotFound возвращается, если чанк (или шаблон) отсутствует
	ErrChunkNotFound = errors.New("chunk not found")
	// ErrClosed возвращается при обращении к закрытому хранилищу
	ErrClosed = errors.New("storage closed")
)

// ChunkStorage - хранилище сериализованных чанков.
// Слот сохранения разделяет независимые сохранения одной карты,
// шаблоны общие для всех слотов.
// Реализации должны быть безопасны для вызова из воркеров загрузки.
type ChunkStorage interface {
	// LoadChunk читает чанк из слота. ErrChunkNotFound, если его нет.
	LoadChunk(ctx context.Context, slot int, key vec.Vec2) ([]byte, error)
	// SaveChunk записывает чанк в слот
	SaveChunk(ctx context.Context, slot int, key vec.Vec2, data []byte) error
	// SaveTemplate записывает шаблон чанка, общий для всех слотов
	SaveTemplate(ctx context.Context, key vec.Vec2, data []byte) error
	// RestoreTemplate копирует шаблон в слот. ErrChunkNotFound, если шаблона нет.
	RestoreTemplate(ctx context.Context, slot int, key vec.Vec2) error
	// Close освобождает ресурсы
	Close() error
}

// chunkKey формирует ключ чанка для key-value хранилищ
func chunkKey(prefix string, slot int, key vec.Vec2) string {
	return fmt.Sprintf("%schunk:%d:%d,%d", prefix, slot, key.X, key.Y)
}

// templateKey формирует ключ шаблона для key-value хранилищ
func templateKey(prefix string, key vec.Vec2) string {
	return fmt.Sprintf("%stemplate:%d,%d", prefix, key.X, key.Y)
}

// compressor сжимает значения zstd. EncodeAll и DecodeAll
// допускают параллельные вызовы.
type compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newCompressor() (*compressor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}
	return &compressor{encoder: encoder, decoder: decoder}, nil
}

// compress сжимает данные; nil-компрессор возвращает их без изменений
func (c *compressor) compress(data []byte) []byte {
	if c == nil {
		return data
	}
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
}

func (c *compressor) decompress(data []byte) ([]byte, error) {
	if c == nil {
		return data, nil
	}
	out, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки zstd: %w", err)
	}
	return out, nil
}

func (c *compressor) close() {
	if c == nil {
		return
	}
	c.encoder.Close()
	c.decoder.Close()
}
