package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/annel0/voxelmap/internal/vec"
)

// FileStorage хранит чанки файлами:
//
//	{root}/save{slot}/chunk{cx},{cy}.{ext}  - сохранения
//	{root}/chunk{cx},{cy}.{ext}             - шаблоны
type FileStorage struct {
	root string
	ext  string
}

// NewFileStorage создаёт файловое хранилище в каталоге карты
func NewFileStorage(root, ext string) (*FileStorage, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог карты: %w", err)
	}
	return &FileStorage{root: root, ext: strings.TrimPrefix(ext, ".")}, nil
}

// Root возвращает каталог карты
func (s *FileStorage) Root() string {
	return s.root
}

// ChunkPath возвращает путь к файлу чанка в слоте
func (s *FileStorage) ChunkPath(slot int, key vec.Vec2) string {
	return filepath.Join(s.root, fmt.Sprintf("save%d", slot), s.fileName(key))
}

// TemplatePath возвращает путь к шаблону чанка
func (s *FileStorage) TemplatePath(key vec.Vec2) string {
	return filepath.Join(s.root, s.fileName(key))
}

func (s *FileStorage) fileName(key vec.Vec2) string {
	return fmt.Sprintf("chunk%d,%d.%s", key.X, key.Y, s.ext)
}

// LoadChunk читает файл чанка
func (s *FileStorage) LoadChunk(ctx context.Context, slot int, key vec.Vec2) ([]byte, error) {
	return readFile(s.ChunkPath(slot, key))
}

// SaveChunk атомарно записывает файл чанка
func (s *FileStorage) SaveChunk(ctx context.Context, slot int, key vec.Vec2, data []byte) error {
	return writeFileAtomic(s.ChunkPath(slot, key), data)
}

// SaveTemplate записывает шаблон в корень карты
func (s *FileStorage) SaveTemplate(ctx context.Context, key vec.Vec2, data []byte) error {
	return writeFileAtomic(s.TemplatePath(key), data)
}

// RestoreTemplate копирует шаблон в каталог слота
func (s *FileStorage) RestoreTemplate(ctx context.Context, slot int, key vec.Vec2) error {
	data, err := readFile(s.TemplatePath(key))
	if err != nil {
		return err
	}
	return writeFileAtomic(s.ChunkPath(slot, key), data)
}

// Close ничего не делает: файлы не держатся открытыми
func (s *FileStorage) Close() error {
	return nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrChunkNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения %s: %w", path, err)
	}
	return data, nil
}

// writeFileAtomic пишет во временный файл и переименовывает его,
// чтобы прерванная запись не оставила обрезанный чанк
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("не удалось создать каталог %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".chunk-*")
	if err != nil {
		return fmt.Errorf("не удалось создать временный файл: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("ошибка записи %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ошибка записи %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ошибка переименования %s: %w", path, err)
	}
	return nil
}
