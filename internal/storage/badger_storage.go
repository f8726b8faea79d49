package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/voxelmap/internal/vec"
	"github.com/dgraph-io/badger/v3"
)

// BadgerOptions задаёт параметры BadgerStorage
type BadgerOptions struct {
	Path     string // Каталог базы; игнорируется при InMemory
	InMemory bool   // База без диска (для тестов)
	Compress bool   // Сжимать значения zstd
}

// BadgerStorage хранит чанки во встроенной базе BadgerDB
type BadgerStorage struct {
	db    *badger.DB
	codec *compressor
	mutex sync.RWMutex
	ready bool
}

// NewBadgerStorage открывает базу чанков
func NewBadgerStorage(opts BadgerOptions) (*BadgerStorage, error) {
	dbOpts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	dbOpts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	s := &BadgerStorage{db: db, ready: true}
	if opts.Compress {
		if s.codec, err = newCompressor(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// LoadChunk читает чанк из слота
func (s *BadgerStorage) LoadChunk(ctx context.Context, slot int, key vec.Vec2) ([]byte, error) {
	return s.get(chunkKey("", slot, key))
}

// SaveChunk записывает чанк в слот
func (s *BadgerStorage) SaveChunk(ctx context.Context, slot int, key vec.Vec2, data []byte) error {
	return s.set(chunkKey("", slot, key), data)
}

// SaveTemplate записывает шаблон чанка
func (s *BadgerStorage) SaveTemplate(ctx context.Context, key vec.Vec2, data []byte) error {
	return s.set(templateKey("", key), data)
}

// RestoreTemplate копирует шаблон в слот в одной транзакции
func (s *BadgerStorage) RestoreTemplate(ctx context.Context, slot int, key vec.Vec2) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.ready {
		return ErrClosed
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(templateKey("", key)))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return txn.Set([]byte(chunkKey("", slot, key)), val)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: template %s", ErrChunkNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("ошибка восстановления шаблона в BadgerDB: %w", err)
	}
	return nil
}

// Close закрывает базу
func (s *BadgerStorage) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.ready {
		return nil
	}
	s.ready = false
	s.codec.close()
	return s.db.Close()
}

func (s *BadgerStorage) get(key string) ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.ready {
		return nil, ErrClosed
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrChunkNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	return s.codec.decompress(data)
}

func (s *BadgerStorage) set(key string, data []byte) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.ready {
		return ErrClosed
	}

	value := s.codec.compress(data)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}
