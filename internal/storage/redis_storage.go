package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/voxelmap/internal/vec"
	"github.com/go-redis/redis/v8"
)

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string // Адрес Redis сервера
	Password  string // Пароль (пустой если не требуется)
	DB        int    // Номер базы данных
	KeyPrefix string // Префикс для ключей
	Compress  bool   // Сжимать значения zstd
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "voxelmap:",
		Compress:  true,
	}
}

// RedisStorage хранит чанки в Redis, общем для нескольких процессов
type RedisStorage struct {
	client    *redis.Client
	keyPrefix string
	codec     *compressor
}

// NewRedisStorage подключается к Redis и проверяет соединение
func NewRedisStorage(ctx context.Context, config *RedisConfig) (*RedisStorage, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	s := &RedisStorage{client: client, keyPrefix: config.KeyPrefix}
	if config.Compress {
		var err error
		if s.codec, err = newCompressor(); err != nil {
			client.Close()
			return nil, err
		}
	}
	return s, nil
}

// LoadChunk читает чанк из слота
func (s *RedisStorage) LoadChunk(ctx context.Context, slot int, key vec.Vec2) ([]byte, error) {
	return s.get(ctx, chunkKey(s.keyPrefix, slot, key))
}

// SaveChunk записывает чанк в слот
func (s *RedisStorage) SaveChunk(ctx context.Context, slot int, key vec.Vec2, data []byte) error {
	return s.set(ctx, chunkKey(s.keyPrefix, slot, key), data)
}

// SaveTemplate записывает шаблон чанка
func (s *RedisStorage) SaveTemplate(ctx context.Context, key vec.Vec2, data []byte) error {
	return s.set(ctx, templateKey(s.keyPrefix, key), data)
}

// RestoreTemplate копирует шаблон в слот. Значение копируется как есть,
// без распаковки.
func (s *RedisStorage) RestoreTemplate(ctx context.Context, slot int, key vec.Vec2) error {
	raw, err := s.client.Get(ctx, templateKey(s.keyPrefix, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: template %s", ErrChunkNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("ошибка чтения шаблона из Redis: %w", err)
	}
	if err := s.client.Set(ctx, chunkKey(s.keyPrefix, slot, key), raw, 0).Err(); err != nil {
		return fmt.Errorf("ошибка записи в Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение
func (s *RedisStorage) Close() error {
	s.codec.close()
	return s.client.Close()
}

func (s *RedisStorage) get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrChunkNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из Redis: %w", err)
	}
	return s.codec.decompress(raw)
}

func (s *RedisStorage) set(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, key, s.codec.compress(data), 0).Err(); err != nil {
		return fmt.Errorf("ошибка записи в Redis: %w", err)
	}
	return nil
}
