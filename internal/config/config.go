package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig возвращается Validate при нарушении ограничений
var ErrInvalidConfig = errors.New("invalid config")

// Config корневая структура конфигурации сервера карты
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Storage   StorageConfig   `yaml:"storage"`
	Streaming StreamingConfig `yaml:"streaming"`
	Render    RenderConfig    `yaml:"render"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type WorldConfig struct {
	BlocksX              int     `yaml:"blocks_x"`
	BlocksY              int     `yaml:"blocks_y"`
	BlocksZ              int     `yaml:"blocks_z"`
	EdgeLength           float32 `yaml:"edge_length"`
	DiagLength           float32 `yaml:"diag_length"`
	GroundBlock          uint16  `yaml:"ground_block"`
	ChunkExt             string  `yaml:"chunk_ext"`
	CustomBlockThreshold uint16  `yaml:"custom_block_threshold"`
	Generator            string  `yaml:"generator"` // perlin | flat | air
	Seed                 int64   `yaml:"seed"`
	FlatHeight           int     `yaml:"flat_height"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"` // file | badger | redis
	Path        string `yaml:"path"`
	SaveSlot    int    `yaml:"save_slot"`
	SaveOnEvict bool   `yaml:"save_on_evict"`
	RedisAddr   string `yaml:"redis_addr"`
	Compress    bool   `yaml:"compress"`
}

type StreamingConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

type RenderConfig struct {
	ZRenderLimit int `yaml:"z_render_limit"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Service string `yaml:"service"`
}

type APIConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		World: WorldConfig{
			BlocksX:              16,
			BlocksY:              32,
			BlocksZ:              8,
			EdgeLength:           90,
			DiagLength:           180,
			GroundBlock:          10,
			ChunkExt:             "chunk",
			CustomBlockThreshold: 40,
			Generator:            "perlin",
			Seed:                 1,
			FlatHeight:           2,
		},
		Storage: StorageConfig{
			Backend:     "file",
			Path:        "data/map",
			SaveOnEvict: true,
			RedisAddr:   "localhost:6379",
		},
		Streaming: StreamingConfig{Workers: 4, QueueSize: 64},
		Telemetry: TelemetryConfig{Service: "voxelmap"},
		Logging: LoggingConfig{
			Dir:          "logs",
			ConsoleLevel: "INFO",
			FileLevel:    "DEBUG",
		},
	}
}

// GetMetricsAddr возвращает адрес /metrics: config -> env -> default
func (m *MetricsConfig) GetMetricsAddr() string {
	return getAddrWithEnvFallback(m.Addr, "VOXELMAP_METRICS_ADDR", ":2112")
}

// GetAPIAddr возвращает адрес отладочного API: config -> env -> default
func (a *APIConfig) GetAPIAddr() string {
	return getAddrWithEnvFallback(a.Addr, "VOXELMAP_API_ADDR", ":8088")
}

// GetRedisAddr возвращает адрес Redis: config -> env -> default
func (s *StorageConfig) GetRedisAddr() string {
	return getAddrWithEnvFallback(s.RedisAddr, "VOXELMAP_REDIS_ADDR", "localhost:6379")
}

// getAddrWithEnvFallback возвращает адрес с приоритетом: config -> env -> default.
// Голый номер порта в переменной окружения превращается в ":порт".
func getAddrWithEnvFallback(configAddr, envVar, defaultAddr string) string {
	if configAddr != "" {
		return configAddr
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return ":" + envVal
		}
		return envVal
	}

	return defaultAddr
}

// Load читает YAML файл поверх значений по умолчанию.
// Если path == "", берёт путь из ENV VOXELMAP_CONFIG; без него возвращает Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("VOXELMAP_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет ограничения сетки и выбор бэкендов
func (c *Config) Validate() error {
	w := c.World
	if w.BlocksX <= 0 || w.BlocksY <= 0 || w.BlocksZ <= 0 {
		return fmt.Errorf("%w: chunk dimensions must be positive", ErrInvalidConfig)
	}
	if w.BlocksY%2 != 0 {
		return fmt.Errorf("%w: blocks_y %d must be even", ErrInvalidConfig, w.BlocksY)
	}
	if w.DiagLength <= 0 || w.DiagLength != float32(int(w.DiagLength)) || int(w.DiagLength)%2 != 0 {
		return fmt.Errorf("%w: diag_length %v must be a positive even integer", ErrInvalidConfig, w.DiagLength)
	}
	if w.EdgeLength <= 0 {
		return fmt.Errorf("%w: edge_length must be positive", ErrInvalidConfig)
	}
	if w.ChunkExt == "" {
		return fmt.Errorf("%w: chunk_ext is empty", ErrInvalidConfig)
	}
	switch w.Generator {
	case "perlin", "flat", "air":
	default:
		return fmt.Errorf("%w: unknown generator %q", ErrInvalidConfig, w.Generator)
	}

	switch c.Storage.Backend {
	case "file", "badger":
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: storage path is required for %s backend", ErrInvalidConfig, c.Storage.Backend)
		}
	case "redis":
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	if c.Storage.SaveSlot < 0 {
		return fmt.Errorf("%w: save_slot must not be negative", ErrInvalidConfig)
	}

	if c.Streaming.Workers < 0 || c.Streaming.QueueSize < 0 {
		return fmt.Errorf("%w: streaming workers and queue_size must not be negative", ErrInvalidConfig)
	}
	if c.Render.ZRenderLimit < 0 || c.Render.ZRenderLimit > w.BlocksZ {
		return fmt.Errorf("%w: z_render_limit %d outside 0..%d", ErrInvalidConfig, c.Render.ZRenderLimit, w.BlocksZ)
	}
	return nil
}
