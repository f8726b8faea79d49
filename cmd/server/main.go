package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/voxelmap/internal/api"
	"github.com/annel0/voxelmap/internal/config"
	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/logging"
	"github.com/annel0/voxelmap/internal/metrics"
	"github.com/annel0/voxelmap/internal/observability"
	"github.com/annel0/voxelmap/internal/render"
	"github.com/annel0/voxelmap/internal/storage"
	"github.com/annel0/voxelmap/internal/world"
	"github.com/annel0/voxelmap/internal/world/block"
	"github.com/annel0/voxelmap/internal/world/block/implementations"
)

const tickInterval = 50 * time.Millisecond

func main() {
	configPath := flag.String("config", "", "Путь к YAML конфигурации (по умолчанию $VOXELMAP_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if err := logging.InitLogger(logging.Options{
		Dir:          cfg.Logging.Dir,
		ConsoleLevel: logging.ParseLevel(cfg.Logging.ConsoleLevel),
		FileLevel:    logging.ParseLevel(cfg.Logging.FileLevel),
	}); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseLogger()

	logging.LogInfo("🗺️ Запуск сервера карты")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry.Service, cfg.Telemetry.Enabled)
	if err != nil {
		log.Fatalf("❌ Ошибка инициализации телеметрии: %v", err)
	}

	// === КАРТА ===
	worldCfg, err := buildWorldConfig(cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка конфигурации мира: %v", err)
	}

	chunkStorage, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка открытия хранилища: %v", err)
	}

	exporter := metrics.NewExporter("voxelmap", 5*time.Second)

	m, err := world.NewMap(worldCfg, world.MapOptions{
		Storage:     chunkStorage,
		Generator:   buildGenerator(cfg, worldCfg),
		SaveSlot:    cfg.Storage.SaveSlot,
		SaveOnEvict: cfg.Storage.SaveOnEvict,
		Workers:     cfg.Streaming.Workers,
		QueueSize:   cfg.Streaming.QueueSize,
		Metrics:     exporter,
	})
	if err != nil {
		log.Fatalf("❌ Ошибка создания карты: %v", err)
	}

	renderStorage := render.NewRenderStorage(worldCfg, m, render.Options{
		ZRenderLimit: cfg.Render.ZRenderLimit,
		Metrics:      exporter,
	})
	m.AddListener(renderStorage)
	m.SetLightSink(renderStorage)

	// Камера наблюдателя в начале координат
	camera := world.NewCamera(grid.Point{}, 1920, 1080)
	m.AddCamera(camera)
	renderStorage.AddCamera(camera)

	// === HTTP ===
	metricsAddr := cfg.Metrics.GetMetricsAddr()
	exporter.StartHTTP(metricsAddr)

	apiAddr := cfg.API.GetAPIAddr()
	debugServer := api.NewDebugServer(api.Config{
		Addr:     apiAddr,
		Map:      m,
		Render:   renderStorage,
		Registry: exporter.Registry(),
	})
	debugServer.Start()

	logging.LogInfo("✅ Сервер карты запущен")
	logging.LogInfo("   📦 Хранилище: %s (%s), слот %d", cfg.Storage.Backend, cfg.Storage.Path, cfg.Storage.SaveSlot)
	logging.LogInfo("   📈 Метрики: http://localhost%s/metrics", metricsAddr)
	logging.LogInfo("   ❤️  Health check: http://localhost%s/health", apiAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// === ЦИКЛ ОБНОВЛЕНИЯ ===
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	last := time.Now()

loop:
	for {
		select {
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now
			m.Update(dt)
			renderStorage.Update(dt)
		case sig := <-sigCh:
			logging.LogInfo("📡 Получен сигнал %v, завершение работы...", sig)
			break loop
		}
	}

	// === GRACEFUL SHUTDOWN ===
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := debugServer.Stop(stopCtx); err != nil {
		logging.LogError("❌ Ошибка остановки API: %v", err)
	}
	if err := m.Close(stopCtx); err != nil {
		logging.LogError("❌ Ошибка сохранения карты: %v", err)
	}
	if chunkStorage != nil {
		if err := chunkStorage.Close(); err != nil {
			logging.LogError("❌ Ошибка закрытия хранилища: %v", err)
		}
	}
	if err := exporter.Stop(stopCtx); err != nil {
		logging.LogError("❌ Ошибка остановки метрик: %v", err)
	}
	if err := shutdownTelemetry(stopCtx); err != nil {
		logging.LogError("❌ Ошибка остановки телеметрии: %v", err)
	}

	logging.LogInfo("👋 Сервер карты остановлен")
}

// buildWorldConfig собирает параметры карты с таблицей пользовательских блоков
func buildWorldConfig(cfg *config.Config) (*world.WorldConfig, error) {
	w := cfg.World
	reg := block.NewRegistry(block.BlockID(w.CustomBlockThreshold))
	if err := implementations.RegisterDefaults(reg); err != nil {
		return nil, err
	}

	geometry := grid.Geometry{EdgeLength: w.EdgeLength, DiagLength: w.DiagLength}
	worldCfg, err := world.NewWorldConfig(w.BlocksX, w.BlocksY, w.BlocksZ, geometry, reg)
	if err != nil {
		return nil, err
	}
	worldCfg.GroundBlock = block.New(block.BlockID(w.GroundBlock), 0)
	return worldCfg, nil
}

func buildGenerator(cfg *config.Config, worldCfg *world.WorldConfig) world.Generator {
	switch cfg.World.Generator {
	case "flat":
		return world.NewFlatGenerator(cfg.World.FlatHeight)
	case "air":
		return world.AirGenerator{}
	default:
		return world.NewPerlinGenerator(cfg.World.Seed, worldCfg)
	}
}

// openStorage открывает выбранный бэкенд хранения чанков
func openStorage(ctx context.Context, cfg *config.Config) (storage.ChunkStorage, error) {
	s := cfg.Storage
	switch s.Backend {
	case "file":
		return storage.NewFileStorage(s.Path, cfg.World.ChunkExt)
	case "badger":
		return storage.NewBadgerStorage(storage.BadgerOptions{Path: s.Path, Compress: s.Compress})
	case "redis":
		redisCfg := storage.DefaultRedisConfig()
		redisCfg.Addr = s.GetRedisAddr()
		redisCfg.Compress = s.Compress
		return storage.NewRedisStorage(ctx, redisCfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", s.Backend)
	}
}
