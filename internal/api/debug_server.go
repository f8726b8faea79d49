// Package api - отладочный HTTP интерфейс только для чтения. Обработчики
// читают снимки, опубликованные потоком обновления, и не трогают карту напрямую.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/voxelmap/internal/logging"
	"github.com/annel0/voxelmap/internal/middleware"
	"github.com/annel0/voxelmap/internal/render"
	"github.com/annel0/voxelmap/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// MapSnapshotter отдаёт последний снимок карты
type MapSnapshotter interface {
	Snapshot() world.MapSnapshot
}

// RenderSnapshotter отдаёт последний снимок кеша отрисовки
type RenderSnapshotter interface {
	Snapshot() render.Snapshot
}

// Config содержит конфигурацию отладочного сервера
type Config struct {
	Addr     string               // адрес для запуска сервера
	Map      MapSnapshotter       // обязателен
	Render   RenderSnapshotter    // может быть nil
	Registry *prometheus.Registry // nil - без HTTP-метрик и /metrics
}

// DebugServer представляет отладочный REST сервер
type DebugServer struct {
	router  *gin.Engine
	server  *http.Server
	addr    string
	mapSrc  MapSnapshotter
	render  RenderSnapshotter
	metrics *ServerMetrics
	logger  *logging.Logger
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewDebugServer создает сервер и настраивает маршруты
func NewDebugServer(config Config) *DebugServer {
	if config.Addr == "" {
		config.Addr = ":8088"
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	logger := logging.GetComponentLogger("api")
	router.Use(middleware.NewRequestLogger(logger).Handler())
	router.Use(otelgin.Middleware("voxelmap_api"))

	if config.Registry != nil {
		promMw := middleware.NewPrometheusMiddleware("voxelmap_api", config.Registry)
		router.Use(promMw.Handler())
		promMw.RegisterMetricsEndpoint(router)
	}

	ds := &DebugServer{
		router:  router,
		addr:    config.Addr,
		mapSrc:  config.Map,
		render:  config.Render,
		metrics: NewServerMetrics(),
		logger:  logger,
	}
	ds.setupRoutes()
	return ds
}

func (ds *DebugServer) setupRoutes() {
	ds.router.GET("/health", ds.handleHealth)

	api := ds.router.Group("/api")
	{
		api.GET("/chunks", ds.handleChunks)
		api.GET("/render", ds.handleRender)
		api.GET("/stats", ds.handleStats)
	}
}

// Handler возвращает http.Handler для тестов и встраивания
func (ds *DebugServer) Handler() http.Handler {
	return ds.router
}

// handleHealth проверка состояния сервера
func (ds *DebugServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"tick":   ds.mapSrc.Snapshot().Tick,
		"time":   time.Now().Unix(),
	})
}

// handleChunks возвращает загруженные чанки
func (ds *DebugServer) handleChunks(c *gin.Context) {
	snap := ds.mapSrc.Snapshot()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Загруженные чанки",
		Data:    snap.Chunks,
	})
}

// handleRender возвращает снимок кеша отрисовки
func (ds *DebugServer) handleRender(c *gin.Context) {
	if ds.render == nil {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: "Кеш отрисовки не подключен",
		})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Кеш отрисовки",
		Data:    ds.render.Snapshot(),
	})
}

// handleStats возвращает сводную статистику
func (ds *DebugServer) handleStats(c *gin.Context) {
	snap := ds.mapSrc.Snapshot()
	stats := map[string]interface{}{
		"map": gin.H{
			"tick":      snap.Tick,
			"resident":  len(snap.Chunks),
			"pending":   snap.Pending,
			"entities":  snap.Entities,
			"cameras":   snap.Cameras,
			"loaded":    snap.Loaded,
			"evicted":   snap.Evicted,
			"generated": snap.Generated,
		},
	}
	if ds.render != nil {
		rs := ds.render.Snapshot()
		stats["render"] = gin.H{
			"chunks":    len(rs.Chunks),
			"lit_cells": rs.LitCells,
			"rebuilds":  rs.Rebuilds,
			"rebaked":   rs.Rebaked,
		}
	}

	server := gin.H{
		"uptime":    ds.metrics.GetUptime(),
		"memory_mb": ds.metrics.GetMemoryUsage(),
	}
	if rss, err := ds.metrics.GetRSS(); err == nil {
		server["rss_mb"] = rss
	}
	if cpu, err := ds.metrics.GetCPUUsage(); err == nil {
		server["cpu_percent"] = cpu
	}
	stats["server"] = server

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data:    stats,
	})
}

// Start запускает сервер в отдельной горутине
func (ds *DebugServer) Start() {
	ds.server = &http.Server{Addr: ds.addr, Handler: ds.router}
	go func() {
		ds.logger.Info("Отладочный API доступен по адресу %s", ds.addr)
		if err := ds.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ds.logger.Error("Ошибка отладочного API: %v", err)
		}
	}()
}

// Stop выполняет graceful shutdown
func (ds *DebugServer) Stop(ctx context.Context) error {
	if ds.server == nil {
		return nil
	}
	return ds.server.Shutdown(ctx)
}
