// Package metrics публикует статистику карты и кеша отрисовки в Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/annel0/voxelmap/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/process"
)

// Exporter хранит метрики в собственном регистре и периодически обновляет
// показатели процесса. Реализует world.MapMetrics и render.RenderMetrics.
type Exporter struct {
	registry *prometheus.Registry
	logger   *logging.Logger
	server   *http.Server
	proc     *process.Process
	interval time.Duration

	quit chan struct{}
	done chan struct{}

	chunkLoads    *prometheus.HistogramVec
	chunksEvicted prometheus.Counter
	resident      prometheus.Gauge
	pendingLoads  prometheus.Gauge

	rebuilds     prometheus.Counter
	rebakedCells prometheus.Counter
	renderChunks prometheus.Gauge

	rss        prometheus.Gauge
	cpuPercent prometheus.Gauge
}

// NewExporter создаёт экспортер и регистрирует метрики. HTTP не запускается.
func NewExporter(namespace string, interval time.Duration) *Exporter {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		logger:   logging.GetComponentLogger("metrics"),
		interval: interval,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		chunkLoads: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "map",
			Name:      "chunk_load_duration_seconds",
			Help:      "Время загрузки чанка по источнику.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"source"}),
		chunksEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "map",
			Name:      "chunks_evicted_total",
			Help:      "Выгружено чанков.",
		}),
		resident: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "map",
			Name:      "resident_chunks",
			Help:      "Загруженные чанки.",
		}),
		pendingLoads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "map",
			Name:      "pending_loads",
			Help:      "Чанки в очереди загрузки.",
		}),
		rebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "chunk_rebuilds_total",
			Help:      "Построено кешей отрисовки.",
		}),
		rebakedCells: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "rebaked_cells_total",
			Help:      "Клеток с пересчитанным освещением.",
		}),
		renderChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "chunks",
			Help:      "Кеши отрисовки в памяти.",
		}),
		rss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "process",
			Name:      "rss_bytes",
			Help:      "Резидентная память процесса.",
		}),
		cpuPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "process",
			Name:      "cpu_percent",
			Help:      "Загрузка CPU процессом.",
		}),
	}

	e.registry.MustRegister(
		e.chunkLoads, e.chunksEvicted, e.resident, e.pendingLoads,
		e.rebuilds, e.rebakedCells, e.renderChunks,
		e.rss, e.cpuPercent,
	)

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		e.logger.Warn("Показатели процесса недоступны: %v", err)
	} else {
		e.proc = proc
	}
	return e
}

// Registry возвращает регистр для подключения других коллекторов
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler возвращает обработчик /metrics
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}

// StartHTTP запускает эндпоинт /metrics и цикл обновления показателей процесса.
// Не блокирует.
func (e *Exporter) StartHTTP(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	e.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		e.logger.Info("Prometheus /metrics доступен по адресу %s", addr)
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("Ошибка HTTP сервера метрик: %v", err)
		}
	}()
	go e.loop()
}

// Stop останавливает цикл обновления и HTTP сервер
func (e *Exporter) Stop(ctx context.Context) error {
	if e.server == nil {
		return nil
	}
	close(e.quit)
	<-e.done
	return e.server.Shutdown(ctx)
}

func (e *Exporter) loop() {
	defer close(e.done)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.collectProcess()
		case <-e.quit:
			return
		}
	}
}

// collectProcess обновляет RSS и загрузку CPU
func (e *Exporter) collectProcess() {
	if e.proc == nil {
		return
	}
	if mem, err := e.proc.MemoryInfo(); err == nil {
		e.rss.Set(float64(mem.RSS))
	}
	if cpu, err := e.proc.CPUPercent(); err == nil {
		e.cpuPercent.Set(cpu)
	}
}

func (e *Exporter) ObserveChunkLoad(source string, duration time.Duration) {
	e.chunkLoads.WithLabelValues(source).Observe(duration.Seconds())
}

func (e *Exporter) IncChunksEvicted()       { e.chunksEvicted.Inc() }
func (e *Exporter) SetResidentChunks(n int) { e.resident.Set(float64(n)) }
func (e *Exporter) SetPendingLoads(n int)   { e.pendingLoads.Set(float64(n)) }
func (e *Exporter) IncChunkRebuilds()       { e.rebuilds.Inc() }
func (e *Exporter) AddRebakedCells(n int)   { e.rebakedCells.Add(float64(n)) }
func (e *Exporter) SetRenderChunks(n int)   { e.renderChunks.Set(float64(n)) }
