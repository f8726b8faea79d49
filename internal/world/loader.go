package world

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/annel0/voxelmap/internal/logging"
	"github.com/annel0/voxelmap/internal/storage"
	"github.com/annel0/voxelmap/internal/vec"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// loadRequest - задание на загрузку чанка
type loadRequest struct {
	key  vec.Vec2
	slot int
}

// loadResult - готовый чанк, передаётся в поток обновления
type loadResult struct {
	key      vec.Vec2
	chunk    *Chunk
	entities []Entity
	source   LoadSource
	duration time.Duration
}

// chunkLoader - пул воркеров загрузки с очередями заданий и результатов
type chunkLoader struct {
	cfg       *WorldConfig
	storage   storage.ChunkStorage
	generator Generator
	logger    *logging.Logger
	tracer    trace.Tracer

	requests chan loadRequest
	results  chan loadResult

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newChunkLoader(cfg *WorldConfig, st storage.ChunkStorage, gen Generator, workers, queueSize int, logger *logging.Logger) *chunkLoader {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &chunkLoader{
		cfg:       cfg,
		storage:   st,
		generator: gen,
		logger:    logger,
		tracer:    otel.Tracer("voxelmap/world"),
		requests:  make(chan loadRequest, queueSize),
		results:   make(chan loadResult, queueSize),
		ctx:       ctx,
		cancel:    cancel,
	}

	for i := 0; i < workers; i++ {
		l.wg.Add(1)
		go l.worker()
	}
	return l
}

// enqueue ставит задание, не блокируясь. false - очередь заполнена.
func (l *chunkLoader) enqueue(req loadRequest) bool {
	select {
	case l.requests <- req:
		return true
	default:
		return false
	}
}

// poll забирает готовый результат, не блокируясь
func (l *chunkLoader) poll() (loadResult, bool) {
	select {
	case res := <-l.results:
		return res, true
	default:
		return loadResult{}, false
	}
}

// stop останавливает воркеры и ждёт их завершения
func (l *chunkLoader) stop() {
	l.cancel()
	l.wg.Wait()
}

func (l *chunkLoader) worker() {
	defer l.wg.Done()
	for {
		select {
		case <-l.ctx.Done():
			return
		case req := <-l.requests:
			res := l.load(req)
			select {
			case l.results <- res:
			case <-l.ctx.Done():
				return
			}
		}
	}
}

// load читает чанк из слота, затем из шаблона, иначе генерирует
func (l *chunkLoader) load(req loadRequest) loadResult {
	start := time.Now()
	ctx, span := l.tracer.Start(l.ctx, "chunk.load", trace.WithAttributes(
		attribute.Int("chunk.x", req.key.X),
		attribute.Int("chunk.y", req.key.Y),
		attribute.Int("save.slot", req.slot),
	))
	defer span.End()

	res := loadResult{key: req.key}

	if decoded, source, ok := l.loadStored(ctx, req); ok {
		res.chunk = decoded.Chunk
		res.entities = decoded.Entities
		res.source = source
	} else {
		res.chunk = NewChunk(l.cfg, req.key)
		res.entities = res.chunk.Generate(l.generator)
		res.source = SourceGenerated
		l.logger.Info("Чанк %s сгенерирован", req.key)
	}

	span.SetAttributes(attribute.String("chunk.source", string(res.source)))
	res.duration = time.Since(start)
	return res
}

// loadStored пытается прочитать сохранение или восстановить шаблон.
// Повреждённый файл считается отсутствующим.
func (l *chunkLoader) loadStored(ctx context.Context, req loadRequest) (*DecodedChunk, LoadSource, bool) {
	if l.storage == nil {
		return nil, "", false
	}
	span := trace.SpanFromContext(ctx)

	source := SourceSave
	data, err := l.storage.LoadChunk(ctx, req.slot, req.key)
	if errors.Is(err, storage.ErrChunkNotFound) {
		if err := l.storage.RestoreTemplate(ctx, req.slot, req.key); err != nil {
			if !errors.Is(err, storage.ErrChunkNotFound) {
				l.logger.Warn("Не удалось восстановить шаблон чанка %s: %v", req.key, err)
			}
			return nil, "", false
		}
		source = SourceTemplate
		data, err = l.storage.LoadChunk(ctx, req.slot, req.key)
	}
	if err != nil {
		l.logger.Error("Ошибка чтения чанка %s: %v", req.key, err)
		span.RecordError(err)
		return nil, "", false
	}

	decoded, err := DecodeChunk(l.cfg, req.key, data)
	if err != nil {
		l.logger.Error("Повреждён файл чанка %s, будет сгенерирован: %v", req.key, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "corrupt chunk")
		return nil, "", false
	}

	for _, z := range decoded.AbandonedLayers {
		l.logger.Error("Чанк %s: слой %d повреждён и пропущен", req.key, z)
	}
	for _, skipped := range decoded.SkippedEntities {
		l.logger.Warn("Чанк %s: сущность пропущена: %v", req.key, skipped)
	}
	l.logger.Debug("Чанк %s загружен (%s)", req.key, source)
	return decoded, source, true
}
