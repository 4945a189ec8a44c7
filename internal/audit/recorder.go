package audit

/*
Recorder собирает вердикты классификатора в журнал.

- Non-blocking: Log никогда не ждет БД, события уходят в буферизованный канал.
  Если буфер полон — событие сбрасывается с записью в лог (Load Shedding).
- Batching: воркер пишет пачками по таймеру или при достижении лимита.
- Drain: Stop закрывает канал и ждет, пока воркер допишет остатки (Final Flush).
*/

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StorageInterface определяет, куда физически будут сохраняться события
type StorageInterface interface {
	// WriteBatch сохраняет пачку событий за один раз
	WriteBatch(ctx context.Context, events []VerdictEvent) error
}

// Auditor — то, что нужно остальному коду от журнала.
type Auditor interface {
	Log(event VerdictEvent)
}

// Options — размеры буфера и частота сброса.
type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

type Recorder struct {
	ch       chan VerdictEvent
	repo     StorageInterface
	opts     Options
	logger   *zap.Logger
	wg       sync.WaitGroup

	// closeMu: Log отправляет под RLock, Stop закрывает канал под Lock
	closeMu sync.RWMutex
	closed  bool
}

func NewRecorder(repo StorageInterface, opts Options, logger *zap.Logger) *Recorder {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 500 * time.Millisecond
	}
	return &Recorder{
		ch:     make(chan VerdictEvent, opts.BufferSize),
		repo:   repo,
		opts:   opts,
		logger: logger.With(zap.String("mod", "audit")),
	}
}

func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет.
func (r *Recorder) Stop() {
	r.closeMu.Lock()
	if r.closed {
		r.closeMu.Unlock()
		return
	}
	r.closed = true
	r.logger.Info("stopping recorder: closing channel and flushing buffer...")
	close(r.ch)
	r.closeMu.Unlock()

	r.wg.Wait()
	r.logger.Info("recorder stopped gracefully")
}

func (r *Recorder) Log(event VerdictEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	r.closeMu.RLock()
	defer r.closeMu.RUnlock()
	if r.closed {
		r.logger.Warn("verdict event dropped: recorder is stopping", zap.String("id", event.ID))
		return
	}

	select {
	case r.ch <- event:
	default:
		// Backpressure: не блокируем ответ пользователю
		r.logger.Error("audit_buffer_overflow",
			zap.String("id", event.ID),
			zap.String("trace_id", event.TraceID),
		)
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	batch := make([]VerdictEvent, 0, r.opts.BatchSize)
	ticker := time.NewTicker(r.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст к этому моменту может быть уже закрыт
		if err := r.repo.WriteBatch(context.Background(), batch); err != nil {
			r.logger.Error("audit flush failed", zap.Int("events", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-r.ch:
			if !ok {
				flush() // Финальный сброс
				r.logger.Debug("audit worker finished")
				return
			}
			batch = append(batch, event)
			if len(batch) >= r.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// LogStorage — хранилище по умолчанию, когда БД не настроена: пишет вердикты в zap.
type LogStorage struct {
	logger *zap.Logger
}

func NewLogStorage(logger *zap.Logger) *LogStorage {
	return &LogStorage{logger: logger.Named("verdicts")}
}

func (s *LogStorage) WriteBatch(_ context.Context, events []VerdictEvent) error {
	for _, e := range events {
		s.logger.Info("guardian verdict",
			zap.String("trace_id", e.TraceID),
			zap.String("outcome", e.Outcome),
			zap.Bool("safe", e.Safe),
			zap.String("verdict", e.Verdict),
			zap.Strings("detected", e.DetectedSites),
			zap.Strings("blocked", e.BlockedSites),
			zap.Bool("overridden", e.Overridden),
			zap.Int64("duration_ms", e.DurationMs),
		)
	}
	return nil
}
