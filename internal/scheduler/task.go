// Package scheduler — отменяемая повторяющаяся задача с джиттером и бэкоффом.
// Все циклы опроса (поллер расширения, heartbeat миссии, захват экрана)
// живут поверх Task, чтобы тесты управляли временем через FakeClock.
package scheduler

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// ErrStop — функция задачи просит завершить цикл без ошибки.
var ErrStop = errors.New("scheduler: stop requested")

// Func — один тик задачи.
type Func func(ctx context.Context) error

// Options — расписание задачи.
type Options struct {
	Interval   time.Duration // Пауза после успешного тика
	ErrorDelay time.Duration // Пауза после ошибки; 0 — как Interval
	Backoff    float64       // Множитель для подряд идущих ошибок; <= 1 — без роста
	MaxDelay   time.Duration // Потолок для бэкоффа
	Jitter     float64       // Доля случайного разброса 0..1
	Immediate  bool          // Первый тик сразу, без ожидания
	Clock      Clock
}

// Task выполняет Func по расписанию до отмены контекста.
// Тики одной задачи не перекрываются: следующая пауза отсчитывается после завершения тика.
type Task struct {
	name   string
	fn     Func
	opts   Options
	logger *zap.Logger
}

func New(name string, fn Func, opts Options, logger *zap.Logger) *Task {
	if opts.Clock == nil {
		opts.Clock = Real()
	}
	if opts.ErrorDelay <= 0 {
		opts.ErrorDelay = opts.Interval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Task{
		name:   name,
		fn:     fn,
		opts:   opts,
		logger: logger.With(zap.String("task", name)),
	}
}

// Run блокируется, пока контекст не отменен или Func не вернул ErrStop.
func (t *Task) Run(ctx context.Context) {
	failures := 0
	if !t.opts.Immediate {
		if !t.sleep(ctx, t.NextDelay(0)) {
			return
		}
	}

	for {
		err := t.fn(ctx)
		switch {
		case errors.Is(err, ErrStop):
			t.logger.Debug("task stopped by func")
			return
		case ctx.Err() != nil:
			return
		case err != nil:
			failures++
			t.logger.Debug("tick failed", zap.Int("failures", failures), zap.Error(err))
		default:
			failures = 0
		}

		if !t.sleep(ctx, t.NextDelay(failures)) {
			return
		}
	}
}

// Start запускает задачу в горутине и возвращает хэндл для остановки.
func (t *Task) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		t.Run(ctx)
	}()
	return h
}

// NextDelay считает паузу перед следующим тиком по числу подряд идущих ошибок.
func (t *Task) NextDelay(failures int) time.Duration {
	d := t.opts.Interval
	if failures > 0 {
		d = t.opts.ErrorDelay
		if t.opts.Backoff > 1 && failures > 1 {
			d = time.Duration(float64(d) * math.Pow(t.opts.Backoff, float64(failures-1)))
		}
		if t.opts.MaxDelay > 0 && d > t.opts.MaxDelay {
			d = t.opts.MaxDelay
		}
	}
	if t.opts.Jitter > 0 && d > 0 {
		spread := float64(d) * math.Min(t.opts.Jitter, 1)
		d += time.Duration(spread * (rand.Float64()*2 - 1))
	}
	return d
}

func (t *Task) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-t.opts.Clock.After(d):
		return true
	}
}

// Handle управляет запущенной задачей.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Stop отменяет задачу и ждет выхода из Run.
func (h *Handle) Stop() {
	h.cancel()
	<-h.done
}

// Done закрывается после выхода из Run.
func (h *Handle) Done() <-chan struct{} { return h.done }
