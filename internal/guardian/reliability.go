package guardian

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ReliabilitySettings — пределы для вызовов внешней модели.
type ReliabilitySettings struct {
	Timeout       time.Duration
	CBMaxRequests uint32
	CBInterval    time.Duration
	CBTimeout     time.Duration
	CBFailures    uint32
	RateLimit     float64
	RateBurst     int
}

// ReliabilityWrapper ограничивает частоту и выбивает предохранитель,
// если модель подряд не отвечает.
type ReliabilityWrapper struct {
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
}

func NewReliabilityWrapper(s ReliabilitySettings, onState func(open bool)) *ReliabilityWrapper {
	failures := s.CBFailures
	if failures == 0 {
		failures = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "guardian-model",
		MaxRequests: s.CBMaxRequests,
		Interval:    s.CBInterval,
		Timeout:     s.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			if onState != nil {
				onState(to == gobreaker.StateOpen)
			}
		},
	})

	limit := rate.Inf
	if s.RateLimit > 0 {
		limit = rate.Limit(s.RateLimit)
	}
	burst := s.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &ReliabilityWrapper{
		cb:      cb,
		limiter: rate.NewLimiter(limit, burst),
		timeout: s.Timeout,
	}
}

// Call выполняет fn под лимитером, предохранителем и таймаутом.
func (w *ReliabilityWrapper) Call(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit exceeded: %w", err)
	}

	// 2. Circuit Breaker
	res, err := w.cb.Execute(func() (interface{}, error) {
		callCtx := ctx
		if w.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, w.timeout)
			defer cancel()
		}
		return fn(callCtx)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}
