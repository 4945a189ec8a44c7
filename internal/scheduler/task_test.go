package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNextDelay(t *testing.T) {
	task := New("t", nil, Options{
		Interval:   time.Second,
		ErrorDelay: 2 * time.Second,
		Backoff:    2,
		MaxDelay:   5 * time.Second,
	}, nil)

	assert.Equal(t, time.Second, task.NextDelay(0))
	assert.Equal(t, 2*time.Second, task.NextDelay(1))
	assert.Equal(t, 4*time.Second, task.NextDelay(2))
	assert.Equal(t, 5*time.Second, task.NextDelay(3), "capped by MaxDelay")
}

func TestNextDelayFixedErrorDelay(t *testing.T) {
	task := New("monitor", nil, Options{Interval: 5 * time.Second, ErrorDelay: 8 * time.Second}, nil)
	for i := 1; i < 5; i++ {
		assert.Equal(t, 8*time.Second, task.NextDelay(i))
	}
}

func TestNextDelayJitterBounds(t *testing.T) {
	task := New("t", nil, Options{Interval: time.Second, Jitter: 0.2}, nil)
	for i := 0; i < 200; i++ {
		d := task.NextDelay(0)
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
	}
}

func TestRunWithFakeClock(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	var ticks atomic.Int32
	task := New("poll", func(ctx context.Context) error {
		ticks.Add(1)
		return nil
	}, Options{Interval: time.Second, Immediate: true, Clock: clock}, nil)

	h := task.Start(context.Background())

	clock.BlockUntil(1)
	assert.Equal(t, int32(1), ticks.Load())

	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		clock.BlockUntil(1)
	}
	assert.Equal(t, int32(4), ticks.Load())

	h.Stop()
}

func TestRunUsesErrorDelay(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	var ticks atomic.Int32
	task := New("capture", func(ctx context.Context) error {
		ticks.Add(1)
		return errors.New("upstream down")
	}, Options{Interval: 5 * time.Second, ErrorDelay: 8 * time.Second, Immediate: true, Clock: clock}, nil)

	h := task.Start(context.Background())
	defer h.Stop()

	clock.BlockUntil(1)
	clock.Advance(5 * time.Second)
	assert.Equal(t, int32(1), ticks.Load(), "normal interval must not fire after an error")

	clock.Advance(3 * time.Second)
	clock.BlockUntil(1)
	assert.Equal(t, int32(2), ticks.Load())
}

func TestRunStopsOnErrStop(t *testing.T) {
	task := New("once", func(ctx context.Context) error {
		return ErrStop
	}, Options{Interval: time.Hour, Immediate: true}, nil)

	h := task.Start(context.Background())
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not stop")
	}
}

func TestStopBeforeFirstTick(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	called := false
	task := New("lazy", func(ctx context.Context) error {
		called = true
		return nil
	}, Options{Interval: time.Minute, Clock: clock}, nil)

	h := task.Start(context.Background())
	clock.BlockUntil(1)
	h.Stop()
	require.False(t, called)
}
