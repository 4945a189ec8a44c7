package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/mindtussle/internal/domain"
	"github.com/xela07ax/mindtussle/internal/scheduler"
	"go.uber.org/zap"
)

func newTestService(clock scheduler.Clock) *Service {
	return NewService(
		NewMemoryCell[domain.MissionState](),
		NewMemoryCell[domain.DriftState](),
		clock, DefaultWindows(), nil, zap.NewNop(),
	)
}

func TestReadMissionImmediatelyAfterPush(t *testing.T) {
	clock := scheduler.NewFakeClock(time.Unix(1_700_000_000, 0))
	svc := newTestService(clock)
	ctx := context.Background()

	_, err := svc.PushMission(ctx, domain.MissionPush{
		IsActive:     true,
		AllowedSites: []string{"docs.google.com", "leetcode"},
		Mode:         "BALANCED",
		Objective:    "ship relay",
	})
	require.NoError(t, err)

	got := svc.ReadMission(ctx)
	assert.True(t, got.IsActive)
	assert.Equal(t, []string{"docs.google.com", "leetcode"}, got.AllowedSites)
	assert.Equal(t, domain.ModeBalanced, got.Mode)
	assert.Equal(t, "ship relay", got.Objective)
	assert.Equal(t, clock.Now().UnixMilli(), got.Timestamp)
}

func TestMissionExpiresAfterWindow(t *testing.T) {
	clock := scheduler.NewFakeClock(time.Unix(1_700_000_000, 0))
	svc := newTestService(clock)
	ctx := context.Background()

	_, err := svc.PushMission(ctx, domain.MissionPush{IsActive: true, AllowedSites: []string{"docs.google.com"}, Mode: "STRICT"})
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	assert.True(t, svc.ReadMission(ctx).IsActive, "exactly at the window the mission is still active")

	clock.Advance(time.Second)
	got := svc.ReadMission(ctx)
	assert.False(t, got.IsActive)
	assert.Equal(t, []string{"docs.google.com"}, got.AllowedSites, "only the flag is forced off")

	// Свежий пуш снова активирует миссию
	_, err = svc.PushMission(ctx, domain.MissionPush{IsActive: true})
	require.NoError(t, err)
	assert.True(t, svc.ReadMission(ctx).IsActive)
}

func TestDriftExpiresAfterFifteenSeconds(t *testing.T) {
	clock := scheduler.NewFakeClock(time.Unix(1_700_000_000, 0))
	svc := newTestService(clock)
	ctx := context.Background()

	_, err := svc.PushDrift(ctx, domain.DriftPush{IsDrifted: true, Message: "youtube detected"})
	require.NoError(t, err)

	clock.Advance(15 * time.Second)
	assert.True(t, svc.ReadDrift(ctx).IsDrifted)

	clock.Advance(time.Millisecond)
	got := svc.ReadDrift(ctx)
	assert.False(t, got.IsDrifted)
	assert.Equal(t, "youtube detected", got.Message)
	assert.Equal(t, domain.ModeStrict, got.Mode)
}

func TestPushDefaultsMissingFields(t *testing.T) {
	svc := newTestService(scheduler.NewFakeClock(time.Unix(0, 0)))
	ctx := context.Background()

	_, err := svc.PushMission(ctx, domain.MissionPush{IsActive: true})
	require.NoError(t, err)

	got := svc.ReadMission(ctx)
	assert.Equal(t, domain.ModeStrict, got.Mode)
	assert.NotNil(t, got.AllowedSites)
	assert.Empty(t, got.AllowedSites)
}

func TestNeverPushedReadsInactive(t *testing.T) {
	svc := newTestService(scheduler.NewFakeClock(time.Unix(0, 0)))
	ctx := context.Background()

	assert.Equal(t, domain.InactiveMission(), svc.ReadMission(ctx))
	assert.Equal(t, domain.InactiveDrift(), svc.ReadDrift(ctx))
}

func TestCellsAreIndependentAcrossServices(t *testing.T) {
	clock := scheduler.NewFakeClock(time.Unix(0, 0))
	a := newTestService(clock)
	b := newTestService(clock)
	ctx := context.Background()

	_, err := a.PushMission(ctx, domain.MissionPush{IsActive: true})
	require.NoError(t, err)
	assert.False(t, b.ReadMission(ctx).IsActive)
}

func TestReadDoesNotLeakInternalSlice(t *testing.T) {
	svc := newTestService(scheduler.NewFakeClock(time.Unix(0, 0)))
	ctx := context.Background()
	_, err := svc.PushMission(ctx, domain.MissionPush{IsActive: true, AllowedSites: []string{"a.com"}})
	require.NoError(t, err)

	got := svc.ReadMission(ctx)
	got.AllowedSites[0] = "mutated"
	assert.Equal(t, "a.com", svc.ReadMission(ctx).AllowedSites[0])
}

type brokenCell[T any] struct{}

func (brokenCell[T]) Load(context.Context) (T, bool, error) {
	var v T
	return v, false, errors.New("backend down")
}
func (brokenCell[T]) Store(context.Context, T) error { return errors.New("backend down") }

func TestBrokenStoreFailsOpen(t *testing.T) {
	svc := NewService(brokenCell[domain.MissionState]{}, brokenCell[domain.DriftState]{},
		scheduler.NewFakeClock(time.Unix(0, 0)), DefaultWindows(), nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.PushMission(ctx, domain.MissionPush{IsActive: true})
	require.Error(t, err)
	assert.False(t, svc.ReadMission(ctx).IsActive)
	assert.False(t, svc.ReadDrift(ctx).IsDrifted)
}
