package mission

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/domain"
	"github.com/xela07ax/mindtussle/internal/scheduler"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingPusher struct {
	mu     sync.Mutex
	pushes []domain.MissionPush
	err    error
}

func (p *recordingPusher) PushMission(_ context.Context, push domain.MissionPush) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, push)
	return p.err
}

func (p *recordingPusher) all() []domain.MissionPush {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.MissionPush(nil), p.pushes...)
}

func openTestStore(t *testing.T) (*Store, *FileStorage, *recordingPusher, *scheduler.FakeClock) {
	t.Helper()
	storage := NewFileStorage(t.TempDir())
	pusher := &recordingPusher{}
	clock := scheduler.NewFakeClock(time.UnixMilli(1_700_000_000_000))
	s, err := Open(context.Background(), storage, pusher, clock, zap.NewNop())
	require.NoError(t, err)
	return s, storage, pusher, clock
}

func TestOpenEmptyUsesDefaults(t *testing.T) {
	s, _, pusher, _ := openTestStore(t)

	snap := s.Snapshot()
	assert.Equal(t, domain.DefaultSettings(), snap.Settings)
	assert.Equal(t, 1, snap.Level)
	assert.Nil(t, snap.Mission)
	assert.Empty(t, pusher.all(), "без миссии нечего синхронизировать")
}

func TestStartMissionPersistsAndPushes(t *testing.T) {
	s, storage, pusher, _ := openTestStore(t)
	ctx := context.Background()

	m, err := s.StartMission(ctx, "Finish thesis", "balanced", []string{"docs.google.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeBalanced, m.TrackingType)
	assert.Equal(t, int64(1_700_000_000_000), m.StartTime)

	require.Len(t, pusher.all(), 1)
	assert.Equal(t, domain.MissionPush{
		IsActive: true, AllowedSites: []string{"docs.google.com"}, Mode: "BALANCED", Objective: "Finish thesis",
	}, pusher.all()[0])

	// Блоб на диске под фиксированным ключом
	assert.Equal(t, domain.StorageKey+".json", filepath.Base(storage.Path()))
	data, found, err := storage.Load()
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, data.Mission)
	assert.Equal(t, "Finish thesis", data.Mission.Objective)
}

func TestStartMissionRequiresObjective(t *testing.T) {
	s, _, _, _ := openTestStore(t)
	_, err := s.StartMission(context.Background(), "", "STRICT", nil)
	assert.ErrorIs(t, err, ErrNoObjective)
}

func TestEndMissionPushesInactive(t *testing.T) {
	s, _, pusher, _ := openTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.EndMission(ctx), ErrNoMission)

	_, err := s.StartMission(ctx, "Read papers", "", nil)
	require.NoError(t, err)
	require.NoError(t, s.EndMission(ctx))

	pushes := pusher.all()
	require.Len(t, pushes, 2)
	assert.False(t, pushes[1].IsActive)
	assert.Equal(t, []string{}, pushes[1].AllowedSites)
	assert.Equal(t, "STRICT", pushes[1].Mode)

	_, ok := s.Mission()
	assert.False(t, ok)
}

func TestReopenResyncsActiveMission(t *testing.T) {
	s, storage, _, clock := openTestStore(t)
	_, err := s.StartMission(context.Background(), "Ship release", "STRICT", []string{"github.com"})
	require.NoError(t, err)

	pusher := &recordingPusher{}
	reopened, err := Open(context.Background(), storage, pusher, clock, zap.NewNop())
	require.NoError(t, err)

	m, ok := reopened.Mission()
	require.True(t, ok)
	assert.Equal(t, "Ship release", m.Objective)
	require.Len(t, pusher.all(), 1)
	assert.True(t, pusher.all()[0].IsActive)
}

func TestLoginWithObjectiveStartsMission(t *testing.T) {
	s, _, pusher, _ := openTestStore(t)

	user, err := s.Login(context.Background(), "a@b.c", "", &LoginPreferences{Objective: "Learn Go", AllowedTools: []string{"go.dev"}})
	require.NoError(t, err)
	assert.Equal(t, defaultUserName, user.Name)

	m, ok := s.Mission()
	require.True(t, ok)
	assert.Equal(t, 4, m.DailyGoal)
	assert.Equal(t, domain.ModeStrict, m.TrackingType)
	assert.Len(t, pusher.all(), 1)
}

func TestLogoutPushesInactiveButKeepsMission(t *testing.T) {
	s, _, pusher, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.Login(ctx, "a@b.c", "Ann", &LoginPreferences{Objective: "Focus"})
	require.NoError(t, err)
	require.NoError(t, s.Logout(ctx))

	assert.Nil(t, s.Snapshot().User)
	pushes := pusher.all()
	assert.False(t, pushes[len(pushes)-1].IsActive)
	_, ok := s.Mission()
	assert.True(t, ok)
}

func TestPushFailureIsNotFatal(t *testing.T) {
	s, _, pusher, _ := openTestStore(t)
	pusher.err = errors.New("relay down")

	_, err := s.StartMission(context.Background(), "Write", "", nil)
	assert.NoError(t, err)
	assert.Error(t, s.Heartbeat(context.Background()))
}

func TestUpdateSettings(t *testing.T) {
	s, storage, _, _ := openTestStore(t)

	out, err := s.UpdateSettings(func(st *domain.Settings) { st.APIKey = "key"; st.FocusTime = 50 })
	require.NoError(t, err)
	assert.Equal(t, "key", out.APIKey)
	assert.Equal(t, 5, out.ShortBreak)

	data, _, err := storage.Load()
	require.NoError(t, err)
	assert.Equal(t, 50, data.Settings.FocusTime)
}

func TestHeartbeatTask(t *testing.T) {
	s, _, pusher, clock := openTestStore(t)
	_, err := s.StartMission(context.Background(), "Deep work", "", nil)
	require.NoError(t, err)

	h := s.HeartbeatTask(5 * time.Second).Start(context.Background())
	defer h.Stop()

	for i := 0; i < 3; i++ {
		clock.BlockUntil(1)
		clock.Advance(5 * time.Second)
	}
	clock.BlockUntil(1)

	// 1 пуш при старте + 3 heartbeat
	assert.Len(t, pusher.all(), 4)
}

func TestCorruptBlob(t *testing.T) {
	dir := t.TempDir()
	storage := NewFileStorage(dir)
	require.NoError(t, os.WriteFile(storage.Path(), []byte("{broken"), 0o600))

	_, err := Open(context.Background(), storage, &recordingPusher{}, nil, zap.NewNop())
	assert.Error(t, err)
}
