package relay

/*
Relay хранит два независимых состояния: миссию и дрейф. Web-приложение пушит их
целиком, расширение читает поллингом.

Единственная политика отказоустойчивости — проверка "протухания" на чтении:
если продюсер замолчал дольше окна (30с для миссии, 15с для дрейфа), флаг
активности принудительно сбрасывается. Закрытая вкладка приложения не должна
оставлять расширение в уверенности, что миссия идет.
*/

import (
	"context"
	"time"

	"github.com/xela07ax/mindtussle/internal/domain"
	"github.com/xela07ax/mindtussle/internal/scheduler"
	"go.uber.org/zap"
)

// Windows — окна "протухания" для каждого ресурса.
type Windows struct {
	Mission time.Duration
	Drift   time.Duration
}

// DefaultWindows — значения исходного продукта.
func DefaultWindows() Windows {
	return Windows{Mission: 30 * time.Second, Drift: 15 * time.Second}
}

type Service struct {
	mission Cell[domain.MissionState]
	drift   Cell[domain.DriftState]
	clock   scheduler.Clock
	windows Windows
	metrics *Metrics
	logger  *zap.Logger
}

func NewService(
	mission Cell[domain.MissionState],
	drift Cell[domain.DriftState],
	clock scheduler.Clock,
	windows Windows,
	metrics *Metrics,
	logger *zap.Logger,
) *Service {
	if clock == nil {
		clock = scheduler.Real()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Service{
		mission: mission,
		drift:   drift,
		clock:   clock,
		windows: windows,
		metrics: metrics,
		logger:  logger.Named("relay"),
	}
}

// PushMission перезаписывает миссию целиком и ставит метку времени.
func (s *Service) PushMission(ctx context.Context, p domain.MissionPush) (domain.MissionState, error) {
	state := domain.NewMissionState(p, s.clock.Now())
	if err := s.mission.Store(ctx, state); err != nil {
		s.metrics.StoreErrors.WithLabelValues(resourceMission, "store").Inc()
		s.logger.Error("mission push not stored", zap.Error(err))
		return state, err
	}
	s.metrics.Pushes.WithLabelValues(resourceMission).Inc()

	s.logger.Debug("mission status updated",
		zap.Bool("active", state.IsActive),
		zap.Strings("allowed", state.AllowedSites),
		zap.String("mode", string(state.Mode)))
	return state, nil
}

// ReadMission отдает миссию после проверки "протухания".
// Недоступное хранилище трактуется как "миссии нет" (fail-open).
func (s *Service) ReadMission(ctx context.Context) domain.MissionState {
	s.metrics.Reads.WithLabelValues(resourceMission).Inc()

	state, found, err := s.mission.Load(ctx)
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues(resourceMission, "load").Inc()
		s.logger.Warn("mission state unavailable, reporting inactive", zap.Error(err))
		return domain.InactiveMission()
	}
	if !found {
		return domain.InactiveMission()
	}

	state = state.Clone()
	if state.AllowedSites == nil {
		state.AllowedSites = []string{}
	}
	if s.expired(resourceMission, state.PushedAt(), s.windows.Mission) && state.IsActive {
		s.metrics.StaleReads.WithLabelValues(resourceMission).Inc()
		state.IsActive = false
	}
	return state
}

// PushDrift перезаписывает состояние дрейфа целиком.
func (s *Service) PushDrift(ctx context.Context, p domain.DriftPush) (domain.DriftState, error) {
	state := domain.NewDriftState(p, s.clock.Now())
	if err := s.drift.Store(ctx, state); err != nil {
		s.metrics.StoreErrors.WithLabelValues(resourceDrift, "store").Inc()
		s.logger.Error("drift push not stored", zap.Error(err))
		return state, err
	}
	s.metrics.Pushes.WithLabelValues(resourceDrift).Inc()
	return state, nil
}

// ReadDrift отдает дрейф после проверки "протухания".
func (s *Service) ReadDrift(ctx context.Context) domain.DriftState {
	s.metrics.Reads.WithLabelValues(resourceDrift).Inc()

	state, found, err := s.drift.Load(ctx)
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues(resourceDrift, "load").Inc()
		s.logger.Warn("drift state unavailable, reporting not drifted", zap.Error(err))
		return domain.InactiveDrift()
	}
	if !found {
		return domain.InactiveDrift()
	}
	if s.expired(resourceDrift, state.PushedAt(), s.windows.Drift) && state.IsDrifted {
		s.metrics.StaleReads.WithLabelValues(resourceDrift).Inc()
		state.IsDrifted = false
	}
	return state
}

func (s *Service) expired(resource string, pushedAt time.Time, window time.Duration) bool {
	age := s.clock.Now().Sub(pushedAt)
	s.metrics.PushAge.WithLabelValues(resource).Set(age.Seconds())
	return age > window
}
