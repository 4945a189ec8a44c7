package shield

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/domain"
	"github.com/xela07ax/mindtussle/internal/scheduler"
)

// StatusSource — откуда поллер берет миссию (relayclient.Client).
type StatusSource interface {
	MissionStatus(ctx context.Context) (domain.MissionState, error)
}

// Poller — фоновый воркер расширения: опрашивает Relay и раздает состояние вкладкам.
type Poller struct {
	source  StatusSource
	hub     *Hub
	badge   *Badge
	metrics *Metrics
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.RWMutex
	state domain.ShieldState
}

func NewPoller(source StatusSource, hub *Hub, badge *Badge, metrics *Metrics, timeout time.Duration, logger *zap.Logger) *Poller {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Poller{
		source:  source,
		hub:     hub,
		badge:   badge,
		metrics: metrics,
		timeout: timeout,
		logger:  logger.With(zap.String("mod", "poller")),
		state:   domain.InactiveShield(),
	}
}

// State — ответ на GET_MISSION_STATUS.
func (p *Poller) State() domain.ShieldState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.state
	s.AllowedSites = append([]string{}, s.AllowedSites...)
	return s
}

// Tick — один опрос Relay.
func (p *Poller) Tick(ctx context.Context) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	mission, err := p.source.MissionStatus(ctx)
	if err != nil {
		// Relay не запущен: считаем, что миссии нет. Вкладкам не рассылаем
		p.metrics.Polls.WithLabelValues("error").Inc()
		p.setState(domain.InactiveShield())
		return err
	}
	p.metrics.Polls.WithLabelValues("ok").Inc()
	p.Apply(mission)
	return nil
}

// Apply принимает свежую миссию (из опроса или из Redis-канала) и рассылает ее вкладкам.
func (p *Poller) Apply(mission domain.MissionState) {
	state := domain.ShieldFromMission(mission)
	p.setState(state)

	delivered := p.hub.Broadcast(domain.MissionUpdate(state))
	p.metrics.Broadcasts.Add(float64(delivered))
}

func (p *Poller) setState(s domain.ShieldState) {
	p.mu.Lock()
	changed := p.state.IsActive != s.IsActive
	p.state = s
	p.mu.Unlock()

	p.badge.Set(s.IsActive)
	if s.IsActive {
		p.metrics.MissionActive.Set(1)
	} else {
		p.metrics.MissionActive.Set(0)
	}
	if changed {
		p.logger.Info("mission state changed", zap.Bool("active", s.IsActive), zap.Strings("allowed", s.AllowedSites))
	}
}

// Task оборачивает Tick в расписание: без ретраев, следующий тик через тот же интервал.
func (p *Poller) Task(interval time.Duration, clock scheduler.Clock) *scheduler.Task {
	return scheduler.New("shield-poller", p.Tick, scheduler.Options{
		Interval:  interval,
		Immediate: true,
		Clock:     clock,
	}, p.logger)
}
