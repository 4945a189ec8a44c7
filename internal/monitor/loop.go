// Package monitor — цикл "снять кадр, спросить Guardian, обновить UI".
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/domain"
	"github.com/xela07ax/mindtussle/internal/scheduler"
)

// Классификатор и канал дрейфа (relayclient.Client реализует оба)
type Classifier interface {
	Guardian(ctx context.Context, req domain.GuardianRequest) (domain.Verdict, error)
}

type DriftReporter interface {
	PushDrift(ctx context.Context, p domain.DriftPush) error
}

// MissionSource — текущая миссия и настройки (mission.Store).
type MissionSource interface {
	Mission() (domain.Mission, bool)
	Settings() domain.Settings
}

const (
	FeedbackOptimal = "OPTIMAL"
	FeedbackHostile = "HOSTILE"

	defaultObjective = "Focus on productive work"
	analysisError    = "Analysis error. Retrying..."
	captureError     = "Failed to capture screen. Retrying..."
)

type Feedback struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Verdict string `json:"verdict"`
}

type DriftAlert struct {
	Message      string   `json:"message"`
	BlockedSites []string `json:"blockedSites"`
}

// UIState — все, что показывает панель мониторинга.
type UIState struct {
	Live          bool        `json:"live"`
	Feedback      *Feedback   `json:"feedback"`
	Error         string      `json:"error,omitempty"`
	DriftAlert    *DriftAlert `json:"driftAlert"`
	DetectedSites []string    `json:"detectedSites"`
	BlockedSites  []string    `json:"blockedSites"`
	Score         int         `json:"score"`
	Checks        int         `json:"checks"`
	StartedAt     time.Time   `json:"startedAt"`
}

func emptyState() UIState {
	return UIState{DetectedSites: []string{}, BlockedSites: []string{}}
}

type Options struct {
	Interval      time.Duration // после успешной проверки
	ErrorInterval time.Duration // после ошибки
	Jitter        float64
	Clock         scheduler.Clock
	// OnUpdate вызывается после каждого изменения состояния
	OnUpdate func(UIState)
	// OnIntegrity получает score каждого вердикта
	OnIntegrity func(score int)
}

type Loop struct {
	source     FrameSource
	classifier Classifier
	drift      DriftReporter
	missions   MissionSource
	opts       Options
	logger     *zap.Logger

	mu    sync.Mutex
	state UIState
}

func NewLoop(source FrameSource, classifier Classifier, drift DriftReporter, missions MissionSource, opts Options, logger *zap.Logger) *Loop {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.ErrorInterval <= 0 {
		opts.ErrorInterval = 8 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = scheduler.Real()
	}
	return &Loop{
		source:     source,
		classifier: classifier,
		drift:      drift,
		missions:   missions,
		opts:       opts,
		logger:     logger.With(zap.String("mod", "monitor")),
		state:      emptyState(),
	}
}

// Run блокируется, пока поток кадров жив и контекст не отменен.
// При выходе состояние UI сбрасывается.
func (l *Loop) Run(ctx context.Context) {
	l.update(func(s *UIState) {
		*s = emptyState()
		s.Live = true
		s.StartedAt = l.opts.Clock.Now()
	})
	l.logger.Info("monitoring started")

	task := scheduler.New("capture-classify", l.Tick, scheduler.Options{
		Interval:   l.opts.Interval,
		ErrorDelay: l.opts.ErrorInterval,
		Jitter:     l.opts.Jitter,
		Immediate:  true,
		Clock:      l.opts.Clock,
	}, l.logger)
	task.Run(ctx)

	l.update(func(s *UIState) { *s = emptyState() })
	l.logger.Info("monitoring stopped")
}

// Tick — одна проверка экрана.
func (l *Loop) Tick(ctx context.Context) error {
	frame, err := l.source.Next(ctx)
	if errors.Is(err, ErrStreamEnded) {
		return scheduler.ErrStop
	}
	if err != nil {
		l.fail(captureError, err)
		return err
	}

	image, err := EncodeDataURL(frame)
	if err != nil {
		l.fail(captureError, err)
		return err
	}

	mission, hasMission := l.missions.Mission()
	objective := mission.Objective
	if !hasMission || objective == "" {
		objective = defaultObjective
	}
	allowed := mission.AllowedTools
	if allowed == nil {
		allowed = []string{}
	}

	verdict, err := l.classifier.Guardian(ctx, domain.GuardianRequest{
		Image:        image,
		APIKey:       l.missions.Settings().APIKey,
		Content:      "USER MISSION: " + objective,
		AllowedTools: allowed,
	})
	if err != nil {
		l.fail(analysisError, err)
		return err
	}

	l.apply(verdict)
	if l.opts.OnIntegrity != nil {
		l.opts.OnIntegrity(verdict.ScoreValue())
	}

	mode := mission.TrackingType
	if mode == "" {
		mode = domain.ModeStrict
	}
	push := domain.DriftPush{IsDrifted: !verdict.Safe, Message: verdict.Message, Mode: string(mode)}
	if err := l.drift.PushDrift(ctx, push); err != nil {
		// Вердикт уже показан, дрейф догонит следующим тиком
		l.logger.Warn("drift push failed", zap.Error(err))
	}
	return nil
}

func (l *Loop) apply(v domain.Verdict) {
	v.Normalize()
	l.update(func(s *UIState) {
		s.DetectedSites = v.DetectedSites
		s.BlockedSites = v.BlockedSites
		s.Score = v.ScoreValue()
		s.Error = ""
		s.Checks++

		fb := &Feedback{Type: FeedbackOptimal, Message: v.Message, Verdict: v.Verdict}
		if !v.Safe {
			fb.Type = FeedbackHostile
		}
		s.Feedback = fb

		if v.Safe {
			s.DriftAlert = nil
			return
		}
		sites := v.BlockedSites
		if len(sites) == 0 {
			sites = v.DetectedSites
		}
		s.DriftAlert = &DriftAlert{Message: v.Message, BlockedSites: sites}
	})
	if !v.Safe {
		l.logger.Info("drift detected", zap.String("message", v.Message), zap.Strings("blocked", v.BlockedSites))
	}
}

func (l *Loop) fail(msg string, err error) {
	l.logger.Warn("check failed", zap.Error(err))
	l.update(func(s *UIState) { s.Error = msg })
}

// DismissAlert — пользователь закрыл алерт; до следующего вердикта его не видно.
func (l *Loop) DismissAlert() {
	l.update(func(s *UIState) { s.DriftAlert = nil })
}

func (l *Loop) State() UIState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loop) update(fn func(*UIState)) {
	l.mu.Lock()
	fn(&l.state)
	snapshot := l.state
	l.mu.Unlock()

	if l.opts.OnUpdate != nil {
		l.opts.OnUpdate(snapshot)
	}
}
