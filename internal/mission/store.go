// Package mission — клиентское хранилище миссии и его синхронизация с Relay.
package mission

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/domain"
	"github.com/xela07ax/mindtussle/internal/scheduler"
)

// Pusher — куда отправляется статус миссии (relayclient.Client).
type Pusher interface {
	PushMission(ctx context.Context, p domain.MissionPush) error
}

var (
	ErrNoObjective = errors.New("mission: objective is required")
	ErrNoMission   = errors.New("mission: no active mission")
)

const defaultUserName = "Focus Warrior"

// LoginPreferences — анкета при входе; непустой Objective сразу стартует миссию.
type LoginPreferences struct {
	Objective    string
	TrackingType string
	DailyGoal    int
	AllowedTools []string
}

type Store struct {
	storage Storage
	pusher  Pusher
	clock   scheduler.Clock
	logger  *zap.Logger

	mu   sync.Mutex
	data domain.PersistedData
}

// Open читает сохраненное состояние. Если миссия уже идет, сразу сообщает о ней Relay.
func Open(ctx context.Context, storage Storage, pusher Pusher, clock scheduler.Clock, logger *zap.Logger) (*Store, error) {
	if clock == nil {
		clock = scheduler.Real()
	}

	data, found, err := storage.Load()
	if err != nil {
		return nil, err
	}
	if !found {
		data = domain.PersistedData{Level: 1, Settings: domain.DefaultSettings()}
	}
	if data.Level == 0 {
		data.Level = 1
	}

	s := &Store{
		storage: storage,
		pusher:  pusher,
		clock:   clock,
		logger:  logger.With(zap.String("mod", "mission")),
		data:    data,
	}

	if data.Mission != nil {
		s.sync(ctx, data.Mission)
	}
	return s, nil
}

// Snapshot — копия всего блоба.
func (s *Store) Snapshot() domain.PersistedData {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.data
	if s.data.Mission != nil {
		m := cloneMission(*s.data.Mission)
		out.Mission = &m
	}
	if s.data.User != nil {
		u := *s.data.User
		out.User = &u
	}
	return out
}

func (s *Store) Mission() (domain.Mission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.Mission == nil {
		return domain.Mission{}, false
	}
	return cloneMission(*s.data.Mission), true
}

func (s *Store) Settings() domain.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Settings
}

func (s *Store) StartMission(ctx context.Context, objective, trackingType string, allowedTools []string) (domain.Mission, error) {
	if objective == "" {
		return domain.Mission{}, ErrNoObjective
	}
	m := s.newMission(LoginPreferences{Objective: objective, TrackingType: trackingType, AllowedTools: allowedTools})

	if err := s.mutate(func(d *domain.PersistedData) { d.Mission = &m }); err != nil {
		return domain.Mission{}, err
	}
	s.sync(ctx, &m)
	return cloneMission(m), nil
}

// EndMission снимает миссию и сообщает Relay, что она больше не активна.
func (s *Store) EndMission(ctx context.Context) error {
	if _, ok := s.Mission(); !ok {
		return ErrNoMission
	}
	if err := s.mutate(func(d *domain.PersistedData) { d.Mission = nil }); err != nil {
		return err
	}
	s.sync(ctx, nil)
	return nil
}

func (s *Store) Login(ctx context.Context, email, name string, prefs *LoginPreferences) (domain.User, error) {
	if name == "" {
		name = defaultUserName
	}
	user := domain.User{ID: s.clock.Now().UnixMilli(), Email: email, Name: name}

	var started *domain.Mission
	if prefs != nil && prefs.Objective != "" {
		m := s.newMission(*prefs)
		if m.DailyGoal == 0 {
			m.DailyGoal = 4
		}
		started = &m
	}

	err := s.mutate(func(d *domain.PersistedData) {
		d.User = &user
		if started != nil {
			d.Mission = started
		}
	})
	if err != nil {
		return domain.User{}, err
	}
	if started != nil {
		s.sync(ctx, started)
	}
	return user, nil
}

// Logout убирает пользователя; миссия в блобе остается, но Relay получает "неактивно".
func (s *Store) Logout(ctx context.Context) error {
	if err := s.mutate(func(d *domain.PersistedData) { d.User = nil }); err != nil {
		return err
	}
	s.sync(ctx, nil)
	return nil
}

func (s *Store) UpdateSettings(fn func(*domain.Settings)) (domain.Settings, error) {
	var out domain.Settings
	err := s.mutate(func(d *domain.PersistedData) {
		fn(&d.Settings)
		out = d.Settings
	})
	return out, err
}

// Heartbeat повторяет пуш активной миссии, чтобы Relay не счел ее протухшей.
func (s *Store) Heartbeat(ctx context.Context) error {
	m, ok := s.Mission()
	if !ok {
		return nil
	}
	return s.pusher.PushMission(ctx, PushFor(&m))
}

// HeartbeatTask — пуш каждые interval, пока контекст жив.
func (s *Store) HeartbeatTask(interval time.Duration) *scheduler.Task {
	return scheduler.New("mission-heartbeat", s.Heartbeat, scheduler.Options{
		Interval: interval,
		Clock:    s.clock,
	}, s.logger)
}

// PushFor строит тело POST /mission-status; nil — миссии нет.
func PushFor(m *domain.Mission) domain.MissionPush {
	if m == nil {
		return domain.MissionPush{AllowedSites: []string{}, Mode: string(domain.ModeStrict)}
	}
	sites := m.AllowedTools
	if sites == nil {
		sites = []string{}
	}
	mode := m.TrackingType
	if mode == "" {
		mode = domain.ModeStrict
	}
	return domain.MissionPush{IsActive: true, AllowedSites: sites, Mode: string(mode), Objective: m.Objective}
}

func (s *Store) newMission(p LoginPreferences) domain.Mission {
	tools := append([]string{}, p.AllowedTools...)
	return domain.Mission{
		Objective:    p.Objective,
		TrackingType: domain.ParseMode(p.TrackingType),
		StartTime:    s.clock.Now().UnixMilli(),
		DailyGoal:    p.DailyGoal,
		AllowedTools: tools,
	}
}

// mutate применяет изменение и перезаписывает блоб целиком.
func (s *Store) mutate(fn func(*domain.PersistedData)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data
	fn(&next)
	if err := s.storage.Save(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

// sync — ошибка пуша не фатальна: следующий heartbeat повторит.
func (s *Store) sync(ctx context.Context, m *domain.Mission) {
	if err := s.pusher.PushMission(ctx, PushFor(m)); err != nil {
		s.logger.Warn("mission status sync failed", zap.Error(err))
	}
}

func cloneMission(m domain.Mission) domain.Mission {
	m.AllowedTools = append([]string{}, m.AllowedTools...)
	return m
}
