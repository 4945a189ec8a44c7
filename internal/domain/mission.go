package domain

import (
	"strings"
	"time"
)

// Mode — режим принуждения миссии.
type Mode string

const (
	ModeStrict   Mode = "STRICT"   // Полная блокировка
	ModeBalanced Mode = "BALANCED" // Только уведомление
)

// ParseMode приводит произвольную строку к известному режиму.
// Пустое или неизвестное значение трактуется как STRICT.
func ParseMode(raw string) Mode {
	switch Mode(strings.ToUpper(strings.TrimSpace(raw))) {
	case ModeBalanced:
		return ModeBalanced
	default:
		return ModeStrict
	}
}

// MissionState — снимок активной миссии, который web-приложение пушит в Relay.
// Timestamp хранится в миллисекундах Unix, как его ждет расширение.
type MissionState struct {
	IsActive     bool     `json:"isActive"`
	AllowedSites []string `json:"allowedSites"`
	Mode         Mode     `json:"mode"`
	Objective    string   `json:"objective"`
	Timestamp    int64    `json:"timestamp"`
}

// MissionPush — тело POST /mission-status.
type MissionPush struct {
	IsActive     bool     `json:"isActive"`
	AllowedSites []string `json:"allowedSites"`
	Mode         string   `json:"mode"`
	Objective    string   `json:"objective"`
}

// InactiveMission — дефолтное состояние "миссии нет".
func InactiveMission() MissionState {
	return MissionState{AllowedSites: []string{}, Mode: ModeStrict}
}

// NewMissionState собирает состояние из пуша, проставляя дефолты вместо отсутствующих полей.
func NewMissionState(p MissionPush, at time.Time) MissionState {
	sites := p.AllowedSites
	if sites == nil {
		sites = []string{}
	}
	return MissionState{
		IsActive:     p.IsActive,
		AllowedSites: sites,
		Mode:         ParseMode(p.Mode),
		Objective:    p.Objective,
		Timestamp:    at.UnixMilli(),
	}
}

// PushedAt возвращает время последнего успешного пуша.
func (s MissionState) PushedAt() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// Clone отдает копию, которую безопасно менять снаружи.
func (s MissionState) Clone() MissionState {
	out := s
	out.AllowedSites = append([]string{}, s.AllowedSites...)
	return out
}

// DriftState — признак "пользователь ушел с миссии".
type DriftState struct {
	IsDrifted bool   `json:"isDrifted"`
	Message   string `json:"message"`
	Mode      Mode   `json:"mode"`
	Timestamp int64  `json:"timestamp"`
}

// DriftPush — тело POST /drift-status.
type DriftPush struct {
	IsDrifted bool   `json:"isDrifted"`
	Message   string `json:"message"`
	Mode      string `json:"mode"`
}

func InactiveDrift() DriftState {
	return DriftState{Mode: ModeStrict}
}

func NewDriftState(p DriftPush, at time.Time) DriftState {
	return DriftState{
		IsDrifted: p.IsDrifted,
		Message:   p.Message,
		Mode:      ParseMode(p.Mode),
		Timestamp: at.UnixMilli(),
	}
}

func (s DriftState) PushedAt() time.Time {
	return time.UnixMilli(s.Timestamp)
}
