package domain

// Типы сообщений между фоновым поллером и вкладками.
const (
	MsgMissionUpdate    = "MISSION_UPDATE"
	MsgGetMissionStatus = "GET_MISSION_STATUS"
	MsgMissionStatus    = "MISSION_STATUS" // Ответ на GET_MISSION_STATUS
)

// ShieldState — то, что поллер знает о миссии и раздает вкладкам.
type ShieldState struct {
	IsActive     bool     `json:"isActive"`
	AllowedSites []string `json:"allowedSites"`
	Mode         Mode     `json:"mode"`
}

// InactiveShield — состояние после сбоя поллинга (fail-open).
func InactiveShield() ShieldState {
	return ShieldState{AllowedSites: []string{}, Mode: ModeStrict}
}

// ShieldFromMission сужает MissionState до полей, нужных вкладкам.
func ShieldFromMission(m MissionState) ShieldState {
	sites := append([]string{}, m.AllowedSites...)
	return ShieldState{IsActive: m.IsActive, AllowedSites: sites, Mode: ParseMode(string(m.Mode))}
}

// TabMessage — конверт сообщения вкладке/от вкладки.
type TabMessage struct {
	Type         string   `json:"type"`
	IsActive     bool     `json:"isActive"`
	AllowedSites []string `json:"allowedSites"`
	Mode         Mode     `json:"mode,omitempty"`
}

// MissionUpdate строит широковещательное сообщение из состояния.
func MissionUpdate(s ShieldState) TabMessage {
	sites := s.AllowedSites
	if sites == nil {
		sites = []string{}
	}
	return TabMessage{Type: MsgMissionUpdate, IsActive: s.IsActive, AllowedSites: sites, Mode: s.Mode}
}

// State извлекает состояние из MISSION_UPDATE / MISSION_STATUS.
func (m TabMessage) State() ShieldState {
	sites := m.AllowedSites
	if sites == nil {
		sites = []string{}
	}
	return ShieldState{IsActive: m.IsActive, AllowedSites: sites, Mode: ParseMode(string(m.Mode))}
}
