package domain

// StorageKey — фиксированный ключ блоба клиентского состояния.
const StorageKey = "mindtussle_data_v2"

// Mission — миссия в том виде, как ее держит клиент.
type Mission struct {
	Objective    string   `json:"objective"`
	TrackingType Mode     `json:"trackingType"`
	StartTime    int64    `json:"startTime"`
	DailyGoal    int      `json:"dailyGoal,omitempty"`
	AllowedTools []string `json:"allowedTools"`
}

type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Settings struct {
	FocusTime     int    `json:"focusTime"`
	ShortBreak    int    `json:"shortBreak"`
	LongBreak     int    `json:"longBreak"`
	Notifications bool   `json:"notifications"`
	Theme         string `json:"theme"`
	APIKey        string `json:"apiKey"`
}

func DefaultSettings() Settings {
	return Settings{FocusTime: 25, ShortBreak: 5, LongBreak: 15, Notifications: true, Theme: "zen"}
}

// PersistedData — единый JSON-блоб, перезаписываемый целиком при каждой мутации.
// XP/Level/Streak/History хранятся как есть: геймификация живет вне этого репозитория.
type PersistedData struct {
	User     *User            `json:"user"`
	XP       int              `json:"xp"`
	Streak   int              `json:"streak"`
	Level    int              `json:"level"`
	Settings Settings         `json:"settings"`
	History  []map[string]any `json:"history"`
	Mission  *Mission         `json:"mission"`
}

// Preferences — тело POST /save-preferences.
type Preferences struct {
	FocusTime    int      `json:"focusTime"`
	BreakTime    int      `json:"breakTime"`
	FavoriteTips []string `json:"favoriteTips"`
}
