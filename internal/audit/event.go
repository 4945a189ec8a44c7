package audit

import "time"

// Исходы анализа
const (
	OutcomeDemo        = "DEMO"
	OutcomeClassified  = "CLASSIFIED"
	OutcomeUnavailable = "UNAVAILABLE"    // Ни одна модель не ответила
	OutcomeParseFailed = "PARSE_FALLBACK" // Модель ответила не-JSON
	OutcomeFailOpen    = "FAIL_OPEN"      // Любая другая ошибка
)

// VerdictEvent — одна запись журнала вердиктов.
type VerdictEvent struct {
	ID            string    `json:"id"`       // UUID события
	TraceID       string    `json:"trace_id"` // Сквозной ID запроса
	Model         string    `json:"model"`    // Какая модель ответила
	Outcome       string    `json:"outcome"`
	Safe          bool      `json:"safe"`
	Verdict       string    `json:"verdict"`
	Score         int       `json:"score"`
	DetectedSites []string  `json:"detected_sites"`
	BlockedSites  []string  `json:"blocked_sites"`
	Overridden    bool      `json:"overridden"` // Вердикт модели перебит локальными правилами
	HasImage      bool      `json:"has_image"`
	DurationMs    int64     `json:"duration_ms"`
	Timestamp     time.Time `json:"timestamp"`
	Error         string    `json:"error,omitempty"`
}
