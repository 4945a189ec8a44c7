package domain

// GuardianRequest — тело POST /guardian.
// Image — data URL ("data:image/jpeg;base64,...") либо пустая строка для текстового анализа.
type GuardianRequest struct {
	Content      string   `json:"content"`
	Image        string   `json:"image,omitempty"`
	APIKey       string   `json:"apiKey,omitempty"`
	AllowedTools []string `json:"allowedTools"`
}

// Вердикты классификатора
const (
	VerdictDemoMode   = "DEMO_MODE"
	VerdictProductive = "PRODUCTIVE"
	VerdictDistracted = "DISTRACTED"
)

// Verdict — ответ классификатора после пост-обработки.
// Score и Verdict опциональны: fail-open ответ их не содержит.
type Verdict struct {
	Safe          bool     `json:"safe"`
	Verdict       string   `json:"verdict,omitempty"`
	Message       string   `json:"message,omitempty"`
	Score         *int     `json:"score,omitempty"`
	DetectedSites []string `json:"detectedSites"`
	BlockedSites  []string `json:"blockedSites"`
}

// ScoreOf — score для литералов; 0 от модели тоже валидный score.
func ScoreOf(n int) *int { return &n }

// ScoreValue — score или 0, если его нет.
func (v Verdict) ScoreValue() int {
	if v.Score == nil {
		return 0
	}
	return *v.Score
}

// Normalize гарантирует, что массивы уйдут в JSON как [], а не null.
func (v *Verdict) Normalize() {
	if v.DetectedSites == nil {
		v.DetectedSites = []string{}
	}
	if v.BlockedSites == nil {
		v.BlockedSites = []string{}
	}
}
