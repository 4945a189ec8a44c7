package guardian

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/xela07ax/mindtussle/internal/domain"
)

// Первый '{' … последний '}' — модели любят обрамлять JSON текстом
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

var fences = strings.NewReplacer("```json", "", "```JSON", "", "```", "")

var ErrNoJSON = errors.New("guardian: no json object in model response")

// rawVerdict — то, что реально присылает модель: score бывает дробным.
type rawVerdict struct {
	Safe          bool     `json:"safe"`
	Verdict       string   `json:"verdict"`
	Message       string   `json:"message"`
	Score         *float64 `json:"score"`
	DetectedSites []string `json:"detectedSites"`
	BlockedSites  []string `json:"blockedSites"`
}

func parseVerdict(text string) (domain.Verdict, error) {
	cleaned := strings.TrimSpace(fences.Replace(text))
	raw := jsonObject.FindString(cleaned)
	if raw == "" {
		return domain.Verdict{}, ErrNoJSON
	}

	var rv rawVerdict
	if err := json.Unmarshal([]byte(raw), &rv); err != nil {
		return domain.Verdict{}, fmt.Errorf("guardian: decode verdict: %w", err)
	}

	v := domain.Verdict{
		Safe:          rv.Safe,
		Verdict:       rv.Verdict,
		Message:       rv.Message,
		DetectedSites: rv.DetectedSites,
		BlockedSites:  rv.BlockedSites,
	}
	if rv.Score != nil {
		v.Score = domain.ScoreOf(int(math.Round(*rv.Score)))
	}
	return v, nil
}
