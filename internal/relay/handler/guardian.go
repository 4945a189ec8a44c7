package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/domain"
	"github.com/xela07ax/mindtussle/internal/guardian"
	"github.com/xela07ax/mindtussle/internal/infra"
)

type Analyzer interface {
	Analyze(ctx context.Context, req domain.GuardianRequest) domain.Verdict
}

type GuardianHandler struct {
	analyzer Analyzer
	logger   *zap.Logger
}

func NewGuardianHandler(a Analyzer, logger *zap.Logger) *GuardianHandler {
	return &GuardianHandler{analyzer: a, logger: logger.With(zap.String("mod", "guardian-api"))}
}

// Analyze — прокси к классификатору. Отвечает только на POST.
// POST /guardian
func (h *GuardianHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	var req domain.GuardianRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Битое тело — тоже сбой на нашей стороне: пропускаем пользователя
		h.logger.Warn("guardian request decode failed",
			zap.String("trace_id", infra.TraceID(r.Context())),
			zap.Error(err))
		writeJSON(w, http.StatusOK, guardian.FailOpenVerdict())
		return
	}

	writeJSON(w, http.StatusOK, h.analyzer.Analyze(r.Context(), req))
}
