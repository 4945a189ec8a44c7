package handler

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/audit"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]audit.VerdictEvent, error)
}

type HistoryHandler struct {
	reader HistoryReader // nil, если журнал в БД не настроен
	logger *zap.Logger
}

func NewHistoryHandler(reader HistoryReader, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{reader: reader, logger: logger.With(zap.String("mod", "history-api"))}
}

// List возвращает последние вердикты.
// GET /guardian/history?limit=N
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusServiceUnavailable, "verdict history is not configured")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	events, err := h.reader.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("history query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch verdict history")
		return
	}
	if events == nil {
		events = []audit.VerdictEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
