package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/domain"
)

// StatusService — то, что хендлеру нужно от relay.Service.
type StatusService interface {
	PushMission(ctx context.Context, p domain.MissionPush) (domain.MissionState, error)
	ReadMission(ctx context.Context) domain.MissionState
	PushDrift(ctx context.Context, p domain.DriftPush) (domain.DriftState, error)
	ReadDrift(ctx context.Context) domain.DriftState
}

type StatusHandler struct {
	service StatusService
	logger  *zap.Logger
}

func NewStatusHandler(s StatusService, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{service: s, logger: logger.With(zap.String("mod", "status-api"))}
}

// GetMission — что сейчас должен показывать Shield.
// GET /mission-status
func (h *StatusHandler) GetMission(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ReadMission(r.Context()))
}

// PostMission — heartbeat дашборда.
// POST /mission-status
func (h *StatusHandler) PostMission(w http.ResponseWriter, r *http.Request) {
	fields := h.readFields(r.Body)
	p := domain.MissionPush{
		IsActive:     field[bool](fields, "isActive"),
		AllowedSites: field[[]string](fields, "allowedSites"),
		Mode:         field[string](fields, "mode"),
		Objective:    field[string](fields, "objective"),
	}

	if _, err := h.service.PushMission(r.Context(), p); err != nil {
		h.logger.Error("mission push failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "mission store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, ack{Success: true})
}

// GET /drift-status
func (h *StatusHandler) GetDrift(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ReadDrift(r.Context()))
}

// POST /drift-status
func (h *StatusHandler) PostDrift(w http.ResponseWriter, r *http.Request) {
	fields := h.readFields(r.Body)
	p := domain.DriftPush{
		IsDrifted: field[bool](fields, "isDrifted"),
		Message:   field[string](fields, "message"),
		Mode:      field[string](fields, "mode"),
	}

	if _, err := h.service.PushDrift(r.Context(), p); err != nil {
		h.logger.Error("drift push failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "drift store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, ack{Success: true})
}

// readFields разбирает тело пуша по полям. Пуш не отклоняется никогда:
// пустое или битое тело читается как {}, а дефолты проставит сервис.
func (h *StatusHandler) readFields(body io.Reader) map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&fields); err != nil && err != io.EOF {
		h.logger.Debug("malformed push body, using defaults", zap.Error(err))
	}
	return fields
}

// field достает одно поле; отсутствующее или неверного типа дает нулевое значение.
func field[T any](fields map[string]json.RawMessage, name string) T {
	var v T
	raw, ok := fields[name]
	if !ok {
		return v
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero
	}
	return v
}
