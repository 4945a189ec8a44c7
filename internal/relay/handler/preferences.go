package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/domain"
)

// PreferencesStore — последнее сохраненное значение настроек.
type PreferencesStore interface {
	Load(ctx context.Context) (domain.Preferences, bool, error)
	Store(ctx context.Context, p domain.Preferences) error
}

type PreferencesHandler struct {
	store  PreferencesStore
	now    func() time.Time
	logger *zap.Logger
}

func NewPreferencesHandler(store PreferencesStore, logger *zap.Logger) *PreferencesHandler {
	return &PreferencesHandler{store: store, now: time.Now, logger: logger.With(zap.String("mod", "preferences-api"))}
}

type preferencesSaved struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Save — POST /save-preferences
func (h *PreferencesHandler) Save(w http.ResponseWriter, r *http.Request) {
	var p domain.Preferences
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.Store(r.Context(), p); err != nil {
		h.logger.Error("preferences save failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "preferences store unavailable")
		return
	}

	writeJSON(w, http.StatusOK, preferencesSaved{
		Success:   true,
		Message:   "Preferences saved successfully!",
		Timestamp: h.now().UTC().Format(time.RFC3339Nano),
	})
}

// Get — GET /preferences, пустые настройки если ничего не сохраняли.
func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, _, err := h.store.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "preferences store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
