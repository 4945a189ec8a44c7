package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/infra"
	"github.com/xela07ax/mindtussle/internal/relay/handler"
)

// Pinger — зависимость, которую проверяет /healthz (Redis, Postgres).
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc позволяет передать проверку обычной функцией
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type RelayServer struct {
	router   *chi.Mux
	logger   *zap.Logger
	cfg      infra.ServerConfig
	gatherer prometheus.Gatherer
	checks   map[string]Pinger

	statusHandler      *handler.StatusHandler      // /mission-status, /drift-status
	guardianHandler    *handler.GuardianHandler    // /guardian
	preferencesHandler *handler.PreferencesHandler // /save-preferences
	historyHandler     *handler.HistoryHandler     // /guardian/history
}

// NewRelayServer собирает роутер Relay со всеми хендлерами.
func NewRelayServer(
	cfg infra.ServerConfig,
	logger *zap.Logger,
	gatherer prometheus.Gatherer,
	checks map[string]Pinger,
	statusH *handler.StatusHandler,
	guardianH *handler.GuardianHandler,
	prefsH *handler.PreferencesHandler,
	historyH *handler.HistoryHandler,
) *RelayServer {
	s := &RelayServer{
		router:             chi.NewRouter(),
		logger:             logger.Named("relay-api"),
		cfg:                cfg,
		gatherer:           gatherer,
		checks:             checks,
		statusHandler:      statusH,
		guardianHandler:    guardianH,
		preferencesHandler: prefsH,
		historyHandler:     historyH,
	}

	s.routes()
	return s
}

func (s *RelayServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(infra.TracingMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware(s.cfg.AllowedOrigins))
	if s.cfg.MaxBodyBytes > 0 {
		r.Use(middleware.RequestSize(s.cfg.MaxBodyBytes))
	}

	// --- 2. Служебные роуты ---
	r.Get("/healthz", s.healthz)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// --- 3. API: и в корне, и под /api (так его монтировал дашборд) ---
	r.Group(s.api)
	r.Route("/api", s.api)
}

func (s *RelayServer) api(r chi.Router) {
	r.Get("/mission-status", s.statusHandler.GetMission)
	r.Post("/mission-status", s.statusHandler.PostMission)
	r.Get("/drift-status", s.statusHandler.GetDrift)
	r.Post("/drift-status", s.statusHandler.PostDrift)

	// Все методы попадают в хендлер: он сам отвечает 405 в JSON
	r.HandleFunc("/guardian", s.guardianHandler.Analyze)
	r.Get("/guardian/history", s.historyHandler.List)

	r.Post("/save-preferences", s.preferencesHandler.Save)
	r.Get("/preferences", s.preferencesHandler.Get)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *RelayServer) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok"}
	code := http.StatusOK
	if len(s.checks) > 0 {
		resp.Checks = make(map[string]string, len(s.checks))
	}
	for name, p := range s.checks {
		if err := p.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, code, resp)
}

// ServeHTTP позволяет использовать RelayServer как стандартный http.Handler
func (s *RelayServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
