package shield

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/domain"
)

// Server — локальный эндпоинт, к которому подключаются вкладки.
type Server struct {
	router         *chi.Mux
	poller         *Poller
	hub            *Hub
	badge          *Badge
	metrics        *Metrics
	originPatterns []string
	logger         *zap.Logger
}

func NewServer(poller *Poller, hub *Hub, badge *Badge, metrics *Metrics, originPatterns []string, logger *zap.Logger) *Server {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	s := &Server{
		router:         chi.NewRouter(),
		poller:         poller,
		hub:            hub,
		badge:          badge,
		metrics:        metrics,
		originPatterns: originPatterns,
		logger:         logger.Named("shield-api"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/tabs", s.tabs)
	r.Get("/badge", s.badgeState)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "tabs": s.hub.Count()})
	})
}

func (s *Server) badgeState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.badge.Get())
}

// tabs — WebSocket одной вкладки: GET /tabs?url=<адрес страницы>
func (s *Server) tabs(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if len(s.originPatterns) > 0 {
		opts.OriginPatterns = s.originPatterns
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		s.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	tab := s.hub.Register(r.URL.Query().Get("url"), 16)
	defer s.hub.Unregister(tab)
	s.metrics.ConnectedTabs.Inc()
	defer s.metrics.ConnectedTabs.Dec()

	log := s.logger.With(zap.String("tab", tab.ID), zap.String("url", tab.URL))
	log.Debug("tab connected")

	// Читатель: вкладка может спросить состояние в любой момент
	requests := make(chan domain.TabMessage, 4)
	readErr := make(chan error, 1)
	go func() {
		for {
			var msg domain.TabMessage
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				readErr <- err
				return
			}
			select {
			case requests <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case err := <-readErr:
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				log.Debug("tab read failed", zap.Error(err))
			}
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case msg := <-requests:
			if msg.Type != domain.MsgGetMissionStatus {
				continue
			}
			reply := domain.MissionUpdate(s.poller.State())
			reply.Type = domain.MsgMissionStatus
			if !s.write(ctx, conn, reply) {
				return
			}
		case msg, ok := <-tab.Send:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "closed")
				return
			}
			if !s.write(ctx, conn, msg) {
				return
			}
		}
	}
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, msg domain.TabMessage) bool {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := wsjson.Write(writeCtx, conn, msg); err != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
		return false
	}
	return true
}

// ServeHTTP позволяет использовать Server как стандартный http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
