package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/domain"
	"github.com/xela07ax/mindtussle/internal/infra"
	"github.com/xela07ax/mindtussle/internal/relay"
	"github.com/xela07ax/mindtussle/internal/relayclient"
	"github.com/xela07ax/mindtussle/internal/shield"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Контекст для фоновых горутин: поллер и подписка на Redis
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	metrics := shield.NewMetrics(reg)

	hub := shield.NewHub()
	badge := &shield.Badge{}
	client := relayclient.New(cfg.Shield.RelayURL, cfg.Shield.PollTimeout)
	poller := shield.NewPoller(client, hub, badge, metrics, cfg.Shield.PollTimeout, logger)

	pollHandle := poller.Task(cfg.Shield.PollInterval, nil).Start(appCtx)

	// С Redis-хранилищем пуши миссии приходят сразу, не дожидаясь тика
	if cfg.Relay.Store == "redis" {
		rdb, err := infra.NewRedisClient(appCtx, cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, polling only", zap.Error(err))
		} else {
			defer rdb.Close()
			go relay.ListenMissionUpdates(appCtx, rdb, logger, infra.RedisChanMissionUpdate,
				func() { _ = poller.Tick(appCtx) },
				func(state domain.MissionState) { poller.Apply(state) },
			)
		}
	}

	// Вкладки, бейдж и метрики на одном локальном порту
	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	router.Mount("/", shield.NewServer(poller, hub, badge, metrics, originPatterns(cfg.Server.AllowedOrigins), logger))

	srv := &http.Server{
		Addr:    cfg.Shield.Listen,
		Handler: router,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("shield started",
			zap.String("addr", srv.Addr),
			zap.String("relay", cfg.Shield.RelayURL),
			zap.Duration("poll_interval", cfg.Shield.PollInterval),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("shield stopping...")

	pollHandle.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("shield exited properly")
}

// originPatterns переводит список CORS в шаблоны хостов для websocket.Accept.
// Расширение указывается своим ID: chrome-extension://<id> даст шаблон "<id>".
func originPatterns(allowed string) []string {
	var patterns []string
	for _, raw := range strings.Split(allowed, ",") {
		raw = strings.TrimSpace(raw)
		switch {
		case raw == "":
			continue
		case raw == "*":
			return []string{"*"}
		}
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, raw)
	}
	return patterns
}
