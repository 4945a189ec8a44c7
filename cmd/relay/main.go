package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/audit"
	"github.com/xela07ax/mindtussle/internal/domain"
	"github.com/xela07ax/mindtussle/internal/guardian"
	"github.com/xela07ax/mindtussle/internal/infra"
	"github.com/xela07ax/mindtussle/internal/relay"
	"github.com/xela07ax/mindtussle/internal/relay/handler"
	"github.com/xela07ax/mindtussle/internal/relay/server"
	"github.com/xela07ax/mindtussle/internal/repository/postgres"
)

func main() {
	// 1. Конфиг и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checks := map[string]server.Pinger{}

	// 2. Ячейки состояния: в памяти или общие через Redis
	var (
		missionCell relay.Cell[domain.MissionState]
		driftCell   relay.Cell[domain.DriftState]
		prefsCell   relay.Cell[domain.Preferences]
	)
	switch cfg.Relay.Store {
	case "redis":
		rdb, err := infra.NewRedisClient(appCtx, cfg.Redis)
		if err != nil {
			logger.Fatal("redis init failed", zap.Error(err))
		}
		defer rdb.Close()

		missionCell = relay.NewRedisCell[domain.MissionState](rdb, infra.RedisKeyMissionStatus, infra.RedisChanMissionUpdate)
		driftCell = relay.NewRedisCell[domain.DriftState](rdb, infra.RedisKeyDriftStatus, "")
		prefsCell = relay.NewRedisCell[domain.Preferences](rdb, infra.RedisKeyPreferences, "")
		checks["redis"] = redisPing(rdb)
	default:
		missionCell = relay.NewMemoryCell[domain.MissionState]()
		driftCell = relay.NewMemoryCell[domain.DriftState]()
		prefsCell = relay.NewMemoryCell[domain.Preferences]()
	}

	relayService := relay.NewService(
		missionCell, driftCell, nil,
		relay.Windows{Mission: cfg.Relay.MissionTTL, Drift: cfg.Relay.DriftTTL},
		relay.NewMetrics(reg), logger,
	)

	// 3. Журнал вердиктов: Postgres, если задан URL, иначе в лог
	var (
		storage audit.StorageInterface = audit.NewLogStorage(logger)
		history handler.HistoryReader
	)
	if cfg.Database.URL != "" {
		repo, err := postgres.NewVerdictRepo(appCtx, cfg.Database)
		if err != nil {
			logger.Fatal("database unreachable", zap.Error(err))
		}
		defer repo.Close()
		if err := repo.EnsureSchema(appCtx); err != nil {
			logger.Fatal("schema init failed", zap.Error(err))
		}
		storage, history = repo, repo
		checks["postgres"] = repo
	}
	recorder := audit.NewRecorder(storage, audit.Options{
		BufferSize:    cfg.Database.BufferSize,
		FlushInterval: cfg.Database.FlushInterval,
	}, logger)
	recorder.Start()

	// 4. Guardian: провайдер + надежность
	factory, err := guardian.NewFactory(cfg.Guardian)
	if err != nil {
		logger.Fatal("guardian init failed", zap.Error(err))
	}
	guardianMetrics := guardian.NewMetrics(reg)
	wrapper := guardian.NewReliabilityWrapper(guardian.ReliabilityFromConfig(cfg.Guardian), func(open bool) {
		if open {
			guardianMetrics.CircuitBreakerState.Set(1)
			logger.Warn("guardian circuit breaker opened")
			return
		}
		guardianMetrics.CircuitBreakerState.Set(0)
	})
	guardianService := guardian.NewService(factory, wrapper, recorder, guardianMetrics, guardian.Options{
		DefaultAPIKey: cfg.Guardian.APIKey,
		Models:        cfg.Guardian.Models,
	}, logger)

	// 5. HTTP
	relayServer := server.NewRelayServer(
		cfg.Server, logger, reg, checks,
		handler.NewStatusHandler(relayService, logger),
		handler.NewGuardianHandler(guardianService, logger),
		handler.NewPreferencesHandler(prefsCell, logger),
		handler.NewHistoryHandler(history, logger),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      relayServer,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 6. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("relay started",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.Relay.Store),
			zap.String("guardian", cfg.Guardian.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop // Ждем сигнал
	logger.Info("relay stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	// Дописываем вердикты, которые еще в буфере
	recorder.Stop()
	cancel()
	logger.Info("relay exited properly")
}

func redisPing(rdb *redis.Client) server.PingFunc {
	return func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}
