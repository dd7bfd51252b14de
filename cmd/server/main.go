package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	appservice "github.com/gatewarden/gatewarden/internal/application/service"
	"github.com/gatewarden/gatewarden/internal/config"
	domainservice "github.com/gatewarden/gatewarden/internal/domain/service"
	"github.com/gatewarden/gatewarden/internal/infrastructure/alert"
	"github.com/gatewarden/gatewarden/internal/infrastructure/audit"
	"github.com/gatewarden/gatewarden/internal/infrastructure/monitoring"
	"github.com/gatewarden/gatewarden/internal/infrastructure/persistence/postgres"
	"github.com/gatewarden/gatewarden/internal/infrastructure/persistence/redis"
	httpiface "github.com/gatewarden/gatewarden/internal/interfaces/http"
	"github.com/gatewarden/gatewarden/internal/interfaces/http/handlers"
	"github.com/gatewarden/gatewarden/pkg/constants"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

func main() {
	// Logger for startup, before the real config is known.
	startupLogger, _ := monitoring.NewZapLogger(&config.LogConfig{Level: "info"})

	cfg, err := config.LoadConfig(startupLogger)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx := context.Background()

	tracerCleanup, err := monitoring.InitTracer(&cfg.Tracing)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize tracer", err)
	}
	defer tracerCleanup()

	// Postgres
	db, err := postgres.NewDBConnection(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to connect to database", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		appLogger.Fatal(ctx, "Failed to run migrations", err)
	}

	// Redis block mirror, optional.
	var redisConn *redis.RedisConnection
	var mirror domainservice.BlockMirror
	if cfg.Redis.Enabled {
		redisConn, err = redis.NewRedisConnection(ctx, &cfg.Redis, appLogger)
		if err != nil {
			appLogger.Fatal(ctx, "Failed to connect to redis", err)
		}
		defer redisConn.Close()
		mirror = redis.NewBlockMirror(redisConn.Client)
	}

	metrics := monitoring.NewMetrics()
	clock := domainservice.NewSystemClock()

	// Repositories
	ruleRepo := postgres.NewRuleRepository(db.DB, appLogger)
	blockRepo := postgres.NewBlockRepository(db.DB, appLogger)
	requestLogRepo := postgres.NewRequestLogRepository(db.DB, appLogger)
	auditRepo := postgres.NewAuditRepository(db.DB, appLogger)
	settingsRepo := postgres.NewSettingsRepository(db.DB, appLogger)

	// Security audit trail, with optional Kafka stream.
	trail := audit.NewTrail(auditRepo, &cfg.Kafka, appLogger)
	defer trail.Close()

	// Alert dispatcher
	dispatcher := alert.NewWebhookDispatcher(cfg.Alert, settingsRepo, metrics, appLogger)
	dispatcher.Start(cfg.Alert.Workers)
	defer dispatcher.Close()

	// Engine
	ruleCache := domainservice.NewRuleCache(ruleRepo, ruleCacheTTL(cfg), clock, metrics, appLogger)
	blockService := domainservice.NewBlockService(blockRepo, mirror, blockCacheTTL(cfg), clock, metrics, appLogger)
	escalation := domainservice.NewEscalationPolicy(blockRepo, clock, appLogger)
	guardService := domainservice.NewGuardService(
		ruleCache,
		blockService,
		escalation,
		requestLogRepo,
		dispatcher,
		trail,
		domainservice.NewCounterSampler(),
		clock,
		metrics,
		appLogger,
		guardConfig(cfg),
	)

	adminService := appservice.NewAdminAppService(
		ruleRepo, blockRepo, requestLogRepo, auditRepo, settingsRepo,
		ruleCache, blockService, trail, dispatcher, clock, appLogger,
	)

	// HTTP surface
	healthHandler := handlers.NewHealthHandler(db, redisConn, appLogger)
	guardHandler := handlers.NewGuardHandler(guardService, appLogger)
	adminHandler := handlers.NewAdminHandler(adminService, appLogger)
	router := httpiface.NewRouter(cfg, appLogger, metrics, guardService, healthHandler, guardHandler, adminHandler)

	// Background retention sweeper, optional.
	sweeperStop := make(chan struct{})
	if cfg.Retention.SweepIntervalMinutes > 0 {
		go runRetentionSweeper(ctx, cfg, adminService, appLogger, sweeperStop)
	}

	// Log-level changes apply on config file rewrite.
	config.WatchConfig(appLogger, func(updated *config.Config) {
		appLogger.SetLevel(parseLogLevel(updated.Log.Level))
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Fatal(ctx, "HTTP server failed", err)
		}
	case sig := <-quit:
		appLogger.Info(ctx, "shutting down", logger.String("signal", sig.String()))
	}

	close(sweeperStop)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := router.Stop(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP shutdown failed", err)
	}

	appLogger.Info(ctx, "shutdown complete")
}

func ruleCacheTTL(cfg *config.Config) time.Duration {
	if cfg.Engine.RuleCacheTTLSeconds > 0 {
		return time.Duration(cfg.Engine.RuleCacheTTLSeconds) * time.Second
	}
	return constants.RuleCacheTTL
}

func blockCacheTTL(cfg *config.Config) time.Duration {
	if cfg.Engine.BlockCacheTTLSeconds > 0 {
		return time.Duration(cfg.Engine.BlockCacheTTLSeconds) * time.Second
	}
	return constants.BlockCacheTTL
}

func guardConfig(cfg *config.Config) domainservice.GuardConfig {
	gc := domainservice.DefaultGuardConfig()
	if cfg.Engine.FingerprintFloodLimit > 0 {
		gc.FloodLimit = uint(cfg.Engine.FingerprintFloodLimit)
	}
	if cfg.Engine.LogSampleNormal > 0 {
		gc.SampleNormal = cfg.Engine.LogSampleNormal
	}
	if cfg.Engine.LogSampleFastReject > 0 {
		gc.SampleFastReject = cfg.Engine.LogSampleFastReject
	}
	if cfg.Engine.DurableFallbackTimeout > 0 {
		gc.FallbackTimeout = time.Duration(cfg.Engine.DurableFallbackTimeout) * time.Millisecond
	}
	return gc
}

func runRetentionSweeper(ctx context.Context, cfg *config.Config, admin appservice.AdminAppService, log logger.Logger, stop <-chan struct{}) {
	interval := time.Duration(cfg.Retention.SweepIntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := admin.RunRetentionCleanup(ctx); err != nil {
				log.Error(ctx, "retention sweep failed", err)
			}
		}
	}
}

func parseLogLevel(level string) constants.LogLevel {
	switch level {
	case "debug":
		return constants.LogLevelDebug
	case "warn":
		return constants.LogLevelWarn
	case "error":
		return constants.LogLevelError
	default:
		return constants.LogLevelInfo
	}
}
