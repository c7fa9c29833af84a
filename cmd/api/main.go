package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kidpech/users_api/internal/app"
	"github.com/kidpech/users_api/internal/app/diagnostics"
	"github.com/kidpech/users_api/internal/config"
	"github.com/kidpech/users_api/internal/domain/user"
	"github.com/kidpech/users_api/internal/infrastructure/auth"
	dbinfra "github.com/kidpech/users_api/internal/infrastructure/db"
	"github.com/kidpech/users_api/internal/infrastructure/logging"
	"github.com/kidpech/users_api/internal/infrastructure/monitoring"
	"github.com/kidpech/users_api/internal/infrastructure/ratelimit"
	redisinfra "github.com/kidpech/users_api/internal/infrastructure/redis"
	"github.com/kidpech/users_api/internal/infrastructure/telemetry"
	redis "github.com/redis/go-redis/v9"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	logging.ReplaceGlobals(logger)

	err = run(ctx, cfg, logger)
	if err != nil {
		logger.Error("users api stopped with error", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
	logging.Sync(logger)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

// run owns every resource opened after logging; its defers close them on
// both clean and failed exits.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := monitoring.InitSentry(cfg.Monitoring, cfg.App); err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	monitoring.Init()
	defer monitoring.Flush()

	tracing, err := telemetry.New(ctx, cfg.Telemetry, cfg.App, logger)
	if err != nil {
		logger.Warn("telemetry init failed", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		_ = tracing.Shutdown(shutdownCtx)
	}()

	dbManager, err := dbinfra.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			logger.Warn("db close failed", zap.Error(err))
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := dbManager.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	var redisNative *redis.Client
	if cfg.Redis.Addr != "" {
		client, err := redisinfra.Connect(ctx, cfg.Redis, logger)
		if err == nil {
			redisNative = client.Native
			defer client.Close()
		} else {
			logger.Warn("redis connect failed, falling back to in-memory stores", zap.Error(err))
		}
	}

	sessions := auth.NewSessionManager(cfg.Auth, dbinfra.NewSessionRepository(dbManager.Write), redisNative, logger)
	userRepo := dbinfra.NewUserRepository(dbManager.GormWrite, dbManager.GormRead)
	userService := user.NewService(userRepo, logger)

	logBuffer := diagnostics.NewLogBuffer(cfg.Diagnostics.MaxLogLines)
	diagHandler := diagnostics.NewHandler(logBuffer, cfg.App.Name, cfg.App.Version)
	userHandler := user.NewHandler(userService, cfg.App.IsDevelopment())

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		if redisNative != nil {
			limiter = ratelimit.NewRedisLimiter(redisNative, cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.RedisPrefix+":api")
		} else {
			limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
		}
	}

	router := app.NewRouter(app.RouterDeps{
		Config:      cfg,
		UserHandler: userHandler,
		Diagnostics: diagHandler,
		Sessions:    sessions,
		Logger:      logger,
		LogBuffer:   logBuffer,
		Limiter:     limiter,
	})

	logger.Info("starting users api",
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version),
		zap.Int("port", cfg.App.Port),
	)
	server := &app.Server{Engine: router, Addr: cfg.App.Addr(), Logger: logger, ShutdownTimeout: cfg.App.ShutdownTimeout}
	return server.Run(ctx)
}
