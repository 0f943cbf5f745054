// Command gatehouse runs the feature flag service: the REST API on the main
// port and the health/metrics endpoints on the observability port.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/gatehouse/gatehouse/internal/api"
	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/cache"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/database"
	"github.com/gatehouse/gatehouse/internal/logger"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/service"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/internal/targeting"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gatehouse: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(&cfg.App)
	slog.SetDefault(log)
	cfg.LogConfig(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres is mandatory: flags, users, workspaces and sessions live there.
	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info("connected to postgres")

	// Redis is optional: without it the service runs on the L1 cache alone.
	var redisClient *redis.Client
	var redisCache *cache.RedisCache
	if cfg.Redis.IsConfigured() {
		redisClient, err = cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		redisCache = cache.NewRedisCache(redisClient, cfg.Cache.RedisTTL)
		log.Info("connected to redis", slog.String("addr", cfg.Redis.Address()))
	} else {
		log.Warn("redis not configured, running with in-memory cache only")
	}

	memCache, err := cache.NewMemoryCache(cfg.Cache.MemoryCapacity, cfg.Cache.MemoryTTL)
	if err != nil {
		return fmt.Errorf("failed to build memory cache: %w", err)
	}
	flagCache := cache.NewLayered(memCache, redisCache, log)
	defer flagCache.Close()

	flagRepo := store.NewPostgresFlagStore(pool)
	userRepo := store.NewPostgresUserStore(pool)
	workspaceRepo := store.NewPostgresWorkspaceStore(pool)
	sessionRepo := store.NewPostgresSessionStore(pool)

	authSvc := auth.NewService(sessionRepo, userRepo)
	engine := targeting.New(workspaceRepo, log)
	svc := service.New(flagRepo, userRepo, workspaceRepo, authSvc, authSvc, engine, flagCache, log)

	// Observability server: liveness, readiness, metrics.
	checkers := []observability.Checker{observability.NewPostgresChecker(pool)}
	if redisClient != nil {
		checkers = append(checkers, observability.NewRedisChecker(redisClient))
	}
	obsServer := observability.NewServer(log, &cfg.Observability, checkers...)
	obsServer.Start()

	// Business API server.
	restAPI := api.NewAPI(svc, log)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           restAPI.Router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting api server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("api server shutdown failed", slog.String("error", err.Error()))
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("observability server shutdown failed", slog.String("error", err.Error()))
	}

	log.Info("shutdown complete")
	return nil
}
