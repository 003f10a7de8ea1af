// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mergington/activity-signup/internal/config"
	"github.com/mergington/activity-signup/internal/database"
	"github.com/mergington/activity-signup/internal/events"
	"github.com/mergington/activity-signup/internal/handler"
	"github.com/mergington/activity-signup/internal/logger"
	"github.com/mergington/activity-signup/internal/model"
	"github.com/mergington/activity-signup/internal/repository"
	"github.com/mergington/activity-signup/internal/seed"
	"github.com/mergington/activity-signup/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx := context.Background()

	// ── 1. Load the activity catalog ──────────────────────────────────────
	catalog, err := seed.Load(cfg.SeedFile)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	zl.Info("activity catalog loaded", zap.Int("activities", len(catalog)), zap.String("seed_file", cfg.SeedFile))

	// ── 2. Open the directory backend ─────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg, catalog, zl)
	if err != nil {
		return err
	}
	defer closeStore()

	// ── 3. Wire up layers ─────────────────────────────────────────────────
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled() {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		zl.Info("publishing roster changes", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			zl.Warn("close publisher", zap.Error(err))
		}
	}()

	activitySvc := service.NewActivityService(store, publisher, zl)
	activityHandler := handler.NewActivityHandler(activitySvc, zl)
	router := handler.NewRouter(activityHandler, cfg.StaticDir, zl)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zl.Info("server listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	zl.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	zl.Info("server stopped")
	return nil
}

// openStore builds the configured directory backend and seeds it.
func openStore(ctx context.Context, cfg *config.Config, catalog map[string]model.Activity, zl *zap.Logger) (repository.Store, func(), error) {
	opts := repository.Options{EnforceCapacity: cfg.EnforceCapacity}

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		pool, err := database.NewPool(ctx, cfg.Postgres, zl)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		zl.Info("connected to postgres", zap.String("host", cfg.Postgres.Host), zap.String("db", cfg.Postgres.DBName))

		store := repository.NewPostgresStore(pool, opts)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := seedStore(ctx, cfg.Store.ResetOnStart, store.Seeded, func(ctx context.Context) error {
			return store.Load(ctx, catalog)
		}, zl); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	case config.BackendRedis:
		rdb, err := database.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		zl.Info("connected to redis", zap.String("addr", cfg.Redis.Address))

		store := repository.NewRedisStore(rdb, cfg.Redis.KeyPrefix, catalog, opts)
		if err := seedStore(ctx, cfg.Store.ResetOnStart, store.Seeded, store.Load, zl); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return store, func() { _ = rdb.Close() }, nil

	default:
		return repository.NewMemoryStore(catalog, opts), func() {}, nil
	}
}

// seedStore loads the catalog into a shared backend when a reset is asked
// for or when the backend has never been seeded.
func seedStore(ctx context.Context, reset bool, seeded func(context.Context) (bool, error), load func(context.Context) error, zl *zap.Logger) error {
	if !reset {
		ok, err := seeded(ctx)
		if err != nil {
			return err
		}
		if ok {
			zl.Info("keeping existing rosters")
			return nil
		}
	}
	if err := load(ctx); err != nil {
		return err
	}
	zl.Info("rosters loaded from seed")
	return nil
}
