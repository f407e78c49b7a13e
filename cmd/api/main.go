package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/user/product-harvester/internal/adapter/postgres"
	redis_adapter "github.com/user/product-harvester/internal/adapter/redis"
	"github.com/user/product-harvester/internal/app"
	"github.com/user/product-harvester/internal/delivery/http/handler"
	"github.com/user/product-harvester/internal/delivery/http/router"
	"github.com/user/product-harvester/internal/usecase"
	"github.com/user/product-harvester/pkg/config"
	"github.com/user/product-harvester/pkg/logger"
	"github.com/user/product-harvester/pkg/metrics"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log := logger.Init(cfg.Log.Level)
	defer log.Sync()
	log.Info("logger initialized", zap.String("level", cfg.Log.Level))

	if err := cfg.ValidateRun(true); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	// --- Metrics ---
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database Connections ---
	dbpool, err := app.OpenPostgres(ctx, cfg)
	if err != nil {
		log.Fatal("unable to connect to database", zap.Error(err))
	}
	defer dbpool.Close()
	if err := postgres.Migrate(ctx, dbpool); err != nil {
		log.Fatal("schema migration failed", zap.Error(err))
	}
	log.Info("PostgreSQL connection pool established")

	rdb, err := app.OpenRedis(ctx, cfg)
	if err != nil {
		log.Fatal("unable to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()
	log.Info("Redis connection established")

	// --- Repositories ---
	productRepo := postgres.NewProductRepo(dbpool)
	stores := app.Stores{
		Products:    productRepo,
		FailedSites: postgres.NewFailedSiteRepo(dbpool),
		Visited:     redis_adapter.NewVisitedRepo(rdb),
	}
	queueRepo := redis_adapter.NewQueueRepo(rdb)
	statusRepo := redis_adapter.NewRunStatusRepo(rdb, cfg.Worker.StatusTTL)

	// --- Use Cases ---
	pipeline, err := app.NewPipeline(cfg, stores, log)
	if err != nil {
		log.Fatal("failed to build pipeline", zap.Error(err))
	}
	runManager := usecase.NewRunManager(queueRepo, statusRepo, pipeline, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		usecase.RunWorker(ctx, runManager, cfg.Worker.PollInterval, log)
	}()

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(runManager, productRepo, map[string]handler.HealthCheck{
		"postgres": dbpool.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.New(apiHandler, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 70 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("could not listen on port", zap.String("port", cfg.Server.Port), zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	// The worker aborts its current run through ctx.
	wg.Wait()
	log.Info("server exiting")
}
