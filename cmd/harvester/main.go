package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/user/product-harvester/internal/adapter/memory"
	"github.com/user/product-harvester/internal/adapter/postgres"
	redis_adapter "github.com/user/product-harvester/internal/adapter/redis"
	"github.com/user/product-harvester/internal/app"
	"github.com/user/product-harvester/internal/delivery/cli"
	"github.com/user/product-harvester/internal/repository"
	"github.com/user/product-harvester/pkg/config"
	"github.com/user/product-harvester/pkg/logger"
	"github.com/user/product-harvester/pkg/metrics"
)

func main() {
	os.Exit(run())
}

func run() int {
	initDB := flag.Bool("init-db", false, "create the database schema before running")
	verbose := flag.Bool("verbose", false, "log at debug level")
	limit := flag.Int("limit", 0, "maximum number of sites to visit (default search.limit)")
	dryRun := flag.Bool("dry-run", false, "keep products in memory instead of PostgreSQL")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] \"<query>\"\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" && !*initDB {
		flag.Usage()
		return 2
	}

	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		return 1
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}

	// --- Logger ---
	log := logger.Init(cfg.Log.Level)
	defer log.Sync()

	metrics.Init()

	validate := cfg.Validate
	if query != "" {
		validate = func() error { return cfg.ValidateRun(!*dryRun) }
	}
	if err := validate(); err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Stores ---
	stores := app.Stores{}
	if *dryRun {
		stores.Products = memory.NewProductLedger()
		log.Info("dry run: products are kept in memory")
	} else {
		dbpool, err := app.OpenPostgres(ctx, cfg)
		if err != nil {
			log.Error("unable to connect to database", zap.Error(err))
			return 1
		}
		defer dbpool.Close()

		if *initDB {
			if err := postgres.Migrate(ctx, dbpool); err != nil {
				log.Error("schema migration failed", zap.Error(err))
				return 1
			}
			log.Info("database schema ready")
			if query == "" {
				return 0
			}
		}
		stores.Products = postgres.NewProductRepo(dbpool)
		stores.FailedSites = postgres.NewFailedSiteRepo(dbpool)
	}
	if query == "" {
		flag.Usage()
		return 2
	}

	if cfg.Pipeline.RevisitAfter > 0 {
		rdb, err := app.OpenRedis(ctx, cfg)
		if err != nil {
			log.Warn("redis unavailable, recently harvested sites will not be skipped", zap.Error(err))
		} else {
			defer rdb.Close()
			stores.Visited = redis_adapter.NewVisitedRepo(rdb)
		}
	}

	// --- Pipeline ---
	pipeline, err := app.NewPipeline(cfg, stores, log)
	if err != nil {
		log.Error("failed to build pipeline", zap.Error(err))
		return 1
	}

	summary, err := pipeline.Run(ctx, query, *limit)
	if summary != nil {
		if perr := cli.PrintSummary(os.Stdout, summary); perr != nil {
			log.Error("failed to print summary", zap.Error(perr))
		}
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, repository.ErrNoCandidates):
		return 0
	default:
		log.Error("run failed", zap.Error(err))
		return 1
	}
}
