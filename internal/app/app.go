// Package app assembles the pipeline and its adapters from configuration.
// Both the CLI and the API server build their object graph through it.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/product-harvester/internal/adapter/chromedp_browser"
	"github.com/user/product-harvester/internal/adapter/imagestore"
	"github.com/user/product-harvester/internal/adapter/oracle"
	"github.com/user/product-harvester/internal/adapter/serpapi"
	"github.com/user/product-harvester/internal/adapter/static"
	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/internal/repository"
	"github.com/user/product-harvester/internal/usecase"
	"github.com/user/product-harvester/pkg/config"
)

// Stores are the persistence collaborators of a pipeline. FailedSites and
// Visited may be nil.
type Stores struct {
	Products    repository.ProductRepository
	FailedSites repository.FailedSiteRepository
	Visited     repository.VisitedRepository
}

func OpenPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres url: %w", err)
	}
	if cfg.Postgres.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Postgres.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// NewOracle prefers OpenAI when both keys are configured.
func NewOracle(cfg *config.Config, logger *zap.Logger) (repository.Oracle, error) {
	o := cfg.Oracle
	switch {
	case o.OpenAIKey != "":
		return oracle.NewOpenAI(oracle.Options{
			APIKey:            o.OpenAIKey,
			BaseURL:           o.OpenAIBaseURL,
			Model:             o.OpenAIModel,
			Temperature:       o.Temperature,
			MaxTokens:         o.MaxTokens,
			Timeout:           o.Timeout,
			RequestsPerMinute: o.RequestsPerMinute,
		}, logger), nil
	case o.AnthropicKey != "":
		return oracle.NewAnthropic(oracle.Options{
			APIKey:            o.AnthropicKey,
			BaseURL:           o.AnthropicBaseURL,
			Model:             o.AnthropicModel,
			Temperature:       o.Temperature,
			MaxTokens:         o.MaxTokens,
			Timeout:           o.Timeout,
			RequestsPerMinute: o.RequestsPerMinute,
		}, logger), nil
	default:
		return nil, config.ErrMissingOracleKey
	}
}

// NewSearch prefers SerpAPI and falls back to the static sites file.
func NewSearch(cfg *config.Config, logger *zap.Logger) (repository.SearchProvider, error) {
	switch {
	case cfg.Search.SerpAPIKey != "":
		return serpapi.NewClient(cfg.Search.SerpAPIKey, cfg.Search.SerpAPIBaseURL, cfg.Navigation.Timeout, logger), nil
	case cfg.Search.SitesFile != "":
		return static.Load(cfg.Search.SitesFile)
	default:
		return nil, config.ErrMissingSearchSource
	}
}

func NewPipeline(cfg *config.Config, stores Stores, logger *zap.Logger) (*usecase.Pipeline, error) {
	wait, err := entity.ParseWaitCondition(cfg.Navigation.WaitUntil)
	if err != nil {
		return nil, err
	}
	search, err := NewSearch(cfg, logger)
	if err != nil {
		return nil, err
	}
	llm, err := NewOracle(cfg, logger)
	if err != nil {
		return nil, err
	}

	deps := usecase.PipelineDeps{
		Search: search,
		Launcher: chromedp_browser.NewLauncher(chromedp_browser.Options{
			Headless:       cfg.Browser.Headless,
			NoSandbox:      cfg.Browser.NoSandbox,
			ExecPath:       cfg.Browser.ExecPath,
			UserAgents:     cfg.Browser.UserAgents,
			Proxies:        cfg.Browser.Proxies,
			Policy:         entity.DefaultRequestPolicy(),
			ScrollStep:     cfg.Harvest.ScrollStep,
			ScrollDelay:    cfg.Harvest.ScrollDelay,
			MaxScrollSteps: cfg.Harvest.MaxScrollSteps,
		}, logger),
		Navigator: usecase.NewNavigator(usecase.NavigatorOptions{
			BackoffBase:     cfg.Navigation.BackoffBase,
			PolitenessDelay: cfg.Navigation.PolitenessDelay,
		}, logger),
		Harvester: usecase.NewPageHarvester(usecase.HarvesterOptions{
			MaxImages:   cfg.Harvest.MaxImages,
			MaxLinks:    cfg.Harvest.MaxLinks,
			SettleDelay: cfg.Harvest.SettleDelay,
		}, logger),
		Extractor:   usecase.NewExtractor(llm, cfg.Extract.MaxChars, logger),
		Products:    stores.Products,
		FailedSites: stores.FailedSites,
		Visited:     stores.Visited,
	}
	if cfg.Images.PerProduct > 0 {
		userAgent := ""
		if len(cfg.Browser.UserAgents) > 0 {
			userAgent = cfg.Browser.UserAgents[0]
		}
		images, err := imagestore.New(imagestore.Options{
			Dir:         cfg.Images.Dir,
			Timeout:     cfg.Images.Timeout,
			MaxBytes:    cfg.Images.MaxBytes,
			Concurrency: cfg.Images.Concurrency,
			UserAgent:   userAgent,
		}, logger)
		if err != nil {
			return nil, err
		}
		deps.Images = images
	}

	return usecase.NewPipeline(deps, usecase.PipelineOptions{
		Wait:                wait,
		NavTimeout:          cfg.Navigation.Timeout,
		MaxAttempts:         cfg.Navigation.MaxAttempts,
		DefaultLimit:        cfg.Search.Limit,
		ImagesPerProduct:    cfg.Images.PerProduct,
		PersistWithoutPrice: cfg.Pipeline.PersistWithoutPrice,
		SampleSize:          cfg.Pipeline.SampleSize,
		RevisitAfter:        cfg.Pipeline.RevisitAfter,
	}, logger), nil
}
