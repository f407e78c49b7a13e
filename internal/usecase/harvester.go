package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/internal/repository"
)

type HarvesterOptions struct {
	MaxImages int
	MaxLinks  int
	// SettleDelay is waited after the scroll pass so late content renders.
	SettleDelay time.Duration
}

// PageHarvester captures the rendered state of an open page.
type PageHarvester struct {
	opts   HarvesterOptions
	logger *zap.Logger
	sleep  sleepFunc
}

func NewPageHarvester(opts HarvesterOptions, logger *zap.Logger) *PageHarvester {
	if opts.MaxImages <= 0 {
		opts.MaxImages = 50
	}
	if opts.MaxLinks <= 0 {
		opts.MaxLinks = 100
	}
	return &PageHarvester{opts: opts, logger: logger, sleep: sleepContext}
}

// Harvest forces lazy content to load and captures the page. It never
// returns an error: on any failure the snapshot has empty markup and lists
// and Err set. The caller still owns and closes the page.
func (h *PageHarvester) Harvest(ctx context.Context, page repository.Page) entity.PageSnapshot {
	pageURL, err := page.URL(ctx)
	if err != nil {
		return h.failed("", fmt.Errorf("read location: %w", err))
	}

	if err := page.ScrollThrough(ctx); err != nil {
		return h.failed(pageURL, fmt.Errorf("scroll pass: %w", err))
	}
	if err := h.sleep(ctx, h.opts.SettleDelay); err != nil {
		return h.failed(pageURL, err)
	}

	title, err := page.Title(ctx)
	if err != nil {
		return h.failed(pageURL, fmt.Errorf("read title: %w", err))
	}
	markup, err := page.Content(ctx)
	if err != nil {
		return h.failed(pageURL, fmt.Errorf("read markup: %w", err))
	}

	snap, err := BuildSnapshot(pageURL, title, markup, h.opts.MaxImages, h.opts.MaxLinks)
	if err != nil {
		return h.failed(pageURL, err)
	}

	h.logger.Info("page harvested",
		zap.String("url", pageURL),
		zap.Int("markup_bytes", len(snap.RawMarkup)),
		zap.Int("images", len(snap.ImageURLs)),
		zap.Int("links", len(snap.Links)),
		zap.Int("structured_blocks", len(snap.StructuredData)),
	)
	return snap
}

func (h *PageHarvester) failed(pageURL string, err error) entity.PageSnapshot {
	h.logger.Warn("harvest failed", zap.String("url", pageURL), zap.Error(err))
	return entity.PageSnapshot{
		URL: pageURL,
		Err: fmt.Errorf("%w: %v", repository.ErrHarvestFailed, err),
	}
}
