package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/internal/repository"
	"github.com/user/product-harvester/pkg/metrics"
	"github.com/user/product-harvester/pkg/utils"
)

// PipelineDeps are the collaborators of a Pipeline. Images, FailedSites and
// Visited are optional.
type PipelineDeps struct {
	Search      repository.SearchProvider
	Launcher    repository.BrowserLauncher
	Navigator   *Navigator
	Harvester   *PageHarvester
	Extractor   *Extractor
	Images      repository.ImageFetcher
	Products    repository.ProductRepository
	FailedSites repository.FailedSiteRepository
	Visited     repository.VisitedRepository
}

type PipelineOptions struct {
	Wait        entity.WaitCondition
	NavTimeout  time.Duration
	MaxAttempts int
	// DefaultLimit is used when Run is called with a non-positive limit.
	DefaultLimit        int
	ImagesPerProduct    int
	PersistWithoutPrice bool
	SampleSize          int
	// RevisitAfter > 0 skips sites harvested within that window. Needs Visited.
	RevisitAfter time.Duration
}

// Pipeline runs search, navigation, harvest, extraction, image acquisition
// and persistence for one query. Sites are processed one after another.
type Pipeline struct {
	deps   PipelineDeps
	opts   PipelineOptions
	logger *zap.Logger
	now    func() time.Time
}

// siteRun carries one candidate site through the stages of a run.
type siteRun struct {
	site     entity.CandidateSite
	company  string
	snapshot entity.PageSnapshot
	products []*entity.Product
}

func NewPipeline(deps PipelineDeps, opts PipelineOptions, logger *zap.Logger) *Pipeline {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 3
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	return &Pipeline{deps: deps, opts: opts, logger: logger, now: time.Now}
}

// Run always returns a summary. The error is non-nil when search found no
// candidates (ErrNoCandidates), the browser could not be started
// (ErrSessionAcquisition), a batch could not be persisted
// (ErrPersistenceFailed) or ctx was cancelled. Failures of a single site are
// logged and skipped.
func (p *Pipeline) Run(ctx context.Context, query string, limit int) (*entity.RunSummary, error) {
	summary := &entity.RunSummary{
		Query:          query,
		StartedAt:      p.now().UTC(),
		SampleProducts: []*entity.Product{},
	}
	defer func() { summary.FinishedAt = p.now().UTC() }()

	if limit <= 0 {
		limit = p.opts.DefaultLimit
	}

	sites, err := p.deps.Search.Search(ctx, query, limit)
	if err != nil {
		p.logger.Warn("search failed", zap.String("query", query), zap.Error(err))
	}
	if len(sites) > limit {
		sites = sites[:limit]
	}
	summary.SitesFound = len(sites)
	if len(sites) == 0 {
		summary.Message = fmt.Sprintf("search returned no candidate sites for %q", query)
		if err != nil {
			summary.Message += fmt.Sprintf(" (%v)", err)
		}
		return summary, repository.ErrNoCandidates
	}
	p.logger.Info("candidate sites found", zap.String("query", query), zap.Int("sites", len(sites)))

	browser, err := p.deps.Launcher.Launch(ctx)
	if err != nil {
		summary.Message = "could not start the browser"
		return summary, fmt.Errorf("%w: %v", repository.ErrSessionAcquisition, err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			p.logger.Warn("failed to close browser", zap.Error(err))
		}
	}()

	for _, site := range sites {
		if err := ctx.Err(); err != nil {
			summary.Message = "run cancelled: " + progress(summary)
			return summary, err
		}

		run := &siteRun{site: site, company: utils.CompanyName(site.URL)}
		if err := p.processSite(ctx, browser, run, summary); err != nil {
			if ctx.Err() != nil {
				summary.Message = "run cancelled: " + progress(summary)
				return summary, ctx.Err()
			}
			summary.Message = "run aborted: " + progress(summary)
			return summary, err
		}
	}

	if err := ctx.Err(); err != nil {
		summary.Message = "run cancelled: " + progress(summary)
		return summary, err
	}
	summary.Message = progress(summary)
	p.logger.Info("run finished",
		zap.String("query", query),
		zap.Int("sites_attempted", summary.SitesAttempted),
		zap.Int("sites_succeeded", summary.SitesSucceeded),
		zap.Int("products_found", summary.ProductsFound),
		zap.Int("products_persisted", summary.ProductsPersisted),
	)
	return summary, nil
}

// processSite returns an error only when the run must stop.
func (p *Pipeline) processSite(ctx context.Context, browser repository.Browser, run *siteRun, summary *entity.RunSummary) error {
	log := p.logger.With(zap.String("url", run.site.URL), zap.String("company", run.company))

	if p.harvestedRecently(ctx, run.site.URL) {
		summary.SitesSkipped++
		metrics.SitesProcessedTotal.WithLabelValues("skipped").Inc()
		log.Info("skipping recently harvested site")
		return nil
	}
	summary.SitesAttempted++

	start := time.Now()
	page, err := p.deps.Navigator.Open(ctx, browser, run.site.URL, p.opts.Wait, p.opts.NavTimeout, p.opts.MaxAttempts)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		metrics.SitesProcessedTotal.WithLabelValues("navigation_failed").Inc()
		log.Error("could not open site, skipping", zap.Error(err))
		p.recordFailure(ctx, run.site.URL, "navigation", err)
		return nil
	}

	run.snapshot = p.deps.Harvester.Harvest(ctx, page)
	if err := page.Close(); err != nil {
		log.Debug("failed to close page", zap.Error(err))
	}
	metrics.HarvestDuration.WithLabelValues(hostOf(run.site.URL)).Observe(time.Since(start).Seconds())

	if run.snapshot.Failed() {
		if ctx.Err() != nil {
			return nil
		}
		metrics.SitesProcessedTotal.WithLabelValues("harvest_failed").Inc()
		log.Error("could not harvest site, skipping", zap.Error(run.snapshot.Err))
		p.recordFailure(ctx, run.site.URL, "harvest", run.snapshot.Err)
		return nil
	}
	summary.SitesSucceeded++
	metrics.SitesProcessedTotal.WithLabelValues("succeeded").Inc()

	result := p.deps.Extractor.Extract(ctx, run.snapshot.RawMarkup, run.snapshot.URL, run.company)
	if result.Err != nil {
		log.Warn("extraction yielded no products", zap.Error(result.Err))
	}
	summary.ProductsFound += len(result.Products)

	run.products = p.buildProducts(ctx, run, result.Products)
	if len(run.products) > 0 {
		inserted, err := p.deps.Products.Upsert(ctx, run.products)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				log.Warn("run cancelled while persisting products", zap.Error(err))
				return ctxErr
			}
			log.Error("failed to persist products", zap.Error(err))
			if !errors.Is(err, repository.ErrPersistenceFailed) {
				err = fmt.Errorf("%w: %v", repository.ErrPersistenceFailed, err)
			}
			return err
		}
		summary.ProductsPersisted += inserted
		metrics.ProductsPersistedTotal.Add(float64(inserted))
		log.Info("products persisted", zap.Int("batch", len(run.products)), zap.Int("inserted", inserted))
	}

	for _, prod := range run.products {
		if len(summary.SampleProducts) >= p.opts.SampleSize {
			break
		}
		summary.SampleProducts = append(summary.SampleProducts, prod)
	}

	p.markHarvested(ctx, run.site.URL)
	return nil
}

// buildProducts turns validated candidates into ledger rows. The source URL
// is the product URL when the oracle found one, otherwise the site URL.
func (p *Pipeline) buildProducts(ctx context.Context, run *siteRun, candidates []entity.ExtractedProduct) []*entity.Product {
	base, _ := url.Parse(run.snapshot.URL)
	scrapedAt := p.now().UTC()

	products := make([]*entity.Product, 0, len(candidates))
	for _, c := range candidates {
		if c.Price == nil && !p.opts.PersistWithoutPrice {
			p.logger.Debug("skipping product without price", zap.String("name", c.Name))
			continue
		}

		productURL := absolute(base, c.ProductURL)
		sourceURL := productURL
		if sourceURL == "" {
			sourceURL = run.site.URL
		}

		imageURLs := make([]string, 0, len(c.ImageURLs))
		for _, raw := range c.ImageURLs {
			if abs := absolute(base, raw); abs != "" {
				imageURLs = append(imageURLs, abs)
			}
		}

		paths := []string{}
		if p.deps.Images != nil && p.opts.ImagesPerProduct > 0 && len(imageURLs) > 0 {
			if fetched := p.deps.Images.Fetch(ctx, imageURLs, p.opts.ImagesPerProduct); fetched != nil {
				paths = fetched
			}
		}

		metadata := map[string]any{
			"original_image_urls": imageURLs,
			"page_url":            run.snapshot.URL,
			"page_title":          run.snapshot.Title,
		}
		if productURL != "" {
			metadata["product_url"] = productURL
		}

		products = append(products, &entity.Product{
			ID:          uuid.New(),
			Name:        c.Name,
			Price:       c.Price,
			Currency:    c.Currency,
			ImagePaths:  paths,
			SourceURL:   sourceURL,
			CompanyName: run.company,
			ScrapedAt:   scrapedAt,
			Metadata:    metadata,
		})
	}
	return products
}

func (p *Pipeline) harvestedRecently(ctx context.Context, siteURL string) bool {
	if p.deps.Visited == nil || p.opts.RevisitAfter <= 0 {
		return false
	}
	visited, err := p.deps.Visited.IsVisited(ctx, siteURL)
	if err != nil {
		p.logger.Warn("failed to check visited cache", zap.String("url", siteURL), zap.Error(err))
		return false
	}
	return visited
}

func (p *Pipeline) markHarvested(ctx context.Context, siteURL string) {
	if p.deps.Visited != nil && p.opts.RevisitAfter > 0 {
		if err := p.deps.Visited.MarkVisited(ctx, siteURL, p.opts.RevisitAfter); err != nil {
			p.logger.Warn("failed to mark site as harvested", zap.String("url", siteURL), zap.Error(err))
		}
	}
	if p.deps.FailedSites != nil {
		if err := p.deps.FailedSites.Delete(ctx, siteURL); err != nil {
			// This is not a critical error, just log it.
			p.logger.Warn("failed to clear failed site record", zap.String("url", siteURL), zap.Error(err))
		}
	}
}

func (p *Pipeline) recordFailure(ctx context.Context, siteURL, stage string, cause error) {
	if p.deps.FailedSites == nil {
		return
	}
	failed := &entity.FailedSite{
		URL:                  siteURL,
		FailureReason:        cause.Error(),
		Stage:                stage,
		LastAttemptTimestamp: p.now().UTC(),
	}
	if err := p.deps.FailedSites.SaveOrUpdate(ctx, failed); err != nil {
		p.logger.Warn("failed to record failed site", zap.String("url", siteURL), zap.Error(err))
	}
}

func progress(s *entity.RunSummary) string {
	if s.SitesAttempted > 0 && s.SitesSucceeded == 0 {
		return fmt.Sprintf("none of %d attempted sites could be harvested", s.SitesAttempted)
	}
	return fmt.Sprintf("%d of %d sites harvested, %d products found, %d new products persisted",
		s.SitesSucceeded, s.SitesAttempted, s.ProductsFound, s.ProductsPersisted)
}

func absolute(base *url.URL, raw string) string {
	if raw == "" {
		return ""
	}
	abs, err := utils.ToAbsoluteURL(base, raw)
	if err != nil || !utils.IsAbsoluteHTTP(abs) {
		return ""
	}
	return abs
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return u.Hostname()
}
