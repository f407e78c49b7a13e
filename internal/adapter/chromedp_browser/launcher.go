package chromedp_browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/internal/repository"
)

const defaultUserAgent = `Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36`

type Options struct {
	Headless   bool
	NoSandbox  bool
	ExecPath   string
	UserAgents []string
	Proxies    []string
	Policy     entity.RequestPolicy

	ScrollStep     int
	ScrollDelay    time.Duration
	MaxScrollSteps int
}

// Launcher starts headless Chrome through chromedp.
type Launcher struct {
	opts       Options
	identities *identityPool
	logger     *zap.Logger
}

func NewLauncher(opts Options, logger *zap.Logger) *Launcher {
	if opts.ScrollStep <= 0 {
		opts.ScrollStep = 800
	}
	if opts.MaxScrollSteps <= 0 {
		opts.MaxScrollSteps = 40
	}
	return &Launcher{
		opts:       opts,
		identities: newIdentityPool(opts.UserAgents, opts.Proxies),
		logger:     logger,
	}
}

// Launch starts one Chrome process. Pages opened from it each live in their
// own browser context.
func (l *Launcher) Launch(ctx context.Context) (repository.Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", l.opts.NoSandbox),
		chromedp.Flag("disable-setuid-sandbox", l.opts.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.UserAgent(l.identities.userAgent()),
		chromedp.WindowSize(1920, 1080),
	)
	if l.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ExecPath))
	}
	proxy := l.identities.nextProxy()
	if proxy != "" {
		opts = append(opts, chromedp.ProxyServer(proxy))
	}

	// The browser outlives any single request context, so it hangs off
	// a detached parent and is torn down by Close.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(l.logf))

	// Run with no actions starts the process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	l.logger.Info("browser launched", zap.Bool("headless", l.opts.Headless), zap.Bool("proxy", proxy != ""))
	return &browser{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
		launcher:    l,
	}, nil
}

func (l *Launcher) logf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

type browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	launcher    *Launcher
	closeOnce   sync.Once
	closeErr    error
}

func (b *browser) NewPage(ctx context.Context) (repository.Page, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, fmt.Errorf("browser closed: %w", err)
	}
	return newPage(ctx, b.ctx, b.launcher.opts, b.launcher.identities.userAgent(), b.launcher.logger)
}

func (b *browser) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = chromedp.Cancel(b.ctx)
		b.cancel()
		b.allocCancel()
		b.launcher.logger.Info("browser closed")
	})
	return b.closeErr
}
