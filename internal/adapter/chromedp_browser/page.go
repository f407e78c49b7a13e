package chromedp_browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/internal/repository"
)

const defaultNavTimeout = 30 * time.Second

// Runs before any page script.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3] });
window.chrome = window.chrome || { runtime: {} };
`

// tab is a page inside its own incognito-like browser context. Cancelling
// its context disposes the target and the browser context together.
type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options
	logger *zap.Logger
	// idle receives a signal on every networkIdle lifecycle event.
	idle      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newPage(ctx, browserCtx context.Context, opts Options, userAgent string, logger *zap.Logger) (*tab, error) {
	tabCtx, cancel := chromedp.NewContext(browserCtx, chromedp.WithNewBrowserContext())
	t := &tab{
		ctx:    tabCtx,
		cancel: cancel,
		opts:   opts,
		logger: logger,
		idle:   make(chan struct{}, 1),
	}
	chromedp.ListenTarget(tabCtx, t.onEvent)

	// The first Run creates the target and must use the tab context itself.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	err := chromedp.Run(tabCtx,
		fetch.Enable(),
		page.SetLifecycleEventsEnabled(true),
		emulation.SetUserAgentOverride(userAgent).WithAcceptLanguage("en-US,en;q=0.9"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
	)
	if err != nil {
		t.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("prepare page: %w", err)
	}
	return t, nil
}

func (t *tab) onEvent(ev any) {
	switch e := ev.(type) {
	case *fetch.EventRequestPaused:
		go t.resolveRequest(e)
	case *page.EventLifecycleEvent:
		if e.Name == "networkIdle" {
			select {
			case t.idle <- struct{}{}:
			default:
			}
		}
	}
}

// resolveRequest applies the request policy to one intercepted request.
// Listener callbacks must not block, so this runs on its own goroutine.
func (t *tab) resolveRequest(e *fetch.EventRequestPaused) {
	c := chromedp.FromContext(t.ctx)
	if c == nil || c.Target == nil {
		return
	}
	ctx := cdp.WithExecutor(t.ctx, c.Target)

	var err error
	if t.opts.Policy.Decide(e.Request.URL, string(e.ResourceType)) == entity.RequestAbort {
		err = fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(ctx)
	} else {
		err = fetch.ContinueRequest(e.RequestID).Do(ctx)
	}
	if err != nil && t.ctx.Err() == nil {
		t.logger.Debug("failed to resolve intercepted request", zap.String("request_url", e.Request.URL), zap.Error(err))
	}
}

func (t *tab) Goto(ctx context.Context, url string, wait entity.WaitCondition, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultNavTimeout
	}
	navCtx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	t.drainIdle()

	// Navigate returns once the load event fired, which also satisfies
	// DOMContentLoaded.
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return classify(navCtx, err)
	}

	switch wait {
	case entity.WaitNetworkIdle:
		select {
		case <-t.idle:
		case <-navCtx.Done():
			return classify(navCtx, fmt.Errorf("waiting for network idle: %w", navCtx.Err()))
		}
	default:
		if err := chromedp.Run(navCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
			return classify(navCtx, err)
		}
	}
	return nil
}

func (t *tab) drainIdle() {
	for {
		select {
		case <-t.idle:
		default:
			return
		}
	}
}

func (t *tab) ScrollThrough(ctx context.Context) error {
	return t.run(ctx,
		scrollToBottom(t.opts.ScrollStep, t.opts.ScrollDelay, t.opts.MaxScrollSteps),
		chromedp.Evaluate(`window.scrollTo(0, 0)`, nil),
	)
}

func (t *tab) Title(ctx context.Context) (string, error) {
	var title string
	err := t.run(ctx, chromedp.Title(&title))
	return title, err
}

func (t *tab) Content(ctx context.Context) (string, error) {
	var html string
	err := t.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (t *tab) URL(ctx context.Context) (string, error) {
	var location string
	err := t.run(ctx, chromedp.Location(&location))
	return location, err
}

func (t *tab) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = chromedp.Cancel(t.ctx)
		t.cancel()
		if errors.Is(t.closeErr, context.Canceled) {
			t.closeErr = nil
		}
	})
	return t.closeErr
}

// run executes actions on the tab while honouring cancellation of ctx.
func (t *tab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func classify(navCtx context.Context, err error) error {
	if errors.Is(navCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", repository.ErrNavigationTimeout, err)
	}
	return fmt.Errorf("%w: %v", repository.ErrNavigationFailed, err)
}
