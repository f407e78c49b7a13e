package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/internal/repository"
)

type fakePage struct {
	browser   *fakeBrowser
	gotoErr   error
	scrollErr error
	url       string
	closed    int
}

func (p *fakePage) Goto(_ context.Context, url string, _ entity.WaitCondition, _ time.Duration) error {
	if p.gotoErr != nil {
		return p.gotoErr
	}
	if err, ok := p.browser.failURLs[url]; ok {
		return err
	}
	p.url = url
	return nil
}

func (p *fakePage) ScrollThrough(context.Context) error { return p.scrollErr }

func (p *fakePage) Title(context.Context) (string, error) { return "Shop", nil }

func (p *fakePage) Content(context.Context) (string, error) {
	if m, ok := p.browser.markup[p.url]; ok {
		return m, nil
	}
	return "<html><body><p>Nothing for sale</p></body></html>", nil
}

func (p *fakePage) URL(context.Context) (string, error) { return p.url, nil }

func (p *fakePage) Close() error {
	p.browser.mu.Lock()
	defer p.browser.mu.Unlock()
	p.closed++
	return nil
}

type fakeBrowser struct {
	mu sync.Mutex
	// gotoErrs[i] fails the Goto of the i-th page opened.
	gotoErrs   []error
	failURLs   map[string]error
	markup     map[string]string
	newPageErr error
	scrollErr  error
	pages      []*fakePage
	closed     bool
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{failURLs: map[string]error{}, markup: map[string]string{}}
}

func (b *fakeBrowser) NewPage(context.Context) (repository.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.newPageErr != nil {
		return nil, b.newPageErr
	}
	p := &fakePage{browser: b, scrollErr: b.scrollErr}
	if idx := len(b.pages); idx < len(b.gotoErrs) {
		p.gotoErr = b.gotoErrs[idx]
	}
	b.pages = append(b.pages, p)
	return p, nil
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fakeBrowser) openPages() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	open := 0
	for _, p := range b.pages {
		if p.closed == 0 {
			open++
		}
	}
	return open
}

type fakeLauncher struct {
	browser *fakeBrowser
	err     error
}

func (l *fakeLauncher) Launch(context.Context) (repository.Browser, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.browser, nil
}

// fakeOracle answers with the response registered for the page URL found in
// the prompt, or "[]".
type fakeOracle struct {
	byURL map[string]string
	err   error
	calls int
}

func (o *fakeOracle) Name() string { return "fake" }

func (o *fakeOracle) Complete(_ context.Context, _, content string) (string, error) {
	o.calls++
	if o.err != nil {
		return "", o.err
	}
	for u, resp := range o.byURL {
		if strings.Contains(content, "URL: "+u+"\n") {
			return resp, nil
		}
	}
	return "[]", nil
}

type fakeSearch struct {
	sites []entity.CandidateSite
	err   error
}

func (s *fakeSearch) Search(context.Context, string, int) ([]entity.CandidateSite, error) {
	return s.sites, s.err
}

type failingLedger struct {
	err error
	// before runs ahead of the failure, e.g. to cancel the run mid-write.
	before func()
}

func (l *failingLedger) Upsert(context.Context, []*entity.Product) (int, error) {
	if l.before != nil {
		l.before()
	}
	return 0, l.err
}

func (l *failingLedger) ListRecent(context.Context, string, int) ([]*entity.Product, error) {
	return nil, nil
}

type fakeFailedSites struct {
	saved   []*entity.FailedSite
	deleted []string
}

func (f *fakeFailedSites) SaveOrUpdate(_ context.Context, s *entity.FailedSite) error {
	f.saved = append(f.saved, s)
	return nil
}

func (f *fakeFailedSites) Delete(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

type fakeVisited struct {
	urls map[string]time.Duration
}

func (v *fakeVisited) MarkVisited(_ context.Context, url string, expiry time.Duration) error {
	v.urls[url] = expiry
	return nil
}

func (v *fakeVisited) IsVisited(_ context.Context, url string) (bool, error) {
	_, ok := v.urls[url]
	return ok, nil
}

type fakeImages struct {
	requested [][]string
}

func (f *fakeImages) Fetch(_ context.Context, urls []string, maxCount int) []string {
	f.requested = append(f.requested, urls)
	out := []string{}
	for i, u := range urls {
		if i >= maxCount {
			break
		}
		out = append(out, "/cache/"+u[strings.LastIndex(u, "/")+1:])
	}
	return out
}

// recordingSleep records requested durations without waiting.
type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}
