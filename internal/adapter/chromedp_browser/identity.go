package chromedp_browser

import (
	"math/rand"
	"sync"
	"time"
)

// identityPool rotates the user agents and proxies the browser presents.
type identityPool struct {
	proxies    []string
	userAgents []string
	mu         sync.Mutex
	proxyIndex int
	rnd        *rand.Rand
}

func newIdentityPool(userAgents, proxies []string) *identityPool {
	return &identityPool{
		proxies:    proxies,
		userAgents: userAgents,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// nextProxy returns a proxy URL from the list, rotating sequentially.
// Empty means direct connection.
func (p *identityPool) nextProxy() string {
	if len(p.proxies) == 0 {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	proxy := p.proxies[p.proxyIndex]
	p.proxyIndex = (p.proxyIndex + 1) % len(p.proxies)
	return proxy
}

// userAgent returns a random user agent string.
func (p *identityPool) userAgent() string {
	if len(p.userAgents) == 0 {
		return defaultUserAgent
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userAgents[p.rnd.Intn(len(p.userAgents))]
}
