package chromedp_browser

import "testing"

func TestIdentityPool_RotatesProxies(t *testing.T) {
	p := newIdentityPool(nil, []string{"http://p1:1", "http://p2:2"})
	got := []string{p.nextProxy(), p.nextProxy(), p.nextProxy()}
	want := []string{"http://p1:1", "http://p2:2", "http://p1:1"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Rotation %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestIdentityPool_Defaults(t *testing.T) {
	p := newIdentityPool(nil, nil)
	if p.nextProxy() != "" {
		t.Error("Expected direct connection without proxies")
	}
	if p.userAgent() != defaultUserAgent {
		t.Error("Expected fallback user agent")
	}

	agents := []string{"ua-1", "ua-2"}
	p = newIdentityPool(agents, nil)
	for i := 0; i < 10; i++ {
		ua := p.userAgent()
		if ua != "ua-1" && ua != "ua-2" {
			t.Fatalf("Unexpected user agent %q", ua)
		}
	}
}
