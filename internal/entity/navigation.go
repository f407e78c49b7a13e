package entity

import (
	"fmt"
	"strings"
)

// WaitCondition is the page state a navigation waits for.
type WaitCondition int

const (
	WaitLoad WaitCondition = iota
	WaitDOMContentLoaded
	WaitNetworkIdle
)

func (w WaitCondition) String() string {
	switch w {
	case WaitDOMContentLoaded:
		return "domcontentloaded"
	case WaitNetworkIdle:
		return "networkidle"
	default:
		return "load"
	}
}

func ParseWaitCondition(s string) (WaitCondition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "load", "":
		return WaitLoad, nil
	case "domcontentloaded":
		return WaitDOMContentLoaded, nil
	case "networkidle":
		return WaitNetworkIdle, nil
	}
	return WaitLoad, fmt.Errorf("unknown wait condition %q", s)
}

type RequestDecision int

const (
	RequestContinue RequestDecision = iota
	RequestAbort
)

// RequestPolicy decides which sub-resource requests a page may make.
type RequestPolicy struct {
	// BlockedURLFragments are matched case-insensitively against the full
	// request URL.
	BlockedURLFragments []string
	// BlockedResourceTypes uses the DevTools resource type names
	// ("Image", "Media", "Font", ...).
	BlockedResourceTypes []string
}

// DefaultRequestPolicy drops tracking beacons, images and media. Fonts and
// everything else load normally.
func DefaultRequestPolicy() RequestPolicy {
	return RequestPolicy{
		BlockedURLFragments: []string{
			"google-analytics",
			"googletagmanager",
			"doubleclick",
			"facebook.com/tr",
			"criteo",
			"hotjar",
			"sentry",
		},
		BlockedResourceTypes: []string{"Image", "Media"},
	}
}

func (p RequestPolicy) Decide(rawURL, resourceType string) RequestDecision {
	lower := strings.ToLower(rawURL)
	for _, frag := range p.BlockedURLFragments {
		if strings.Contains(lower, strings.ToLower(frag)) {
			return RequestAbort
		}
	}
	for _, rt := range p.BlockedResourceTypes {
		if strings.EqualFold(rt, resourceType) {
			return RequestAbort
		}
	}
	return RequestContinue
}
