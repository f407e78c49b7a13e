package oracle

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Options are shared by every provider.
type Options struct {
	APIKey            string
	BaseURL           string
	Model             string
	Temperature       float32
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerMinute int
}

// newLimiter spaces calls evenly across a minute with no burst beyond one.
func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// withTimeout waits for the limiter, then bounds the call itself.
func withTimeout(ctx context.Context, lim *rate.Limiter, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if err := lim.Wait(ctx); err != nil {
		return nil, nil, err
	}
	if timeout <= 0 {
		ctx, cancel := context.WithCancel(ctx)
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, cancel, nil
}
