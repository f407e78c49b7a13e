package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/internal/repository"
	"github.com/user/product-harvester/pkg/metrics"
)

type NavigatorOptions struct {
	// BackoffBase is multiplied by the attempt number between attempts.
	BackoffBase time.Duration
	// PolitenessDelay is applied after every successful navigation.
	PolitenessDelay time.Duration
}

// Navigator opens URLs reliably. Every attempt gets its own isolated page;
// a failed attempt's page is closed before the next one starts.
type Navigator struct {
	opts   NavigatorOptions
	logger *zap.Logger
	sleep  sleepFunc
}

func NewNavigator(opts NavigatorOptions, logger *zap.Logger) *Navigator {
	return &Navigator{opts: opts, logger: logger, sleep: sleepContext}
}

// Open navigates to url, retrying up to maxAttempts times. On success the
// caller owns the returned page and must close it. After the last failed
// attempt it returns an error wrapping ErrNavigationTimeout or
// ErrNavigationFailed with the last attempt's error text. Cancellation of
// ctx stops retrying immediately.
func (n *Navigator) Open(ctx context.Context, browser repository.Browser, url string, wait entity.WaitCondition, timeout time.Duration, maxAttempts int) (repository.Page, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := n.attempt(ctx, browser, url, wait, timeout)
		if err == nil {
			metrics.NavigationAttemptsTotal.WithLabelValues("success").Inc()
			n.logger.Debug("navigation succeeded", zap.String("url", url), zap.Int("attempt", attempt))
			if err := n.sleep(ctx, n.opts.PolitenessDelay); err != nil {
				page.Close()
				return nil, err
			}
			return page, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		outcome := "retry"
		if attempt == maxAttempts {
			outcome = "failed"
		}
		if isTimeout(err) {
			outcome = "timeout"
		}
		metrics.NavigationAttemptsTotal.WithLabelValues(outcome).Inc()
		n.logger.Warn("navigation attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err),
		)

		if attempt < maxAttempts {
			if err := n.sleep(ctx, time.Duration(attempt)*n.opts.BackoffBase); err != nil {
				return nil, err
			}
		}
	}

	kind := repository.ErrNavigationFailed
	if isTimeout(lastErr) {
		kind = repository.ErrNavigationTimeout
	}
	return nil, fmt.Errorf("%w: %s after %d attempts: %v", kind, url, maxAttempts, lastErr)
}

func (n *Navigator) attempt(ctx context.Context, browser repository.Browser, url string, wait entity.WaitCondition, timeout time.Duration) (repository.Page, error) {
	page, err := browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("open isolated page: %w", err)
	}
	if err := page.Goto(ctx, url, wait, timeout); err != nil {
		if cerr := page.Close(); cerr != nil {
			n.logger.Debug("failed to close page after navigation error", zap.String("url", url), zap.Error(cerr))
		}
		return nil, err
	}
	return page, nil
}

func isTimeout(err error) bool {
	return errors.Is(err, repository.ErrNavigationTimeout) || errors.Is(err, context.DeadlineExceeded)
}
