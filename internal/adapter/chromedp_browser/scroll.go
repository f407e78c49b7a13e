package chromedp_browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// scrollToBottom incrementally scrolls the page so lazy-loaded content
// renders. The page height is re-read after every step because infinite
// lists grow while scrolling; maxSteps bounds the pass.
func scrollToBottom(step int, delay time.Duration, maxSteps int) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		var height int
		if err := chromedp.Evaluate(`document.body ? document.body.scrollHeight : 0`, &height).Do(ctx); err != nil {
			return fmt.Errorf("scrollToBottom: get height: %w", err)
		}

		for i, y := 0, 0; y <= height && i < maxSteps; i, y = i+1, y+step {
			if err := chromedp.Evaluate(fmt.Sprintf(`window.scrollTo(0, %d)`, y), nil).Do(ctx); err != nil {
				return fmt.Errorf("scrollToBottom: scroll to %d: %w", y, err)
			}
			if err := pause(ctx, delay); err != nil {
				return err
			}
			if err := chromedp.Evaluate(`document.body ? document.body.scrollHeight : 0`, &height).Do(ctx); err != nil {
				return fmt.Errorf("scrollToBottom: get height: %w", err)
			}
		}
		return nil
	}
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
