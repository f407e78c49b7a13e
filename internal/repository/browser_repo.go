package repository

import (
	"context"
	"time"

	"github.com/user/product-harvester/internal/entity"
)

// BrowserLauncher starts the browser process shared by one run.
type BrowserLauncher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser hands out isolated pages. Close releases the process and every
// page still open.
type Browser interface {
	// NewPage opens a page in a fresh browsing context with the request
	// policy and identity settings already applied.
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is one tab inside an isolated browsing context.
type Page interface {
	// Goto navigates and blocks until wait is satisfied or timeout elapses.
	Goto(ctx context.Context, url string, wait entity.WaitCondition, timeout time.Duration) error
	// ScrollThrough scrolls top to bottom in steps so lazy content renders,
	// then returns to the top.
	ScrollThrough(ctx context.Context) error
	Title(ctx context.Context) (string, error)
	Content(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	// Close is safe to call more than once.
	Close() error
}
