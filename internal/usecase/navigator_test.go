package usecase

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/internal/repository"
)

func newTestNavigator() (*Navigator, *recordingSleep) {
	rec := &recordingSleep{}
	n := NewNavigator(NavigatorOptions{BackoffBase: 2 * time.Second, PolitenessDelay: 500 * time.Millisecond}, zap.NewNop())
	n.sleep = rec.sleep
	return n, rec
}

func TestNavigator_ExhaustsAttempts(t *testing.T) {
	n, rec := newTestNavigator()
	b := newFakeBrowser()
	reset := errors.New("net::ERR_CONNECTION_RESET")
	b.gotoErrs = []error{reset, reset, reset}

	page, err := n.Open(context.Background(), b, "https://shop.test", entity.WaitNetworkIdle, time.Second, 3)
	if page != nil {
		t.Fatal("Expected no page")
	}
	if !errors.Is(err, repository.ErrNavigationFailed) {
		t.Fatalf("Expected ErrNavigationFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "ERR_CONNECTION_RESET") {
		t.Errorf("Expected last error text in %q", err)
	}
	if len(b.pages) != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", len(b.pages))
	}
	if open := b.openPages(); open != 0 {
		t.Errorf("Expected every failed page closed, %d still open", open)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if !reflect.DeepEqual(rec.waits, want) {
		t.Errorf("Expected backoff %v, got %v", want, rec.waits)
	}
}

func TestNavigator_RetriesThenSucceeds(t *testing.T) {
	n, rec := newTestNavigator()
	b := newFakeBrowser()
	b.gotoErrs = []error{errors.New("net::ERR_EMPTY_RESPONSE")}

	page, err := n.Open(context.Background(), b, "https://shop.test", entity.WaitLoad, time.Second, 3)
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if page != b.pages[1] {
		t.Error("Expected the second attempt's page")
	}
	if b.pages[0].closed != 1 || b.pages[1].closed != 0 {
		t.Errorf("Expected only the failed page closed, got %d and %d", b.pages[0].closed, b.pages[1].closed)
	}
	want := []time.Duration{2 * time.Second, 500 * time.Millisecond}
	if !reflect.DeepEqual(rec.waits, want) {
		t.Errorf("Expected backoff then politeness delay %v, got %v", want, rec.waits)
	}
}

func TestNavigator_TimeoutIsClassified(t *testing.T) {
	n, _ := newTestNavigator()
	b := newFakeBrowser()
	b.gotoErrs = []error{context.DeadlineExceeded, context.DeadlineExceeded}

	_, err := n.Open(context.Background(), b, "https://slow.test", entity.WaitNetworkIdle, time.Second, 2)
	if !errors.Is(err, repository.ErrNavigationTimeout) {
		t.Fatalf("Expected ErrNavigationTimeout, got %v", err)
	}
}

func TestNavigator_SessionErrorCountsAsAttempt(t *testing.T) {
	n, rec := newTestNavigator()
	b := newFakeBrowser()
	b.newPageErr = errors.New("target closed")

	_, err := n.Open(context.Background(), b, "https://shop.test", entity.WaitLoad, time.Second, 2)
	if !errors.Is(err, repository.ErrNavigationFailed) {
		t.Fatalf("Expected ErrNavigationFailed, got %v", err)
	}
	if len(rec.waits) != 1 {
		t.Errorf("Expected one backoff between two attempts, got %v", rec.waits)
	}
}

func TestNavigator_CancelledContextStops(t *testing.T) {
	n, _ := newTestNavigator()
	b := newFakeBrowser()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := n.Open(ctx, b, "https://shop.test", entity.WaitLoad, time.Second, 3)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if len(b.pages) != 0 {
		t.Errorf("Expected no attempts, got %d", len(b.pages))
	}
}
