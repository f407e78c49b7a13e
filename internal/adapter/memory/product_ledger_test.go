package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/internal/repository"
)

func product(source, company string, at time.Time) *entity.Product {
	return &entity.Product{
		ID:          uuid.New(),
		Name:        "Tee",
		Currency:    "USD",
		SourceURL:   source,
		CompanyName: company,
		ScrapedAt:   at,
	}
}

func TestProductLedger_UpsertIsIdempotent(t *testing.T) {
	l := NewProductLedger()
	ctx := context.Background()
	now := time.Now()

	n, err := l.Upsert(ctx, []*entity.Product{product("https://a.test/p1", "Acme", now)})
	if err != nil || n != 1 {
		t.Fatalf("First upsert: got %d, %v", n, err)
	}

	n, err = l.Upsert(ctx, []*entity.Product{product("https://a.test/p1", "Acme", now)})
	if err != nil || n != 0 {
		t.Fatalf("Second upsert: got %d, %v", n, err)
	}
	if l.Len() != 1 {
		t.Errorf("Expected 1 row, got %d", l.Len())
	}
}

func TestProductLedger_DuplicateKeysInOneBatch(t *testing.T) {
	l := NewProductLedger()
	now := time.Now()
	n, err := l.Upsert(context.Background(), []*entity.Product{
		product("https://a.test/p1", "Acme", now),
		product("https://a.test/p1", "Acme", now),
		product("https://a.test/p1", "Other", now),
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 inserted, got %d", n)
	}
}

func TestProductLedger_CancelledContextRollsBack(t *testing.T) {
	l := NewProductLedger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Upsert(ctx, []*entity.Product{product("https://a.test/p1", "Acme", time.Now())})
	if !errors.Is(err, repository.ErrPersistenceFailed) {
		t.Fatalf("Expected ErrPersistenceFailed, got %v", err)
	}
	if l.Len() != 0 {
		t.Errorf("Expected no rows after failed batch, got %d", l.Len())
	}
}

func TestProductLedger_ListRecent(t *testing.T) {
	l := NewProductLedger()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, _ = l.Upsert(context.Background(), []*entity.Product{
		product("https://a.test/1", "Acme", base),
		product("https://a.test/2", "Acme", base.Add(time.Hour)),
		product("https://b.test/1", "Bolt", base.Add(2*time.Hour)),
	})

	all, _ := l.ListRecent(context.Background(), "", 10)
	if len(all) != 3 || all[0].CompanyName != "Bolt" {
		t.Fatalf("Expected newest first, got %+v", all)
	}

	acme, _ := l.ListRecent(context.Background(), "Acme", 1)
	if len(acme) != 1 || acme[0].SourceURL != "https://a.test/2" {
		t.Fatalf("Unexpected filtered result: %+v", acme)
	}
}
