package repository

import (
	"context"

	"github.com/user/product-harvester/internal/entity"
)

// ProductRepository is the persistence ledger for harvested products.
type ProductRepository interface {
	// Upsert inserts every product whose (source URL, company name) key is
	// new, in one transaction, and returns how many rows were inserted.
	// Existing keys are skipped, never updated. Any other failure rolls the
	// whole batch back and wraps ErrPersistenceFailed.
	Upsert(ctx context.Context, products []*entity.Product) (int, error)
	// ListRecent returns the most recently scraped products, optionally
	// filtered by company name.
	ListRecent(ctx context.Context, company string, limit int) ([]*entity.Product, error)
}
