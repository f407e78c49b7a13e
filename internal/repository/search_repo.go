package repository

import (
	"context"

	"github.com/user/product-harvester/internal/entity"
)

// SearchProvider finds candidate sites for a query. Providers degrade to an
// empty result on failure and report the failure through the error.
type SearchProvider interface {
	Search(ctx context.Context, query string, limit int) ([]entity.CandidateSite, error)
}
