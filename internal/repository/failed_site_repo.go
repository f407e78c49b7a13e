package repository

import (
	"context"

	"github.com/user/product-harvester/internal/entity"
)

// FailedSiteRepository records sites that could not be harvested.
type FailedSiteRepository interface {
	// SaveOrUpdate creates or updates a record for a failed site.
	// It increments the retry count on conflict.
	SaveOrUpdate(ctx context.Context, site *entity.FailedSite) error
	// Delete removes a failed site record after a successful harvest.
	Delete(ctx context.Context, url string) error
}
