package repository

import (
	"context"

	"github.com/user/product-harvester/internal/entity"
)

type RunStatusRepository interface {
	Save(ctx context.Context, status *entity.RunStatus) error
	// Get returns ErrRunNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (*entity.RunStatus, error)
}
