package repository

import (
	"context"

	"github.com/user/product-harvester/internal/entity"
)

// QueueRepository defines a FIFO queue of run requests.
type QueueRepository interface {
	// Push adds a request to the end of the queue.
	Push(ctx context.Context, req *entity.RunRequest) error
	// Pop removes and returns the request at the front of the queue.
	// It returns ErrQueueEmpty when there is nothing to pop.
	Pop(ctx context.Context) (*entity.RunRequest, error)
	// Size returns the current number of items in the queue.
	Size(ctx context.Context) (int64, error)
}
