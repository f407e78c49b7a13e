package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/internal/repository"
)

const runStatusPrefix = "harvester:run:"

// RunStatusRepoImpl stores run statuses as JSON strings that expire after ttl.
type RunStatusRepoImpl struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRunStatusRepo(client *redis.Client, ttl time.Duration) *RunStatusRepoImpl {
	return &RunStatusRepoImpl{client: client, ttl: ttl}
}

func (r *RunStatusRepoImpl) Save(ctx context.Context, status *entity.RunStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode run status: %w", err)
	}
	return r.client.Set(ctx, runStatusPrefix+status.ID, payload, r.ttl).Err()
}

func (r *RunStatusRepoImpl) Get(ctx context.Context, id string) (*entity.RunStatus, error) {
	payload, err := r.client.Get(ctx, runStatusPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	var status entity.RunStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil, fmt.Errorf("failed to decode run status: %w", err)
	}
	return &status, nil
}
