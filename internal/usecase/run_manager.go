package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/internal/repository"
	"github.com/user/product-harvester/pkg/metrics"
)

var ErrEmptyQuery = errors.New("query must not be empty")

const maxRunLimit = 20

// Runner executes one harvesting run. *Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, query string, limit int) (*entity.RunSummary, error)
}

// RunManager queues runs submitted over the API and executes them one at a
// time.
type RunManager interface {
	Submit(ctx context.Context, query string, limit int) (string, error)
	GetStatus(ctx context.Context, id string) (*entity.RunStatus, error)
	// ProcessNext runs the oldest queued request. It reports false when the
	// queue was empty.
	ProcessNext(ctx context.Context) (bool, error)
}

type runManagerUseCase struct {
	queueRepo  repository.QueueRepository
	statusRepo repository.RunStatusRepository
	runner     Runner
	logger     *zap.Logger
	now        func() time.Time
}

func NewRunManager(
	queueRepo repository.QueueRepository,
	statusRepo repository.RunStatusRepository,
	runner Runner,
	logger *zap.Logger,
) RunManager {
	return &runManagerUseCase{
		queueRepo:  queueRepo,
		statusRepo: statusRepo,
		runner:     runner,
		logger:     logger,
		now:        time.Now,
	}
}

func (uc *runManagerUseCase) Submit(ctx context.Context, query string, limit int) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	if limit > maxRunLimit {
		limit = maxRunLimit
	}

	req := &entity.RunRequest{
		ID:          uuid.NewString(),
		Query:       query,
		Limit:       limit,
		SubmittedAt: uc.now().UTC(),
	}
	status := &entity.RunStatus{
		ID:        req.ID,
		Query:     query,
		State:     entity.RunPending,
		UpdatedAt: req.SubmittedAt,
	}
	if err := uc.statusRepo.Save(ctx, status); err != nil {
		return "", fmt.Errorf("failed to save run status: %w", err)
	}
	if err := uc.queueRepo.Push(ctx, req); err != nil {
		return "", fmt.Errorf("failed to queue run: %w", err)
	}
	uc.refreshQueueGauge(ctx)

	uc.logger.Info("run queued", zap.String("run_id", req.ID), zap.String("query", query), zap.Int("limit", limit))
	return req.ID, nil
}

func (uc *runManagerUseCase) GetStatus(ctx context.Context, id string) (*entity.RunStatus, error) {
	return uc.statusRepo.Get(ctx, id)
}

func (uc *runManagerUseCase) ProcessNext(ctx context.Context) (bool, error) {
	req, err := uc.queueRepo.Pop(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrQueueEmpty) {
			// Queue is empty, which is a normal state.
			return false, nil
		}
		return false, fmt.Errorf("failed to pop run from queue: %w", err)
	}
	uc.refreshQueueGauge(ctx)

	log := uc.logger.With(zap.String("run_id", req.ID), zap.String("query", req.Query))
	log.Info("processing run from queue")

	status := &entity.RunStatus{ID: req.ID, Query: req.Query, State: entity.RunRunning, UpdatedAt: uc.now().UTC()}
	if err := uc.statusRepo.Save(ctx, status); err != nil {
		log.Warn("failed to mark run as running", zap.Error(err))
	}

	summary, runErr := uc.runner.Run(ctx, req.Query, req.Limit)

	status.Summary = summary
	status.UpdatedAt = uc.now().UTC()
	if runErr != nil {
		status.State = entity.RunFailed
		status.Error = runErr.Error()
		log.Error("run failed", zap.Error(runErr))
	} else {
		status.State = entity.RunCompleted
		log.Info("run completed")
	}

	// The final state is recorded even when ctx was cancelled mid-run.
	if err := uc.statusRepo.Save(context.WithoutCancel(ctx), status); err != nil {
		return true, fmt.Errorf("failed to save final status for run %s: %w", req.ID, err)
	}
	return true, nil
}

func (uc *runManagerUseCase) refreshQueueGauge(ctx context.Context) {
	size, err := uc.queueRepo.Size(ctx)
	if err != nil {
		uc.logger.Debug("failed to read queue size", zap.Error(err))
		return
	}
	metrics.RunsInQueue.Set(float64(size))
}

// RunWorker drains the queue until ctx is cancelled, sleeping pollInterval
// whenever the queue is empty.
func RunWorker(ctx context.Context, m RunManager, pollInterval time.Duration, logger *zap.Logger) {
	logger.Info("run worker started", zap.Duration("poll_interval", pollInterval))
	for {
		processed, err := m.ProcessNext(ctx)
		if err != nil {
			logger.Error("run worker iteration failed", zap.Error(err))
		}
		if ctx.Err() != nil {
			logger.Info("run worker stopped")
			return
		}
		if processed && err == nil {
			continue
		}
		if sleepContext(ctx, pollInterval) != nil {
			logger.Info("run worker stopped")
			return
		}
	}
}
