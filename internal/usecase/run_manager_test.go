package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/internal/repository"
)

type memQueue struct {
	mu    sync.Mutex
	items []*entity.RunRequest
}

func (q *memQueue) Push(_ context.Context, req *entity.RunRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, req)
	return nil
}

func (q *memQueue) Pop(context.Context) (*entity.RunRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, repository.ErrQueueEmpty
	}
	req := q.items[0]
	q.items = q.items[1:]
	return req, nil
}

func (q *memQueue) Size(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}

type memStatuses struct {
	mu      sync.Mutex
	byID    map[string]entity.RunStatus
	history []entity.RunState
}

func (s *memStatuses) Save(_ context.Context, st *entity.RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[st.ID] = *st
	s.history = append(s.history, st.State)
	return nil
}

func (s *memStatuses) Get(_ context.Context, id string) (*entity.RunStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrRunNotFound
	}
	return &st, nil
}

type stubRunner struct {
	summary *entity.RunSummary
	err     error
	queries []string
}

func (r *stubRunner) Run(_ context.Context, query string, _ int) (*entity.RunSummary, error) {
	r.queries = append(r.queries, query)
	return r.summary, r.err
}

func TestRunManager_SubmitAndProcess(t *testing.T) {
	queue := &memQueue{}
	statuses := &memStatuses{byID: map[string]entity.RunStatus{}}
	runner := &stubRunner{summary: &entity.RunSummary{ProductsPersisted: 4}}
	m := NewRunManager(queue, statuses, runner, zap.NewNop())
	ctx := context.Background()

	id, err := m.Submit(ctx, "  uk clothing retailers ", 3)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	st, err := m.GetStatus(ctx, id)
	if err != nil || st.State != entity.RunPending {
		t.Fatalf("Expected pending status, got %+v, %v", st, err)
	}

	processed, err := m.ProcessNext(ctx)
	if err != nil || !processed {
		t.Fatalf("Expected a processed run, got %v, %v", processed, err)
	}
	if len(runner.queries) != 1 || runner.queries[0] != "uk clothing retailers" {
		t.Errorf("Unexpected runner calls: %v", runner.queries)
	}

	st, _ = m.GetStatus(ctx, id)
	if st.State != entity.RunCompleted || st.Summary.ProductsPersisted != 4 {
		t.Errorf("Expected completed status with summary, got %+v", st)
	}
	want := []entity.RunState{entity.RunPending, entity.RunRunning, entity.RunCompleted}
	if len(statuses.history) != len(want) {
		t.Fatalf("Expected transitions %v, got %v", want, statuses.history)
	}
	for i := range want {
		if statuses.history[i] != want[i] {
			t.Errorf("Transition %d: expected %s, got %s", i, want[i], statuses.history[i])
		}
	}
}

func TestRunManager_FailedRunIsRecorded(t *testing.T) {
	queue := &memQueue{}
	statuses := &memStatuses{byID: map[string]entity.RunStatus{}}
	runner := &stubRunner{summary: &entity.RunSummary{Message: "none"}, err: repository.ErrNoCandidates}
	m := NewRunManager(queue, statuses, runner, zap.NewNop())

	id, _ := m.Submit(context.Background(), "q", 1)
	if _, err := m.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext failed: %v", err)
	}
	st, _ := m.GetStatus(context.Background(), id)
	if st.State != entity.RunFailed || st.Error == "" {
		t.Errorf("Expected failed status with error, got %+v", st)
	}
}

func TestRunManager_EmptyQueue(t *testing.T) {
	m := NewRunManager(&memQueue{}, &memStatuses{byID: map[string]entity.RunStatus{}}, &stubRunner{}, zap.NewNop())
	processed, err := m.ProcessNext(context.Background())
	if err != nil || processed {
		t.Errorf("Expected nothing processed, got %v, %v", processed, err)
	}
}

func TestRunManager_RejectsEmptyQuery(t *testing.T) {
	m := NewRunManager(&memQueue{}, &memStatuses{byID: map[string]entity.RunStatus{}}, &stubRunner{}, zap.NewNop())
	if _, err := m.Submit(context.Background(), "   ", 1); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Expected ErrEmptyQuery, got %v", err)
	}
}

func TestRunManager_UnknownRun(t *testing.T) {
	m := NewRunManager(&memQueue{}, &memStatuses{byID: map[string]entity.RunStatus{}}, &stubRunner{}, zap.NewNop())
	if _, err := m.GetStatus(context.Background(), "nope"); !errors.Is(err, repository.ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}
