package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/product-harvester/internal/adapter/memory"
	"github.com/user/product-harvester/internal/delivery/http/handler"
	"github.com/user/product-harvester/internal/delivery/http/response"
	"github.com/user/product-harvester/internal/delivery/http/router"
	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/internal/repository"
	"github.com/user/product-harvester/internal/usecase"
)

type fakeRuns struct {
	submitted []string
	statuses  map[string]*entity.RunStatus
	submitErr error
}

func (f *fakeRuns) Submit(_ context.Context, query string, _ int) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", usecase.ErrEmptyQuery
	}
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, query)
	return "run-1", nil
}

func (f *fakeRuns) GetStatus(_ context.Context, id string) (*entity.RunStatus, error) {
	if s, ok := f.statuses[id]; ok {
		return s, nil
	}
	return nil, repository.ErrRunNotFound
}

func (f *fakeRuns) ProcessNext(context.Context) (bool, error) { return false, nil }

func newServer(t *testing.T, runs *fakeRuns, checks map[string]handler.HealthCheck) (http.Handler, *memory.ProductLedger) {
	t.Helper()
	ledger := memory.NewProductLedger()
	h := handler.NewHandler(runs, ledger, checks, zap.NewNop())
	return router.New(h, zap.NewNop()), ledger
}

func TestHandleSubmitRun(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		submitErr  error
		wantStatus int
	}{
		{"accepted", `{"query":"uk furniture","limit":2}`, nil, http.StatusAccepted},
		{"malformed body", `{"query":`, nil, http.StatusBadRequest},
		{"empty query", `{"query":"  "}`, nil, http.StatusBadRequest},
		{"negative limit", `{"query":"q","limit":-1}`, nil, http.StatusBadRequest},
		{"queue down", `{"query":"q"}`, errors.New("redis down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, &fakeRuns{submitErr: tt.submitErr}, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d (%s)", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus == http.StatusAccepted {
				var resp response.SubmitRunResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("Invalid JSON: %v", err)
				}
				if resp.RunID != "run-1" || resp.Status != "success" {
					t.Errorf("Unexpected response: %+v", resp)
				}
			}
		})
	}
}

func TestHandleGetRun(t *testing.T) {
	runs := &fakeRuns{statuses: map[string]*entity.RunStatus{
		"abc": {ID: "abc", Query: "lamps", State: entity.RunCompleted, Summary: &entity.RunSummary{ProductsPersisted: 4}},
	}}
	srv, _ := newServer(t, runs, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/abc", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp response.RunStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if resp.State != "completed" || resp.Summary == nil || resp.Summary.ProductsPersisted != 4 {
		t.Errorf("Unexpected response: %+v", resp)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestHandleListProducts(t *testing.T) {
	srv, ledger := newServer(t, &fakeRuns{}, nil)
	now := time.Now()
	_, err := ledger.Upsert(context.Background(), []*entity.Product{
		{ID: uuid.New(), Name: "Chair", SourceURL: "https://acme.test/c", CompanyName: "Acme", Currency: "USD", ScrapedAt: now},
		{ID: uuid.New(), Name: "Lamp", SourceURL: "https://beta.test/l", CompanyName: "Beta", Currency: "USD", ScrapedAt: now.Add(time.Second)},
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	tests := []struct {
		query      string
		wantStatus int
		wantCount  int
	}{
		{"", http.StatusOK, 2},
		{"?company=Acme", http.StatusOK, 1},
		{"?limit=1", http.StatusOK, 1},
		{"?limit=zero", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products"+tt.query, nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp response.ProductListResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Invalid JSON: %v", err)
			}
			if resp.Count != tt.wantCount {
				t.Errorf("Expected %d products, got %d", tt.wantCount, resp.Count)
			}
		})
	}
}

func TestHandleHealthCheck(t *testing.T) {
	checks := map[string]handler.HealthCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}
	srv, _ := newServer(t, &fakeRuns{}, checks)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", rec.Code)
	}
	var resp response.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if resp.Checks["postgres"] != "ok" || resp.Checks["redis"] != "unavailable" {
		t.Errorf("Unexpected checks: %v", resp.Checks)
	}
}
