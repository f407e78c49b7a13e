package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/product-harvester/internal/delivery/http/request"
	"github.com/user/product-harvester/internal/delivery/http/response"
	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/internal/repository"
	"github.com/user/product-harvester/internal/usecase"
)

const (
	defaultProductLimit = 50
	maxProductLimit     = 500
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	runs     usecase.RunManager
	products repository.ProductRepository
	checks   map[string]HealthCheck
	logger   *zap.Logger
}

func NewHandler(runs usecase.RunManager, products repository.ProductRepository, checks map[string]HealthCheck, logger *zap.Logger) *Handler {
	return &Handler{
		runs:     runs,
		products: products,
		checks:   checks,
		logger:   logger,
	}
}

func (h *Handler) HandleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Limit < 0 {
		h.writeJSONError(w, "limit must not be negative", http.StatusBadRequest)
		return
	}

	runID, err := h.runs.Submit(r.Context(), req.Query, req.Limit)
	if err != nil {
		if errors.Is(err, usecase.ErrEmptyQuery) {
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to submit run", zap.String("query", req.Query), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.SubmitRunResponse{
		Status:  "success",
		Message: "Run queued",
		RunID:   runID,
	}
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	status, err := h.runs.GetStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			h.writeJSONError(w, "Run not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get run status", zap.String("run_id", id), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.RunStatusResponse{
		ID:        status.ID,
		Query:     status.Query,
		State:     string(status.State),
		Summary:   status.Summary,
		Error:     status.Error,
		UpdatedAt: status.UpdatedAt,
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	limit := defaultProductLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxProductLimit)
	}
	company := r.URL.Query().Get("company")

	products, err := h.products.ListRecent(r.Context(), company, limit)
	if err != nil {
		h.logger.Error("failed to list products", zap.String("company", company), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.ProductListResponse{
		Count:    len(products),
		Products: make([]response.ProductResponse, 0, len(products)),
	}
	for _, p := range products {
		resp.Products = append(resp.Products, toProductResponse(p))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := response.HealthResponse{Status: "ok", Checks: map[string]string{}}
	code := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			resp.Checks[name] = "unavailable"
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	h.writeJSON(w, code, resp)
}

func toProductResponse(p *entity.Product) response.ProductResponse {
	return response.ProductResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Price:       p.Price,
		Currency:    p.Currency,
		ImagePaths:  p.ImagePaths,
		SourceURL:   p.SourceURL,
		CompanyName: p.CompanyName,
		ScrapedAt:   p.ScrapedAt,
		Metadata:    p.Metadata,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
