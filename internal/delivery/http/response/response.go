package response

import (
	"time"

	"github.com/user/product-harvester/internal/entity"
)

type SubmitRunResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	RunID   string `json:"run_id"`
}

// RunStatusResponse is a DTO for run status, mirroring entity.RunStatus
type RunStatusResponse struct {
	ID        string             `json:"id"`
	Query     string             `json:"query"`
	State     string             `json:"state"` // "pending", "running", "completed", "failed"
	Summary   *entity.RunSummary `json:"summary,omitempty"`
	Error     string             `json:"error,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type ProductResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Price       *float64       `json:"price"`
	Currency    string         `json:"currency"`
	ImagePaths  []string       `json:"image_paths"`
	SourceURL   string         `json:"source_url"`
	CompanyName string         `json:"company_name"`
	ScrapedAt   time.Time      `json:"scraped_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type ProductListResponse struct {
	Count    int               `json:"count"`
	Products []ProductResponse `json:"products"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
