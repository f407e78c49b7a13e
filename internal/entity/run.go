package entity

import "time"

type RunState string

const (
	RunPending   RunState = "pending"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

// RunSummary is the aggregate result of one pipeline run.
type RunSummary struct {
	Query             string     `json:"query"`
	SitesFound        int        `json:"sites_found"`
	SitesAttempted    int        `json:"sites_attempted"`
	SitesSucceeded    int        `json:"sites_succeeded"`
	SitesSkipped      int        `json:"sites_skipped"`
	ProductsFound     int        `json:"products_found"`
	ProductsPersisted int        `json:"products_persisted"`
	SampleProducts    []*Product `json:"sample_products"`
	Message           string     `json:"message"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        time.Time  `json:"finished_at"`
}

// RunRequest is a queued request for a pipeline run.
type RunRequest struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	Limit       int       `json:"limit"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type RunStatus struct {
	ID        string      `json:"id"`
	Query     string      `json:"query"`
	State     RunState    `json:"state"`
	Summary   *RunSummary `json:"summary,omitempty"`
	Error     string      `json:"error,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}
