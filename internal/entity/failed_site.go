package entity

import "time"

// FailedSite mirrors the `failed_sites` PostgreSQL table schema.
type FailedSite struct {
	ID                   int64
	URL                  string
	FailureReason        string
	Stage                string // "navigation" or "harvest"
	LastAttemptTimestamp time.Time
	RetryCount           int
}
