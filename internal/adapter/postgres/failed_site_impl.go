package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/product-harvester/internal/entity"
)

// FailedSiteRepoImpl provides a concrete implementation for the FailedSiteRepository interface using PostgreSQL.
type FailedSiteRepoImpl struct {
	db *pgxpool.Pool
}

// NewFailedSiteRepo creates a new instance of FailedSiteRepoImpl.
func NewFailedSiteRepo(db *pgxpool.Pool) *FailedSiteRepoImpl {
	return &FailedSiteRepoImpl{db: db}
}

// SaveOrUpdate creates or updates a record for a failed site.
// It increments the retry_count on conflict.
func (r *FailedSiteRepoImpl) SaveOrUpdate(ctx context.Context, site *entity.FailedSite) error {
	query := `
		INSERT INTO failed_sites (url, failure_reason, stage, last_attempt_timestamp, retry_count)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (url) DO UPDATE SET
			failure_reason = EXCLUDED.failure_reason,
			stage = EXCLUDED.stage,
			last_attempt_timestamp = EXCLUDED.last_attempt_timestamp,
			retry_count = failed_sites.retry_count + 1;
	`
	_, err := r.db.Exec(ctx, query,
		site.URL,
		site.FailureReason,
		site.Stage,
		site.LastAttemptTimestamp,
	)
	return err
}

// Delete removes a failed site record, typically after a successful harvest.
func (r *FailedSiteRepoImpl) Delete(ctx context.Context, url string) error {
	query := `DELETE FROM failed_sites WHERE url = $1;`
	_, err := r.db.Exec(ctx, query, url)
	return err
}

// Find returns the failure record for url, or nil when there is none.
func (r *FailedSiteRepoImpl) Find(ctx context.Context, url string) (*entity.FailedSite, error) {
	query := `
		SELECT id, url, failure_reason, stage, last_attempt_timestamp, retry_count
		FROM failed_sites
		WHERE url = $1;
	`
	rows, err := r.db.Query(ctx, query, url)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var fs entity.FailedSite
	if err := rows.Scan(&fs.ID, &fs.URL, &fs.FailureReason, &fs.Stage, &fs.LastAttemptTimestamp, &fs.RetryCount); err != nil {
		return nil, err
	}
	return &fs, nil
}
