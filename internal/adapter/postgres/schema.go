package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id           UUID PRIMARY KEY,
		name         TEXT NOT NULL,
		price        NUMERIC(10,2),
		currency     CHAR(3) NOT NULL DEFAULT 'USD',
		image_paths  JSONB NOT NULL DEFAULT '[]'::jsonb,
		source_url   TEXT NOT NULL,
		company_name TEXT NOT NULL,
		scraped_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		metadata     JSONB NOT NULL DEFAULT '{}'::jsonb,
		CONSTRAINT products_source_company_key UNIQUE (source_url, company_name)
	)`,
	`CREATE INDEX IF NOT EXISTS products_company_name_idx ON products (company_name)`,
	`CREATE INDEX IF NOT EXISTS products_scraped_at_idx ON products (scraped_at DESC)`,
	`CREATE TABLE IF NOT EXISTS failed_sites (
		id                     BIGSERIAL PRIMARY KEY,
		url                    TEXT NOT NULL UNIQUE,
		failure_reason         TEXT NOT NULL,
		stage                  TEXT NOT NULL,
		last_attempt_timestamp TIMESTAMPTZ NOT NULL,
		retry_count            INTEGER NOT NULL DEFAULT 1
	)`,
}

// Migrate creates the tables and indexes if they do not exist yet. It is
// safe to run on every start.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			// Two processes racing on IF NOT EXISTS can collide on the
			// catalog's unique index; the object exists either way.
			if isUniqueViolation(err) {
				continue
			}
			return fmt.Errorf("migrate: %s", describe(err))
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if err == nil || !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505"
}

// describe adds the SQLSTATE and constraint to PostgreSQL errors.
func describe(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.ConstraintName != "" {
			return fmt.Sprintf("%s (SQLSTATE %s, constraint %s)", pgErr.Message, pgErr.Code, pgErr.ConstraintName)
		}
		return fmt.Sprintf("%s (SQLSTATE %s)", pgErr.Message, pgErr.Code)
	}
	return err.Error()
}
