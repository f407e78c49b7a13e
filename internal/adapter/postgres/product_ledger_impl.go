package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/internal/repository"
)

const insertProductSQL = `
	INSERT INTO products (id, name, price, currency, image_paths, source_url, company_name, scraped_at, metadata)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (source_url, company_name) DO NOTHING;
`

// ProductRepoImpl provides a concrete implementation for the ProductRepository interface using PostgreSQL.
type ProductRepoImpl struct {
	db *pgxpool.Pool
}

// NewProductRepo creates a new instance of ProductRepoImpl.
func NewProductRepo(db *pgxpool.Pool) *ProductRepoImpl {
	return &ProductRepoImpl{db: db}
}

// Upsert inserts the batch in one transaction. Rows whose key already
// exists are left untouched.
func (r *ProductRepoImpl) Upsert(ctx context.Context, products []*entity.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, p := range products {
		args, err := productArgs(p)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", repository.ErrPersistenceFailed, err)
		}
		batch.Queue(insertProductSQL, args...)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %s", repository.ErrPersistenceFailed, describe(err))
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	inserted := 0
	for range products {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("%w: insert: %s", repository.ErrPersistenceFailed, describe(err))
		}
		inserted += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("%w: %s", repository.ErrPersistenceFailed, describe(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: commit: %s", repository.ErrPersistenceFailed, describe(err))
	}
	return inserted, nil
}

func productArgs(p *entity.Product) ([]any, error) {
	var price pgtype.Numeric
	if p.Price != nil {
		if err := price.Scan(strconv.FormatFloat(*p.Price, 'f', 2, 64)); err != nil {
			return nil, fmt.Errorf("price %v: %w", *p.Price, err)
		}
	}

	imagePaths := p.ImagePaths
	if imagePaths == nil {
		imagePaths = []string{}
	}
	imagesJSON, err := json.Marshal(imagePaths)
	if err != nil {
		return nil, err
	}
	metadata := p.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}

	return []any{
		p.ID.String(),
		p.Name,
		price,
		p.Currency,
		imagesJSON,
		p.SourceURL,
		p.CompanyName,
		p.ScrapedAt,
		metadataJSON,
	}, nil
}

// ListRecent retrieves the most recently scraped products, newest first.
func (r *ProductRepoImpl) ListRecent(ctx context.Context, company string, limit int) ([]*entity.Product, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, name, price, currency, image_paths, source_url, company_name, scraped_at, metadata
		FROM products
		WHERE ($1 = '' OR company_name = $1)
		ORDER BY scraped_at DESC
		LIMIT $2;
	`
	rows, err := r.db.Query(ctx, query, company, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*entity.Product
	for rows.Next() {
		var (
			p            entity.Product
			id           pgtype.UUID
			price        pgtype.Numeric
			imagesJSON   []byte
			metadataJSON []byte
		)
		if err := rows.Scan(
			&id,
			&p.Name,
			&price,
			&p.Currency,
			&imagesJSON,
			&p.SourceURL,
			&p.CompanyName,
			&p.ScrapedAt,
			&metadataJSON,
		); err != nil {
			return nil, err
		}

		p.ID = uuid.UUID(id.Bytes)
		if price.Valid {
			f, err := price.Float64Value()
			if err != nil {
				return nil, err
			}
			p.Price = &f.Float64
		}
		if err := json.Unmarshal(imagesJSON, &p.ImagePaths); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(metadataJSON, &p.Metadata); err != nil {
			return nil, err
		}
		products = append(products, &p)
	}

	return products, rows.Err()
}
