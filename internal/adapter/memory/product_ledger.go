package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/internal/repository"
)

// ProductLedger is an in-process ProductRepository for dry runs. It keeps
// the same key semantics as the PostgreSQL ledger.
type ProductLedger struct {
	mu   sync.Mutex
	rows map[entity.ProductKey]*entity.Product
}

func NewProductLedger() *ProductLedger {
	return &ProductLedger{rows: make(map[entity.ProductKey]*entity.Product)}
}

// Upsert stages the whole batch before applying it, so a cancelled context
// leaves the ledger untouched.
func (l *ProductLedger) Upsert(ctx context.Context, products []*entity.Product) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	staged := make(map[entity.ProductKey]*entity.Product, len(products))
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", repository.ErrPersistenceFailed, err)
		}
		key := p.Key()
		if _, exists := l.rows[key]; exists {
			continue
		}
		if _, exists := staged[key]; exists {
			continue
		}
		cp := *p
		staged[key] = &cp
	}

	for key, p := range staged {
		l.rows[key] = p
	}
	return len(staged), nil
}

func (l *ProductLedger) ListRecent(_ context.Context, company string, limit int) ([]*entity.Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*entity.Product, 0, len(l.rows))
	for _, p := range l.rows {
		if company != "" && p.CompanyName != company {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScrapedAt.After(out[j].ScrapedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *ProductLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}
