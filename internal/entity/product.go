package entity

import (
	"time"

	"github.com/google/uuid"
)

const DefaultCurrency = "USD"

// ExtractedProduct is a product record that passed validation at the
// extraction boundary. Price is nil when the page did not state one.
type ExtractedProduct struct {
	Name       string   `json:"name"`
	Price      *float64 `json:"price,omitempty"`
	Currency   string   `json:"currency"`
	ImageURLs  []string `json:"image_urls"`
	ProductURL string   `json:"product_url,omitempty"`
}

// Product mirrors the `products` PostgreSQL table schema.
// (SourceURL, CompanyName) is unique.
type Product struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Price       *float64       `json:"price,omitempty"`
	Currency    string         `json:"currency"`
	ImagePaths  []string       `json:"image_paths"`
	SourceURL   string         `json:"source_url"`
	CompanyName string         `json:"company_name"`
	ScrapedAt   time.Time      `json:"scraped_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Key returns the idempotency key of the product.
func (p *Product) Key() ProductKey {
	return ProductKey{SourceURL: p.SourceURL, CompanyName: p.CompanyName}
}

type ProductKey struct {
	SourceURL   string
	CompanyName string
}
