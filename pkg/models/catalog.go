package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provider is a registered external catalog source.
type Provider struct {
	ID               int64   `json:"id"`
	Slug             string  `json:"slug"`
	Name             string  `json:"name"`
	ReliabilityScore float64 `json:"reliability_score"` // 0.00 - 1.00
	DataQualityScore int     `json:"data_quality_score"` // 0 - 100
}

// Product is the canonical, de-duplicated product shared across providers.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"` // normalized: lowercased, whitespace collapsed
	Slug        string  `json:"slug"`
	Brand       string  `json:"brand,omitempty"`
	Description string  `json:"description,omitempty"`
	CategoryID  *int64  `json:"category_id,omitempty"`
}

// ProductVariant is a concrete color/size combination of a product.
type ProductVariant struct {
	ID         int64             `json:"id"`
	ProductID  int64             `json:"product_id"`
	SKU        string            `json:"sku"`
	Attributes map[string]string `json:"attributes"`
}

// ProductMapping ties a provider's external product code to a canonical
// product. (ProviderID, ExternalCode) is unique; ProductID stays nil until
// the record has been matched.
type ProductMapping struct {
	ID           int64   `json:"id"`
	ProviderID   int64   `json:"provider_id"`
	ExternalCode string  `json:"external_product_code"`
	ProductID    *int64  `json:"product_id,omitempty"`
	ProductURL   string  `json:"product_url,omitempty"`
}

// PriceHistory is one append-only price observation for a mapping.
type PriceHistory struct {
	ID            int64            `json:"id"`
	MappingID     int64            `json:"mapping_id"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	DiscountRate  *int             `json:"discount_rate,omitempty"`
	CurrencyID    int64            `json:"currency_id"`
	InStock       bool             `json:"in_stock"`
	StockQuantity *int             `json:"stock_quantity,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// PriceHistoryCreate is the insert payload for one price observation.
type PriceHistoryCreate struct {
	MappingID     int64
	Price         decimal.Decimal
	OriginalPrice *decimal.Decimal
	DiscountRate  *int
	CurrencyID    int64
	InStock       bool
	StockQuantity *int
}

// TrendingProduct is one row of the fully-replaced trending table.
type TrendingProduct struct {
	ProductID  int64     `json:"product_id"`
	TrendScore int       `json:"trend_score"` // -100 .. +100
	Rank       int       `json:"rank"`        // 1..N, contiguous
	UpdatedAt  time.Time `json:"updated_at"`
}

// Currency is an ISO currency known to the system.
type Currency struct {
	ID     int64  `json:"id"`
	Code   string `json:"code"`
	Symbol string `json:"symbol,omitempty"`
	Name   string `json:"name,omitempty"`
}
