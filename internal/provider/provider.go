// Package provider defines the uniform product record and the adapters
// that translate each provider's bespoke response shape into it.
package provider

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Record is the uniform product representation produced by adapters and
// consumed by the analysis pipeline. Price is kept as the raw string the
// provider sent (it may carry currency symbols and grouping separators);
// the pipeline parses and converts it.
type Record struct {
	ProviderSlug  string    `json:"provider_slug"`
	ExternalCode  string    `json:"external_product_code"`
	Name          string    `json:"name"`
	Brand         string    `json:"brand,omitempty"`
	Category      string    `json:"category,omitempty"`
	Subcategory   string    `json:"subcategory,omitempty"`
	Price         string    `json:"price"`
	CurrencyCode  string    `json:"currency"`
	InStock       bool      `json:"in_stock"`
	StockQuantity int       `json:"stock_quantity"`
	ProductURL    string    `json:"product_url,omitempty"`
	Colors        []string  `json:"colors,omitempty"`
	Sizes         []string  `json:"sizes,omitempty"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Adapter parses one provider's response into uniform records. A malformed
// item is skipped with a warning; only an unreadable root shape is an error.
type Adapter interface {
	// Slug is the provider identifier used in URLs and cache keys
	Slug() string
	// Currency is the provider's default currency code
	Currency() string
	// Adapt translates a full response body into uniform records
	Adapt(body json.RawMessage) ([]Record, error)
}

// Registry holds the known adapters keyed by slug.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Slug()] = a
	}
	return r
}

// DefaultRegistry returns the four known providers.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewSportDirectAdapter(),
		NewOutdoorProAdapter(),
		NewDagSporAdapter(),
		NewAlpineGearAdapter(),
	)
}

// Get returns the adapter for slug.
func (r *Registry) Get(slug string) (Adapter, error) {
	a, ok := r.adapters[slug]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", slug)
	}
	return a, nil
}

// Slugs returns all registered provider slugs in stable order.
func (r *Registry) Slugs() []string {
	slugs := make([]string, 0, len(r.adapters))
	for slug := range r.adapters {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// Has reports whether slug is registered.
func (r *Registry) Has(slug string) bool {
	_, ok := r.adapters[slug]
	return ok
}
