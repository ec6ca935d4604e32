package mockprovider

import (
	"math/rand"
	"sync"
)

type outcome int

const (
	outcomeOK outcome = iota
	outcomeServerError
	outcomeRateLimited
)

// providerBehavior holds the injection settings for one provider.
type providerBehavior struct {
	errorRate float64
	rateLimit bool
}

// defaultBehaviors mirror the observed per-source failure rates the
// circuit breakers are tuned against.
func defaultBehaviors() map[string]*providerBehavior {
	return map[string]*providerBehavior{
		"sport-direct": {errorRate: 0.01},
		"outdoor-pro":  {errorRate: 0.05},
		"dag-spor":     {errorRate: 0.15},
		"alpine-gear":  {errorRate: 0.30},
	}
}

// State manages the in-memory state for the mock providers
type State struct {
	mu        sync.Mutex
	behaviors map[string]*providerBehavior
	rng       *rand.Rand
}

// NewState creates a state with the default error rates.
func NewState() *State {
	return &State{
		behaviors: defaultBehaviors(),
		rng:       rand.New(rand.NewSource(1)),
	}
}

// Reset restores the default behaviors.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.behaviors = defaultBehaviors()
}

// Configure overrides one provider's injection settings.
func (s *State) Configure(slug string, errorRate float64, rateLimit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.behaviors[slug] = &providerBehavior{errorRate: errorRate, rateLimit: rateLimit}
}

// NextOutcome rolls the dice for one request.
func (s *State) NextOutcome(slug string) outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.behaviors[slug]
	if !ok {
		return outcomeOK
	}
	if b.rateLimit {
		return outcomeRateLimited
	}
	if s.rng.Float64() < b.errorRate {
		return outcomeServerError
	}
	return outcomeOK
}

// SportDirectProducts returns the fixed SportDirect catalog.
func (s *State) SportDirectProducts() []map[string]any {
	return []map[string]any{
		{"product_id": 1, "product_name": "Nike Pegasus 40", "brand": "Nike",
			"category": "Koşu", "subcategory": "Ayakkabı", "colour": "Mavi",
			"weight_kg": 0.28, "price_gbp": 130.95, "stock_quantity": 100, "in_stock": true},
		{"product_id": 2, "product_name": "Adidas Ultraboost 23", "brand": "Adidas",
			"category": "Koşu", "subcategory": "Ayakkabı", "colour": "Siyah",
			"weight_kg": 0.30, "price_gbp": 159.99, "stock_quantity": 42, "in_stock": true},
		{"product_id": 3, "product_name": "Garmin Forerunner 265", "brand": "Garmin",
			"category": "Elektronik", "colour": "Beyaz",
			"price_gbp": 429.00, "stock_quantity": 0, "in_stock": false},
	}
}

// OutdoorProItems returns the fixed OutdoorPro catalog.
func (s *State) OutdoorProItems() []map[string]any {
	return []map[string]any{
		{"id": 1, "name": "NorthFace Stormbreak 2 Çadır", "brand": "NorthFace",
			"category": "Kamp", "price": 325.95, "currency": "USD", "stock": 27, "available": true},
		{"id": 2, "name": "MSR PocketRocket 2", "brand": "MSR",
			"category": "Kamp", "price": 49.95, "currency": "USD", "stock": 88, "available": true},
	}
}

// DagSporProducts returns the fixed DagSpor catalog.
func (s *State) DagSporProducts() []map[string]any {
	return []map[string]any{
		{"urun_id": 1, "urun_adi": "Salomon X Ultra 4 GTX", "marka": "Salomon",
			"kategori": "Outdoor", "alt_kategori": "Ayakkabı", "renk": "Gri",
			"agirlik_kg": 0.85, "fiyat": 8499.99, "stok_adedi": 45, "stokta_var": true},
		{"urun_id": 2, "urun_adi": "Deuter Futura 27", "marka": "Deuter",
			"kategori": "Outdoor", "alt_kategori": "Çanta", "renk": "Yeşil",
			"fiyat": 4250.00, "stok_adedi": 12, "stokta_var": true},
	}
}

// AlpineGearProducts returns the fixed AlpineGear catalog.
func (s *State) AlpineGearProducts() []map[string]any {
	return []map[string]any{
		{"artikel_id": 1, "produktname": "Mammut Nordwand Pro HS", "marke": "Mammut",
			"kategorie": "Bekleidung", "unterkategorie": "Jacken", "farbe": "Rot",
			"gewicht_kg": 0.65, "preis": 599.95, "lagerbestand": 23, "verfuegbar": true},
		{"artikel_id": 2, "produktname": "Petzl Grigri Plus", "marke": "Petzl",
			"kategorie": "Klettern", "farbe": "Orange",
			"preis": 109.95, "lagerbestand": 5, "verfuegbar": true},
	}
}
