// Package stages implements the analysis pipeline stages. Records advance
// through a chain of types, each stage a function between neighbors:
//
//	Input → Normalized → Mapped → Matched → Analyzed → Margined → Weighted
//
// Fields a stage computes become fields of the next type. A record that
// fails normalization, mapping or matching is recorded in the context
// errors and dropped from the forward stream. The history, trend and margin
// stages record a failure in the context errors but keep the record,
// without the fields that stage would have set.
package stages

import "github.com/price-radar/price-radar/internal/provider"

// Input is a collected record with its provider row resolved. The batch
// runner attaches ProviderID before the pipeline starts.
type Input struct {
	provider.Record
	ProviderID int64 `json:"provider_id"`
}

// Normalized carries the price converted into the base currency.
type Normalized struct {
	Input
	OriginalPrice    float64 `json:"original_price"`
	OriginalCurrency string  `json:"original_currency"`
	Price            float64 `json:"price"`    // in the base currency
	Currency         string  `json:"currency"` // always the base currency
}

// Mapped carries the resolved product mapping.
type Mapped struct {
	Normalized
	MappingID         int64  `json:"mapping_id"`
	ExistingProductID *int64 `json:"existing_product_id,omitempty"`
}

// Matched carries the canonical product the mapping points at.
type Matched struct {
	Mapped
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
}

// Analyzed carries the price trend metrics.
type Analyzed struct {
	Matched
	HasTrendScore      bool    `json:"has_trend_score"`
	TrendScore         int     `json:"trend_score"`
	TrendDirection     string  `json:"trend_direction"`
	PriceChangePercent float64 `json:"price_change_percent"`
	AvgPrice           float64 `json:"avg_price"`
	MinPrice           float64 `json:"min_price"`
	MaxPrice           float64 `json:"max_price"`
	HasSufficientData  bool    `json:"has_sufficient_data"`
}

// Margined carries the market-average comparison.
type Margined struct {
	Analyzed
	HasMarketData          bool    `json:"has_market_data"`
	MarketAvgPrice         float64 `json:"market_avg_price"`
	ProfitMarginPercent    float64 `json:"profit_margin_percent"`
	WeightedProfitMargin   float64 `json:"weighted_profit_margin"`
	IsArbitrageOpportunity bool    `json:"is_arbitrage_opportunity"`
}

// Weighted carries the provider-trust attenuated metrics.
type Weighted struct {
	Margined
	ReliabilityScore   float64 `json:"reliability_score"`
	DataQualityScore   int     `json:"data_quality_score"`
	ConfidenceLevel    float64 `json:"confidence_level"`
	WeightedTrendScore float64 `json:"weighted_trend_score"`
}
