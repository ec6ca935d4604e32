package stages

import (
	"context"
	"strings"

	"github.com/price-radar/price-radar/internal/currency"
	"github.com/price-radar/price-radar/internal/pipeline"
	"github.com/price-radar/price-radar/internal/storage"
)

const (
	// DefaultArbitrageThreshold is the weighted margin (%) that flags an
	// arbitrage opportunity
	DefaultArbitrageThreshold = 10.0
	// marketHistoryLimit caps the observations feeding the market average
	marketHistoryLimit = 50
)

// reliabilityWeights attenuates margins per source; keys are normalized
// slugs. Derived from observed provider error rates.
var reliabilityWeights = map[string]float64{
	"sport_direct": 0.99,
	"outdoor_pro":  0.95,
	"dag_spor":     0.85,
	"alpine_gear":  0.70,
}

// defaultReliabilityWeight applies to unknown sources.
const defaultReliabilityWeight = 0.80

// ProfitMarginStage compares each record's price against the market
// average of its mapping history and flags arbitrage opportunities.
type ProfitMarginStage struct {
	uow       *storage.UnitOfWork
	threshold float64
}

// NewProfitMarginStage creates the stage with the default threshold.
func NewProfitMarginStage(uow *storage.UnitOfWork) *ProfitMarginStage {
	return &ProfitMarginStage{uow: uow, threshold: DefaultArbitrageThreshold}
}

// NewProfitMarginStageWithThreshold creates the stage with a custom
// arbitrage threshold.
func NewProfitMarginStageWithThreshold(uow *storage.UnitOfWork, threshold float64) *ProfitMarginStage {
	if threshold <= 0 {
		threshold = DefaultArbitrageThreshold
	}
	return &ProfitMarginStage{uow: uow, threshold: threshold}
}

func (s *ProfitMarginStage) Name() string {
	return "profit_margin"
}

// providerWeight returns the trust weight for a provider slug.
func providerWeight(slug string) float64 {
	key := strings.ReplaceAll(strings.ToLower(slug), "-", "_")
	if w, ok := reliabilityWeights[key]; ok {
		return w
	}
	return defaultReliabilityWeight
}

func (s *ProfitMarginStage) Process(ctx context.Context, pc *pipeline.Context) {
	records, ok := pc.Data.([]Analyzed)
	if !ok {
		pc.AddHardError("profit_margin: unexpected payload type")
		pc.SkipRemaining = true
		return
	}

	histories := s.uow.PriceHistories()

	margined := make([]Margined, 0, len(records))
	arbitrageCount := 0
	errorCount := 0

	for _, rec := range records {
		if rec.Price <= 0 {
			margined = append(margined, Margined{Analyzed: rec})
			continue
		}

		marketAvg, err := s.marketAverage(ctx, histories, rec)
		if err != nil {
			pc.AddError("mapping %d: profit margin failed: %v", rec.MappingID, err)
			errorCount++
			margined = append(margined, Margined{Analyzed: rec})
			continue
		}
		if marketAvg == 0 {
			margined = append(margined, Margined{Analyzed: rec})
			continue
		}

		// Positive margin means this source is cheaper than the market.
		marginPercent := (marketAvg - rec.Price) / marketAvg * 100
		weight := providerWeight(rec.ProviderSlug)
		weightedMargin := marginPercent * weight

		out := Margined{
			Analyzed:               rec,
			HasMarketData:          true,
			MarketAvgPrice:         currency.Round2(marketAvg),
			ProfitMarginPercent:    currency.Round2(marginPercent),
			WeightedProfitMargin:   currency.Round2(weightedMargin),
			IsArbitrageOpportunity: weightedMargin >= s.threshold,
		}
		if out.IsArbitrageOpportunity {
			arbitrageCount++
		}
		margined = append(margined, out)
	}

	pc.Data = margined
	pc.Result = margined
	pc.Meta["arbitrage_opportunities"] = arbitrageCount
	pc.Meta["profit_margin_errors"] = errorCount
	countStageErrors(s.Name(), errorCount)
}

// marketAverage prefers the average the trend stage already computed and
// falls back to a fresh history read.
func (s *ProfitMarginStage) marketAverage(ctx context.Context, histories *storage.PriceHistoryStore, rec Analyzed) (float64, error) {
	if rec.HasTrendScore && rec.AvgPrice > 0 {
		return rec.AvgPrice, nil
	}

	if rec.MappingID == 0 {
		return 0, nil
	}

	history, err := histories.GetByMappingID(ctx, rec.MappingID, marketHistoryLimit)
	if err != nil {
		return 0, err
	}
	if len(history) == 0 {
		return 0, nil
	}

	sum := 0.0
	for _, h := range history {
		p, _ := h.Price.Float64()
		sum += p
	}
	return sum / float64(len(history)), nil
}
