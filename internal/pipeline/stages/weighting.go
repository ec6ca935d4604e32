package stages

import (
	"context"

	"github.com/price-radar/price-radar/internal/currency"
	"github.com/price-radar/price-radar/internal/pipeline"
	"github.com/price-radar/price-radar/internal/storage"
	"github.com/price-radar/price-radar/pkg/models"
)

// ReliabilityWeightingStage attenuates the derived metrics by the
// provider's stored reliability and data quality scores.
type ReliabilityWeightingStage struct {
	uow *storage.UnitOfWork
}

// NewReliabilityWeightingStage creates the stage.
func NewReliabilityWeightingStage(uow *storage.UnitOfWork) *ReliabilityWeightingStage {
	return &ReliabilityWeightingStage{uow: uow}
}

func (s *ReliabilityWeightingStage) Name() string {
	return "reliability_weighting"
}

func (s *ReliabilityWeightingStage) Process(ctx context.Context, pc *pipeline.Context) {
	records, ok := pc.Data.([]Margined)
	if !ok {
		pc.AddHardError("reliability_weighting: unexpected payload type")
		pc.SkipRemaining = true
		return
	}

	providers := s.preloadProviders(ctx, records)

	weighted := make([]Weighted, 0, len(records))
	weightedCount := 0

	for _, rec := range records {
		if rec.ProviderID == 0 {
			weighted = append(weighted, Weighted{Margined: rec})
			continue
		}

		reliability := 1.0
		quality := 50
		if p, ok := providers[rec.ProviderID]; ok {
			reliability = p.ReliabilityScore
			quality = p.DataQualityScore
		}

		out := Weighted{
			Margined:           rec,
			ReliabilityScore:   currency.Round2(reliability),
			DataQualityScore:   quality,
			ConfidenceLevel:    currency.Round2((reliability + float64(quality)/100) / 2),
			WeightedTrendScore: currency.Round2(float64(rec.TrendScore) * reliability),
		}
		// The margin stage's slug-based weighting is replaced by the
		// stored provider score once it is known.
		out.WeightedProfitMargin = currency.Round2(rec.ProfitMarginPercent * reliability)
		weighted = append(weighted, out)
		weightedCount++
	}

	pc.Data = weighted
	pc.Result = weighted
	pc.Meta["reliability_weighted_count"] = weightedCount
}

// preloadProviders loads every referenced provider in one query. On
// failure the defaults apply; weighting is advisory, not fatal.
func (s *ReliabilityWeightingStage) preloadProviders(ctx context.Context, records []Margined) map[int64]models.Provider {
	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for _, rec := range records {
		if rec.ProviderID == 0 {
			continue
		}
		if _, ok := seen[rec.ProviderID]; ok {
			continue
		}
		seen[rec.ProviderID] = struct{}{}
		ids = append(ids, rec.ProviderID)
	}

	providers, err := s.uow.Providers().ByIDs(ctx, ids)
	if err != nil {
		return map[int64]models.Provider{}
	}
	return providers
}
