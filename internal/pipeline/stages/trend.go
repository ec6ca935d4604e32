package stages

import (
	"context"

	"github.com/price-radar/price-radar/internal/currency"
	"github.com/price-radar/price-radar/internal/pipeline"
	"github.com/price-radar/price-radar/internal/storage"
	"github.com/price-radar/price-radar/pkg/models"
)

const (
	// DefaultHistoryLimit is how many recent observations feed the trend
	DefaultHistoryLimit = 10
	// stableThresholdPercent is the band treated as no movement
	stableThresholdPercent = 2.0
	// momentumBonus is added when the recent three prices move one way
	momentumBonus = 10
)

// TrendAnalysisStage scores recent price movement per mapping against its
// local history window.
type TrendAnalysisStage struct {
	uow          *storage.UnitOfWork
	historyLimit int
}

// NewTrendAnalysisStage creates the stage with the default history window.
func NewTrendAnalysisStage(uow *storage.UnitOfWork) *TrendAnalysisStage {
	return &TrendAnalysisStage{uow: uow, historyLimit: DefaultHistoryLimit}
}

// NewTrendAnalysisStageWithLimit creates the stage with a custom window.
func NewTrendAnalysisStageWithLimit(uow *storage.UnitOfWork, limit int) *TrendAnalysisStage {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &TrendAnalysisStage{uow: uow, historyLimit: limit}
}

func (s *TrendAnalysisStage) Name() string {
	return "trend_analysis"
}

func (s *TrendAnalysisStage) Process(ctx context.Context, pc *pipeline.Context) {
	records, ok := pc.Data.([]Matched)
	if !ok {
		pc.AddHardError("trend_analysis: unexpected payload type")
		pc.SkipRemaining = true
		return
	}

	histories := s.uow.PriceHistories()

	analyzed := make([]Analyzed, 0, len(records))
	analyzedCount := 0
	errorCount := 0

	for _, rec := range records {
		if rec.MappingID == 0 || rec.Price <= 0 {
			// Cannot analyze, pass the record through bare.
			analyzed = append(analyzed, Analyzed{Matched: rec})
			continue
		}

		history, err := histories.GetByMappingID(ctx, rec.MappingID, s.historyLimit)
		if err != nil {
			pc.AddError("mapping %d: trend analysis failed: %v", rec.MappingID, err)
			errorCount++
			analyzed = append(analyzed, Analyzed{Matched: rec})
			continue
		}

		analyzed = append(analyzed, analyzeTrend(rec, history))
		analyzedCount++
	}

	pc.Data = analyzed
	pc.Result = analyzed
	pc.Meta["trend_analyzed_count"] = analyzedCount
	pc.Meta["trend_analysis_errors"] = errorCount
	countStageErrors(s.Name(), errorCount)
}

// analyzeTrend computes the trend metrics for one record from its history
// (newest first).
func analyzeTrend(rec Matched, history []models.PriceHistory) Analyzed {
	out := Analyzed{Matched: rec, HasTrendScore: true}

	if len(history) < 2 {
		out.TrendScore = 0
		out.TrendDirection = "stable"
		out.AvgPrice = rec.Price
		out.MinPrice = rec.Price
		out.MaxPrice = rec.Price
		out.HasSufficientData = false
		return out
	}

	prices := make([]float64, len(history))
	for i, h := range history {
		prices[i], _ = h.Price.Float64()
	}

	sum := 0.0
	minPrice := prices[0]
	maxPrice := prices[0]
	for _, p := range prices {
		sum += p
		if p < minPrice {
			minPrice = p
		}
		if p > maxPrice {
			maxPrice = p
		}
	}
	avg := sum / float64(len(prices))

	changePercent := 0.0
	if avg > 0 {
		changePercent = (rec.Price - avg) / avg * 100
	}

	direction := "stable"
	switch {
	case changePercent > stableThresholdPercent:
		direction = "up"
	case changePercent < -stableThresholdPercent:
		direction = "down"
	}

	out.TrendScore = trendScore(prices, changePercent)
	out.TrendDirection = direction
	out.PriceChangePercent = currency.Round2(changePercent)
	out.AvgPrice = currency.Round2(avg)
	out.MinPrice = currency.Round2(minPrice)
	out.MaxPrice = currency.Round2(maxPrice)
	out.HasSufficientData = true
	return out
}

// trendScore combines the change percentage with a momentum bonus from the
// newest three observations. prices are ordered newest first, so values
// descending toward older entries mean the price has been rising.
func trendScore(prices []float64, changePercent float64) int {
	base := clampScore(changePercent * 5)

	momentum := 0.0
	if len(prices) >= 3 {
		recent := prices[:3]
		descending := recent[0] <= recent[1] && recent[1] <= recent[2]
		ascending := recent[0] >= recent[1] && recent[1] >= recent[2]
		switch {
		case descending:
			momentum = -momentumBonus
		case ascending:
			momentum = momentumBonus
		}
	}

	return int(clampScore(base + momentum))
}
