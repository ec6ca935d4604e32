package stages

import (
	"github.com/price-radar/price-radar/internal/currency"
	"github.com/price-radar/price-radar/internal/pipeline"
	"github.com/price-radar/price-radar/internal/storage"
)

// AnalysisConfig tunes the analysis pipeline.
type AnalysisConfig struct {
	HistoryLimit       int
	TrendingLimit      int
	ArbitrageThreshold float64
}

// NewAnalysisPipeline assembles the full analysis pipeline over one unit
// of work, in its fixed stage order.
func NewAnalysisPipeline(uow *storage.UnitOfWork, currencySvc *currency.Service, cfg AnalysisConfig) *pipeline.Pipeline {
	return pipeline.New(
		NewNormalizeCurrencyStage(currencySvc),
		NewResolveMappingStage(uow),
		NewMatchProductStage(uow),
		NewSavePriceHistoryStage(uow),
		NewTrendAnalysisStageWithLimit(uow, cfg.HistoryLimit),
		NewProfitMarginStageWithThreshold(uow, cfg.ArbitrageThreshold),
		NewReliabilityWeightingStage(uow),
		NewUpdateTrendingStageWithLimit(uow, cfg.TrendingLimit),
	)
}
