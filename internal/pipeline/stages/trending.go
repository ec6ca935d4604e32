package stages

import (
	"context"
	"math"
	"sort"

	"github.com/price-radar/price-radar/internal/pipeline"
	"github.com/price-radar/price-radar/internal/storage"
	"github.com/price-radar/price-radar/pkg/models"
)

// DefaultTrendingLimit is how many products the trending table keeps.
const DefaultTrendingLimit = 5

// UpdateTrendingStage fully replaces the trending table with the products
// moving hardest in either direction.
type UpdateTrendingStage struct {
	uow  *storage.UnitOfWork
	topN int
}

// NewUpdateTrendingStage creates the stage with the default limit.
func NewUpdateTrendingStage(uow *storage.UnitOfWork) *UpdateTrendingStage {
	return &UpdateTrendingStage{uow: uow, topN: DefaultTrendingLimit}
}

// NewUpdateTrendingStageWithLimit creates the stage with a custom limit.
func NewUpdateTrendingStageWithLimit(uow *storage.UnitOfWork, topN int) *UpdateTrendingStage {
	if topN <= 0 {
		topN = DefaultTrendingLimit
	}
	return &UpdateTrendingStage{uow: uow, topN: topN}
}

func (s *UpdateTrendingStage) Name() string {
	return "update_trending"
}

func (s *UpdateTrendingStage) Process(ctx context.Context, pc *pipeline.Context) {
	records, ok := pc.Data.([]Weighted)
	if !ok {
		pc.AddHardError("update_trending: unexpected payload type")
		pc.SkipRemaining = true
		return
	}

	// Only records that were both matched and analyzed can trend. Both a
	// surge and a collapse count, so rank by absolute score.
	scored := make([]Weighted, 0, len(records))
	for _, rec := range records {
		if rec.ProductID != 0 && rec.HasTrendScore {
			scored = append(scored, rec)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return math.Abs(float64(scored[i].TrendScore)) > math.Abs(float64(scored[j].TrendScore))
	})
	if len(scored) > s.topN {
		scored = scored[:s.topN]
	}

	// A product may appear once per provider; the trending table is
	// unique per product, keep the strongest entry.
	entries := make([]models.TrendingProduct, 0, len(scored))
	seen := make(map[int64]struct{}, len(scored))
	for _, rec := range scored {
		if _, dup := seen[rec.ProductID]; dup {
			continue
		}
		seen[rec.ProductID] = struct{}{}
		entries = append(entries, models.TrendingProduct{
			ProductID:  rec.ProductID,
			TrendScore: rec.TrendScore,
			Rank:       len(entries) + 1,
		})
	}

	if err := s.uow.Trending().ReplaceAll(ctx, entries); err != nil {
		pc.AddHardError("update_trending: replace failed: %v", err)
		pc.Meta["trending_updated"] = 0
		pc.Result = pc.Data
		return
	}

	pc.Meta["trending_updated"] = len(entries)
	pc.Result = pc.Data
}
