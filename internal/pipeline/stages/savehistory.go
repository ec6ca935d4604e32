package stages

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/price-radar/price-radar/internal/metrics"
	"github.com/price-radar/price-radar/internal/pipeline"
	"github.com/price-radar/price-radar/internal/storage"
	"github.com/price-radar/price-radar/pkg/models"
)

// SavePriceHistoryStage bulk-inserts one price observation per record.
// The records flow through unchanged; only meta reports the outcome.
type SavePriceHistoryStage struct {
	uow *storage.UnitOfWork
}

// NewSavePriceHistoryStage creates the stage.
func NewSavePriceHistoryStage(uow *storage.UnitOfWork) *SavePriceHistoryStage {
	return &SavePriceHistoryStage{uow: uow}
}

func (s *SavePriceHistoryStage) Name() string {
	return "save_price_history"
}

func (s *SavePriceHistoryStage) Process(ctx context.Context, pc *pipeline.Context) {
	records, ok := pc.Data.([]Matched)
	if !ok {
		pc.AddHardError("save_price_history: unexpected payload type")
		pc.SkipRemaining = true
		return
	}

	// One-shot currency preload; the whole batch uses the same map.
	codes, err := s.uow.Currencies().CodeMap(ctx)
	if err != nil {
		pc.AddHardError("save_price_history: currency preload failed: %v", err)
		pc.Meta["saved_price_records"] = 0
		pc.Result = pc.Data
		return
	}

	items := make([]models.PriceHistoryCreate, 0, len(records))
	errorCount := 0

	for _, rec := range records {
		if rec.MappingID == 0 {
			pc.AddError("ID %s: mapping_id missing, price not saved", rec.ExternalCode)
			errorCount++
			continue
		}
		if rec.Price <= 0 {
			pc.AddError("mapping %d: non-positive price %.2f", rec.MappingID, rec.Price)
			errorCount++
			continue
		}

		currencyID, ok := codes[rec.Currency]
		if !ok {
			pc.AddError("mapping %d: currency %q not registered", rec.MappingID, rec.Currency)
			errorCount++
			continue
		}

		original := decimal.NewFromFloat(rec.OriginalPrice)
		stock := rec.StockQuantity
		items = append(items, models.PriceHistoryCreate{
			MappingID:     rec.MappingID,
			Price:         decimal.NewFromFloat(rec.Price),
			OriginalPrice: &original,
			CurrencyID:    currencyID,
			InStock:       rec.InStock,
			StockQuantity: &stock,
		})
	}

	saved := 0
	if len(items) > 0 {
		saved, err = s.uow.PriceHistories().CreateBulk(ctx, items)
		if err != nil {
			pc.AddHardError("save_price_history: bulk insert failed: %v", err)
			saved = 0
		} else {
			metrics.PriceRecordsSaved.Add(float64(saved))
		}
	}

	pc.Meta["saved_price_records"] = saved
	pc.Meta["price_save_errors"] = errorCount
	countStageErrors(s.Name(), errorCount)

	// Data is unchanged, the observations were only persisted.
	pc.Result = pc.Data
}
