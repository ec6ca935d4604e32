package stages

import (
	"context"

	"github.com/price-radar/price-radar/internal/pipeline"
	"github.com/price-radar/price-radar/internal/storage"
)

// ResolveMappingStage finds or creates the ProductMapping row for every
// normalized record and attaches the mapping id.
type ResolveMappingStage struct {
	uow *storage.UnitOfWork
}

// NewResolveMappingStage creates the stage.
func NewResolveMappingStage(uow *storage.UnitOfWork) *ResolveMappingStage {
	return &ResolveMappingStage{uow: uow}
}

func (s *ResolveMappingStage) Name() string {
	return "resolve_mapping"
}

func (s *ResolveMappingStage) Process(ctx context.Context, pc *pipeline.Context) {
	records, ok := pc.Data.([]Normalized)
	if !ok {
		pc.AddHardError("resolve_mapping: unexpected payload type")
		pc.SkipRemaining = true
		return
	}

	mappings := s.uow.Mappings()

	mapped := make([]Mapped, 0, len(records))
	errorCount := 0

	for _, rec := range records {
		if rec.ProviderID == 0 {
			pc.AddError("ID %s: provider_id missing, mapping not created", rec.ExternalCode)
			errorCount++
			continue
		}
		if rec.ExternalCode == "" {
			pc.AddError("record has no external product code")
			errorCount++
			continue
		}

		mapping, err := mappings.FindOrCreate(ctx, rec.ProviderID, rec.ExternalCode, rec.ProductURL)
		if err != nil {
			pc.AddError("ID %s: mapping failed: %v", rec.ExternalCode, err)
			errorCount++
			continue
		}

		mapped = append(mapped, Mapped{
			Normalized:        rec,
			MappingID:         mapping.ID,
			ExistingProductID: mapping.ProductID,
		})
	}

	pc.Data = mapped
	pc.Result = mapped
	pc.Meta["mappings_processed"] = len(mapped)
	pc.Meta["mapping_errors"] = errorCount
	countStageErrors(s.Name(), errorCount)
}
