package stages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/price-radar/price-radar/internal/pipeline"
	"github.com/price-radar/price-radar/internal/storage"
	"github.com/price-radar/price-radar/pkg/models"
)

// MatchProductStage links every mapping to a canonical product: an
// already-matched mapping keeps its product, otherwise the record's
// normalized name is looked up and a new product (plus its color×size
// variants) is created on a miss.
type MatchProductStage struct {
	uow *storage.UnitOfWork
}

// NewMatchProductStage creates the stage.
func NewMatchProductStage(uow *storage.UnitOfWork) *MatchProductStage {
	return &MatchProductStage{uow: uow}
}

func (s *MatchProductStage) Name() string {
	return "match_product"
}

func (s *MatchProductStage) Process(ctx context.Context, pc *pipeline.Context) {
	records, ok := pc.Data.([]Mapped)
	if !ok {
		pc.AddHardError("match_product: unexpected payload type")
		pc.SkipRemaining = true
		return
	}

	products := s.uow.Products()
	variants := s.uow.Variants()
	mappings := s.uow.Mappings()

	matched := make([]Matched, 0, len(records))
	matchedCount := 0
	createdCount := 0
	errorCount := 0

	for _, rec := range records {
		// Mapping already points at a product: keep it.
		if rec.ExistingProductID != nil {
			matched = append(matched, Matched{
				Mapped:    rec,
				ProductID: *rec.ExistingProductID,
			})
			continue
		}

		name := normalizeName(rec.Name)
		if name == "" {
			pc.AddError("mapping %d: invalid name %q", rec.MappingID, rec.Name)
			errorCount++
			continue
		}

		product, err := products.GetByName(ctx, name)
		switch {
		case err == nil:
			matchedCount++
		case errors.Is(err, storage.ErrNotFound):
			product = &models.Product{
				Name:        name,
				Slug:        slugify(name),
				Brand:       rec.Brand,
				Description: describeRecord(rec),
			}
			if cerr := products.Create(ctx, product); cerr != nil {
				pc.AddError("mapping %d: product create failed: %v", rec.MappingID, cerr)
				errorCount++
				continue
			}
			createdCount++
			if verr := createVariants(ctx, variants, product, rec); verr != nil {
				// Variants are best-effort detail; the match itself stands.
				pc.AddError("mapping %d: variant create failed: %v", rec.MappingID, verr)
				errorCount++
			}
		default:
			pc.AddError("mapping %d: product lookup failed: %v", rec.MappingID, err)
			errorCount++
			continue
		}

		if err := mappings.SetProductID(ctx, rec.MappingID, product.ID); err != nil {
			pc.AddError("mapping %d: product link failed: %v", rec.MappingID, err)
			errorCount++
			continue
		}

		matched = append(matched, Matched{
			Mapped:      rec,
			ProductID:   product.ID,
			ProductName: product.Name,
		})
	}

	pc.Data = matched
	pc.Result = matched
	pc.Meta["products_matched_existing"] = matchedCount
	pc.Meta["products_created"] = createdCount
	pc.Meta["match_errors"] = errorCount
	countStageErrors(s.Name(), errorCount)
}

// describeRecord builds the product description the way provider feeds
// describe items: brand and category.
func describeRecord(rec Mapped) string {
	parts := make([]string, 0, 2)
	if rec.Brand != "" {
		parts = append(parts, rec.Brand)
	}
	if rec.Category != "" {
		parts = append(parts, rec.Category)
	}
	return strings.Join(parts, " - ")
}

// createVariants creates one variant per color×size combination, falling
// back to color-only when the record lists no sizes.
func createVariants(ctx context.Context, variants *storage.VariantStore, product *models.Product, rec Mapped) error {
	if len(rec.Colors) == 0 {
		return nil
	}

	for _, color := range rec.Colors {
		if len(rec.Sizes) == 0 {
			v := &models.ProductVariant{
				ProductID:  product.ID,
				SKU:        buildSKU(product.Slug, color, ""),
				Attributes: map[string]string{"color": color},
			}
			if err := variants.Create(ctx, v); err != nil {
				return err
			}
			continue
		}
		for _, size := range rec.Sizes {
			v := &models.ProductVariant{
				ProductID:  product.ID,
				SKU:        buildSKU(product.Slug, color, size),
				Attributes: map[string]string{"color": color, "size": size},
			}
			if err := variants.Create(ctx, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildSKU forms <slug>-<first-3-of-color>-<size>.
func buildSKU(slug, color, size string) string {
	abbrev := strings.ToLower(color)
	runes := []rune(abbrev)
	if len(runes) > 3 {
		abbrev = string(runes[:3])
	}
	if size == "" {
		return fmt.Sprintf("%s-%s", slug, abbrev)
	}
	return fmt.Sprintf("%s-%s-%s", slug, abbrev, strings.ToLower(size))
}
