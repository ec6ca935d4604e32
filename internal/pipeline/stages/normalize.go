package stages

import (
	"context"
	"strings"

	"github.com/price-radar/price-radar/internal/currency"
	"github.com/price-radar/price-radar/internal/pipeline"
)

// NormalizeCurrencyStage parses each record's raw price and converts it
// into the base currency. Rates are fetched once per batch.
type NormalizeCurrencyStage struct {
	currency *currency.Service
}

// NewNormalizeCurrencyStage creates the stage.
func NewNormalizeCurrencyStage(svc *currency.Service) *NormalizeCurrencyStage {
	return &NormalizeCurrencyStage{currency: svc}
}

func (s *NormalizeCurrencyStage) Name() string {
	return "normalize_currency"
}

func (s *NormalizeCurrencyStage) Process(ctx context.Context, pc *pipeline.Context) {
	records, ok := pc.Data.([]Input)
	if !ok {
		pc.AddHardError("normalize_currency: unexpected payload type")
		pc.SkipRemaining = true
		return
	}

	if len(records) == 0 {
		pc.AddError("empty batch received")
		pc.Data = []Normalized{}
		pc.Result = pc.Data
		return
	}

	rates := s.currency.GetExchangeRates(ctx)

	normalized := make([]Normalized, 0, len(records))
	errorCount := 0

	for _, rec := range records {
		out, err := normalizeOne(rec, rates)
		if err != "" {
			pc.AddError("%s", err)
			errorCount++
			continue
		}
		normalized = append(normalized, out)
	}

	pc.Data = normalized
	pc.Result = normalized
	pc.Meta["total_products"] = len(records)
	pc.Meta["normalized_count"] = len(normalized)
	pc.Meta["error_count"] = errorCount
	countStageErrors(s.Name(), errorCount)
}

// normalizeOne converts one record; a non-empty string return is the
// diagnostic for a dropped record.
func normalizeOne(rec Input, rates map[string]float64) (Normalized, string) {
	id := rec.ExternalCode
	if id == "" {
		id = "unknown"
	}

	if strings.TrimSpace(rec.Price) == "" {
		return Normalized{}, "ID " + id + ": price missing"
	}

	parsed, err := currency.ParseAmount(rec.Price)
	if err != nil {
		return Normalized{}, "ID " + id + ": price parse failed (" + err.Error() + ")"
	}

	code := strings.ToUpper(rec.CurrencyCode)
	if code == "" {
		code = currency.BaseCurrency
	}

	var converted float64
	if code == currency.BaseCurrency {
		converted = parsed
	} else {
		rate, ok := rates[code]
		if !ok || rate == 0 {
			return Normalized{}, "ID " + id + ": no exchange rate for " + code
		}
		converted = currency.Round2(parsed * rate)
	}

	return Normalized{
		Input:            rec,
		OriginalPrice:    parsed,
		OriginalCurrency: code,
		Price:            converted,
		Currency:         currency.BaseCurrency,
	}, ""
}
