package stages

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/price-radar/price-radar/internal/cache"
	"github.com/price-radar/price-radar/internal/currency"
	"github.com/price-radar/price-radar/internal/pipeline"
	"github.com/price-radar/price-radar/internal/provider"
	"github.com/price-radar/price-radar/internal/storage"
)

// fallbackCurrencyService returns a service whose upstream always fails,
// pinning the rates to the fixed fallback table (USD 34.20, EUR 37.50).
func fallbackCurrencyService(t *testing.T) *currency.Service {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return currency.New(server.URL, cache.NewRedisFromClient(client))
}

func newMockUoW(t *testing.T) (*storage.UnitOfWork, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectBegin()
	uow, err := storage.NewFromDB(db).BeginUnitOfWork(context.Background())
	require.NoError(t, err)
	return uow, mock
}

func input(code, name, price, curr string, providerID int64) Input {
	return Input{
		Record: provider.Record{
			ProviderSlug: "sport-direct",
			ExternalCode: code,
			Name:         name,
			Price:        price,
			CurrencyCode: curr,
			InStock:      true,
		},
		ProviderID: providerID,
	}
}

func TestNormalizeCurrencyStage(t *testing.T) {
	stage := NewNormalizeCurrencyStage(fallbackCurrencyService(t))

	pc := pipeline.NewContext([]Input{
		input("A", "Nike Air", "$100.00", "USD", 1),
		input("B", "Adidas X", "189,00", "EUR", 1),
	})
	stage.Process(context.Background(), pc)

	records, ok := pc.Data.([]Normalized)
	require.True(t, ok)
	require.Len(t, records, 2)

	assert.InDelta(t, 3420.00, records[0].Price, 1e-9)
	assert.InDelta(t, 100.00, records[0].OriginalPrice, 1e-9)
	assert.Equal(t, "USD", records[0].OriginalCurrency)
	assert.Equal(t, "TRY", records[0].Currency)

	assert.InDelta(t, 7087.50, records[1].Price, 1e-9)

	assert.Equal(t, 2, pc.Meta["normalized_count"])
	assert.Equal(t, 0, pc.Meta["error_count"])
	assert.Empty(t, pc.Errors)
}

func TestNormalizeCurrencyStage_ParseFailureIsolated(t *testing.T) {
	stage := NewNormalizeCurrencyStage(fallbackCurrencyService(t))

	pc := pipeline.NewContext([]Input{
		input("A", "Nike Air", "100", "TRY", 1),
		input("B", "Broken", "Fiyat Yok", "USD", 1),
	})
	stage.Process(context.Background(), pc)

	records := pc.Data.([]Normalized)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0].ExternalCode)
	assert.InDelta(t, 100.0, records[0].Price, 1e-9)

	require.Len(t, pc.Errors, 1)
	assert.Contains(t, pc.Errors[0], "ID B: price parse failed")
	assert.Equal(t, 1, pc.Meta["error_count"])
	assert.False(t, pc.HasHardErrors())
}

func TestNormalizeCurrencyStage_BaseCurrencyRoundTrip(t *testing.T) {
	stage := NewNormalizeCurrencyStage(fallbackCurrencyService(t))

	pc := pipeline.NewContext([]Input{input("A", "Nike Air", "149.90", "TRY", 1)})
	stage.Process(context.Background(), pc)

	records := pc.Data.([]Normalized)
	require.Len(t, records, 1)
	assert.Equal(t, records[0].OriginalPrice, records[0].Price)
}

func TestNormalizeCurrencyStage_UnknownCurrencyDropped(t *testing.T) {
	stage := NewNormalizeCurrencyStage(fallbackCurrencyService(t))

	pc := pipeline.NewContext([]Input{input("A", "Nike Air", "100", "XXX", 1)})
	stage.Process(context.Background(), pc)

	assert.Empty(t, pc.Data.([]Normalized))
	require.Len(t, pc.Errors, 1)
	assert.Contains(t, pc.Errors[0], "no exchange rate for XXX")
}

func TestResolveMappingStage(t *testing.T) {
	uow, mock := newMockUoW(t)

	mock.ExpectQuery("FROM product_mappings").
		WithArgs(int64(1), "A").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("INSERT INTO product_mappings").
		WithArgs(int64(1), "A", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))

	stage := NewResolveMappingStage(uow)
	pc := pipeline.NewContext([]Normalized{
		{Input: input("A", "Nike Air", "100", "TRY", 1), Price: 100, Currency: "TRY"},
		{Input: input("B", "No provider", "50", "TRY", 0), Price: 50, Currency: "TRY"},
	})
	stage.Process(context.Background(), pc)

	mapped := pc.Data.([]Mapped)
	require.Len(t, mapped, 1)
	assert.Equal(t, int64(10), mapped[0].MappingID)
	assert.Nil(t, mapped[0].ExistingProductID)

	require.Len(t, pc.Errors, 1)
	assert.Contains(t, pc.Errors[0], "provider_id missing")
	assert.Equal(t, 1, pc.Meta["mappings_processed"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchProductStage_ExistingMappingKeepsProduct(t *testing.T) {
	uow, mock := newMockUoW(t)

	existing := int64(77)
	stage := NewMatchProductStage(uow)
	pc := pipeline.NewContext([]Mapped{
		{
			Normalized:        Normalized{Input: input("A", "Nike Air", "100", "TRY", 1), Price: 100},
			MappingID:         10,
			ExistingProductID: &existing,
		},
	})
	stage.Process(context.Background(), pc)

	matched := pc.Data.([]Matched)
	require.Len(t, matched, 1)
	assert.Equal(t, int64(77), matched[0].ProductID)
	assert.NoError(t, mock.ExpectationsWereMet(), "no queries for an already-matched mapping")
}

func TestMatchProductStage_CreatesProductAndVariants(t *testing.T) {
	uow, mock := newMockUoW(t)

	mock.ExpectQuery("FROM products").
		WithArgs("nike air").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("INSERT INTO products").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectExec("INSERT INTO product_variants").
		WithArgs(int64(11), "nike-air-mav-42", []byte(`{"color":"Mavi","size":"42"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO product_variants").
		WithArgs(int64(11), "nike-air-mav-43", []byte(`{"color":"Mavi","size":"43"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE product_mappings").
		WithArgs(int64(10), int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := input("A", "  Nike   Air ", "100", "TRY", 1)
	rec.Colors = []string{"Mavi"}
	rec.Sizes = []string{"42", "43"}

	stage := NewMatchProductStage(uow)
	pc := pipeline.NewContext([]Mapped{
		{Normalized: Normalized{Input: rec, Price: 100}, MappingID: 10},
	})
	stage.Process(context.Background(), pc)

	matched := pc.Data.([]Matched)
	require.Len(t, matched, 1)
	assert.Equal(t, int64(11), matched[0].ProductID)
	assert.Equal(t, "nike air", matched[0].ProductName)
	assert.Equal(t, 1, pc.Meta["products_created"])
	assert.Equal(t, 0, pc.Meta["products_matched_existing"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchProductStage_EmptyNameDropped(t *testing.T) {
	uow, mock := newMockUoW(t)

	stage := NewMatchProductStage(uow)
	pc := pipeline.NewContext([]Mapped{
		{Normalized: Normalized{Input: input("A", "   ", "100", "TRY", 1), Price: 100}, MappingID: 10},
	})
	stage.Process(context.Background(), pc)

	assert.Empty(t, pc.Data.([]Matched))
	require.Len(t, pc.Errors, 1)
	assert.Contains(t, pc.Errors[0], "invalid name")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePriceHistoryStage(t *testing.T) {
	uow, mock := newMockUoW(t)

	mock.ExpectQuery("FROM currencies").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "symbol", "name"}).
			AddRow(4, "TRY", "₺", "Türk Lirası"))
	mock.ExpectExec("INSERT INTO price_histories").
		WillReturnResult(sqlmock.NewResult(0, 2))

	stage := NewSavePriceHistoryStage(uow)
	pc := pipeline.NewContext([]Matched{
		{Mapped: Mapped{Normalized: Normalized{Input: input("A", "Nike Air", "", "", 1), Price: 3420, OriginalPrice: 100, Currency: "TRY"}, MappingID: 1}, ProductID: 11},
		{Mapped: Mapped{Normalized: Normalized{Input: input("B", "Adidas X", "", "", 1), Price: 7087.50, OriginalPrice: 189, Currency: "TRY"}, MappingID: 2}, ProductID: 12},
	})
	stage.Process(context.Background(), pc)

	assert.Equal(t, 2, pc.Meta["saved_price_records"])
	assert.Equal(t, 0, pc.Meta["price_save_errors"])
	assert.False(t, pc.HasHardErrors())

	// Data flows through unchanged.
	records := pc.Data.([]Matched)
	assert.Len(t, records, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePriceHistoryStage_BulkFailureIsHard(t *testing.T) {
	uow, mock := newMockUoW(t)

	mock.ExpectQuery("FROM currencies").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "symbol", "name"}).
			AddRow(4, "TRY", "", ""))
	mock.ExpectExec("INSERT INTO price_histories").
		WillReturnError(assert.AnError)

	stage := NewSavePriceHistoryStage(uow)
	pc := pipeline.NewContext([]Matched{
		{Mapped: Mapped{Normalized: Normalized{Input: input("A", "Nike Air", "", "", 1), Price: 100, Currency: "TRY"}, MappingID: 1}, ProductID: 11},
	})
	stage.Process(context.Background(), pc)

	assert.True(t, pc.HasHardErrors())
	assert.Equal(t, 0, pc.Meta["saved_price_records"])
	// Downstream still sees the previous good data.
	assert.Len(t, pc.Data.([]Matched), 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func historyRows(prices ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows(
		[]string{"id", "mapping_id", "price", "original_price", "discount_rate",
			"currency_id", "in_stock", "stock_quantity", "created_at"})
	now := time.Now()
	for i, p := range prices {
		rows.AddRow(int64(100-i), 1, p, nil, nil, 4, true, nil, now.Add(-time.Duration(i)*time.Hour))
	}
	return rows
}

func TestTrendAnalysisStage_RisingTrend(t *testing.T) {
	uow, mock := newMockUoW(t)

	// Newest first: the price has been climbing 40 → 80.
	mock.ExpectQuery("FROM price_histories").
		WithArgs(int64(1), 10).
		WillReturnRows(historyRows("80", "70", "60", "50", "40"))

	stage := NewTrendAnalysisStage(uow)
	pc := pipeline.NewContext([]Matched{
		{Mapped: Mapped{Normalized: Normalized{Input: input("A", "Nike Air", "", "", 1), Price: 100, Currency: "TRY"}, MappingID: 1}, ProductID: 11},
	})
	stage.Process(context.Background(), pc)

	analyzed := pc.Data.([]Analyzed)
	require.Len(t, analyzed, 1)

	a := analyzed[0]
	assert.True(t, a.HasTrendScore)
	assert.True(t, a.HasSufficientData)
	assert.Equal(t, "up", a.TrendDirection)
	assert.InDelta(t, 60.0, a.AvgPrice, 1e-9)
	assert.InDelta(t, 40.0, a.MinPrice, 1e-9)
	assert.InDelta(t, 80.0, a.MaxPrice, 1e-9)
	assert.Equal(t, 100, a.TrendScore, "base clamps to 100, momentum stays within the clamp")
	assert.InDelta(t, 66.67, a.PriceChangePercent, 0.01)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrendAnalysisStage_InsufficientData(t *testing.T) {
	uow, mock := newMockUoW(t)

	mock.ExpectQuery("FROM price_histories").
		WithArgs(int64(1), 10).
		WillReturnRows(historyRows("100"))

	stage := NewTrendAnalysisStage(uow)
	pc := pipeline.NewContext([]Matched{
		{Mapped: Mapped{Normalized: Normalized{Input: input("A", "Nike Air", "", "", 1), Price: 100, Currency: "TRY"}, MappingID: 1}, ProductID: 11},
	})
	stage.Process(context.Background(), pc)

	a := pc.Data.([]Analyzed)[0]
	assert.True(t, a.HasTrendScore)
	assert.False(t, a.HasSufficientData)
	assert.Equal(t, 0, a.TrendScore)
	assert.Equal(t, "stable", a.TrendDirection)
	assert.InDelta(t, 100.0, a.AvgPrice, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrendAnalysisStage_StableWhenFlat(t *testing.T) {
	uow, mock := newMockUoW(t)

	mock.ExpectQuery("FROM price_histories").
		WithArgs(int64(1), 10).
		WillReturnRows(historyRows("100", "100"))

	stage := NewTrendAnalysisStage(uow)
	pc := pipeline.NewContext([]Matched{
		{Mapped: Mapped{Normalized: Normalized{Input: input("A", "Nike Air", "", "", 1), Price: 100, Currency: "TRY"}, MappingID: 1}, ProductID: 11},
	})
	stage.Process(context.Background(), pc)

	a := pc.Data.([]Analyzed)[0]
	assert.Equal(t, "stable", a.TrendDirection)
	assert.Equal(t, 0, a.TrendScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfitMarginStage_ArbitrageFlagged(t *testing.T) {
	uow, mock := newMockUoW(t)

	stage := NewProfitMarginStage(uow)
	pc := pipeline.NewContext([]Analyzed{
		{
			Matched: Matched{
				Mapped:    Mapped{Normalized: Normalized{Input: input("A", "Nike Air", "", "", 1), Price: 100, Currency: "TRY"}, MappingID: 1},
				ProductID: 11,
			},
			HasTrendScore: true,
			AvgPrice:      200,
		},
	})
	stage.Process(context.Background(), pc)

	m := pc.Data.([]Margined)[0]
	assert.True(t, m.HasMarketData)
	assert.InDelta(t, 200.0, m.MarketAvgPrice, 1e-9)
	assert.InDelta(t, 50.0, m.ProfitMarginPercent, 1e-9)
	assert.InDelta(t, 49.5, m.WeightedProfitMargin, 1e-9, "sport-direct weight 0.99")
	assert.True(t, m.IsArbitrageOpportunity)
	assert.Equal(t, 1, pc.Meta["arbitrage_opportunities"])
	assert.NoError(t, mock.ExpectationsWereMet(), "trend average spares the DB read")
}

func TestProfitMarginStage_NoMarketData(t *testing.T) {
	uow, mock := newMockUoW(t)

	mock.ExpectQuery("FROM price_histories").
		WithArgs(int64(1), 50).
		WillReturnRows(historyRows())

	stage := NewProfitMarginStage(uow)
	pc := pipeline.NewContext([]Analyzed{
		{
			Matched: Matched{
				Mapped:    Mapped{Normalized: Normalized{Input: input("A", "Nike Air", "", "", 1), Price: 100, Currency: "TRY"}, MappingID: 1},
				ProductID: 11,
			},
		},
	})
	stage.Process(context.Background(), pc)

	m := pc.Data.([]Margined)[0]
	assert.False(t, m.HasMarketData)
	assert.False(t, m.IsArbitrageOpportunity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReliabilityWeightingStage(t *testing.T) {
	uow, mock := newMockUoW(t)

	mock.ExpectQuery("FROM providers").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "slug", "name", "reliability_score", "data_quality_score"}).
			AddRow(1, "sport-direct", "SportDirect", 0.85, 80))

	stage := NewReliabilityWeightingStage(uow)
	pc := pipeline.NewContext([]Margined{
		{
			Analyzed: Analyzed{
				Matched: Matched{
					Mapped:    Mapped{Normalized: Normalized{Input: input("A", "Nike Air", "", "", 1), Price: 100, Currency: "TRY"}, MappingID: 1},
					ProductID: 11,
				},
				HasTrendScore: true,
				TrendScore:    60,
			},
			ProfitMarginPercent: 20,
		},
	})
	stage.Process(context.Background(), pc)

	w := pc.Data.([]Weighted)[0]
	assert.InDelta(t, 0.85, w.ReliabilityScore, 1e-9)
	assert.Equal(t, 80, w.DataQualityScore)
	assert.InDelta(t, 0.83, w.ConfidenceLevel, 1e-9) // (0.85 + 0.80) / 2 rounded
	assert.InDelta(t, 51.0, w.WeightedTrendScore, 1e-9)
	assert.InDelta(t, 17.0, w.WeightedProfitMargin, 1e-9)
	assert.Equal(t, 1, pc.Meta["reliability_weighted_count"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func weightedRecord(productID int64, score int) Weighted {
	return Weighted{
		Margined: Margined{
			Analyzed: Analyzed{
				Matched: Matched{
					Mapped:    Mapped{Normalized: Normalized{Input: input("X", "X", "", "", 1), Price: 100}, MappingID: productID},
					ProductID: productID,
				},
				HasTrendScore: true,
				TrendScore:    score,
			},
		},
	}
}

func TestUpdateTrendingStage_TopNByAbsoluteScore(t *testing.T) {
	uow, mock := newMockUoW(t)

	mock.ExpectExec("DELETE FROM trending_products").
		WillReturnResult(sqlmock.NewResult(0, 0))
	for rank, expected := range []struct {
		productID int64
		score     int
	}{
		{1, 90}, {2, -80}, {3, 70}, {4, -60}, {5, 50},
	} {
		mock.ExpectExec("INSERT INTO trending_products").
			WithArgs(expected.productID, expected.score, rank+1).
			WillReturnResult(sqlmock.NewResult(int64(rank+1), 1))
	}

	stage := NewUpdateTrendingStage(uow)
	pc := pipeline.NewContext([]Weighted{
		weightedRecord(1, 90),
		weightedRecord(2, -80),
		weightedRecord(3, 70),
		weightedRecord(4, -60),
		weightedRecord(5, 50),
		weightedRecord(6, 10),
		weightedRecord(7, 5),
		weightedRecord(8, 0),
	})
	stage.Process(context.Background(), pc)

	assert.Equal(t, 5, pc.Meta["trending_updated"])
	assert.False(t, pc.HasHardErrors())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTrendingStage_UnmatchedRecordsIgnored(t *testing.T) {
	uow, mock := newMockUoW(t)

	mock.ExpectExec("DELETE FROM trending_products").
		WillReturnResult(sqlmock.NewResult(0, 0))

	stage := NewUpdateTrendingStage(uow)
	rec := weightedRecord(0, 90) // never matched to a product
	pc := pipeline.NewContext([]Weighted{rec})
	stage.Process(context.Background(), pc)

	assert.Equal(t, 0, pc.Meta["trending_updated"])
	assert.NoError(t, mock.ExpectationsWereMet(), "table cleared, nothing inserted")
}

func TestAnalysisPipeline_HappyPathEndToEnd(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()

	// resolve_mapping: two fresh mappings
	mock.ExpectQuery("FROM product_mappings").
		WithArgs(int64(1), "A").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("INSERT INTO product_mappings").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("FROM product_mappings").
		WithArgs(int64(1), "B").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("INSERT INTO product_mappings").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

	// match_product: two fresh products
	mock.ExpectQuery("FROM products").
		WithArgs("nike air").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("INSERT INTO products").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec("UPDATE product_mappings").
		WithArgs(int64(1), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM products").
		WithArgs("adidas x").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("INSERT INTO products").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec("UPDATE product_mappings").
		WithArgs(int64(2), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// save_price_history: currency preload + bulk insert
	mock.ExpectQuery("FROM currencies").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "symbol", "name"}).
			AddRow(4, "TRY", "₺", "Türk Lirası"))
	mock.ExpectExec("INSERT INTO price_histories").
		WillReturnResult(sqlmock.NewResult(0, 2))

	// trend_analysis: no prior history
	mock.ExpectQuery("FROM price_histories").
		WithArgs(int64(1), 10).
		WillReturnRows(historyRows())
	mock.ExpectQuery("FROM price_histories").
		WithArgs(int64(2), 10).
		WillReturnRows(historyRows())

	// reliability_weighting: provider preload
	mock.ExpectQuery("FROM providers").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "slug", "name", "reliability_score", "data_quality_score"}).
			AddRow(1, "sport-direct", "SportDirect", 0.99, 95))

	// update_trending: both score 0, both replace the table
	mock.ExpectExec("DELETE FROM trending_products").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO trending_products").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO trending_products").
		WillReturnResult(sqlmock.NewResult(2, 1))

	mock.ExpectCommit()

	uow, err := storage.NewFromDB(db).BeginUnitOfWork(context.Background())
	require.NoError(t, err)

	p := NewAnalysisPipeline(uow, fallbackCurrencyService(t), AnalysisConfig{})
	pc := p.Execute(context.Background(), []Input{
		input("A", "Nike Air", "$100.00", "USD", 1),
		input("B", "Adidas X", "189,00", "EUR", 1),
	})

	assert.Empty(t, pc.Errors)
	assert.False(t, pc.HasHardErrors())
	assert.Equal(t, 2, pc.Meta["normalized_count"])
	assert.Equal(t, 2, pc.Meta["saved_price_records"])
	assert.Equal(t, 2, pc.Meta["products_created"])
	assert.Equal(t, 2, pc.Meta["trending_updated"])

	final, ok := pc.Data.([]Weighted)
	require.True(t, ok)
	require.Len(t, final, 2)
	assert.InDelta(t, 3420.00, final[0].Price, 1e-9)
	assert.InDelta(t, 7087.50, final[1].Price, 1e-9)

	require.NoError(t, uow.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
