package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/price-radar/price-radar/pkg/models"
)

// PriceHistoryStore handles the append-only price observation log
type PriceHistoryStore struct {
	db querier
}

// NewPriceHistoryStore creates a price history store outside any
// transaction.
func NewPriceHistoryStore(db *DB) *PriceHistoryStore {
	return &PriceHistoryStore{db: db}
}

// CreateBulk inserts all records in one statement and returns the inserted
// row count.
func (s *PriceHistoryStore) CreateBulk(ctx context.Context, items []models.PriceHistoryCreate) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	const cols = 7
	var sb strings.Builder
	sb.WriteString(`INSERT INTO price_histories
		(mapping_id, price, original_price, discount_rate, currency_id, in_stock, stock_quantity)
		VALUES `)

	args := make([]any, 0, len(items)*cols)
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * cols
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))

		var originalPrice decimal.NullDecimal
		if item.OriginalPrice != nil {
			originalPrice = decimal.NewNullDecimal(*item.OriginalPrice)
		}
		var discountRate sql.NullInt64
		if item.DiscountRate != nil {
			discountRate = sql.NullInt64{Int64: int64(*item.DiscountRate), Valid: true}
		}
		var stockQuantity sql.NullInt64
		if item.StockQuantity != nil {
			stockQuantity = sql.NullInt64{Int64: int64(*item.StockQuantity), Valid: true}
		}

		args = append(args,
			item.MappingID,
			item.Price,
			originalPrice,
			discountRate,
			item.CurrencyID,
			item.InStock,
			stockQuantity,
		)
	}

	res, err := s.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk insert price history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return len(items), nil
	}
	return int(n), nil
}

// GetByMappingID returns up to limit observations for a mapping, newest
// first.
func (s *PriceHistoryStore) GetByMappingID(ctx context.Context, mappingID int64, limit int) ([]models.PriceHistory, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mapping_id, price, original_price, discount_rate,
		       currency_id, in_stock, stock_quantity, created_at
		FROM price_histories
		WHERE mapping_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		mappingID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}
	defer rows.Close()

	var history []models.PriceHistory
	for rows.Next() {
		var h models.PriceHistory
		var originalPrice decimal.NullDecimal
		var discountRate, stockQuantity sql.NullInt64
		if err := rows.Scan(&h.ID, &h.MappingID, &h.Price, &originalPrice, &discountRate,
			&h.CurrencyID, &h.InStock, &stockQuantity, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price history: %w", err)
		}
		if originalPrice.Valid {
			v := originalPrice.Decimal
			h.OriginalPrice = &v
		}
		if discountRate.Valid {
			v := int(discountRate.Int64)
			h.DiscountRate = &v
		}
		if stockQuantity.Valid {
			v := int(stockQuantity.Int64)
			h.StockQuantity = &v
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
