package storage

import (
	"context"
	"fmt"

	"github.com/price-radar/price-radar/pkg/models"
)

// TrendingStore handles the fully-replaced trending products table
type TrendingStore struct {
	db querier
}

// NewTrendingStore creates a trending store outside any transaction.
func NewTrendingStore(db *DB) *TrendingStore {
	return &TrendingStore{db: db}
}

// ReplaceAll deletes every trending row and inserts the given entries.
func (s *TrendingStore) ReplaceAll(ctx context.Context, entries []models.TrendingProduct) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM trending_products`); err != nil {
		return fmt.Errorf("failed to clear trending products: %w", err)
	}

	for _, e := range entries {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO trending_products (product_id, trend_score, rank, updated_at)
			VALUES ($1, $2, $3, now())`,
			e.ProductID, e.TrendScore, e.Rank)
		if err != nil {
			return fmt.Errorf("failed to insert trending product %d: %w", e.ProductID, err)
		}
	}
	return nil
}

// GetAll returns the current trending products ordered by rank.
func (s *TrendingStore) GetAll(ctx context.Context) ([]models.TrendingProduct, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, trend_score, rank, updated_at
		FROM trending_products
		ORDER BY rank`)
	if err != nil {
		return nil, fmt.Errorf("failed to list trending products: %w", err)
	}
	defer rows.Close()

	var entries []models.TrendingProduct
	for rows.Next() {
		var e models.TrendingProduct
		if err := rows.Scan(&e.ProductID, &e.TrendScore, &e.Rank, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trending product: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
