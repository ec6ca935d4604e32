package storage

import (
	"context"
	"fmt"

	"github.com/price-radar/price-radar/pkg/models"
)

// CurrencyStore handles currency persistence
type CurrencyStore struct {
	db querier
}

// NewCurrencyStore creates a currency store outside any transaction.
func NewCurrencyStore(db *DB) *CurrencyStore {
	return &CurrencyStore{db: db}
}

// GetAll returns every known currency.
func (s *CurrencyStore) GetAll(ctx context.Context) ([]models.Currency, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, COALESCE(symbol, ''), COALESCE(name, '')
		FROM currencies
		ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list currencies: %w", err)
	}
	defer rows.Close()

	var currencies []models.Currency
	for rows.Next() {
		var c models.Currency
		if err := rows.Scan(&c.ID, &c.Code, &c.Symbol, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan currency: %w", err)
		}
		currencies = append(currencies, c)
	}
	return currencies, rows.Err()
}

// CodeMap returns code → id for all currencies.
func (s *CurrencyStore) CodeMap(ctx context.Context) (map[string]int64, error) {
	currencies, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]int64, len(currencies))
	for _, c := range currencies {
		m[c.Code] = c.ID
	}
	return m, nil
}

// Seed upserts the given currencies by code.
func (s *CurrencyStore) Seed(ctx context.Context, currencies []models.Currency) error {
	for _, c := range currencies {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO currencies (code, symbol, name)
			VALUES ($1, $2, $3)
			ON CONFLICT (code) DO NOTHING`,
			c.Code, c.Symbol, c.Name)
		if err != nil {
			return fmt.Errorf("failed to seed currency %q: %w", c.Code, err)
		}
	}
	return nil
}
