package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/price-radar/price-radar/pkg/models"
)

// ProviderStore handles provider persistence
type ProviderStore struct {
	db querier
}

// NewProviderStore creates a provider store outside any transaction.
func NewProviderStore(db *DB) *ProviderStore {
	return &ProviderStore{db: db}
}

// GetAll returns every registered provider.
func (s *ProviderStore) GetAll(ctx context.Context) ([]models.Provider, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slug, name, reliability_score, data_quality_score
		FROM providers
		ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var providers []models.Provider
	for rows.Next() {
		var p models.Provider
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.ReliabilityScore, &p.DataQualityScore); err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

// GetBySlug returns one provider or ErrNotFound.
func (s *ProviderStore) GetBySlug(ctx context.Context, slug string) (*models.Provider, error) {
	var p models.Provider
	err := s.db.QueryRowContext(ctx, `
		SELECT id, slug, name, reliability_score, data_quality_score
		FROM providers
		WHERE slug = $1`, slug).
		Scan(&p.ID, &p.Slug, &p.Name, &p.ReliabilityScore, &p.DataQualityScore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider %q: %w", slug, err)
	}
	return &p, nil
}

// SlugMap returns slug → id for all providers.
func (s *ProviderStore) SlugMap(ctx context.Context) (map[string]int64, error) {
	providers, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]int64, len(providers))
	for _, p := range providers {
		m[p.Slug] = p.ID
	}
	return m, nil
}

// ByIDs returns the providers with the given ids, keyed by id.
func (s *ProviderStore) ByIDs(ctx context.Context, ids []int64) (map[int64]models.Provider, error) {
	if len(ids) == 0 {
		return map[int64]models.Provider{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slug, name, reliability_score, data_quality_score
		FROM providers
		WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load providers: %w", err)
	}
	defer rows.Close()

	m := make(map[int64]models.Provider, len(ids))
	for rows.Next() {
		var p models.Provider
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.ReliabilityScore, &p.DataQualityScore); err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		m[p.ID] = p
	}
	return m, rows.Err()
}

// Seed upserts the given providers by slug. Used at bootstrap so the
// collector always finds its provider rows.
func (s *ProviderStore) Seed(ctx context.Context, providers []models.Provider) error {
	for _, p := range providers {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO providers (slug, name, reliability_score, data_quality_score)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (slug) DO UPDATE
			SET name = EXCLUDED.name,
			    reliability_score = EXCLUDED.reliability_score,
			    data_quality_score = EXCLUDED.data_quality_score`,
			p.Slug, p.Name, p.ReliabilityScore, p.DataQualityScore)
		if err != nil {
			return fmt.Errorf("failed to seed provider %q: %w", p.Slug, err)
		}
	}
	return nil
}
