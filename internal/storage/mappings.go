package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/price-radar/price-radar/pkg/models"
)

// MappingStore handles provider→product mapping persistence
type MappingStore struct {
	db querier
}

// NewMappingStore creates a mapping store outside any transaction.
func NewMappingStore(db *DB) *MappingStore {
	return &MappingStore{db: db}
}

// GetByProviderAndCode returns the mapping for one (provider, external
// code) pair, or ErrNotFound.
func (s *MappingStore) GetByProviderAndCode(ctx context.Context, providerID int64, externalCode string) (*models.ProductMapping, error) {
	var m models.ProductMapping
	var productID sql.NullInt64
	var productURL sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, provider_id, external_product_code, product_id, product_url
		FROM product_mappings
		WHERE provider_id = $1 AND external_product_code = $2`,
		providerID, externalCode).
		Scan(&m.ID, &m.ProviderID, &m.ExternalCode, &productID, &productURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}
	if productID.Valid {
		m.ProductID = &productID.Int64
	}
	m.ProductURL = productURL.String
	return &m, nil
}

// FindOrCreate returns the mapping for the pair, creating it on first
// sight. The (provider_id, external_product_code) uniqueness makes repeat
// calls land on the same row.
func (s *MappingStore) FindOrCreate(ctx context.Context, providerID int64, externalCode, productURL string) (*models.ProductMapping, error) {
	existing, err := s.GetByProviderAndCode(ctx, providerID, externalCode)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	m := &models.ProductMapping{
		ProviderID:   providerID,
		ExternalCode: externalCode,
		ProductURL:   productURL,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO product_mappings (provider_id, external_product_code, product_url)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id`,
		providerID, externalCode, productURL).
		Scan(&m.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create mapping: %w", err)
	}
	return m, nil
}

// SetProductID links a mapping to its matched canonical product.
func (s *MappingStore) SetProductID(ctx context.Context, mappingID, productID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE product_mappings
		SET product_id = $2
		WHERE id = $1`,
		mappingID, productID)
	if err != nil {
		return fmt.Errorf("failed to link mapping %d to product %d: %w", mappingID, productID, err)
	}
	return nil
}
