package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/price-radar/price-radar/pkg/models"
)

// ProductStore handles canonical product persistence
type ProductStore struct {
	db querier
}

// NewProductStore creates a product store outside any transaction.
func NewProductStore(db *DB) *ProductStore {
	return &ProductStore{db: db}
}

// GetByName returns the product with the given normalized name, or
// ErrNotFound.
func (s *ProductStore) GetByName(ctx context.Context, name string) (*models.Product, error) {
	var p models.Product
	var brand, description sql.NullString
	var categoryID sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, slug, brand, description, category_id
		FROM products
		WHERE name = $1`, name).
		Scan(&p.ID, &p.Name, &p.Slug, &brand, &description, &categoryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product by name: %w", err)
	}
	p.Brand = brand.String
	p.Description = description.String
	if categoryID.Valid {
		p.CategoryID = &categoryID.Int64
	}
	return &p, nil
}

// Create inserts a new product and fills in its id.
func (s *ProductStore) Create(ctx context.Context, p *models.Product) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (name, slug, brand, description, category_id)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
		RETURNING id`,
		p.Name, p.Slug, p.Brand, p.Description, p.CategoryID).
		Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create product %q: %w", p.Name, err)
	}
	return nil
}

// VariantStore handles product variant persistence
type VariantStore struct {
	db querier
}

// NewVariantStore creates a variant store outside any transaction.
func NewVariantStore(db *DB) *VariantStore {
	return &VariantStore{db: db}
}

// Create inserts a variant. An existing SKU is left untouched so reruns
// stay idempotent.
func (s *VariantStore) Create(ctx context.Context, v *models.ProductVariant) error {
	attrs, err := json.Marshal(v.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode variant attributes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO product_variants (product_id, sku, attributes)
		VALUES ($1, $2, $3)
		ON CONFLICT (sku) DO NOTHING`,
		v.ProductID, v.SKU, attrs)
	if err != nil {
		return fmt.Errorf("failed to create variant %q: %w", v.SKU, err)
	}
	return nil
}
