// Package storage provides the Postgres persistence layer: schema
// bootstrap, the transactional unit of work, and the domain repositories.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// querier is satisfied by both *sql.DB and *sql.Tx so repositories can run
// inside or outside a unit of work.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// New opens a Postgres connection with the given DSN.
func New(dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

// NewFromDB wraps an existing connection (used by tests).
func NewFromDB(db *sql.DB) *DB {
	return &DB{db}
}

// Migrate runs database migrations
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationProviders,
		migrationCurrencies,
		migrationProducts,
		migrationProductVariants,
		migrationProductMappings,
		migrationPriceHistories,
		migrationTrendingProducts,
		migrationIndexes,
	}

	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

const migrationProviders = `
CREATE TABLE IF NOT EXISTS providers (
	id BIGSERIAL PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	reliability_score NUMERIC(3,2) NOT NULL DEFAULT 1.00,
	data_quality_score INTEGER NOT NULL DEFAULT 50,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const migrationCurrencies = `
CREATE TABLE IF NOT EXISTS currencies (
	id BIGSERIAL PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	symbol TEXT,
	name TEXT
)`

const migrationProducts = `
CREATE TABLE IF NOT EXISTS products (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	slug TEXT NOT NULL UNIQUE,
	brand TEXT,
	description TEXT,
	category_id BIGINT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const migrationProductVariants = `
CREATE TABLE IF NOT EXISTS product_variants (
	id BIGSERIAL PRIMARY KEY,
	product_id BIGINT NOT NULL REFERENCES products(id),
	sku TEXT NOT NULL UNIQUE,
	attributes JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const migrationProductMappings = `
CREATE TABLE IF NOT EXISTS product_mappings (
	id BIGSERIAL PRIMARY KEY,
	provider_id BIGINT NOT NULL REFERENCES providers(id),
	external_product_code TEXT NOT NULL,
	product_id BIGINT REFERENCES products(id),
	product_url TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (provider_id, external_product_code)
)`

const migrationPriceHistories = `
CREATE TABLE IF NOT EXISTS price_histories (
	id BIGSERIAL PRIMARY KEY,
	mapping_id BIGINT NOT NULL REFERENCES product_mappings(id),
	price NUMERIC(10,2) NOT NULL CHECK (price > 0),
	original_price NUMERIC(10,2),
	discount_rate INTEGER,
	currency_id BIGINT NOT NULL REFERENCES currencies(id),
	in_stock BOOLEAN NOT NULL DEFAULT true,
	stock_quantity INTEGER,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const migrationTrendingProducts = `
CREATE TABLE IF NOT EXISTS trending_products (
	id BIGSERIAL PRIMARY KEY,
	product_id BIGINT NOT NULL UNIQUE REFERENCES products(id),
	trend_score INTEGER NOT NULL,
	rank INTEGER NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const migrationIndexes = `
CREATE INDEX IF NOT EXISTS idx_price_histories_mapping_created
	ON price_histories (mapping_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_product_mappings_product
	ON product_mappings (product_id)`
