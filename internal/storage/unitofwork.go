package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UnitOfWork scopes one transaction and hands out repositories bound to it.
// It is never shared across concurrent batches; each batch begins its own.
type UnitOfWork struct {
	tx   *sql.Tx
	done bool
}

// BeginUnitOfWork starts a transaction.
func (db *DB) BeginUnitOfWork(ctx context.Context) (*UnitOfWork, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &UnitOfWork{tx: tx}, nil
}

// Commit makes the batch's writes durable.
func (u *UnitOfWork) Commit() error {
	if u.done {
		return errors.New("unit of work already finished")
	}
	u.done = true
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Rollback discards the batch's writes. Safe to call after Commit (no-op),
// which allows `defer uow.Rollback()` at the call site.
func (u *UnitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback: %w", err)
	}
	return nil
}

// Providers returns the provider repository bound to this transaction.
func (u *UnitOfWork) Providers() *ProviderStore {
	return &ProviderStore{db: u.tx}
}

// Currencies returns the currency repository bound to this transaction.
func (u *UnitOfWork) Currencies() *CurrencyStore {
	return &CurrencyStore{db: u.tx}
}

// Products returns the product repository bound to this transaction.
func (u *UnitOfWork) Products() *ProductStore {
	return &ProductStore{db: u.tx}
}

// Variants returns the variant repository bound to this transaction.
func (u *UnitOfWork) Variants() *VariantStore {
	return &VariantStore{db: u.tx}
}

// Mappings returns the mapping repository bound to this transaction.
func (u *UnitOfWork) Mappings() *MappingStore {
	return &MappingStore{db: u.tx}
}

// PriceHistories returns the price history repository bound to this
// transaction.
func (u *UnitOfWork) PriceHistories() *PriceHistoryStore {
	return &PriceHistoryStore{db: u.tx}
}

// Trending returns the trending repository bound to this transaction.
func (u *UnitOfWork) Trending() *TrendingStore {
	return &TrendingStore{db: u.tx}
}
