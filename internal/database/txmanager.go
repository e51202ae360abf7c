package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// txKey is the context key under which an open transaction travels.
type txKey struct{}

// Querier is the subset of *sql.DB and *sql.Tx the repositories query through,
// so the same repository code runs inside and outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxManager runs a function inside a single database transaction. The
// dictionary vault uses it to keep hash lookup and row insert atomic.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txManager struct {
	db *sql.DB
}

// NewTxManager creates a TxManager backed by the given database.
func NewTxManager(db *sql.DB) TxManager {
	return &txManager{db: db}
}

// WithTx begins a transaction, stores it in the context passed to fn, and
// commits on success or rolls back on error.
func (m *txManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	ctx = context.WithValue(ctx, txKey{}, tx)

	if err := fn(ctx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			// Both errors stay in the chain so callers can still match the
			// error that failed the transaction.
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return err
	}

	return tx.Commit()
}

// GetTx returns the transaction carried by ctx, or falls back to the plain
// connection when no transaction is open.
func GetTx(ctx context.Context, db *sql.DB) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}
