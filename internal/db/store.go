package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/metrics"
	"github.com/SigNoz/retail-order-engine/internal/store"
)

// Store implements store.Store on MySQL. Row locks taken by the Lock*
// repository methods are held until Atomic returns.
type Store struct {
	db      *DB
	metrics *metrics.AppMetrics
}

var _ store.Store = (*Store)(nil)

// NewStore creates a Store on db recording every statement in m.
func NewStore(db *DB, m *metrics.AppMetrics) *Store {
	return &Store{db: db, metrics: m}
}

// Atomic implements store.Store.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&tx{tx: sqlTx, metrics: s.metrics}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type tx struct {
	tx      *sql.Tx
	metrics *metrics.AppMetrics
}

func (t *tx) Accounts() store.AccountRepository { return accountRepo{t} }
func (t *tx) Products() store.ProductRepository { return productRepo{t} }
func (t *tx) Orders() store.OrderRepository     { return orderRepo{t} }
func (t *tx) Reviews() store.ReviewRepository   { return reviewRepo{t} }

// operation returns the leading SQL verb of query.
func operation(query string) string {
	q := strings.TrimSpace(query)
	if i := strings.IndexAny(q, " \n\t"); i > 0 {
		return strings.ToUpper(q[:i])
	}
	return strings.ToUpper(q)
}

func (t *tx) exec(ctx context.Context, table, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := t.tx.ExecContext(ctx, query, args...)
	t.metrics.RecordDBQuery(ctx, operation(query), table, query, start, err == nil)
	return res, err
}

func (t *tx) query(ctx context.Context, table, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.tx.QueryContext(ctx, query, args...)
	t.metrics.RecordDBQuery(ctx, operation(query), table, query, start, err == nil)
	return rows, err
}

// queryRow runs a single-row query and scans it into dest. sql.ErrNoRows
// counts as a successful query.
func (t *tx) queryRow(ctx context.Context, table, query string, args []any, dest ...any) error {
	start := time.Now()
	err := t.tx.QueryRowContext(ctx, query, args...).Scan(dest...)
	t.metrics.RecordDBQuery(ctx, operation(query), table, query, start, err == nil || errors.Is(err, sql.ErrNoRows))
	return err
}

// affected fails with notFound when res changed no row.
func affected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

type scanner interface {
	Scan(dest ...any) error
}
