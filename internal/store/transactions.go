package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiki830621/customer-dna/internal/contracts"
)

// =============================================================================
// Transaction reader (engine input side)
// =============================================================================

// TransactionRepository reads cleansed transaction rows for the engine
// ⭐ SSOT: 엔진 입력 조회는 여기서만 (contracts.TransactionSource 구현)
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// GetByScope returns all rows for one scope, ordered by (customer_id, txn_date).
// ScopeAll returns every row regardless of scope.
func (r *TransactionRepository) GetByScope(ctx context.Context, scopeKey string) ([]contracts.Transaction, error) {
	query := `
		SELECT customer_id, txn_date, amount, scope_key
		FROM analytics.cleansed_transactions
		WHERE scope_key = $1
		ORDER BY customer_id, txn_date`
	args := []interface{}{scopeKey}

	if scopeKey == contracts.ScopeAll {
		query = `
			SELECT customer_id, txn_date, amount, scope_key
			FROM analytics.cleansed_transactions
			ORDER BY customer_id, txn_date`
		args = nil
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyReadError(err)
	}
	defer rows.Close()

	var txns []contracts.Transaction
	for rows.Next() {
		var t contracts.Transaction
		if err := rows.Scan(&t.CustomerID, &t.Timestamp, &t.Amount, &t.ScopeKey); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}

	return txns, nil
}

// CustomerAggregate is the optional precomputed per-customer rollup
// (집계 테이블이 이미 있으면 엔진 검증용으로 대조한다)
type CustomerAggregate struct {
	CustomerID   string
	ScopeKey     string
	Frequency    int
	TotalSpent   float64
	FirstTxnDate time.Time
	LastTxnDate  time.Time
}

// GetPrecomputedAggregates loads the customer-level rollup table for one scope.
// Missing table is not an error: callers fall back to computing from rows.
func (r *TransactionRepository) GetPrecomputedAggregates(ctx context.Context, scopeKey string) ([]CustomerAggregate, error) {
	query := `
		SELECT customer_id, scope_key, txn_count, total_spent, first_txn_date, last_txn_date
		FROM analytics.customer_aggregates
		WHERE scope_key = $1
		ORDER BY customer_id`

	rows, err := r.pool.Query(ctx, query, scopeKey)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
			return nil, nil
		}
		return nil, classifyReadError(err)
	}
	defer rows.Close()

	var aggs []CustomerAggregate
	for rows.Next() {
		var a CustomerAggregate
		if err := rows.Scan(&a.CustomerID, &a.ScopeKey, &a.Frequency,
			&a.TotalSpent, &a.FirstTxnDate, &a.LastTxnDate); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		aggs = append(aggs, a)
	}

	return aggs, rows.Err()
}

// Postgres error codes the reader cares about
const (
	pgUndefinedColumn = "42703"
	pgUndefinedTable  = "42P01"
)

// classifyReadError maps schema holes to MissingDataError so the
// orchestrator aborts the run instead of failing one scope.
func classifyReadError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUndefinedColumn:
			return &contracts.MissingDataError{Field: pgErr.Message}
		case pgUndefinedTable:
			return &contracts.MissingDataError{Field: "analytics.cleansed_transactions"}
		}
	}
	return fmt.Errorf("failed to query transactions: %w", err)
}
