package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiki830621/customer-dna/internal/contracts"
)

// =============================================================================
// Profile / run writer (engine output side)
// =============================================================================

// ProfileRepository persists profile rows and run summaries
// ⭐ SSOT: DNA 결과 영속화는 여기서만 (contracts.ProfileSink 구현)
//
// Append-only: every run writes new rows tagged with run_id + computed_at.
// "latest" 조회는 가장 최근에 성공한 런을 선택한다 (덮어쓰기 없음).
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// SaveBundle appends all profile rows and the run summary in one transaction.
// Dashboard reads these columns by exact name; keep them stable.
func (r *ProfileRepository) SaveBundle(ctx context.Context, bundle *contracts.ResultBundle) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return &contracts.PersistenceError{Table: "analytics.dna_profiles", Err: err}
	}
	defer tx.Rollback(ctx)

	computedAt := time.Now()

	batch := &pgx.Batch{}
	query := `
		INSERT INTO analytics.dna_profiles (
			run_id, computed_at, customer_id, scope_key,
			recency, frequency, monetary, total_spent,
			ipt_mean, ipt_sd, nes_status, nrec,
			clv, value_segment, loyalty_tier
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	total := 0
	for _, scope := range bundle.Profiles {
		for _, p := range scope.Profiles {
			batch.Queue(query,
				bundle.Run.RunID, computedAt, p.CustomerID, p.ScopeKey,
				p.Recency, p.Frequency, p.Monetary, p.TotalSpent,
				p.IPTMean, p.IPTSD, string(p.NESStatus), p.NRec,
				p.CLV, p.ValueSegment, p.LoyaltyTier,
			)
			total++
		}
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < total; i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return &contracts.PersistenceError{Table: "analytics.dna_profiles", Err: err}
		}
	}
	if err := br.Close(); err != nil {
		return &contracts.PersistenceError{Table: "analytics.dna_profiles", Err: err}
	}

	if err := r.saveRun(ctx, tx, &bundle.Run); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return &contracts.PersistenceError{Table: "analytics.dna_profiles", Err: err}
	}

	return nil
}

// saveRun appends the run summary row
func (r *ProfileRepository) saveRun(ctx context.Context, tx pgx.Tx, run *contracts.AnalysisRun) error {
	failedJSON, err := json.Marshal(run.ScopeKeysFailed)
	if err != nil {
		return &contracts.PersistenceError{Table: "analytics.dna_runs", Err: err}
	}

	query := `
		INSERT INTO analytics.dna_runs (
			run_id, reference_time, scope_keys_requested, scope_keys_succeeded,
			scope_keys_failed, total_customers, skipped_customers, churn_accuracy,
			started_at, finished_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = tx.Exec(ctx, query,
		run.RunID, run.ReferenceTime, run.ScopeKeysRequested, run.ScopeKeysSucceeded,
		failedJSON, run.TotalCustomers, run.SkippedCustomers, run.ChurnAccuracy,
		run.StartedAt, run.FinishedAt, run.Duration.Milliseconds(),
	)
	if err != nil {
		return &contracts.PersistenceError{Table: "analytics.dna_runs", Err: err}
	}

	return nil
}

// GetLatestRun returns the most recent run that produced at least one scope
func (r *ProfileRepository) GetLatestRun(ctx context.Context) (*contracts.AnalysisRun, error) {
	query := `
		SELECT run_id, reference_time, scope_keys_requested, scope_keys_succeeded,
			   scope_keys_failed, total_customers, skipped_customers, churn_accuracy,
			   started_at, finished_at, duration_ms
		FROM analytics.dna_runs
		WHERE cardinality(scope_keys_succeeded) > 0
		ORDER BY finished_at DESC
		LIMIT 1`

	return r.scanRun(r.pool.QueryRow(ctx, query))
}

// GetRun returns one run summary by id
func (r *ProfileRepository) GetRun(ctx context.Context, runID string) (*contracts.AnalysisRun, error) {
	query := `
		SELECT run_id, reference_time, scope_keys_requested, scope_keys_succeeded,
			   scope_keys_failed, total_customers, skipped_customers, churn_accuracy,
			   started_at, finished_at, duration_ms
		FROM analytics.dna_runs
		WHERE run_id = $1`

	return r.scanRun(r.pool.QueryRow(ctx, query, runID))
}

func (r *ProfileRepository) scanRun(row pgx.Row) (*contracts.AnalysisRun, error) {
	var run contracts.AnalysisRun
	var durationMs int64
	var failedJSON []byte

	err := row.Scan(
		&run.RunID, &run.ReferenceTime, &run.ScopeKeysRequested, &run.ScopeKeysSucceeded,
		&failedJSON, &run.TotalCustomers, &run.SkippedCustomers, &run.ChurnAccuracy,
		&run.StartedAt, &run.FinishedAt, &durationMs,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if len(failedJSON) > 0 {
		if err := json.Unmarshal(failedJSON, &run.ScopeKeysFailed); err != nil {
			return nil, fmt.Errorf("failed to unmarshal failed scopes: %w", err)
		}
	}

	run.Duration = time.Duration(durationMs) * time.Millisecond
	return &run, nil
}

// ProfileFilter narrows GetProfiles results; zero values mean no filter
type ProfileFilter struct {
	ScopeKey     string
	ValueSegment string
	NESStatus    string
	Limit        int
}

// GetProfiles returns profile rows from the latest succeeded run,
// optionally filtered by scope / segment / status.
func (r *ProfileRepository) GetProfiles(ctx context.Context, filter ProfileFilter) ([]contracts.CustomerDNAProfile, error) {
	query := `
		SELECT customer_id, scope_key, recency, frequency, monetary, total_spent,
			   ipt_mean, ipt_sd, nes_status, nrec, clv, value_segment, loyalty_tier
		FROM analytics.dna_profiles
		WHERE run_id = (
			SELECT run_id FROM analytics.dna_runs
			WHERE cardinality(scope_keys_succeeded) > 0
			ORDER BY finished_at DESC
			LIMIT 1
		)`
	args := []interface{}{}

	if filter.ScopeKey != "" {
		args = append(args, filter.ScopeKey)
		query += fmt.Sprintf(" AND scope_key = $%d", len(args))
	}
	if filter.ValueSegment != "" {
		args = append(args, filter.ValueSegment)
		query += fmt.Sprintf(" AND value_segment = $%d", len(args))
	}
	if filter.NESStatus != "" {
		args = append(args, filter.NESStatus)
		query += fmt.Sprintf(" AND nes_status = $%d", len(args))
	}

	query += " ORDER BY clv DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []contracts.CustomerDNAProfile
	for rows.Next() {
		var p contracts.CustomerDNAProfile
		var status string
		if err := rows.Scan(
			&p.CustomerID, &p.ScopeKey, &p.Recency, &p.Frequency, &p.Monetary,
			&p.TotalSpent, &p.IPTMean, &p.IPTSD, &status, &p.NRec,
			&p.CLV, &p.ValueSegment, &p.LoyaltyTier,
		); err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		p.NESStatus = contracts.NESStatus(status)
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}

// GetProfile returns one customer's latest profile rows (one per scope)
func (r *ProfileRepository) GetProfile(ctx context.Context, customerID string) ([]contracts.CustomerDNAProfile, error) {
	query := `
		SELECT customer_id, scope_key, recency, frequency, monetary, total_spent,
			   ipt_mean, ipt_sd, nes_status, nrec, clv, value_segment, loyalty_tier
		FROM analytics.dna_profiles
		WHERE customer_id = $1
		  AND run_id = (
			SELECT run_id FROM analytics.dna_runs
			WHERE cardinality(scope_keys_succeeded) > 0
			ORDER BY finished_at DESC
			LIMIT 1
		  )
		ORDER BY scope_key`

	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	defer rows.Close()

	var profiles []contracts.CustomerDNAProfile
	for rows.Next() {
		var p contracts.CustomerDNAProfile
		var status string
		if err := rows.Scan(
			&p.CustomerID, &p.ScopeKey, &p.Recency, &p.Frequency, &p.Monetary,
			&p.TotalSpent, &p.IPTMean, &p.IPTSD, &status, &p.NRec,
			&p.CLV, &p.ValueSegment, &p.LoyaltyTier,
		); err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		p.NESStatus = contracts.NESStatus(status)
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}
