package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"solana-atomic-arb/internal/domain"
	"solana-atomic-arb/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `run_id::text, begin_slot, end_slot, status, slots_processed, slots_absent,
	transactions_analyzed, transactions_skipped, arbitrage_count, last_slot,
	started_at, finished_at, error`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, run *domain.Run) (err error) {
	if run == nil {
		return storage.ErrInvalidInput
	}
	id, err := uuid.Parse(run.RunID)
	if err != nil {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("insert_run", start, err) }(time.Now())

	query := `
		INSERT INTO scan_runs (
			run_id, begin_slot, end_slot, status, slots_processed, slots_absent,
			transactions_analyzed, transactions_skipped, arbitrage_count, last_slot,
			started_at, finished_at, error
		) VALUES ($1::text::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = s.pool.Exec(ctx, query,
		id.String(),
		int64(run.BeginSlot),
		int64(run.EndSlot),
		run.Status,
		run.SlotsProcessed,
		run.SlotsAbsent,
		run.TransactionsAnalyzed,
		run.TransactionsSkipped,
		run.ArbitrageCount,
		int64(run.LastSlot),
		run.StartedAt,
		run.FinishedAt,
		run.Error,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Update overwrites status, counters and finish time of a run.
func (s *RunStore) Update(ctx context.Context, run *domain.Run) (err error) {
	if run == nil {
		return storage.ErrInvalidInput
	}
	id, err := uuid.Parse(run.RunID)
	if err != nil {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("update_run", start, err) }(time.Now())

	query := `
		UPDATE scan_runs SET
			status = $2,
			slots_processed = $3,
			slots_absent = $4,
			transactions_analyzed = $5,
			transactions_skipped = $6,
			arbitrage_count = $7,
			last_slot = $8,
			finished_at = $9,
			error = $10
		WHERE run_id = $1::text::uuid
	`

	tag, err := s.pool.Exec(ctx, query,
		id.String(),
		run.Status,
		run.SlotsProcessed,
		run.SlotsAbsent,
		run.TransactionsAnalyzed,
		run.TransactionsSkipped,
		run.ArbitrageCount,
		int64(run.LastSlot),
		run.FinishedAt,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a run. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (run *domain.Run, err error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, storage.ErrNotFound
	}
	defer func(start time.Time) { observe("get_run", start, err) }(time.Now())

	query := `SELECT ` + runColumns + ` FROM scan_runs WHERE run_id = $1::text::uuid`

	run, err = scanRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		if isInvalidTextError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns up to limit runs, most recently started first.
func (s *RunStore) List(ctx context.Context, limit int) (runs []*domain.Run, err error) {
	defer func(start time.Time) { observe("list_runs", start, err) }(time.Now())

	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + runColumns + `
		FROM scan_runs
		ORDER BY started_at DESC, run_id ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*domain.Run, error) {
	var (
		run              domain.Run
		begin, end, last int64
	)
	err := row.Scan(
		&run.RunID,
		&begin,
		&end,
		&run.Status,
		&run.SlotsProcessed,
		&run.SlotsAbsent,
		&run.TransactionsAnalyzed,
		&run.TransactionsSkipped,
		&run.ArbitrageCount,
		&last,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Error,
	)
	if err != nil {
		return nil, err
	}
	run.BeginSlot = uint64(begin)
	run.EndSlot = uint64(end)
	run.LastSlot = uint64(last)
	return &run, nil
}
