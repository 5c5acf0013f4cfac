package storage

import (
	"context"

	"solana-atomic-arb/internal/domain"
)

// RecordStore provides access to arbitrage_records storage.
type RecordStore interface {
	// InsertBulk adds multiple records atomically. Fails entire batch on any
	// duplicate record_id.
	InsertBulk(ctx context.Context, records []domain.ArbitrageRecord) error

	// DeleteBySlotRange removes records within [begin, end] (inclusive) so a
	// range can be scanned again. Returns the number of deleted rows.
	DeleteBySlotRange(ctx context.Context, begin, end uint64) (int64, error)

	// GetBySlotRange retrieves records within [begin, end] (inclusive) in
	// canonical order: slot, transaction position, instruction index, trader.
	GetBySlotRange(ctx context.Context, begin, end uint64) ([]domain.ArbitrageRecord, error)

	// GetByTrader retrieves all records of a trader in canonical order.
	GetByTrader(ctx context.Context, trader string) ([]domain.ArbitrageRecord, error)
}

// RunStore provides access to scan_runs storage.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.Run) error

	// Update overwrites status, counters and finish time. Returns ErrNotFound
	// if run_id does not exist.
	Update(ctx context.Context, run *domain.Run) error

	// GetByID retrieves a run. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.Run, error)

	// List returns up to limit runs, most recently started first.
	List(ctx context.Context, limit int) ([]*domain.Run, error)
}

// TraderStatsStore provides access to the trader_stats leaderboard snapshots.
type TraderStatsStore interface {
	// InsertBulk stores the ranking of a run. Returns ErrDuplicateKey if the
	// run already has a snapshot.
	InsertBulk(ctx context.Context, runID string, ranked []domain.RankedTrader) error

	// GetByRun retrieves the ranking of a run ordered by rank ASC.
	GetByRun(ctx context.Context, runID string) ([]domain.RankedTrader, error)
}
