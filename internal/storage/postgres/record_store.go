package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"solana-atomic-arb/internal/domain"
	"solana-atomic-arb/internal/storage"
)

// RecordStore implements storage.RecordStore using PostgreSQL.
type RecordStore struct {
	pool *Pool
}

// NewRecordStore creates a new RecordStore.
func NewRecordStore(pool *Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RecordStore = (*RecordStore)(nil)

const recordColumns = `record_id, slot, block_time, tx_position, tx_signature, instruction_index,
	trader, token, profit::text, decimals, path_length, involved_tokens`

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *RecordStore) InsertBulk(ctx context.Context, records []domain.ArbitrageRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	defer func(start time.Time) { observe("insert_records", start, err) }(time.Now())

	for _, r := range records {
		if r.RecordID == "" || !r.Profit.IsPositive() {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO arbitrage_records (
			record_id, slot, block_time, tx_position, tx_signature, instruction_index,
			trader, token, profit, decimals, path_length, involved_tokens
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::text::numeric, $10, $11, $12)
	`

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(query,
			r.RecordID,
			int64(r.Slot),
			r.BlockTime,
			r.TxPosition,
			r.TransactionID,
			r.InstructionIndex,
			r.Trader,
			r.Token,
			r.Profit.String(),
			int16(r.Decimals),
			r.PathLength,
			r.InvolvedTokens,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := results.Exec(); err != nil {
			results.Close()
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert record in bulk: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// DeleteBySlotRange removes records within [begin, end] (inclusive).
func (s *RecordStore) DeleteBySlotRange(ctx context.Context, begin, end uint64) (n int64, err error) {
	defer func(start time.Time) { observe("delete_records", start, err) }(time.Now())

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM arbitrage_records WHERE slot >= $1 AND slot <= $2`,
		int64(begin), int64(end))
	if err != nil {
		return 0, fmt.Errorf("delete records by slot range: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetBySlotRange retrieves records within [begin, end] (inclusive) in canonical order.
func (s *RecordStore) GetBySlotRange(ctx context.Context, begin, end uint64) (records []domain.ArbitrageRecord, err error) {
	defer func(start time.Time) { observe("get_records_by_slot", start, err) }(time.Now())

	query := `
		SELECT ` + recordColumns + `
		FROM arbitrage_records
		WHERE slot >= $1 AND slot <= $2
		ORDER BY slot ASC, tx_position ASC, instruction_index ASC, trader ASC, record_id ASC
	`

	rows, err := s.pool.Query(ctx, query, int64(begin), int64(end))
	if err != nil {
		return nil, fmt.Errorf("get records by slot range: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetByTrader retrieves all records of a trader in canonical order.
func (s *RecordStore) GetByTrader(ctx context.Context, trader string) (records []domain.ArbitrageRecord, err error) {
	defer func(start time.Time) { observe("get_records_by_trader", start, err) }(time.Now())

	query := `
		SELECT ` + recordColumns + `
		FROM arbitrage_records
		WHERE trader = $1
		ORDER BY slot ASC, tx_position ASC, instruction_index ASC, trader ASC, record_id ASC
	`

	rows, err := s.pool.Query(ctx, query, trader)
	if err != nil {
		return nil, fmt.Errorf("get records by trader: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// scanRecords scans multiple rows into a slice of ArbitrageRecord.
func scanRecords(rows pgx.Rows) ([]domain.ArbitrageRecord, error) {
	var records []domain.ArbitrageRecord

	for rows.Next() {
		var (
			r        domain.ArbitrageRecord
			slot     int64
			profit   string
			decimals int16
		)

		err := rows.Scan(
			&r.RecordID,
			&slot,
			&r.BlockTime,
			&r.TxPosition,
			&r.TransactionID,
			&r.InstructionIndex,
			&r.Trader,
			&r.Token,
			&profit,
			&decimals,
			&r.PathLength,
			&r.InvolvedTokens,
		)
		if err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}

		r.Slot = uint64(slot)
		r.Decimals = uint8(decimals)
		r.Profit, err = decimal.NewFromString(profit)
		if err != nil {
			return nil, fmt.Errorf("parse profit %q: %w", profit, err)
		}

		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record rows: %w", err)
	}

	return records, nil
}
