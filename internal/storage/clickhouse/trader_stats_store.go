package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"solana-atomic-arb/internal/domain"
	"solana-atomic-arb/internal/storage"
)

// TraderStatsStore implements storage.TraderStatsStore using ClickHouse.
type TraderStatsStore struct {
	conn *Conn
}

// NewTraderStatsStore creates a new TraderStatsStore.
func NewTraderStatsStore(conn *Conn) *TraderStatsStore {
	return &TraderStatsStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TraderStatsStore = (*TraderStatsStore)(nil)

// InsertBulk stores the ranking of a run. MergeTree does not enforce keys, so
// an existing snapshot is checked explicitly.
func (s *TraderStatsStore) InsertBulk(ctx context.Context, runID string, ranked []domain.RankedTrader) (err error) {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	for _, r := range ranked {
		if r.Stats == nil {
			return storage.ErrInvalidInput
		}
	}
	if len(ranked) == 0 {
		return nil
	}
	defer func(start time.Time) { observe("insert_trader_stats", start, err) }(time.Now())

	exists, err := s.exists(ctx, runID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trader_stats (
			run_id, leaderboard_rank, trader, total_profit, arbitrage_count,
			tokens_used, profit_by_token, value_usd
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range ranked {
		byToken := make(map[string]string, len(r.Stats.ProfitByToken))
		for mint, p := range r.Stats.ProfitByToken {
			byToken[mint] = p.String()
		}
		err = batch.Append(
			runID,
			uint32(r.Rank),
			r.Stats.Trader,
			r.Stats.TotalProfit,
			uint32(r.Stats.ArbitrageCount),
			r.Stats.Tokens(),
			byToken,
			r.Stats.Value.Round(6),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRun retrieves the ranking of a run ordered by rank ASC.
func (s *TraderStatsStore) GetByRun(ctx context.Context, runID string) (ranked []domain.RankedTrader, err error) {
	defer func(start time.Time) { observe("get_trader_stats", start, err) }(time.Now())

	query := `
		SELECT leaderboard_rank, trader, total_profit, arbitrage_count,
			tokens_used, profit_by_token, value_usd
		FROM trader_stats
		WHERE run_id = ?
		ORDER BY leaderboard_rank ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rank    uint32
			count   uint32
			tokens  []string
			byToken map[string]string
		)
		stats := domain.NewTraderStats("")

		if err := rows.Scan(&rank, &stats.Trader, &stats.TotalProfit, &count, &tokens, &byToken, &stats.Value); err != nil {
			return nil, fmt.Errorf("scan trader stats row: %w", err)
		}

		stats.ArbitrageCount = int(count)
		for _, t := range tokens {
			stats.TokensUsed[t] = struct{}{}
		}
		for mint, p := range byToken {
			v, err := decimal.NewFromString(p)
			if err != nil {
				return nil, fmt.Errorf("parse profit for %s: %w", mint, err)
			}
			stats.ProfitByToken[mint] = v
		}

		ranked = append(ranked, domain.RankedTrader{Rank: int(rank), Stats: stats})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trader stats rows: %w", err)
	}

	return ranked, nil
}

// exists checks if a run already has a snapshot.
func (s *TraderStatsStore) exists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count() FROM trader_stats WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
