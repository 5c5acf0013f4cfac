package memory

import (
	"context"
	"sync"

	"solana-atomic-arb/internal/domain"
	"solana-atomic-arb/internal/storage"
)

// TraderStatsStore is an in-memory implementation of storage.TraderStatsStore.
type TraderStatsStore struct {
	mu   sync.RWMutex
	data map[string][]domain.RankedTrader // keyed by run_id
}

// NewTraderStatsStore creates a new in-memory trader stats store.
func NewTraderStatsStore() *TraderStatsStore {
	return &TraderStatsStore{
		data: make(map[string][]domain.RankedTrader),
	}
}

// InsertBulk stores the ranking of a run. Returns ErrDuplicateKey if the run
// already has one.
func (s *TraderStatsStore) InsertBulk(_ context.Context, runID string, ranked []domain.RankedTrader) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	for _, r := range ranked {
		if r.Stats == nil {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}

	rows := make([]domain.RankedTrader, len(ranked))
	for i, r := range ranked {
		rows[i] = domain.RankedTrader{Rank: r.Rank, Stats: r.Stats.Clone()}
	}
	s.data[runID] = rows
	return nil
}

// GetByRun retrieves the ranking of a run ordered by rank.
func (s *TraderStatsStore) GetByRun(_ context.Context, runID string) ([]domain.RankedTrader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.data[runID]
	if !ok {
		return nil, nil
	}
	out := make([]domain.RankedTrader, len(rows))
	for i, r := range rows {
		out[i] = domain.RankedTrader{Rank: r.Rank, Stats: r.Stats.Clone()}
	}
	return out, nil
}

var _ storage.TraderStatsStore = (*TraderStatsStore)(nil)
