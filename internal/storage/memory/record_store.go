package memory

import (
	"context"
	"sync"

	"solana-atomic-arb/internal/domain"
	"solana-atomic-arb/internal/storage"
)

// RecordStore is an in-memory implementation of storage.RecordStore.
type RecordStore struct {
	mu   sync.RWMutex
	data map[string]domain.ArbitrageRecord // keyed by record_id
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		data: make(map[string]domain.ArbitrageRecord),
	}
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *RecordStore) InsertBulk(_ context.Context, records []domain.ArbitrageRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.RecordID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.RecordID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.RecordID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.RecordID] = struct{}{}
	}

	// Second pass: insert all
	for _, r := range records {
		s.data[r.RecordID] = cloneRecord(r)
	}

	return nil
}

// DeleteBySlotRange removes records within [begin, end] (inclusive).
func (s *RecordStore) DeleteBySlotRange(_ context.Context, begin, end uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, r := range s.data {
		if r.Slot >= begin && r.Slot <= end {
			delete(s.data, id)
			n++
		}
	}
	return n, nil
}

// GetBySlotRange retrieves records within [begin, end] (inclusive) in canonical order.
func (s *RecordStore) GetBySlotRange(_ context.Context, begin, end uint64) ([]domain.ArbitrageRecord, error) {
	return s.filter(func(r domain.ArbitrageRecord) bool {
		return r.Slot >= begin && r.Slot <= end
	}), nil
}

// GetByTrader retrieves all records of a trader in canonical order.
func (s *RecordStore) GetByTrader(_ context.Context, trader string) ([]domain.ArbitrageRecord, error) {
	return s.filter(func(r domain.ArbitrageRecord) bool {
		return r.Trader == trader
	}), nil
}

func (s *RecordStore) filter(keep func(domain.ArbitrageRecord) bool) []domain.ArbitrageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.ArbitrageRecord
	for _, r := range s.data {
		if keep(r) {
			result = append(result, cloneRecord(r))
		}
	}
	domain.SortRecords(result)
	return result
}

func cloneRecord(r domain.ArbitrageRecord) domain.ArbitrageRecord {
	c := r
	c.InvolvedTokens = append([]string(nil), r.InvolvedTokens...)
	if r.BlockTime != nil {
		bt := *r.BlockTime
		c.BlockTime = &bt
	}
	return c
}

var _ storage.RecordStore = (*RecordStore)(nil)
