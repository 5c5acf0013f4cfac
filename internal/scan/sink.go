package scan

import (
	"context"
	"fmt"

	"solana-atomic-arb/internal/domain"
	"solana-atomic-arb/internal/storage"
)

// RecordSink receives the records of each slot, in canonical order, once the
// slot is fully analyzed. A sink error halts the run.
type RecordSink interface {
	Write(ctx context.Context, records []domain.ArbitrageRecord) error
}

// SinkFunc adapts a function to RecordSink.
type SinkFunc func(ctx context.Context, records []domain.ArbitrageRecord) error

// Write calls f.
func (f SinkFunc) Write(ctx context.Context, records []domain.ArbitrageRecord) error {
	return f(ctx, records)
}

// MultiSink writes to every sink in order and stops at the first error.
type MultiSink []RecordSink

// Write forwards records to each sink.
func (m MultiSink) Write(ctx context.Context, records []domain.ArbitrageRecord) error {
	for _, s := range m {
		if err := s.Write(ctx, records); err != nil {
			return err
		}
	}
	return nil
}

// StoreSink persists records into a RecordStore.
type StoreSink struct {
	store storage.RecordStore
}

// NewStoreSink creates a sink backed by store.
func NewStoreSink(store storage.RecordStore) *StoreSink {
	return &StoreSink{store: store}
}

// Write inserts one slot's records as a single batch.
func (s *StoreSink) Write(ctx context.Context, records []domain.ArbitrageRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := domain.ValidateRecordOrdering(records); err != nil {
		return err
	}
	if err := s.store.InsertBulk(ctx, records); err != nil {
		return fmt.Errorf("store records: %w", err)
	}
	return nil
}
