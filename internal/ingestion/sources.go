package ingestion

import (
	"context"

	"solana-atomic-arb/internal/domain"
)

// SlotProvider supplies the analyzable content of one slot.
type SlotProvider interface {
	// FetchSlot returns the successful transactions of slot with their
	// transfer events. Returns ErrSlotNotFound when no block was produced.
	// Any other error means retries are already exhausted.
	FetchSlot(ctx context.Context, slot uint64) (*domain.SlotData, error)
}

// SlotLister lists produced slots so absent ones need not be fetched.
type SlotLister interface {
	// ListSlots returns produced slots within [begin, end] in ascending order.
	ListSlots(ctx context.Context, begin, end uint64) ([]uint64, error)
}
