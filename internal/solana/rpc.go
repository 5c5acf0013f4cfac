package solana

import "context"

// Commitment levels accepted by GetSlot.
const (
	CommitmentFinalized = "finalized"
	CommitmentConfirmed = "confirmed"
)

// RPCClient defines the Solana RPC calls the scanner needs.
type RPCClient interface {
	// GetBlock retrieves a finalized block with full transaction details.
	// Returns ErrSlotSkipped when no block was produced in slot.
	GetBlock(ctx context.Context, slot uint64) (*Block, error)

	// GetBlocks lists produced slots in [startSlot, endSlot].
	GetBlocks(ctx context.Context, startSlot, endSlot uint64) ([]uint64, error)

	// GetSlot returns the latest slot at the given commitment.
	GetSlot(ctx context.Context, commitment string) (uint64, error)
}
