package ingestion

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"solana-atomic-arb/internal/domain"
	"solana-atomic-arb/internal/solana"
)

// maxGetBlocksRange is the widest range a node accepts for getBlocks.
const maxGetBlocksRange = 500_000

// RPCProvider implements SlotProvider and SlotLister on a Solana RPC client.
type RPCProvider struct {
	rpc                 solana.RPCClient
	excludeProgramOwned bool
	logger              *zap.Logger
}

// ProviderOptions contains configuration for creating an RPCProvider.
type ProviderOptions struct {
	RPC solana.RPCClient
	// ExcludeProgramOwned drops events seen from program derived owners,
	// such as pool authorities.
	ExcludeProgramOwned bool
	Logger              *zap.Logger
}

// NewRPCProvider creates a slot provider backed by RPC.
func NewRPCProvider(opts ProviderOptions) *RPCProvider {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RPCProvider{
		rpc:                 opts.RPC,
		excludeProgramOwned: opts.ExcludeProgramOwned,
		logger:              logger,
	}
}

// FetchSlot fetches a finalized block and extracts its transfer events.
// Failed transactions are left out.
func (p *RPCProvider) FetchSlot(ctx context.Context, slot uint64) (*domain.SlotData, error) {
	block, err := p.rpc.GetBlock(ctx, slot)
	if err != nil {
		if errors.Is(err, solana.ErrSlotSkipped) {
			return nil, fmt.Errorf("%w: %d", ErrSlotNotFound, slot)
		}
		return nil, fmt.Errorf("get block %d: %w", slot, err)
	}

	data := &domain.SlotData{
		Slot:         slot,
		BlockTime:    block.BlockTime,
		Transactions: make([]domain.Transaction, 0, len(block.Transactions)),
	}

	failed := 0
	for i := range block.Transactions {
		raw := &block.Transactions[i]
		if raw.Failed() {
			failed++
			continue
		}

		tx, dropped, err := convertTransaction(raw, i, p.excludeProgramOwned)
		if err != nil {
			p.logger.Debug("transaction ignored", zap.Uint64("slot", slot), zap.Error(err))
			continue
		}
		if dropped > 0 {
			p.logger.Debug("unresolved transfers dropped",
				zap.Uint64("slot", slot),
				zap.String("signature", tx.Signature),
				zap.Int("dropped", dropped))
		}
		data.Transactions = append(data.Transactions, tx)
	}

	p.logger.Debug("slot fetched",
		zap.Uint64("slot", slot),
		zap.Int("transactions", len(data.Transactions)),
		zap.Int("failed", failed))

	return data, nil
}

// ListSlots lists produced slots, splitting wide ranges into getBlocks windows.
func (p *RPCProvider) ListSlots(ctx context.Context, begin, end uint64) ([]uint64, error) {
	if begin > end {
		return nil, nil
	}

	var slots []uint64
	for start := begin; ; start += maxGetBlocksRange {
		stop := end
		if end-start >= maxGetBlocksRange {
			stop = start + maxGetBlocksRange - 1
		}

		part, err := p.rpc.GetBlocks(ctx, start, stop)
		if err != nil {
			return nil, fmt.Errorf("get blocks %d-%d: %w", start, stop, err)
		}
		slots = append(slots, part...)

		if stop == end {
			break
		}
	}
	return slots, nil
}
