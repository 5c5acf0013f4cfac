package stub

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"solana-atomic-arb/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu sync.Mutex

	Blocks map[uint64]*solana.Block
	// Errors forces GetBlock to fail for a slot.
	Errors map[uint64]error
	// Finalized is returned by GetSlot; each call advances it by FinalizedStep.
	Finalized     uint64
	FinalizedStep uint64

	Calls map[uint64]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Blocks: make(map[uint64]*solana.Block),
		Errors: make(map[uint64]error),
		Calls:  make(map[uint64]int),
	}
}

// GetBlock returns the stored block, ErrSlotSkipped when none exists.
func (c *RPCClient) GetBlock(_ context.Context, slot uint64) (*solana.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls[slot]++
	if err, ok := c.Errors[slot]; ok {
		return nil, err
	}
	block, ok := c.Blocks[slot]
	if !ok {
		return nil, fmt.Errorf("%w: slot %d", solana.ErrSlotSkipped, slot)
	}
	return block, nil
}

// GetBlocks lists stored slots within [startSlot, endSlot].
func (c *RPCClient) GetBlocks(_ context.Context, startSlot, endSlot uint64) ([]uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var slots []uint64
	for slot := range c.Blocks {
		if slot >= startSlot && slot <= endSlot {
			slots = append(slots, slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots, nil
}

// GetSlot returns Finalized and advances it.
func (c *RPCClient) GetSlot(_ context.Context, _ string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slot := c.Finalized
	c.Finalized += c.FinalizedStep
	return slot, nil
}
