package scan_test

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"solana-atomic-arb/internal/domain"
)

const (
	mintA = "MintAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	mintB = "MintBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	mintC = "MintCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"
)

// swap returns the four events of trader giving amountIn of in to pool and
// receiving amountOut of out within instruction ix.
func swap(sig, trader, pool, in, out string, amountIn, amountOut int64, ix int) []domain.TransferEvent {
	leg := func(from, to, mint string, amount int64, inner int) []domain.TransferEvent {
		base := domain.TransferEvent{
			From:             from,
			To:               to,
			Mint:             mint,
			TransactionID:    sig,
			InstructionIndex: ix,
			InnerIndex:       inner,
		}
		sent, received := base, base
		sent.Amount = decimal.NewFromInt(-amount)
		received.Amount = decimal.NewFromInt(amount)
		return []domain.TransferEvent{sent, received}
	}
	return append(leg(trader, pool, in, amountIn, 0), leg(pool, trader, out, amountOut, 1)...)
}

// cycleTx is a 3-hop A->B->C->A cycle for trader netting profit in mintA.
func cycleTx(sig, trader string, position int, profit int64) domain.Transaction {
	var events []domain.TransferEvent
	events = append(events, swap(sig, trader, "pool1", mintA, mintB, 100, 50, 0)...)
	events = append(events, swap(sig, trader, "pool2", mintB, mintC, 50, 70, 1)...)
	events = append(events, swap(sig, trader, "pool3", mintC, mintA, 70, 100+profit, 2)...)
	return domain.Transaction{
		Signature: sig,
		Signer:    trader,
		Position:  position,
		Decimals:  map[string]uint8{mintA: 9},
		Events:    events,
	}
}

// malformedTx has an outgoing leg with no incoming counterpart.
func malformedTx(sig string, position int) domain.Transaction {
	events := swap(sig, "trader", "pool1", mintA, mintB, 100, 90, 0)
	events = append(events, swap(sig, "trader", "pool2", mintB, mintA, 90, 95, 1)[:2]...)
	return domain.Transaction{Signature: sig, Position: position, Events: events}
}

func slot(n uint64, txs ...domain.Transaction) *domain.SlotData {
	bt := int64(1_700_000_000 + n)
	return &domain.SlotData{Slot: n, BlockTime: &bt, Transactions: txs}
}

// collector is a RecordSink keeping everything it receives.
type collector struct {
	mu      sync.Mutex
	records []domain.ArbitrageRecord
	writes  int
}

func (c *collector) Write(_ context.Context, records []domain.ArbitrageRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, records...)
	c.writes++
	return nil
}

func (c *collector) slots() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []uint64
	for _, r := range c.records {
		out = append(out, r.Slot)
	}
	return out
}
