package detect

import (
	"github.com/shopspring/decimal"

	"solana-atomic-arb/internal/domain"
)

const (
	mintA = "MintAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	mintB = "MintBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	mintC = "MintCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"
	mintD = "MintDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDD"
)

func amt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func edge(in, out string, amountIn, amountOut int64, ix int) domain.SwapEdge {
	return domain.SwapEdge{
		TokenIn:          in,
		TokenOut:         out,
		AmountIn:         amt(amountIn),
		AmountOut:        amt(amountOut),
		InstructionIndex: ix,
	}
}

// transfer returns the sender and receiver views of one token transfer.
func transfer(tx, from, to, mint string, amount int64, ix, inner int) []domain.TransferEvent {
	base := domain.TransferEvent{
		From:             from,
		To:               to,
		Mint:             mint,
		TransactionID:    tx,
		InstructionIndex: ix,
		InnerIndex:       inner,
	}
	sent, received := base, base
	sent.Amount = amt(-amount)
	received.Amount = amt(amount)
	return []domain.TransferEvent{sent, received}
}

func events(groups ...[]domain.TransferEvent) []domain.TransferEvent {
	var out []domain.TransferEvent
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
