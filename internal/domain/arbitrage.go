package domain

import "github.com/shopspring/decimal"

// SwapEdge is one swap performed by a trader: AmountIn of TokenIn given,
// AmountOut of TokenOut received, inside one instruction group.
type SwapEdge struct {
	TokenIn          string
	TokenOut         string
	AmountIn         decimal.Decimal
	AmountOut        decimal.Decimal
	InstructionIndex int
	Ordinal          int // index among the trader's edges in the transaction
}

// TraderSwapPath is the ordered, contiguous sequence of swaps one trader
// performed inside one transaction: Edges[i].TokenIn == Edges[i-1].TokenOut.
type TraderSwapPath struct {
	Trader        string
	TransactionID string
	Edges         []SwapEdge
}

// ArbitrageRecord is one detected profitable closed swap cycle.
type ArbitrageRecord struct {
	RecordID         string // SHA256(signature|trader|token|first instruction index|edge ordinal)
	Slot             uint64
	BlockTime        *int64
	TxPosition       int // index of the transaction inside its block
	TransactionID    string
	InstructionIndex int // instruction group of the first edge
	Trader           string
	Token            string          // anchor mint, profit denomination
	Profit           decimal.Decimal // base units of Token, always > 0
	Decimals         uint8           // decimals of Token, 0 when unknown
	PathLength       int
	InvolvedTokens   []string // anchor first, then each TokenOut in order
}

// ScaledProfit returns Profit in whole-token units.
func (r ArbitrageRecord) ScaledProfit() decimal.Decimal {
	return r.Profit.Shift(-int32(r.Decimals))
}
