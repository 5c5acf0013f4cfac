package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"solana-atomic-arb/internal/domain"
	"solana-atomic-arb/internal/metrics"
)

// Report is the end-of-run summary of one slot range.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	BeginSlot   uint64
	EndSlot     uint64
	RankBy      metrics.RankBy
	TopN        int

	Counters RunCounters
	Totals   Totals

	// Per anchor token, sorted by mint
	TokenTotals []TokenRow

	// Leaderboard, at most TopN rows
	TopTraders []TraderRow
}

// RunCounters mirror the processor's progress counters.
type RunCounters struct {
	SlotsProcessed       int
	SlotsAbsent          int
	TransactionsAnalyzed int
	TransactionsSkipped  int
	LastSlot             uint64
}

// Totals summarize every record of the run.
type Totals struct {
	ArbitrageCount int
	TraderCount    int
	TotalValue     decimal.Decimal // USD
	AverageValue   decimal.Decimal // USD per arbitrage
	Biggest        *domain.ArbitrageRecord
	BiggestValue   decimal.Decimal
}

// TokenRow is the profit realized in one anchor token.
type TokenRow struct {
	Mint   string
	Profit decimal.Decimal // base units
	Count  int
	Value  decimal.Decimal
}

// TraderRow is one leaderboard entry.
type TraderRow struct {
	Rank           int
	Trader         string
	TotalProfit    decimal.Decimal // base units, summed across anchors
	ArbitrageCount int
	Tokens         []string
	Value          decimal.Decimal
}
