package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TraderStats accumulates the arbitrage activity of one trader over a run.
type TraderStats struct {
	Trader         string
	TotalProfit    decimal.Decimal // sum of record profits in base units
	ArbitrageCount int
	TokensUsed     map[string]struct{}        // every mint in any involved path
	ProfitByToken  map[string]decimal.Decimal // anchor mint -> profit
	Value          decimal.Decimal            // USD value of priced profits
}

// NewTraderStats returns empty stats for trader.
func NewTraderStats(trader string) *TraderStats {
	return &TraderStats{
		Trader:        trader,
		TokensUsed:    make(map[string]struct{}),
		ProfitByToken: make(map[string]decimal.Decimal),
	}
}

// Tokens returns TokensUsed sorted.
func (s *TraderStats) Tokens() []string {
	tokens := make([]string, 0, len(s.TokensUsed))
	for t := range s.TokensUsed {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}

// Clone returns a deep copy.
func (s *TraderStats) Clone() *TraderStats {
	c := &TraderStats{
		Trader:         s.Trader,
		TotalProfit:    s.TotalProfit,
		ArbitrageCount: s.ArbitrageCount,
		TokensUsed:     make(map[string]struct{}, len(s.TokensUsed)),
		ProfitByToken:  make(map[string]decimal.Decimal, len(s.ProfitByToken)),
		Value:          s.Value,
	}
	for t := range s.TokensUsed {
		c.TokensUsed[t] = struct{}{}
	}
	for t, p := range s.ProfitByToken {
		c.ProfitByToken[t] = p
	}
	return c
}

// RankedTrader is one leaderboard row.
type RankedTrader struct {
	Rank  int
	Stats *TraderStats
}

// Run status constants
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCanceled  = "canceled"
)

// Run describes one scan over a slot range.
type Run struct {
	RunID                string
	BeginSlot            uint64
	EndSlot              uint64
	Status               string
	SlotsProcessed       int
	SlotsAbsent          int
	TransactionsAnalyzed int
	TransactionsSkipped  int
	ArbitrageCount       int
	LastSlot             uint64 // highest slot fully processed, 0 before the first
	StartedAt            int64  // Unix ms
	FinishedAt           int64  // Unix ms, 0 while running
	Error                string
}
