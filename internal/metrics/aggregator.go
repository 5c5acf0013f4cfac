package metrics

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"solana-atomic-arb/internal/domain"
)

// ErrInvalidTopN is returned when a ranking of fewer than one trader is requested.
var ErrInvalidTopN = errors.New("top n must be at least 1")

// RankBy selects the ranking key.
type RankBy string

const (
	// RankByProfit orders by raw total profit, then arbitrage count, then account.
	RankByProfit RankBy = "profit"
	// RankByValue orders by USD value first, then as RankByProfit.
	RankByValue RankBy = "value"
)

// ParseRankBy validates a ranking key.
func ParseRankBy(s string) (RankBy, error) {
	switch RankBy(s) {
	case RankByProfit, RankByValue:
		return RankBy(s), nil
	case "":
		return RankByProfit, nil
	default:
		return "", fmt.Errorf("unknown rank key %q", s)
	}
}

// TokenTotal is the profit realized in one anchor token across all traders.
type TokenTotal struct {
	Mint   string
	Profit decimal.Decimal
	Count  int
	Value  decimal.Decimal
}

// AggregatorState holds the running totals of a scan. It has a single writer.
// The final state does not depend on the order records were added in.
type AggregatorState struct {
	prices  PriceTable
	traders map[string]*domain.TraderStats
	tokens  map[string]*TokenTotal
	count   int
	value   decimal.Decimal
	biggest *domain.ArbitrageRecord
}

// NewAggregatorState creates an empty state. A nil price table values nothing.
func NewAggregatorState(prices PriceTable) *AggregatorState {
	if prices == nil {
		prices = PriceTable{}
	}
	return &AggregatorState{
		prices:  prices,
		traders: make(map[string]*domain.TraderStats),
		tokens:  make(map[string]*TokenTotal),
	}
}

// Add folds one record into the totals.
func (s *AggregatorState) Add(rec domain.ArbitrageRecord) {
	value := s.prices.Value(rec)

	st, ok := s.traders[rec.Trader]
	if !ok {
		st = domain.NewTraderStats(rec.Trader)
		s.traders[rec.Trader] = st
	}
	st.TotalProfit = st.TotalProfit.Add(rec.Profit)
	st.ArbitrageCount++
	st.ProfitByToken[rec.Token] = st.ProfitByToken[rec.Token].Add(rec.Profit)
	st.Value = st.Value.Add(value)
	for _, t := range rec.InvolvedTokens {
		st.TokensUsed[t] = struct{}{}
	}

	tt, ok := s.tokens[rec.Token]
	if !ok {
		tt = &TokenTotal{Mint: rec.Token}
		s.tokens[rec.Token] = tt
	}
	tt.Profit = tt.Profit.Add(rec.Profit)
	tt.Count++
	tt.Value = tt.Value.Add(value)

	s.count++
	s.value = s.value.Add(value)

	if s.biggest == nil || s.biggerThan(rec, *s.biggest) {
		r := rec
		s.biggest = &r
	}
}

// AddAll folds records in order.
func (s *AggregatorState) AddAll(recs []domain.ArbitrageRecord) {
	for _, r := range recs {
		s.Add(r)
	}
}

// biggerThan orders records by value, profit, then position for a stable pick.
// Cycles of one trader in one transaction fall back to token and record id.
func (s *AggregatorState) biggerThan(a, b domain.ArbitrageRecord) bool {
	if c := s.prices.Value(a).Cmp(s.prices.Value(b)); c != 0 {
		return c > 0
	}
	if c := a.Profit.Cmp(b.Profit); c != 0 {
		return c > 0
	}
	if a.Slot != b.Slot {
		return a.Slot < b.Slot
	}
	if a.TransactionID != b.TransactionID {
		return a.TransactionID < b.TransactionID
	}
	if a.Trader != b.Trader {
		return a.Trader < b.Trader
	}
	if a.Token != b.Token {
		return a.Token < b.Token
	}
	return a.RecordID < b.RecordID
}

// TotalArbitrageCount returns the number of records added.
func (s *AggregatorState) TotalArbitrageCount() int {
	return s.count
}

// TraderCount returns the number of distinct traders.
func (s *AggregatorState) TraderCount() int {
	return len(s.traders)
}

// TotalValue returns the USD value of all priced profits.
func (s *AggregatorState) TotalValue() decimal.Decimal {
	return s.value
}

// AverageValue returns TotalValue divided by the record count.
func (s *AggregatorState) AverageValue() decimal.Decimal {
	if s.count == 0 {
		return decimal.Zero
	}
	return s.value.Div(decimal.NewFromInt(int64(s.count)))
}

// Biggest returns the single most valuable record, or nil.
func (s *AggregatorState) Biggest() *domain.ArbitrageRecord {
	if s.biggest == nil {
		return nil
	}
	r := *s.biggest
	return &r
}

// TotalProfitByToken returns a copy of anchor mint -> summed profit.
func (s *AggregatorState) TotalProfitByToken() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(s.tokens))
	for mint, tt := range s.tokens {
		out[mint] = tt.Profit
	}
	return out
}

// TokenTotals returns per-token totals sorted by mint.
func (s *AggregatorState) TokenTotals() []TokenTotal {
	out := make([]TokenTotal, 0, len(s.tokens))
	for _, tt := range s.tokens {
		out = append(out, *tt)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Mint < out[j].Mint
	})
	return out
}

// Trader returns a copy of one trader's stats.
func (s *AggregatorState) Trader(account string) (*domain.TraderStats, bool) {
	st, ok := s.traders[account]
	if !ok {
		return nil, false
	}
	return st.Clone(), true
}

// Ranking returns up to n traders ordered by key. Ties on profit go to the
// higher arbitrage count, then the lexicographically smaller account.
func (s *AggregatorState) Ranking(n int, key RankBy) ([]domain.RankedTrader, error) {
	if n < 1 {
		return nil, ErrInvalidTopN
	}

	all := make([]*domain.TraderStats, 0, len(s.traders))
	for _, st := range s.traders {
		all = append(all, st)
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if key == RankByValue {
			if c := a.Value.Cmp(b.Value); c != 0 {
				return c > 0
			}
		}
		if c := a.TotalProfit.Cmp(b.TotalProfit); c != 0 {
			return c > 0
		}
		if a.ArbitrageCount != b.ArbitrageCount {
			return a.ArbitrageCount > b.ArbitrageCount
		}
		return a.Trader < b.Trader
	})

	if len(all) > n {
		all = all[:n]
	}

	ranked := make([]domain.RankedTrader, len(all))
	for i, st := range all {
		ranked[i] = domain.RankedTrader{Rank: i + 1, Stats: st.Clone()}
	}
	return ranked, nil
}
