package reporting

import (
	"fmt"
	"time"

	"solana-atomic-arb/internal/metrics"
	"solana-atomic-arb/internal/scan"
)

// Generator builds reports from aggregated run state.
type Generator struct {
	aggregator *metrics.AggregatorState
	prices     metrics.PriceTable
	topN       int
	rankBy     metrics.RankBy
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator. prices is used only to value the
// biggest arbitrage and may be nil.
func NewGenerator(agg *metrics.AggregatorState, prices metrics.PriceTable, topN int, rankBy metrics.RankBy) *Generator {
	if rankBy == "" {
		rankBy = metrics.RankByProfit
	}
	return &Generator{
		aggregator: agg,
		prices:     prices,
		topN:       topN,
		rankBy:     rankBy,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces the report for a processed range.
func (g *Generator) Generate(result *scan.Result) (*Report, error) {
	if result == nil {
		return nil, fmt.Errorf("generate report: nil result")
	}

	ranked, err := g.aggregator.Ranking(g.topN, g.rankBy)
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}

	r := &Report{
		GeneratedAt: g.now(),
		BeginSlot:   result.BeginSlot,
		EndSlot:     result.EndSlot,
		RankBy:      g.rankBy,
		TopN:        g.topN,
		Counters: RunCounters{
			SlotsProcessed:       result.SlotsProcessed,
			SlotsAbsent:          result.SlotsAbsent,
			TransactionsAnalyzed: result.TransactionsAnalyzed,
			TransactionsSkipped:  result.TransactionsSkipped,
			LastSlot:             result.LastSlot,
		},
		Totals: Totals{
			ArbitrageCount: g.aggregator.TotalArbitrageCount(),
			TraderCount:    g.aggregator.TraderCount(),
			TotalValue:     g.aggregator.TotalValue(),
			AverageValue:   g.aggregator.AverageValue(),
			Biggest:        g.aggregator.Biggest(),
		},
	}
	if r.Totals.Biggest != nil {
		r.Totals.BiggestValue = g.prices.Value(*r.Totals.Biggest)
	}

	for _, tt := range g.aggregator.TokenTotals() {
		r.TokenTotals = append(r.TokenTotals, TokenRow{
			Mint:   tt.Mint,
			Profit: tt.Profit,
			Count:  tt.Count,
			Value:  tt.Value,
		})
	}

	for _, rt := range ranked {
		r.TopTraders = append(r.TopTraders, TraderRow{
			Rank:           rt.Rank,
			Trader:         rt.Stats.Trader,
			TotalProfit:    rt.Stats.TotalProfit,
			ArbitrageCount: rt.Stats.ArbitrageCount,
			Tokens:         rt.Stats.Tokens(),
			Value:          rt.Stats.Value,
		})
	}

	return r, nil
}
