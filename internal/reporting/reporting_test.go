package reporting

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"solana-atomic-arb/internal/domain"
	"solana-atomic-arb/internal/metrics"
	"solana-atomic-arb/internal/scan"
)

const (
	wsol = "So11111111111111111111111111111111111111112"
	usdc = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func record(slot uint64, sig, trader, token string, profit int64, path ...string) domain.ArbitrageRecord {
	return domain.ArbitrageRecord{
		RecordID:       sig + trader,
		Slot:           slot,
		TransactionID:  sig,
		Trader:         trader,
		Token:          token,
		Profit:         decimal.NewFromInt(profit),
		Decimals:       9,
		PathLength:     len(path) - 1,
		InvolvedTokens: path,
	}
}

func testRecords() []domain.ArbitrageRecord {
	return []domain.ArbitrageRecord{
		record(100, "sig1", "traderA", wsol, 2_000_000_000, wsol, usdc, wsol),
		record(101, "sig2", "traderB", usdc, 5_000_000, usdc, wsol, usdc),
		record(101, "sig3", "traderA", wsol, 500_000_000, wsol, usdc, wsol),
	}
}

func testReport(t *testing.T, skipped int) *Report {
	t.Helper()
	prices := metrics.DefaultPrices()
	agg := metrics.NewAggregatorState(prices)
	agg.AddAll(testRecords())

	fixed := time.Date(2024, 11, 20, 8, 0, 0, 0, time.UTC)
	r, err := NewGenerator(agg, prices, 10, metrics.RankByProfit).
		WithClock(func() time.Time { return fixed }).
		Generate(&scan.Result{
			BeginSlot: 100,
			EndSlot:   102,
			Counters: scan.Counters{
				SlotsProcessed:       2,
				SlotsAbsent:          1,
				TransactionsAnalyzed: 7,
				TransactionsSkipped:  skipped,
				LastSlot:             102,
			},
		})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return r
}

func TestCSVWriter_HeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf)
	recs := testRecords()

	if err := w.Write(context.Background(), recs[:1]); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Write(context.Background(), recs[1:]); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected 4 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "slot,signature,trader,token,profit,path_length,involved_tokens" {
		t.Errorf("Unexpected header: %s", lines[0])
	}
	want := "100,sig1,traderA," + wsol + ",2000000000,2," + wsol + "|" + usdc + "|" + wsol
	if lines[1] != want {
		t.Errorf("Row mismatch:\ngot  %s\nwant %s", lines[1], want)
	}
	if w.Rows() != 3 {
		t.Errorf("Expected 3 rows, got %d", w.Rows())
	}
}

func TestCSVWriter_EmptyRunWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf)
	if err := w.Write(context.Background(), nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if buf.String() != strings.Join(CSVHeader, ",")+"\n" {
		t.Errorf("Expected only the header, got %q", buf.String())
	}
}

func TestRenderCSV_Deterministic(t *testing.T) {
	first := RenderCSV(testRecords())
	for i := 0; i < 5; i++ {
		if got := RenderCSV(testRecords()); got != first {
			t.Fatalf("Run %d: output differs", i)
		}
	}
}

func TestGenerate(t *testing.T) {
	r := testReport(t, 0)

	if !r.GeneratedAt.Equal(time.Date(2024, 11, 20, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected GeneratedAt %v", r.GeneratedAt)
	}
	if r.Totals.ArbitrageCount != 3 || r.Totals.TraderCount != 2 {
		t.Errorf("Unexpected totals: %+v", r.Totals)
	}
	if len(r.TopTraders) != 2 {
		t.Fatalf("Expected 2 traders, got %d", len(r.TopTraders))
	}
	top := r.TopTraders[0]
	if top.Rank != 1 || top.Trader != "traderA" || top.ArbitrageCount != 2 {
		t.Errorf("Unexpected top trader: %+v", top)
	}
	if top.TotalProfit.String() != "2500000000" {
		t.Errorf("Expected profit 2500000000, got %s", top.TotalProfit)
	}
	// 2.5 SOL at $200
	if !top.Value.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected value 500, got %s", top.Value)
	}
	if r.Totals.Biggest == nil || r.Totals.Biggest.TransactionID != "sig1" {
		t.Errorf("Expected sig1 as biggest, got %+v", r.Totals.Biggest)
	}
	if !r.Totals.BiggestValue.Equal(decimal.NewFromInt(400)) {
		t.Errorf("Expected biggest value 400, got %s", r.Totals.BiggestValue)
	}
	if len(r.TokenTotals) != 2 || r.TokenTotals[0].Mint != usdc {
		t.Errorf("Expected token totals sorted by mint, got %+v", r.TokenTotals)
	}
}

func TestGenerate_InvalidTopN(t *testing.T) {
	agg := metrics.NewAggregatorState(nil)
	if _, err := NewGenerator(agg, nil, 0, "").Generate(&scan.Result{}); err == nil {
		t.Fatal("Expected error for top n 0")
	}
}

func TestRenderMarkdown_Format(t *testing.T) {
	md := RenderMarkdown(testReport(t, 2))

	for _, section := range []string{
		"# Atomic Arbitrage Report",
		"Generated: 2024-11-20T08:00:00Z",
		"## Run",
		"## Biggest Arbitrage",
		"## Profit by Token",
		"## Top 10 Traders",
		"| 1 | `traderA` | 2 | 2500000000 | $500.00 | 2 |",
		"2 transactions skipped due to malformed data",
	} {
		if !strings.Contains(md, section) {
			t.Errorf("Missing %q in markdown:\n%s", section, md)
		}
	}
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(testReport(t, 3))

	for _, want := range []string{
		"Slots 100 - 102",
		"Total 3 transactions made",
		"Top 10 traders",
		"3 transactions skipped due to malformed data",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Missing %q in summary:\n%s", want, out)
		}
	}
}

func TestRenderSummary_NoSkipped(t *testing.T) {
	out := RenderSummary(testReport(t, 0))
	if strings.Contains(out, "skipped due to malformed data") {
		t.Errorf("Unexpected skipped line:\n%s", out)
	}
}
