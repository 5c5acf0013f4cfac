package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Atomic Arbitrage Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Slots: %d - %d | Ranked by: %s\n\n", r.BeginSlot, r.EndSlot, r.RankBy))

	// Run
	sb.WriteString("## Run\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Slots Processed | %d |\n", r.Counters.SlotsProcessed))
	sb.WriteString(fmt.Sprintf("| Slots Absent | %d |\n", r.Counters.SlotsAbsent))
	sb.WriteString(fmt.Sprintf("| Transactions Analyzed | %d |\n", r.Counters.TransactionsAnalyzed))
	sb.WriteString(fmt.Sprintf("| Transactions Skipped | %d |\n", r.Counters.TransactionsSkipped))
	sb.WriteString(fmt.Sprintf("| Arbitrages | %d |\n", r.Totals.ArbitrageCount))
	sb.WriteString(fmt.Sprintf("| Traders | %d |\n", r.Totals.TraderCount))
	sb.WriteString(fmt.Sprintf("| Total Value | %s |\n", usd(r.Totals.TotalValue)))
	sb.WriteString(fmt.Sprintf("| Average Value | %s |\n", usd(r.Totals.AverageValue)))
	sb.WriteString("\n")

	if r.Counters.TransactionsSkipped > 0 {
		sb.WriteString(fmt.Sprintf("%s\n\n", skippedLine(r.Counters.TransactionsSkipped)))
	}

	// Biggest
	if b := r.Totals.Biggest; b != nil {
		sb.WriteString("## Biggest Arbitrage\n\n")
		sb.WriteString(fmt.Sprintf("- Signature: `%s`\n", b.TransactionID))
		sb.WriteString(fmt.Sprintf("- Trader: `%s`\n", b.Trader))
		sb.WriteString(fmt.Sprintf("- Slot: %d\n", b.Slot))
		sb.WriteString(fmt.Sprintf("- Profit: %s of `%s`\n", scaledProfit(b), b.Token))
		sb.WriteString(fmt.Sprintf("- Value: %s\n", usd(r.Totals.BiggestValue)))
		sb.WriteString("\n")
	}

	// Tokens
	sb.WriteString("## Profit by Token\n\n")
	if len(r.TokenTotals) > 0 {
		sb.WriteString("| Token | Arbitrages | Profit (base units) | Value |\n")
		sb.WriteString("|-------|------------|---------------------|-------|\n")
		for _, t := range r.TokenTotals {
			sb.WriteString(fmt.Sprintf("| `%s` | %d | %s | %s |\n",
				t.Mint, t.Count, t.Profit.String(), usd(t.Value)))
		}
	} else {
		sb.WriteString("No arbitrage detected.\n")
	}
	sb.WriteString("\n")

	// Leaderboard
	sb.WriteString(fmt.Sprintf("## Top %d Traders\n\n", r.TopN))
	if len(r.TopTraders) > 0 {
		sb.WriteString("| Rank | Trader | Arbitrages | Total Profit (base units) | Value | Tokens |\n")
		sb.WriteString("|------|--------|------------|---------------------------|-------|--------|\n")
		for _, t := range r.TopTraders {
			sb.WriteString(fmt.Sprintf("| %d | `%s` | %d | %s | %s | %d |\n",
				t.Rank, t.Trader, t.ArbitrageCount, t.TotalProfit.String(), usd(t.Value), len(t.Tokens)))
		}
	} else {
		sb.WriteString("No traders.\n")
	}

	return sb.String()
}

func skippedLine(n int) string {
	return fmt.Sprintf("%d transactions skipped due to malformed data", n)
}
