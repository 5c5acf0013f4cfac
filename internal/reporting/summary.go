package reporting

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	warning   = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#F59E0B"}

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(highlight)

	labelStyle = lipgloss.NewStyle().
			Foreground(subtle)

	warnStyle = lipgloss.NewStyle().
			Foreground(warning)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlight).
			Padding(0, 1)
)

// RenderSummary renders the terminal summary printed at the end of a scan.
func RenderSummary(r *Report) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("Slots %d - %d", r.BeginSlot, r.EndSlot)))
	sb.WriteString("\n")
	line := func(label, value string) {
		sb.WriteString(labelStyle.Render(label))
		sb.WriteString(" ")
		sb.WriteString(value)
		sb.WriteString("\n")
	}
	line("slots processed:", fmt.Sprintf("%d (%d absent)", r.Counters.SlotsProcessed, r.Counters.SlotsAbsent))
	line("transactions:", fmt.Sprintf("%d", r.Counters.TransactionsAnalyzed))

	if r.Totals.ArbitrageCount == 0 {
		line("arbitrages:", "none")
	} else {
		line("arbitrages:", fmt.Sprintf("Total %d transactions made %s, an average of %s",
			r.Totals.ArbitrageCount, usd(r.Totals.TotalValue), usd(r.Totals.AverageValue)))
	}
	if b := r.Totals.Biggest; b != nil {
		line("biggest:", fmt.Sprintf("%s made %s in transaction %s with %s of %s",
			b.Trader, usd(r.Totals.BiggestValue), b.TransactionID, scaledProfit(b), b.Token))
	}

	if len(r.TopTraders) > 0 {
		sb.WriteString("\n")
		sb.WriteString(titleStyle.Render(fmt.Sprintf("Top %d traders", r.TopN)))
		sb.WriteString("\n")
		for _, t := range r.TopTraders {
			sb.WriteString(fmt.Sprintf("%2d. %s  profit %s  count %d  value %s\n",
				t.Rank, shortAccount(t.Trader), t.TotalProfit.String(), t.ArbitrageCount, usd(t.Value)))
		}
	}

	if r.Counters.TransactionsSkipped > 0 {
		sb.WriteString("\n")
		sb.WriteString(warnStyle.Render(skippedLine(r.Counters.TransactionsSkipped)))
		sb.WriteString("\n")
	}

	return boxStyle.Render(strings.TrimRight(sb.String(), "\n"))
}
