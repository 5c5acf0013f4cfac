package reporting

import (
	"github.com/shopspring/decimal"

	"solana-atomic-arb/internal/domain"
)

// shortAccount abbreviates a base58 address for tables.
func shortAccount(a string) string {
	if len(a) <= 12 {
		return a
	}
	return a[:5] + "..." + a[len(a)-4:]
}

func usd(v decimal.Decimal) string {
	return "$" + v.StringFixed(2)
}

// scaledProfit renders a record's profit in whole tokens when decimals are
// known, otherwise in base units.
func scaledProfit(r *domain.ArbitrageRecord) string {
	if r.Decimals == 0 {
		return r.Profit.String() + " (base units)"
	}
	return r.ScaledProfit().String()
}
