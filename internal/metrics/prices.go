package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"solana-atomic-arb/internal/domain"
)

// Well-known mints.
const (
	MintWSOL = "So11111111111111111111111111111111111111112"
	MintUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	MintUSDT = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// Price is the USD value of one whole token.
type Price struct {
	USD      decimal.Decimal
	Decimals uint8
}

// PriceTable values profits of known mints. Unknown mints are worth zero.
type PriceTable map[string]Price

// DefaultPrices returns the built-in price table.
func DefaultPrices() PriceTable {
	return PriceTable{
		MintWSOL: {USD: decimal.NewFromInt(200), Decimals: 9},
		MintUSDC: {USD: decimal.NewFromInt(1), Decimals: 6},
		MintUSDT: {USD: decimal.NewFromInt(1), Decimals: 6},
	}
}

// ParsePrices builds a price table from mint -> "usd" or "usd:decimals"
// strings, on top of the defaults. Decimals may be omitted only for mints
// already in the defaults.
func ParsePrices(raw map[string]string) (PriceTable, error) {
	table := DefaultPrices()
	mints := make([]string, 0, len(raw))
	for m := range raw {
		mints = append(mints, m)
	}
	sort.Strings(mints)

	for _, mint := range mints {
		usd, dec, hasDecimals := strings.Cut(strings.TrimSpace(raw[mint]), ":")

		price, err := decimal.NewFromString(usd)
		if err != nil {
			return nil, fmt.Errorf("price for %s: %w", mint, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("price for %s: negative price %s", mint, usd)
		}

		var decimals uint8
		switch {
		case hasDecimals:
			n, err := strconv.ParseUint(dec, 10, 8)
			if err != nil {
				return nil, fmt.Errorf("decimals for %s: %w", mint, err)
			}
			decimals = uint8(n)
		case table.Known(mint):
			decimals = table[mint].Decimals
		default:
			return nil, fmt.Errorf("price for %s: want \"usd:decimals\", got %q", mint, raw[mint])
		}

		table[mint] = Price{USD: price, Decimals: decimals}
	}
	return table, nil
}

// Known reports whether mint has a price.
func (p PriceTable) Known(mint string) bool {
	_, ok := p[mint]
	return ok
}

// Value returns the USD value of rec's profit, or zero for unpriced tokens.
func (p PriceTable) Value(rec domain.ArbitrageRecord) decimal.Decimal {
	price, ok := p[rec.Token]
	if !ok {
		return decimal.Zero
	}
	return rec.Profit.Shift(-int32(price.Decimals)).Mul(price.USD)
}
