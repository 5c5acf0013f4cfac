package detect

import (
	"fmt"

	"solana-atomic-arb/internal/domain"
	"solana-atomic-arb/internal/idhash"
)

// DetectCycle tests whether path returns to the token it started with and,
// if it does with a gain, returns the arbitrage record.
//
// The cycle closes at the last edge whose TokenOut equals Edges[0].TokenIn,
// so a path touching the anchor several times yields its longest closing
// cycle. Profit is that edge's AmountOut minus Edges[0].AmountIn. A nil record
// is returned for open paths, paths shorter than MinPathEdges and cycles
// without a gain.
//
// Slot, BlockTime, TxPosition and Decimals are left for the caller.
func DetectCycle(path domain.TraderSwapPath) (*domain.ArbitrageRecord, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	if len(path.Edges) < MinPathEdges {
		return nil, nil
	}

	first := path.Edges[0]
	anchor := first.TokenIn

	closing := -1
	for k := len(path.Edges) - 1; k >= 1; k-- {
		if path.Edges[k].TokenOut == anchor {
			closing = k
			break
		}
	}
	if closing < 0 {
		return nil, nil
	}

	profit := path.Edges[closing].AmountOut.Sub(first.AmountIn)
	if !profit.IsPositive() {
		return nil, nil
	}

	involved := make([]string, 0, closing+2)
	involved = append(involved, anchor)
	for _, e := range path.Edges[:closing+1] {
		involved = append(involved, e.TokenOut)
	}

	return &domain.ArbitrageRecord{
		RecordID:         idhash.ComputeRecordID(path.TransactionID, path.Trader, anchor, first.InstructionIndex, first.Ordinal),
		TransactionID:    path.TransactionID,
		InstructionIndex: first.InstructionIndex,
		Trader:           path.Trader,
		Token:            anchor,
		Profit:           profit,
		PathLength:       closing + 1,
		InvolvedTokens:   involved,
	}, nil
}

func validatePath(path domain.TraderSwapPath) error {
	for i, e := range path.Edges {
		if !e.AmountIn.IsPositive() || !e.AmountOut.IsPositive() {
			return fmt.Errorf("%w: tx %s trader %s edge %d amounts %s -> %s",
				ErrInvalidEdge, path.TransactionID, path.Trader, i, e.AmountIn, e.AmountOut)
		}
		if e.TokenIn == e.TokenOut {
			return fmt.Errorf("%w: tx %s trader %s edge %d swaps %s for itself",
				ErrInvalidEdge, path.TransactionID, path.Trader, i, e.TokenIn)
		}
		if i > 0 && e.TokenIn != path.Edges[i-1].TokenOut {
			return fmt.Errorf("%w: tx %s trader %s edge %d takes %s after receiving %s",
				ErrBrokenContiguity, path.TransactionID, path.Trader, i, e.TokenIn, path.Edges[i-1].TokenOut)
		}
	}
	return nil
}
