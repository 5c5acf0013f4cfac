package detect

import (
	"fmt"

	"solana-atomic-arb/internal/domain"
)

// MinPathEdges is the shortest path that can close a cycle.
const MinPathEdges = 2

// BuildSwapPaths groups the transfer events of one transaction by the account
// whose balance changed and turns each account's legs into contiguous swap
// paths.
//
// Zero-amount events are dropped. Legs are paired in event order: an outgoing
// and an incoming leg of the same instruction group form one SwapEdge, in
// either order. A pair moving the same mint both ways is a plain transfer and
// yields no edge. Accounts that only send or only receive are not traders and
// are ignored. Paths are split wherever Edges[i].TokenIn != Edges[i-1].TokenOut
// and segments shorter than MinPathEdges are dropped.
//
// Paths are returned in order of each trader's first event, segments in
// instruction order.
func BuildSwapPaths(txID string, events []domain.TransferEvent) ([]domain.TraderSwapPath, error) {
	var order []string
	legs := make(map[string][]domain.TransferEvent)

	for _, ev := range events {
		if ev.Amount.IsZero() {
			continue
		}
		acct := ev.Account()
		if acct == "" {
			continue
		}
		if _, ok := legs[acct]; !ok {
			order = append(order, acct)
		}
		legs[acct] = append(legs[acct], ev)
	}

	var paths []domain.TraderSwapPath
	for _, acct := range order {
		accountLegs := legs[acct]
		if !hasBothDirections(accountLegs) {
			continue
		}

		edges, err := pairLegs(accountLegs)
		if err != nil {
			return nil, &MalformedTransactionError{
				TransactionID: txID,
				Account:       acct,
				Reason:        err.Error(),
			}
		}

		for _, seg := range segment(edges) {
			if len(seg) < MinPathEdges {
				continue
			}
			paths = append(paths, domain.TraderSwapPath{
				Trader:        acct,
				TransactionID: txID,
				Edges:         seg,
			})
		}
	}

	return paths, nil
}

func hasBothDirections(legs []domain.TransferEvent) bool {
	var in, out bool
	for _, l := range legs {
		if l.IsOutgoing() {
			out = true
		} else {
			in = true
		}
	}
	return in && out
}

func pairLegs(legs []domain.TransferEvent) ([]domain.SwapEdge, error) {
	var edges []domain.SwapEdge

	for i := 0; i < len(legs); i += 2 {
		a := legs[i]
		if i+1 >= len(legs) {
			return nil, fmt.Errorf("unmatched %s leg of %s in instruction %d", direction(a), a.Mint, a.InstructionIndex)
		}
		b := legs[i+1]

		if a.InstructionIndex != b.InstructionIndex || a.IsOutgoing() == b.IsOutgoing() {
			return nil, fmt.Errorf("unmatched %s leg of %s in instruction %d", direction(a), a.Mint, a.InstructionIndex)
		}

		out, in := a, b
		if !a.IsOutgoing() {
			out, in = b, a
		}
		if out.Mint == in.Mint {
			continue
		}

		edges = append(edges, domain.SwapEdge{
			TokenIn:          out.Mint,
			TokenOut:         in.Mint,
			AmountIn:         out.Amount.Neg(),
			AmountOut:        in.Amount,
			InstructionIndex: out.InstructionIndex,
			Ordinal:          len(edges),
		})
	}

	return edges, nil
}

func direction(ev domain.TransferEvent) string {
	if ev.IsOutgoing() {
		return "outgoing"
	}
	return "incoming"
}

// segment splits edges into maximal contiguous runs.
func segment(edges []domain.SwapEdge) [][]domain.SwapEdge {
	if len(edges) == 0 {
		return nil
	}

	var segs [][]domain.SwapEdge
	start := 0
	for i := 1; i < len(edges); i++ {
		if edges[i].TokenIn != edges[i-1].TokenOut {
			segs = append(segs, edges[start:i])
			start = i
		}
	}
	return append(segs, edges[start:])
}
