package ingestion

import (
	"fmt"

	"github.com/shopspring/decimal"

	"solana-atomic-arb/internal/domain"
	"solana-atomic-arb/internal/solana"
)

// tokenAccount is what token balances reveal about a token account.
type tokenAccount struct {
	Owner    string
	Mint     string
	Decimals uint8
}

// tokenAccounts indexes token accounts by address. Post balances win so
// accounts created inside the transaction resolve; accounts closed inside it
// only appear in pre balances.
func tokenAccounts(tx *solana.BlockTransaction) map[string]tokenAccount {
	out := make(map[string]tokenAccount, len(tx.PostTokenBalances))
	add := func(balances []solana.TokenBalance) {
		for _, b := range balances {
			if b.AccountIndex < 0 || b.AccountIndex >= len(tx.AccountKeys) {
				continue
			}
			out[tx.AccountKeys[b.AccountIndex]] = tokenAccount{
				Owner:    b.Owner,
				Mint:     b.Mint,
				Decimals: b.Decimals,
			}
		}
	}
	add(tx.PreTokenBalances)
	add(tx.PostTokenBalances)
	return out
}

// extractor turns the token transfers of one transaction into owner
// perspective TransferEvents.
type extractor struct {
	excludeProgramOwned bool

	tx       *solana.BlockTransaction
	accounts map[string]tokenAccount
	decimals map[string]uint8
	events   []domain.TransferEvent
	dropped  int
}

// extractTransfers walks top-level instructions and their inner instructions
// in execution order. Each transfer yields a sender event (negative) and a
// receiver event (positive).
func extractTransfers(tx *solana.BlockTransaction, excludeProgramOwned bool) ([]domain.TransferEvent, map[string]uint8, int) {
	x := &extractor{
		excludeProgramOwned: excludeProgramOwned,
		tx:                  tx,
		accounts:            tokenAccounts(tx),
		decimals:            make(map[string]uint8),
	}
	for _, acct := range x.accounts {
		if acct.Mint != "" {
			x.decimals[acct.Mint] = acct.Decimals
		}
	}

	inner := make(map[int][]solana.Instruction, len(tx.InnerInstructions))
	for _, group := range tx.InnerInstructions {
		inner[group.Index] = append(inner[group.Index], group.Instructions...)
	}

	for i, ix := range tx.Instructions {
		pos := 0
		if ix.Transfer != nil {
			x.add(ix.Transfer, i, pos)
			pos++
		}
		for _, in := range inner[i] {
			if in.Transfer != nil {
				x.add(in.Transfer, i, pos)
				pos++
			}
		}
	}

	return x.events, x.decimals, x.dropped
}

func (x *extractor) add(t *solana.TokenTransfer, ixIndex, innerIndex int) {
	amount, err := decimal.NewFromString(t.Amount)
	if err != nil || !amount.IsPositive() {
		x.dropped++
		return
	}

	src, srcKnown := x.accounts[t.Source]
	dst, dstKnown := x.accounts[t.Destination]

	mint := t.Mint
	if mint == "" {
		switch {
		case srcKnown && src.Mint != "":
			mint = src.Mint
		case dstKnown && dst.Mint != "":
			mint = dst.Mint
		}
	}
	if mint == "" {
		x.dropped++
		return
	}
	if t.Decimals != nil {
		x.decimals[mint] = *t.Decimals
	}

	from := src.Owner
	if from == "" {
		from = t.Authority
	}
	to := dst.Owner
	if to == "" {
		to = t.Destination
	}
	if from == to {
		return
	}

	base := domain.TransferEvent{
		From:             from,
		To:               to,
		Mint:             mint,
		TransactionID:    x.tx.Signature,
		InstructionIndex: ixIndex,
		InnerIndex:       innerIndex,
	}

	if x.keep(from) {
		out := base
		out.Amount = amount.Neg()
		x.events = append(x.events, out)
	}
	if x.keep(to) {
		in := base
		in.Amount = amount
		x.events = append(x.events, in)
	}
}

// keep reports whether events from the perspective of owner are emitted.
func (x *extractor) keep(owner string) bool {
	switch classifyAddress(owner) {
	case addressInvalid:
		return false
	case addressProgram:
		return !x.excludeProgramOwned
	default:
		return true
	}
}

// convertTransaction builds the analyzable form of a successful transaction.
func convertTransaction(tx *solana.BlockTransaction, position int, excludeProgramOwned bool) (domain.Transaction, int, error) {
	if tx.Signature == "" {
		return domain.Transaction{}, 0, fmt.Errorf("transaction %d has no signature", position)
	}
	events, decimals, dropped := extractTransfers(tx, excludeProgramOwned)
	out := domain.Transaction{
		Signature: tx.Signature,
		Position:  position,
		Decimals:  decimals,
		Events:    events,
	}
	if len(tx.AccountKeys) > 0 {
		out.Signer = tx.AccountKeys[0]
	}
	return out, dropped, nil
}
