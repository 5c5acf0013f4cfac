package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-atomic-arb/internal/domain"
	"solana-atomic-arb/internal/solana"
)

type swapFixture struct {
	trader, pool     string
	mintA, mintB     string
	traderA, traderB string
	poolA, poolB     string
	tx               solana.BlockTransaction
}

// newSwapFixture builds a router instruction swapping 100 A for 90 B and
// 90 B back for 105 A through one pool.
func newSwapFixture(t *testing.T) *swapFixture {
	f := &swapFixture{
		trader:  walletKey(t, 1),
		pool:    programKey(t, 2),
		mintA:   walletKey(t, 10),
		mintB:   walletKey(t, 11),
		traderA: walletKey(t, 20),
		traderB: walletKey(t, 21),
		poolA:   walletKey(t, 22),
		poolB:   walletKey(t, 23),
	}
	keys := []string{f.trader, f.traderA, f.traderB, f.poolA, f.poolB}
	owners := map[string][2]string{
		f.traderA: {f.trader, f.mintA},
		f.traderB: {f.trader, f.mintB},
		f.poolA:   {f.pool, f.mintA},
		f.poolB:   {f.pool, f.mintB},
	}
	f.tx = solana.BlockTransaction{
		Signature:   "sig1",
		AccountKeys: keys,
		Instructions: []solana.Instruction{
			{ProgramID: "ComputeBudget111111111111111111111111111111"},
			{ProgramID: "Router"},
		},
		InnerInstructions: []solana.InnerInstructions{{
			Index: 1,
			Instructions: []solana.Instruction{
				transfer(f.traderA, f.poolA, f.trader, "100"),
				transfer(f.poolB, f.traderB, f.pool, "90"),
				transfer(f.traderB, f.poolB, f.trader, "90"),
				transfer(f.poolA, f.traderA, f.pool, "105"),
			},
		}},
		PreTokenBalances:  balances(keys, owners, 6),
		PostTokenBalances: balances(keys, owners, 6),
	}
	return f
}

func TestExtractTransfers_OwnerPerspective(t *testing.T) {
	f := newSwapFixture(t)

	events, decimals, dropped := extractTransfers(&f.tx, true)
	require.Len(t, events, 4)
	assert.Zero(t, dropped)
	assert.Equal(t, uint8(6), decimals[f.mintA])

	wantAmounts := []string{"-100", "90", "-90", "105"}
	wantMints := []string{f.mintA, f.mintB, f.mintB, f.mintA}
	for i, ev := range events {
		assert.Equal(t, f.trader, ev.Account(), "event %d", i)
		assert.Equal(t, wantAmounts[i], ev.Amount.String(), "event %d", i)
		assert.Equal(t, wantMints[i], ev.Mint, "event %d", i)
		assert.Equal(t, 1, ev.InstructionIndex)
		assert.Equal(t, i, ev.InnerIndex)
		assert.Equal(t, "sig1", ev.TransactionID)
	}
}

func TestExtractTransfers_IncludeProgramOwned(t *testing.T) {
	f := newSwapFixture(t)

	events, _, _ := extractTransfers(&f.tx, false)
	require.Len(t, events, 8)

	// sender perspective first, receiver second
	assert.Equal(t, f.trader, events[0].Account())
	assert.True(t, events[0].IsOutgoing())
	assert.Equal(t, f.pool, events[1].Account())
	assert.False(t, events[1].IsOutgoing())
}

func TestExtractTransfers_OwnerFallbacks(t *testing.T) {
	trader := walletKey(t, 1)
	src := walletKey(t, 3)
	dst := walletKey(t, 4)
	mint := walletKey(t, 5)

	tx := solana.BlockTransaction{
		Signature:    "sig",
		AccountKeys:  []string{trader, src, dst},
		Instructions: []solana.Instruction{transferChecked(src, dst, trader, mint, "7", 9)},
	}

	events, decimals, _ := extractTransfers(&tx, true)
	require.Len(t, events, 2)
	assert.Equal(t, trader, events[0].From, "source falls back to authority")
	assert.Equal(t, dst, events[1].To, "destination falls back to token account")
	assert.Equal(t, uint8(9), decimals[mint])
}

func TestExtractTransfers_Dropped(t *testing.T) {
	trader := walletKey(t, 1)
	src := walletKey(t, 3)
	dst := walletKey(t, 4)

	tx := solana.BlockTransaction{
		Signature:   "sig",
		AccountKeys: []string{trader, src, dst},
		Instructions: []solana.Instruction{
			transfer(src, dst, trader, "5"),       // mint unknown
			transfer(src, dst, trader, "garbage"), // bad amount
			transfer(src, dst, trader, "0"),       // zero amount
			{ProgramID: solana.TokenProgramID},    // not a transfer
		},
	}

	events, _, dropped := extractTransfers(&tx, true)
	assert.Empty(t, events)
	assert.Equal(t, 3, dropped)
}

func TestExtractTransfers_SelfTransferSkipped(t *testing.T) {
	trader := walletKey(t, 1)
	a := walletKey(t, 3)
	b := walletKey(t, 4)
	mint := walletKey(t, 5)
	keys := []string{trader, a, b}
	owners := map[string][2]string{a: {trader, mint}, b: {trader, mint}}

	tx := solana.BlockTransaction{
		Signature:         "sig",
		AccountKeys:       keys,
		Instructions:      []solana.Instruction{transfer(a, b, trader, "5")},
		PostTokenBalances: balances(keys, owners, 6),
	}

	events, _, dropped := extractTransfers(&tx, true)
	assert.Empty(t, events)
	assert.Zero(t, dropped)
}

func TestExtractTransfers_TopLevelBeforeInner(t *testing.T) {
	f := newSwapFixture(t)
	f.tx.Instructions[1] = transfer(f.traderA, f.poolA, f.trader, "1")

	events, _, _ := extractTransfers(&f.tx, true)
	require.Len(t, events, 5)
	assert.Equal(t, "-1", events[0].Amount.String())
	assert.Equal(t, 0, events[0].InnerIndex)
	assert.Equal(t, 4, events[4].InnerIndex)
}

func TestClassifyAddress(t *testing.T) {
	assert.Equal(t, addressWallet, classifyAddress(walletKey(t, 1)))
	assert.Equal(t, addressProgram, classifyAddress(programKey(t, 1)))
	assert.Equal(t, addressInvalid, classifyAddress("not-base58-0OIl"))
	assert.Equal(t, addressInvalid, classifyAddress("abc"))
	assert.Equal(t, addressInvalid, classifyAddress(""))
}

func TestConvertTransaction(t *testing.T) {
	f := newSwapFixture(t)

	tx, dropped, err := convertTransaction(&f.tx, 3, true)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Equal(t, domain.Transaction{
		Signature: "sig1",
		Signer:    f.trader,
		Position:  3,
		Decimals:  tx.Decimals,
		Events:    tx.Events,
	}, tx)

	f.tx.Signature = ""
	_, _, err = convertTransaction(&f.tx, 3, true)
	assert.Error(t, err)
}
