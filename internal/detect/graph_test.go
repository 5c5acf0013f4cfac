package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSwapPaths_TwoPoolRoundTrip(t *testing.T) {
	evs := events(
		transfer("tx1", "trader", "pool1", mintA, 100, 0, 0),
		transfer("tx1", "pool1", "trader", mintB, 90, 0, 1),
		transfer("tx1", "trader", "pool2", mintB, 90, 1, 0),
		transfer("tx1", "pool2", "trader", mintA, 105, 1, 1),
	)

	paths, err := BuildSwapPaths("tx1", evs)
	require.NoError(t, err)
	require.Len(t, paths, 1, "pools make a single swap each and are dropped")

	p := paths[0]
	assert.Equal(t, "trader", p.Trader)
	assert.Equal(t, "tx1", p.TransactionID)
	require.Len(t, p.Edges, 2)

	assert.Equal(t, mintA, p.Edges[0].TokenIn)
	assert.Equal(t, mintB, p.Edges[0].TokenOut)
	assert.True(t, p.Edges[0].AmountIn.Equal(amt(100)))
	assert.True(t, p.Edges[0].AmountOut.Equal(amt(90)))
	assert.Equal(t, 0, p.Edges[0].InstructionIndex)

	assert.Equal(t, mintB, p.Edges[1].TokenIn)
	assert.Equal(t, mintA, p.Edges[1].TokenOut)
	assert.True(t, p.Edges[1].AmountOut.Equal(amt(105)))
	assert.Equal(t, 1, p.Edges[1].InstructionIndex)
}

func TestBuildSwapPaths_IncomingBeforeOutgoing(t *testing.T) {
	// Pool-side ordering: tokens arrive first, then leave.
	evs := events(
		transfer("tx", "src", "acct", mintA, 10, 0, 0),
		transfer("tx", "acct", "dst", mintB, 20, 0, 1),
		transfer("tx", "src", "acct", mintB, 20, 1, 0),
		transfer("tx", "acct", "dst", mintA, 30, 1, 1),
	)

	paths, err := BuildSwapPaths("tx", evs)
	require.NoError(t, err)
	require.Len(t, paths, 1)

	p := paths[0]
	assert.Equal(t, "acct", p.Trader)
	require.Len(t, p.Edges, 2)
	assert.Equal(t, mintB, p.Edges[0].TokenIn)
	assert.Equal(t, mintA, p.Edges[0].TokenOut)
	assert.Equal(t, mintA, p.Edges[1].TokenIn)
	assert.Equal(t, mintB, p.Edges[1].TokenOut)
}

func TestBuildSwapPaths_DropsZeroAmounts(t *testing.T) {
	evs := events(
		transfer("tx", "trader", "pool1", mintA, 100, 0, 0),
		transfer("tx", "trader", "pool1", mintC, 0, 0, 1),
		transfer("tx", "pool1", "trader", mintB, 90, 0, 2),
		transfer("tx", "trader", "pool2", mintB, 90, 1, 0),
		transfer("tx", "pool2", "trader", mintA, 105, 1, 1),
	)

	paths, err := BuildSwapPaths("tx", evs)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Len(t, paths[0].Edges, 2)
}

func TestBuildSwapPaths_SegmentsOnContiguityBreak(t *testing.T) {
	evs := events(
		transfer("tx", "trader", "p", mintA, 1, 0, 0),
		transfer("tx", "p", "trader", mintB, 2, 0, 1),
		transfer("tx", "trader", "p", mintB, 2, 1, 0),
		transfer("tx", "p", "trader", mintC, 3, 1, 1),
		// break: C was received, D is given
		transfer("tx", "trader", "q", mintD, 4, 2, 0),
		transfer("tx", "q", "trader", mintA, 5, 2, 1),
		transfer("tx", "trader", "q", mintA, 5, 3, 0),
		transfer("tx", "q", "trader", mintD, 6, 3, 1),
	)

	paths, err := BuildSwapPaths("tx", evs)
	require.NoError(t, err)

	var ordinals []int
	for _, p := range paths {
		if p.Trader != "trader" {
			continue
		}
		require.Len(t, p.Edges, 2)
		for i := 1; i < len(p.Edges); i++ {
			assert.Equal(t, p.Edges[i-1].TokenOut, p.Edges[i].TokenIn)
		}
		for _, e := range p.Edges {
			ordinals = append(ordinals, e.Ordinal)
		}
	}
	assert.Equal(t, []int{0, 1, 2, 3}, ordinals)
}

func TestBuildSwapPaths_ShortSegmentsDropped(t *testing.T) {
	evs := events(
		transfer("tx", "trader", "p", mintA, 1, 0, 0),
		transfer("tx", "p", "trader", mintB, 2, 0, 1),
		transfer("tx", "trader", "p", mintC, 3, 1, 0),
		transfer("tx", "p", "trader", mintD, 4, 1, 1),
	)

	paths, err := BuildSwapPaths("tx", evs)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestBuildSwapPaths_SameMintPairIsNotASwap(t *testing.T) {
	evs := events(
		transfer("tx", "trader", "p", mintA, 100, 0, 0),
		transfer("tx", "p", "trader", mintA, 100, 0, 1),
		transfer("tx", "trader", "p", mintB, 5, 1, 0),
		transfer("tx", "p", "trader", mintC, 7, 1, 1),
	)

	paths, err := BuildSwapPaths("tx", evs)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestBuildSwapPaths_OneDirectionAccountsIgnored(t *testing.T) {
	evs := events(
		transfer("tx", "payer", "feeVault", mintA, 5, 0, 0),
		transfer("tx", "payer", "feeVault", mintA, 5, 1, 0),
		transfer("tx", "payer", "feeVault", mintB, 5, 2, 0),
	)

	paths, err := BuildSwapPaths("tx", evs)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestBuildSwapPaths_UnmatchedLegIsMalformed(t *testing.T) {
	evs := events(
		transfer("tx9", "trader", "p", mintA, 100, 0, 0),
		transfer("tx9", "p", "trader", mintB, 90, 0, 1),
		transfer("tx9", "trader", "p", mintB, 90, 1, 0),
	)

	_, err := BuildSwapPaths("tx9", evs)
	require.Error(t, err)
	assert.True(t, IsMalformed(err))

	var m *MalformedTransactionError
	require.ErrorAs(t, err, &m)
	assert.Equal(t, "tx9", m.TransactionID)
	assert.Equal(t, "trader", m.Account)
	assert.Contains(t, m.Reason, "unmatched outgoing")
}

func TestBuildSwapPaths_LegsAcrossGroupsAreMalformed(t *testing.T) {
	evs := events(
		transfer("tx", "trader", "p", mintA, 100, 0, 0),
		transfer("tx", "p", "trader", mintB, 90, 1, 0),
	)

	_, err := BuildSwapPaths("tx", evs)
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestBuildSwapPaths_TraderOrderIsFirstAppearance(t *testing.T) {
	evs := events(
		transfer("tx", "second", "p1", mintC, 1, 0, 0),
		transfer("tx", "first", "p2", mintA, 1, 1, 0),
		transfer("tx", "p2", "first", mintB, 2, 1, 1),
		transfer("tx", "p1", "second", mintD, 2, 0, 1),
		transfer("tx", "first", "p2", mintB, 2, 2, 0),
		transfer("tx", "p2", "first", mintA, 3, 2, 1),
		transfer("tx", "second", "p1", mintD, 2, 3, 0),
		transfer("tx", "p1", "second", mintC, 3, 3, 1),
	)

	paths, err := BuildSwapPaths("tx", evs)
	require.NoError(t, err)

	var traders []string
	for _, p := range paths {
		if p.Trader == "first" || p.Trader == "second" {
			traders = append(traders, p.Trader)
		}
	}
	assert.Equal(t, []string{"second", "first"}, traders)
}
