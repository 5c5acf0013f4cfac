package scan_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-atomic-arb/internal/config"
	"solana-atomic-arb/internal/domain"
	"solana-atomic-arb/internal/ingestion/stub"
	"solana-atomic-arb/internal/metrics"
	"solana-atomic-arb/internal/reporting"
	"solana-atomic-arb/internal/scan"
)

func TestProcessor_SingleCycle(t *testing.T) {
	provider := stub.NewProvider(slot(100, cycleTx("sig1", "T1", 0, 42)))
	sink := &collector{}
	p := scan.NewProcessor(scan.Options{Provider: provider, Sink: sink, TopN: 10})

	res, err := p.Run(context.Background(), 100, 100)
	require.NoError(t, err)

	assert.Equal(t, 1, res.SlotsProcessed)
	assert.Equal(t, 1, res.TransactionsAnalyzed)
	assert.Equal(t, 1, res.ArbitrageCount)
	assert.Equal(t, uint64(100), res.LastSlot)

	require.Len(t, sink.records, 1)
	rec := sink.records[0]
	assert.Equal(t, "T1", rec.Trader)
	assert.Equal(t, mintA, rec.Token)
	assert.Equal(t, "42", rec.Profit.String())
	assert.Equal(t, 3, rec.PathLength)
	assert.Equal(t, []string{mintA, mintB, mintC, mintA}, rec.InvolvedTokens)
	assert.Equal(t, uint8(9), rec.Decimals)
	require.NotNil(t, rec.BlockTime)

	agg := p.Aggregator()
	assert.Equal(t, 1, agg.TotalArbitrageCount())
	ranked, err := agg.Ranking(10, metrics.RankByProfit)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, "T1", ranked[0].Stats.Trader)
	assert.Equal(t, "42", ranked[0].Stats.TotalProfit.String())
}

func TestProcessor_CanonicalOrder(t *testing.T) {
	provider := stub.NewProvider(
		slot(10, cycleTx("b", "T2", 1, 5), cycleTx("a", "T1", 0, 7)),
		slot(11, cycleTx("c", "T1", 0, 3)),
		slot(12, cycleTx("d", "T3", 0, 9)),
	)
	sink := &collector{}
	p := scan.NewProcessor(scan.Options{Provider: provider, Sink: sink, FetchConcurrency: 3, TopN: 10})

	_, err := p.Run(context.Background(), 10, 12)
	require.NoError(t, err)

	require.Len(t, sink.records, 4)
	var sigs []string
	for _, r := range sink.records {
		sigs = append(sigs, r.TransactionID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, sigs)
	assert.Equal(t, 3, sink.writes)
}

func TestProcessor_IdempotentCSV(t *testing.T) {
	slots := []uint64{200, 201, 203}
	render := func(concurrency int) string {
		provider := stub.NewProvider(
			slot(slots[0], cycleTx("s1", "T1", 0, 42), cycleTx("s2", "T2", 1, 10)),
			slot(slots[1], cycleTx("s3", "T2", 0, 11)),
			slot(slots[2], cycleTx("s4", "T1", 0, 1)),
		)
		var buf bytes.Buffer
		w := reporting.NewCSVWriter(&buf)
		p := scan.NewProcessor(scan.Options{Provider: provider, Sink: w, FetchConcurrency: concurrency, TopN: 10})
		_, err := p.Run(context.Background(), 200, 203)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		return buf.String()
	}

	first := render(1)
	assert.Equal(t, first, render(1))
	assert.Equal(t, first, render(4))
	assert.Contains(t, first, "slot,signature,trader,token,profit,path_length,involved_tokens\n")
}

func TestProcessor_FatalFetchStopsRun(t *testing.T) {
	fetchErr := errors.New("getBlock: max retries exceeded")
	provider := stub.NewProvider(
		slot(300, cycleTx("s1", "T1", 0, 1)),
		slot(302, cycleTx("s2", "T1", 0, 2)),
		slot(303, cycleTx("s3", "T1", 0, 3)),
	).FailAt(301, fetchErr)
	sink := &collector{}
	p := scan.NewProcessor(scan.Options{Provider: provider, Sink: sink, FetchConcurrency: 4, TopN: 10})

	res, err := p.Run(context.Background(), 300, 303)
	require.Error(t, err)

	var fatal *scan.FatalFetchError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, uint64(301), fatal.Slot)
	assert.ErrorIs(t, err, fetchErr)

	assert.Equal(t, []uint64{300}, sink.slots())
	assert.Equal(t, 1, p.Aggregator().TotalArbitrageCount())
	require.NotNil(t, res)
	assert.Equal(t, uint64(300), res.LastSlot)
}

func TestProcessor_AbsentSlots(t *testing.T) {
	provider := stub.NewProvider(
		slot(400, cycleTx("s1", "T1", 0, 1)),
		slot(403),
	)
	p := scan.NewProcessor(scan.Options{Provider: provider, TopN: 10})

	res, err := p.Run(context.Background(), 400, 403)
	require.NoError(t, err)

	assert.Equal(t, 2, res.SlotsProcessed)
	assert.Equal(t, 2, res.SlotsAbsent)
	assert.Equal(t, []uint64{401, 402}, res.AbsentSlots)
	assert.Equal(t, uint64(403), res.LastSlot)
}

func TestProcessor_ListerSkipsAbsentSlots(t *testing.T) {
	provider := stub.NewProvider(
		slot(500, cycleTx("s1", "T1", 0, 1)),
		slot(504, cycleTx("s2", "T1", 0, 1)),
	)
	p := scan.NewProcessor(scan.Options{Provider: provider, Lister: provider, TopN: 10})

	res, err := p.Run(context.Background(), 500, 505)
	require.NoError(t, err)

	assert.Equal(t, []uint64{500, 504}, provider.Calls())
	assert.Equal(t, 2, res.SlotsProcessed)
	assert.Equal(t, []uint64{501, 502, 503, 505}, res.AbsentSlots)
	assert.Equal(t, uint64(505), res.LastSlot)
}

func TestProcessor_MalformedTransactionSkipped(t *testing.T) {
	provider := stub.NewProvider(
		slot(600, malformedTx("bad1", 0), cycleTx("good", "T1", 1, 42), malformedTx("bad2", 2)),
	)
	sink := &collector{}
	p := scan.NewProcessor(scan.Options{Provider: provider, Sink: sink, TopN: 10})

	res, err := p.Run(context.Background(), 600, 600)
	require.NoError(t, err)

	assert.Equal(t, 1, res.TransactionsAnalyzed)
	assert.Equal(t, 2, res.TransactionsSkipped)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "bad1", res.Skipped[0].Signature)
	require.Len(t, sink.records, 1)
	assert.Equal(t, "good", sink.records[0].TransactionID)
}

func TestProcessor_ConfigErrorBeforeFetch(t *testing.T) {
	provider := stub.NewProvider(slot(10))

	tests := []struct {
		name       string
		begin, end uint64
		topN       int
	}{
		{name: "begin after end", begin: 11, end: 10, topN: 10},
		{name: "top n below one", begin: 10, end: 10, topN: -1},
		{name: "top n unset", begin: 10, end: 10, topN: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := scan.NewProcessor(scan.Options{Provider: provider, TopN: tt.topN})
			res, err := p.Run(context.Background(), tt.begin, tt.end)
			assert.Nil(t, res)
			var cfgErr *config.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
	assert.Empty(t, provider.Calls())
}

func TestProcessor_Cancellation(t *testing.T) {
	provider := stub.NewProvider(
		slot(700, cycleTx("s1", "T1", 0, 1)),
		slot(701, cycleTx("s2", "T1", 0, 1)),
		slot(702, cycleTx("s3", "T1", 0, 1)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &collector{}
	p := scan.NewProcessor(scan.Options{
		Provider: provider,
		Sink:     sink,
		TopN:     10,
		OnSlot: func(c scan.Counters) {
			if c.LastSlot == 700 {
				cancel()
			}
		},
	})

	res, err := p.Run(ctx, 700, 702)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []uint64{700}, sink.slots())
	assert.Equal(t, 1, res.SlotsProcessed)
}

func TestProcessor_SinkErrorHalts(t *testing.T) {
	provider := stub.NewProvider(
		slot(800, cycleTx("s1", "T1", 0, 1)),
		slot(801, cycleTx("s2", "T1", 0, 1)),
	)
	sinkErr := errors.New("disk full")
	calls := 0
	sink := scan.SinkFunc(func(context.Context, []domain.ArbitrageRecord) error {
		calls++
		return sinkErr
	})
	p := scan.NewProcessor(scan.Options{Provider: provider, Sink: sink, TopN: 10})

	_, err := p.Run(context.Background(), 800, 801)
	require.ErrorIs(t, err, sinkErr)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, p.Aggregator().TotalArbitrageCount())
}

func TestProcessor_UnboundedRangeWithoutLister(t *testing.T) {
	provider := stub.NewProvider(slot(3, cycleTx("s1", "T1", 0, 5)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &collector{}
	p := scan.NewProcessor(scan.Options{
		Provider:         provider,
		Sink:             sink,
		TopN:             10,
		FetchConcurrency: 2,
		OnSlot: func(c scan.Counters) {
			if c.LastSlot >= 5 {
				cancel()
			}
		},
	})

	res, err := p.Run(ctx, 0, math.MaxUint64)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, uint64(5), res.LastSlot)
	assert.Equal(t, 1, res.SlotsProcessed)
	assert.Equal(t, 5, res.SlotsAbsent)
	assert.Equal(t, []uint64{3}, sink.slots())
}

func TestProcessor_ListerRangeEndingAtMaxSlot(t *testing.T) {
	const top = uint64(math.MaxUint64)
	provider := stub.NewProvider(slot(top-2, cycleTx("s1", "T1", 0, 5)))
	p := scan.NewProcessor(scan.Options{Provider: provider, Lister: provider, TopN: 10})

	res, err := p.Run(context.Background(), top-3, top)
	require.NoError(t, err)

	assert.Equal(t, []uint64{top - 2}, provider.Calls())
	assert.Equal(t, 1, res.SlotsProcessed)
	assert.Equal(t, []uint64{top - 3, top - 1, top}, res.AbsentSlots)
	assert.Equal(t, top, res.LastSlot)
}
