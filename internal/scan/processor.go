// Package scan walks a slot range and turns every produced block into
// arbitrage records.
package scan

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"

	"solana-atomic-arb/internal/config"
	"solana-atomic-arb/internal/detect"
	"solana-atomic-arb/internal/domain"
	"solana-atomic-arb/internal/ingestion"
	"solana-atomic-arb/internal/metrics"
	"solana-atomic-arb/internal/observability"
)

// maxSkippedDetails caps how many skipped transactions a Result lists.
const maxSkippedDetails = 100

// SkippedTransaction identifies a transaction left out of the analysis.
type SkippedTransaction struct {
	Slot      uint64
	Signature string
	Reason    string
}

// Counters summarize progress through a range.
type Counters struct {
	SlotsProcessed       int
	SlotsAbsent          int
	TransactionsAnalyzed int
	TransactionsSkipped  int
	ArbitrageCount       int
	LastSlot             uint64 // highest slot fully handled, 0 before the first
}

// Result describes one processed range.
type Result struct {
	BeginSlot uint64
	EndSlot   uint64
	Counters
	AbsentSlots []uint64
	Skipped     []SkippedTransaction // first maxSkippedDetails only
	Duration    time.Duration
}

// Options configure a Processor.
type Options struct {
	Provider         ingestion.SlotProvider
	Lister           ingestion.SlotLister // optional, skips absent slots without fetching
	Sink             RecordSink           // optional
	Aggregator       *metrics.AggregatorState
	TopN             int
	FetchConcurrency int
	Logger           *zap.Logger
	OnSlot           func(Counters) // called after each slot, absent ones included
}

// Processor runs detection over a slot range.
type Processor struct {
	provider   ingestion.SlotProvider
	lister     ingestion.SlotLister
	sink       RecordSink
	aggregator *metrics.AggregatorState
	topN       int
	prefetcher *Prefetcher
	logger     *zap.Logger
	onSlot     func(Counters)
}

// NewProcessor creates a processor. A nil Aggregator gets a fresh one
// without prices. TopN is taken as given and checked by Run.
func NewProcessor(opts Options) *Processor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	agg := opts.Aggregator
	if agg == nil {
		agg = metrics.NewAggregatorState(nil)
	}
	return &Processor{
		provider:   opts.Provider,
		lister:     opts.Lister,
		sink:       opts.Sink,
		aggregator: agg,
		topN:       opts.TopN,
		prefetcher: NewPrefetcher(opts.Provider, opts.FetchConcurrency),
		logger:     logger,
		onSlot:     opts.OnSlot,
	}
}

// Aggregator returns the state the processor feeds.
func (p *Processor) Aggregator() *metrics.AggregatorState {
	return p.aggregator
}

// Run processes [begin, end] in ascending slot order. Configuration is
// validated before anything is fetched; a *config.ConfigurationError comes
// back with a nil Result. Otherwise the Result is always returned, partial
// when err is non-nil. A slot that cannot be fetched yields a
// *FatalFetchError and no records from later slots reach the sink.
func (p *Processor) Run(ctx context.Context, begin, end uint64) (*Result, error) {
	if err := config.ValidateRange(begin, end, p.topN); err != nil {
		return nil, err
	}
	if p.provider == nil {
		return nil, &config.ConfigurationError{Problems: []string{"scan: no slot provider"}}
	}

	start := time.Now()
	res := &Result{BeginSlot: begin, EndSlot: end}
	defer func() { res.Duration = time.Since(start) }()

	p.logger.Info("scan started",
		zap.Uint64("begin_slot", begin),
		zap.Uint64("end_slot", end),
		zap.Int("fetch_concurrency", p.prefetcher.window))

	slots, err := p.plan(ctx, begin, end)
	if err != nil {
		return res, err
	}

	// Slots the lister reported as unproduced are settled between fetches
	// so that absent and fetched slots interleave in range order.
	next, reachedEnd := begin, false
	settleAbsentBefore := func(slot uint64) {
		for ; next < slot; next++ {
			p.markAbsent(res, next, "not listed")
		}
	}

	err = p.prefetcher.Run(ctx, slots, func(r SlotFetch) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		settleAbsentBefore(r.Slot)
		if r.Slot == end {
			reachedEnd = true
		} else {
			next = r.Slot + 1
		}
		return p.handle(ctx, res, r)
	})
	if err == nil && ctx.Err() == nil && p.lister != nil && !reachedEnd {
		settleAbsentBefore(end)
		p.markAbsent(res, end, "not listed")
	}
	if err == nil {
		err = ctx.Err()
	}

	fields := []zap.Field{
		zap.Int("slots_processed", res.SlotsProcessed),
		zap.Int("slots_absent", res.SlotsAbsent),
		zap.Int("transactions_analyzed", res.TransactionsAnalyzed),
		zap.Int("transactions_skipped", res.TransactionsSkipped),
		zap.Int("arbitrages", res.ArbitrageCount),
		zap.Uint64("last_slot", res.LastSlot),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		p.logger.Warn("scan stopped", append(fields, zap.Error(err))...)
		return res, err
	}
	p.logger.Info("scan finished", fields...)
	return res, nil
}

// plan returns the slots to fetch. Without a lister that is every slot,
// generated on demand.
func (p *Processor) plan(ctx context.Context, begin, end uint64) (iter.Seq[uint64], error) {
	if p.lister == nil {
		return slotRange(begin, end), nil
	}

	listed, err := p.lister.ListSlots(ctx, begin, end)
	if err != nil {
		return nil, fmt.Errorf("list slots %d-%d: %w", begin, end, err)
	}
	slices.Sort(listed)
	slots := make([]uint64, 0, len(listed))
	for _, s := range listed {
		if s < begin || s > end {
			continue
		}
		if n := len(slots); n > 0 && slots[n-1] == s {
			continue
		}
		slots = append(slots, s)
	}
	return slices.Values(slots), nil
}

// slotRange yields begin through end inclusive without wrapping at the top
// of the uint64 range.
func slotRange(begin, end uint64) iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for s := begin; ; s++ {
			if !yield(s) || s == end {
				return
			}
		}
	}
}

// handle processes one fetched slot.
func (p *Processor) handle(ctx context.Context, res *Result, r SlotFetch) error {
	if r.Err != nil {
		if errors.Is(r.Err, ingestion.ErrSlotNotFound) {
			p.markAbsent(res, r.Slot, "no block")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Error("slot fetch failed", zap.Uint64("slot", r.Slot), zap.Error(r.Err))
		return &FatalFetchError{Slot: r.Slot, Err: r.Err}
	}

	records, err := p.analyzeSlot(res, r.Data)
	if err != nil {
		return err
	}

	if p.sink != nil && len(records) > 0 {
		if err := p.sink.Write(ctx, records); err != nil {
			return fmt.Errorf("write slot %d: %w", r.Slot, err)
		}
	}
	p.aggregator.AddAll(records)

	res.SlotsProcessed++
	res.ArbitrageCount += len(records)
	res.LastSlot = r.Slot
	observability.RecordSlot(r.Slot, r.Elapsed.Seconds())
	observability.RecordTransactions(len(r.Data.Transactions))
	for _, rec := range records {
		observability.RecordArbitrage(strconv.Itoa(rec.PathLength))
	}

	p.logger.Info("slot processed",
		zap.Uint64("slot", r.Slot),
		zap.Int("transactions", len(r.Data.Transactions)),
		zap.Int("arbitrages", len(records)),
		zap.Duration("fetch", r.Elapsed))

	p.notify(res)
	return nil
}

// analyzeSlot runs detection over every transaction of data and returns the
// slot's records in canonical order.
func (p *Processor) analyzeSlot(res *Result, data *domain.SlotData) ([]domain.ArbitrageRecord, error) {
	var records []domain.ArbitrageRecord
	for _, tx := range data.Transactions {
		recs, err := detect.AnalyzeTransaction(data.Slot, data.BlockTime, tx)
		if err != nil {
			if detect.IsMalformed(err) {
				p.skip(res, data.Slot, tx.Signature, err)
				continue
			}
			return nil, fmt.Errorf("slot %d tx %s: %w", data.Slot, tx.Signature, err)
		}
		res.TransactionsAnalyzed++
		records = append(records, recs...)
	}
	domain.SortRecords(records)
	return records, nil
}

func (p *Processor) skip(res *Result, slot uint64, signature string, err error) {
	res.TransactionsSkipped++
	if len(res.Skipped) < maxSkippedDetails {
		res.Skipped = append(res.Skipped, SkippedTransaction{
			Slot:      slot,
			Signature: signature,
			Reason:    err.Error(),
		})
	}
	observability.RecordSkippedTransaction("malformed")
	p.logger.Warn("transaction skipped",
		zap.Uint64("slot", slot),
		zap.String("signature", signature),
		zap.Error(err))
}

func (p *Processor) markAbsent(res *Result, slot uint64, reason string) {
	res.SlotsAbsent++
	res.AbsentSlots = append(res.AbsentSlots, slot)
	res.LastSlot = slot
	observability.RecordAbsentSlot()
	p.logger.Debug("slot absent", zap.Uint64("slot", slot), zap.String("reason", reason))
	p.notify(res)
}

func (p *Processor) notify(res *Result) {
	if p.onSlot != nil {
		p.onSlot(res.Counters)
	}
}
