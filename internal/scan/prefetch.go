package scan

import (
	"context"
	"iter"
	"time"

	"golang.org/x/sync/errgroup"

	"solana-atomic-arb/internal/domain"
	"solana-atomic-arb/internal/ingestion"
)

// SlotFetch is the outcome of fetching one slot.
type SlotFetch struct {
	Slot    uint64
	Data    *domain.SlotData
	Err     error
	Elapsed time.Duration
}

// Prefetcher keeps up to window slot fetches in flight and hands results
// back in the order the slots were given.
type Prefetcher struct {
	provider ingestion.SlotProvider
	window   int
}

// NewPrefetcher creates a prefetcher. A window below 1 means sequential.
func NewPrefetcher(provider ingestion.SlotProvider, window int) *Prefetcher {
	if window < 1 {
		window = 1
	}
	return &Prefetcher{provider: provider, window: window}
}

// Run fetches slots and calls handle for each, strictly in the order the
// sequence yields them. The sequence is consumed lazily, one slot per free
// window token. A slot's token is released only after handle returns, so at
// most window results are buffered. When handle returns an error, outstanding
// fetches are canceled and that error is returned.
func (p *Prefetcher) Run(ctx context.Context, slots iter.Seq[uint64], handle func(SlotFetch) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.window + 1)

	tokens := make(chan struct{}, p.window)
	// pending never holds more entries than there are tokens taken.
	pending := make(chan chan SlotFetch, p.window)

	g.Go(func() error {
		defer close(pending)
		for slot := range slots {
			select {
			case tokens <- struct{}{}:
			case <-gctx.Done():
				return nil
			}

			out := make(chan SlotFetch, 1)
			pending <- out
			g.Go(func() error {
				start := time.Now()
				data, err := p.provider.FetchSlot(gctx, slot)
				out <- SlotFetch{Slot: slot, Data: data, Err: err, Elapsed: time.Since(start)}
				return nil
			})
		}
		return nil
	})

	var handleErr error
	for out := range pending {
		var r SlotFetch
		select {
		case r = <-out:
		case <-ctx.Done():
			handleErr = ctx.Err()
		}
		if handleErr != nil {
			break
		}

		if err := handle(r); err != nil {
			handleErr = err
			break
		}
		<-tokens
	}

	cancel()
	_ = g.Wait()
	return handleErr
}
