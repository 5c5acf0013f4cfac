package stub

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"solana-atomic-arb/internal/domain"
	"solana-atomic-arb/internal/ingestion"
)

// Provider returns fixed in-memory slots for testing.
// Implements ingestion.SlotProvider and ingestion.SlotLister.
type Provider struct {
	mu     sync.Mutex
	slots  map[uint64]*domain.SlotData
	errors map[uint64]error
	calls  []uint64
}

// NewProvider creates a stub provider serving the given slots. Slots not
// present are reported as ingestion.ErrSlotNotFound.
func NewProvider(slots ...*domain.SlotData) *Provider {
	p := &Provider{
		slots:  make(map[uint64]*domain.SlotData),
		errors: make(map[uint64]error),
	}
	for _, s := range slots {
		p.slots[s.Slot] = s
	}
	return p
}

// FailAt makes FetchSlot return err for slot.
func (p *Provider) FailAt(slot uint64, err error) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors[slot] = err
	return p
}

// FetchSlot returns a copy of the stored slot.
func (p *Provider) FetchSlot(ctx context.Context, slot uint64) (*domain.SlotData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, slot)
	if err, ok := p.errors[slot]; ok {
		return nil, err
	}
	s, ok := p.slots[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ingestion.ErrSlotNotFound, slot)
	}
	copy := *s
	copy.Transactions = append([]domain.Transaction(nil), s.Transactions...)
	return &copy, nil
}

// ListSlots returns stored slots within [begin, end].
func (p *Provider) ListSlots(_ context.Context, begin, end uint64) ([]uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []uint64
	for slot := range p.slots {
		if slot >= begin && slot <= end {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Calls returns the slots requested so far, in call order.
func (p *Provider) Calls() []uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uint64(nil), p.calls...)
}
