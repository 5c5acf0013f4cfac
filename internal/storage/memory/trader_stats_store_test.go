package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"solana-atomic-arb/internal/domain"
	"solana-atomic-arb/internal/storage"
)

func TestTraderStatsStore_InsertAndGet(t *testing.T) {
	store := NewTraderStatsStore()
	ctx := context.Background()

	stats := domain.NewTraderStats("t1")
	stats.TotalProfit = decimal.NewFromInt(42)
	stats.ArbitrageCount = 1
	stats.TokensUsed["mintA"] = struct{}{}

	ranked := []domain.RankedTrader{{Rank: 1, Stats: stats}}
	if err := store.InsertBulk(ctx, "run1", ranked); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, "run1", ranked); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// mutation after insert does not leak into the store
	stats.ArbitrageCount = 99

	got, err := store.GetByRun(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	if len(got) != 1 || got[0].Rank != 1 || got[0].Stats.ArbitrageCount != 1 {
		t.Errorf("Unexpected ranking: %+v", got)
	}
	if !got[0].Stats.TotalProfit.Equal(decimal.NewFromInt(42)) {
		t.Errorf("TotalProfit mismatch: %s", got[0].Stats.TotalProfit)
	}

	empty, err := store.GetByRun(ctx, "other")
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected empty ranking, got %v, %v", empty, err)
	}
}

func TestTraderStatsStore_InvalidInput(t *testing.T) {
	store := NewTraderStatsStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, "", nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if err := store.InsertBulk(ctx, "run", []domain.RankedTrader{{Rank: 1}}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
