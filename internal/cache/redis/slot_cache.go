package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"solana-atomic-arb/internal/domain"
	"solana-atomic-arb/internal/ingestion"
	"solana-atomic-arb/internal/observability"
)

// DefaultSlotTTL is how long a finalized slot stays cached.
const DefaultSlotTTL = 24 * time.Hour

// skippedMarker is stored for slots that produced no block.
const skippedMarker = "skipped"

// SlotCache decorates a SlotProvider with a Redis read-through cache.
// Finalized slots never change, so hits are served without touching the
// provider. Cache failures are logged and fall through to the provider.
//
// Key schema:
//
//	{prefix}{slot} - JSON-encoded domain.SlotData, or "skipped"
type SlotCache struct {
	rdb    *redis.Client
	next   ingestion.SlotProvider
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// SlotCacheOptions configure a SlotCache.
type SlotCacheOptions struct {
	TTL time.Duration
	// Prefix namespaces keys. Extraction settings that change slot content
	// must be part of it.
	Prefix string
	Logger *zap.Logger
}

// NewSlotCache creates a cache in front of next.
func NewSlotCache(c *Client, next ingestion.SlotProvider, opts SlotCacheOptions) *SlotCache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultSlotTTL
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "arbscan:slot:"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotCache{rdb: c.Underlying(), next: next, ttl: ttl, prefix: prefix, logger: logger}
}

func (c *SlotCache) key(slot uint64) string {
	return fmt.Sprintf("%s%d", c.prefix, slot)
}

// FetchSlot returns the cached slot or fetches and caches it.
func (c *SlotCache) FetchSlot(ctx context.Context, slot uint64) (*domain.SlotData, error) {
	data, err := c.get(ctx, slot)
	switch {
	case err == nil:
		observability.RecordCache("hit")
		return data, nil
	case errors.Is(err, ingestion.ErrSlotNotFound):
		observability.RecordCache("hit")
		return nil, err
	case errors.Is(err, redis.Nil):
		observability.RecordCache("miss")
	default:
		observability.RecordCache("error")
		c.logger.Warn("slot cache read failed", zap.Uint64("slot", slot), zap.Error(err))
	}

	data, err = c.next.FetchSlot(ctx, slot)
	if err != nil {
		if errors.Is(err, ingestion.ErrSlotNotFound) {
			c.set(ctx, slot, []byte(skippedMarker))
		}
		return nil, err
	}

	payload, mErr := json.Marshal(data)
	if mErr != nil {
		c.logger.Warn("slot cache encode failed", zap.Uint64("slot", slot), zap.Error(mErr))
		return data, nil
	}
	c.set(ctx, slot, payload)
	return data, nil
}

func (c *SlotCache) get(ctx context.Context, slot uint64) (*domain.SlotData, error) {
	raw, err := c.rdb.Get(ctx, c.key(slot)).Bytes()
	if err != nil {
		return nil, err
	}
	if string(raw) == skippedMarker {
		return nil, fmt.Errorf("%w: %d (cached)", ingestion.ErrSlotNotFound, slot)
	}

	var data domain.SlotData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("redis: unmarshal slot %d: %w", slot, err)
	}
	return &data, nil
}

func (c *SlotCache) set(ctx context.Context, slot uint64, payload []byte) {
	if err := c.rdb.Set(ctx, c.key(slot), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("slot cache write failed", zap.Uint64("slot", slot), zap.Error(err))
	}
}

// Invalidate removes the cached entries of [begin, end].
func (c *SlotCache) Invalidate(ctx context.Context, begin, end uint64) (int64, error) {
	var keys []string
	for s := begin; s <= end; s++ {
		keys = append(keys, c.key(s))
		if s == end {
			break
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: invalidate slots %d-%d: %w", begin, end, err)
	}
	return n, nil
}
