package solana

import (
	"context"
	"fmt"
	"time"
)

// DefaultFinalityPoll is the GetSlot polling interval used without a root stream.
const DefaultFinalityPoll = 2 * time.Second

// WaitFinalized blocks until the finalized root reaches slot. Roots come from
// a SubscribeRoots stream when one is given, otherwise the finalized slot is
// polled. Returns the finalized slot observed.
func WaitFinalized(ctx context.Context, client RPCClient, roots <-chan uint64, slot uint64, poll time.Duration) (uint64, error) {
	finalized, err := client.GetSlot(ctx, CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("get finalized slot: %w", err)
	}
	if finalized >= slot {
		return finalized, nil
	}

	if roots != nil {
		for {
			select {
			case <-ctx.Done():
				return finalized, ctx.Err()
			case root, ok := <-roots:
				if !ok {
					return finalized, fmt.Errorf("root stream closed at %d, waiting for %d", finalized, slot)
				}
				if root > finalized {
					finalized = root
				}
				if finalized >= slot {
					return finalized, nil
				}
			}
		}
	}

	if poll <= 0 {
		poll = DefaultFinalityPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return finalized, ctx.Err()
		case <-ticker.C:
			finalized, err = client.GetSlot(ctx, CommitmentFinalized)
			if err != nil {
				return 0, fmt.Errorf("get finalized slot: %w", err)
			}
			if finalized >= slot {
				return finalized, nil
			}
		}
	}
}
