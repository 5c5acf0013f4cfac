package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-atomic-arb/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// retryPolicy retries transient failures with exponential backoff.
type retryPolicy struct {
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
}

// do runs fn until it succeeds, fails with a non-transient error or the
// retries run out. A Retry-After hint longer than the backoff wins.
func (p retryPolicy) do(ctx context.Context, method string, fn func() error) error {
	delay := p.retryDelay
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			wait := delay
			var transient *TransientError
			if errors.As(lastErr, &transient) && transient.RetryAfter > wait {
				wait = transient.RetryAfter
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}

			// Exponential backoff
			delay = time.Duration(float64(delay) * p.backoffMult)
			if delay > p.maxDelay {
				delay = p.maxDelay
			}
		}

		start := time.Now()
		err := fn()
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		lastErr = err
		if attempt < p.maxRetries {
			observability.RecordRPCRetry(method)
		}
	}

	return fmt.Errorf("%s: max retries exceeded: %w", method, lastErr)
}
