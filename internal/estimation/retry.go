package estimation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RetrySampler decorates a sampler with capped exponential backoff. A failed
// attempt's counts are discarded entirely; only a clean attempt's result is
// returned. Exhausting the attempts surfaces as ErrExecution.
type RetrySampler struct {
	inner     Sampler
	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration
	log       zerolog.Logger
}

// WithRetry wraps a sampler. Attempts below one are treated as one.
func WithRetry(inner Sampler, attempts int, baseDelay, maxDelay time.Duration, log zerolog.Logger) *RetrySampler {
	if attempts < 1 {
		attempts = 1
	}
	return &RetrySampler{
		inner:     inner,
		attempts:  attempts,
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
		log:       log.With().Str("component", "retry").Logger(),
	}
}

// Sample retries the inner sampler until it succeeds, the context is
// canceled, or the attempt budget runs out.
func (r *RetrySampler) Sample(ctx context.Context, depth, shots int) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		ones, err := r.inner.Sample(ctx, depth, shots)
		if err == nil {
			return ones, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return 0, fmt.Errorf("sampling abandoned: %w", ctx.Err())
		}
		if attempt < r.attempts {
			delay := r.backoff(attempt)
			r.log.Warn().Err(err).Int("attempt", attempt).Int("depth", depth).
				Dur("delay", delay).Msg("sample failed, retrying")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return 0, fmt.Errorf("sampling abandoned: %w", ctx.Err())
			}
		}
	}
	return 0, fmt.Errorf("%d attempts at depth %d, last error %v: %w", r.attempts, depth, lastErr, ErrExecution)
}

func (r *RetrySampler) backoff(attempt int) time.Duration {
	delay := r.baseDelay * time.Duration(1<<(attempt-1))
	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	return delay
}
