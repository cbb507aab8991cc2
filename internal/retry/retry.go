package retry

import (
	"context"
	"log"
	"time"

	"golang.org/x/time/rate"

	"billscan/internal/metrics"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Policy describes how a remote call is retried. The zero value retries
// rate-limit errors 3 times with 1s, 2s backoff.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	IsRetryable func(error) bool

	// Limiter, when set, paces every attempt including the first.
	Limiter *rate.Limiter

	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Delay returns the wait before the given 1-indexed attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 2 {
		return 0
	}
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	return base << (attempt - 2)
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.IsRetryable == nil {
		p.IsRetryable = IsRateLimited
	}
	if p.Sleep == nil {
		p.Sleep = Sleep
	}
	return p
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// attempt budget is spent. The last case yields a *RetryExhaustedError.
func Do[T any](ctx context.Context, p Policy, name string, op func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := p.Delay(attempt)
			log.Printf("retry.Do: %s attempt %d/%d after %s: %v", name, attempt, p.MaxAttempts, delay, lastErr)
			metrics.RecordRetry(name)
			if err := p.Sleep(ctx, delay); err != nil {
				return zero, err
			}
		}
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				return zero, err
			}
		}

		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !p.IsRetryable(err) {
			return zero, err
		}
		lastErr = err
	}

	return zero, &RetryExhaustedError{Operation: name, Attempts: p.MaxAttempts, Err: lastErr}
}

// Sleep waits for d or until ctx is done, returning ctx.Err() in the latter
// case. It is the default Policy.Sleep.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NewPolicy builds the default rate-limit policy for a provider. A positive
// requestsPerSecond also paces attempts.
func NewPolicy(maxAttempts int, requestsPerSecond float64) Policy {
	p := Policy{MaxAttempts: maxAttempts}
	if requestsPerSecond > 0 {
		p.Limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return p
}
