package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls the retry loop: attempt count, exponential backoff with
// proportional jitter, and an optional override of the retryability check.
type Policy struct {
	// Attempts is the total number of tries, first call included.
	// 1 disables retries. Default: 3.
	Attempts int

	// BaseDelay is the backoff before the first retry. Default: 400ms.
	BaseDelay time.Duration

	// MaxDelay caps the backoff. Default: 20s.
	MaxDelay time.Duration

	// Factor scales the delay between consecutive retries. Default: 2.0.
	Factor float64

	// Jitter spreads each delay by ±Jitter of its value, desynchronizing
	// clients that fail in lockstep. Default: 0.2.
	Jitter float64

	// Classify decides whether an error is worth retrying. Nil means
	// IsRetryable.
	Classify func(err error) bool

	// OnRetry fires before each backoff sleep with the attempt just failed.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy is tuned for third-party API calls behind a rate limiter.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: 400 * time.Millisecond,
		MaxDelay:  20 * time.Second,
		Factor:    2.0,
		Jitter:    0.2,
	}
}

func (p Policy) normalized() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 400 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 20 * time.Second
	}
	if p.Factor <= 0 {
		p.Factor = 2.0
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	return p
}

// delay computes the backoff for the retry following the given zero-based
// attempt, capped then jittered.
func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.Factor, float64(attempt))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Run calls op until it succeeds, exhausts the policy's attempts, returns a
// non-retryable error, or the context is done. The last error is returned
// as-is so callers can still unwrap and classify it.
func Run[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()
	classify := p.Classify
	if classify == nil {
		classify = IsRetryable
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		val, err := op(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !classify(err) || attempt == p.Attempts-1 {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// RunVoid is Run for operations without a return value.
func RunVoid(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := Run(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// LogRetries returns an OnRetry callback that logs each failed attempt for
// the given component and operation.
func LogRetries(component, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying after retryable failure",
			zap.String("component", component),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
