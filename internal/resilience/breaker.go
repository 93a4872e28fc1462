package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrBreakerOpen is returned when a call is rejected because the provider's
// breaker is open.
var ErrBreakerOpen = eris.New("resilience: breaker open")

// Breaker is a per-provider circuit breaker. After Threshold consecutive
// retryable failures it rejects calls for Cooldown, then lets a single
// probe through. A probe success closes it, a probe failure reopens it.
// Non-retryable errors are answers, not outages, and never trip it.
type Breaker struct {
	provider  string
	threshold int
	cooldown  time.Duration
	clock     func() time.Time

	mu       sync.Mutex
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker creates a breaker for the named provider. Non-positive
// arguments fall back to 5 failures and a 30s cooldown.
func NewBreaker(provider string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		provider:  provider,
		threshold: threshold,
		cooldown:  cooldown,
		clock:     time.Now,
	}
}

// Allow reports whether a call may proceed. While open, exactly one probe
// is admitted per cooldown window.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return true
	}
	if b.probing {
		return false
	}
	if b.clock().Sub(b.openedAt) >= b.cooldown {
		b.probing = true
		return true
	}
	return false
}

// Record feeds a call outcome back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !IsRetryable(err) {
		if b.failures >= b.threshold {
			zap.L().Info("breaker closed after successful probe",
				zap.String("provider", b.provider),
			)
		}
		b.failures = 0
		b.probing = false
		return
	}

	b.failures++
	b.probing = false
	if b.failures == b.threshold {
		b.openedAt = b.clock()
		zap.L().Warn("breaker opened",
			zap.String("provider", b.provider),
			zap.Int("consecutive_failures", b.failures),
			zap.Duration("cooldown", b.cooldown),
		)
	} else if b.failures > b.threshold {
		// Failed probe restarts the cooldown window.
		b.openedAt = b.clock()
	}
}
