package extractor

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/crestline-labs/fincompare/internal/resilience"
)

// Chain runs extractors in priority order. A provider that answers, even
// with an error, settles the matter; only connectivity-class failures,
// auth rejections, and open breakers move the chain to the next provider.
type Chain struct {
	extractors []MetricsExtractor
	breakers   map[string]*resilience.Breaker
	retry      resilience.Policy
}

// NewChain builds an extraction chain over the given extractors, each
// guarded by its own circuit breaker.
func NewChain(extractors ...MetricsExtractor) *Chain {
	breakers := make(map[string]*resilience.Breaker, len(extractors))
	for _, ex := range extractors {
		breakers[ex.Name()] = resilience.NewBreaker(ex.Name(), 5, 30*time.Second)
	}
	return &Chain{
		extractors: extractors,
		breakers:   breakers,
		retry:      resilience.DefaultPolicy(),
	}
}

// Extract runs the chain until a provider answers. Providers whose breaker
// is open are skipped without a call.
func (c *Chain) Extract(ctx context.Context, text string) (*Extraction, error) {
	if len(c.extractors) == 0 {
		return nil, eris.New("extractor: empty chain")
	}

	var lastErr error
	for _, ex := range c.extractors {
		breaker := c.breakers[ex.Name()]
		if !breaker.Allow() {
			zap.L().Warn("skipping provider with open breaker",
				zap.String("provider", ex.Name()),
			)
			continue
		}

		policy := c.retry
		policy.OnRetry = resilience.LogRetries(ex.Name(), "extract")
		extraction, err := resilience.Run(ctx, policy, func(ctx context.Context) (*Extraction, error) {
			return ex.Extract(ctx, text)
		})
		breaker.Record(err)

		if err == nil {
			return extraction, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		if !resilience.AdvancesChain(err) {
			return nil, err
		}

		lastErr = err
		zap.L().Warn("provider failed, falling through",
			zap.String("provider", ex.Name()),
			zap.Error(err),
		)
	}

	if lastErr == nil {
		return nil, eris.New("extractor: every provider breaker is open")
	}
	return nil, eris.Wrap(lastErr, "extractor: all providers unavailable")
}
