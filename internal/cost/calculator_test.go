package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnthropicCost(t *testing.T) {
	c := NewCalculator(DefaultRates())

	// 1M input + 1M output at sonnet rates.
	got := c.Anthropic("claude-sonnet-4-5-20250929", 1_000_000, 1_000_000)
	assert.InDelta(t, 18.00, got, 0.001)

	// Typical extraction call.
	got = c.Anthropic("claude-sonnet-4-5-20250929", 4_000, 600)
	assert.InDelta(t, 0.021, got, 0.0001)
}

func TestGeminiCost(t *testing.T) {
	c := NewCalculator(DefaultRates())

	got := c.Gemini("gemini-2.0-flash", 1_000_000, 500_000)
	assert.InDelta(t, 0.30, got, 0.001)
}

func TestUnknownModelCostsZero(t *testing.T) {
	c := NewCalculator(DefaultRates())

	assert.Zero(t, c.Anthropic("claude-unknown", 1000, 1000))
	assert.Zero(t, c.Gemini("gemini-unknown", 1000, 1000))
}

func TestPackageLevelDefaults(t *testing.T) {
	assert.InDelta(t, 18.00, Anthropic("claude-sonnet-4-5-20250929", 1_000_000, 1_000_000), 0.001)
	assert.InDelta(t, 0.30, Gemini("gemini-2.0-flash", 1_000_000, 500_000), 0.001)
}
