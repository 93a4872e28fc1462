// Package cost estimates API spend for the AI extraction providers so
// per-document usage can be logged and budgeted.
package cost

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    map[string]ModelRate `yaml:"gemini" mapstructure:"gemini"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Anthropic computes the cost in dollars for one Anthropic API call.
// Unknown models cost zero.
func (c *Calculator) Anthropic(model string, input, output int64) float64 {
	return tokenCost(c.rates.Anthropic, model, input, output)
}

// Gemini computes the cost in dollars for one Gemini API call.
func (c *Calculator) Gemini(model string, input, output int64) float64 {
	return tokenCost(c.rates.Gemini, model, input, output)
}

func tokenCost(rates map[string]ModelRate, model string, input, output int64) float64 {
	rate, ok := rates[model]
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		},
		Gemini: map[string]ModelRate{
			"gemini-2.0-flash": {Input: 0.10, Output: 0.40},
			"gemini-1.5-pro":   {Input: 1.25, Output: 5.00},
		},
	}
}

var defaultCalculator = NewCalculator(DefaultRates())

// Anthropic estimates the cost of an Anthropic call at default rates.
func Anthropic(model string, input, output int64) float64 {
	return defaultCalculator.Anthropic(model, input, output)
}

// Gemini estimates the cost of a Gemini call at default rates.
func Gemini(model string, input, output int64) float64 {
	return defaultCalculator.Gemini(model, input, output)
}
