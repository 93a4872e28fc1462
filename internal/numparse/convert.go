package numparse

import (
	"math"

	"github.com/crestline-labs/fincompare/internal/model"
)

// ConversionRates holds the currency rates applied after scale conversion.
// These are startup configuration with documented staleness, never fetched
// live.
type ConversionRates struct {
	INRPerUSD float64 `mapstructure:"inr_per_usd"`
	EURToUSD  float64 `mapstructure:"eur_to_usd"`
	GBPToUSD  float64 `mapstructure:"gbp_to_usd"`
}

// DefaultRates are the shipped conversion defaults.
func DefaultRates() ConversionRates {
	return ConversionRates{
		INRPerUSD: 83,
		EURToUSD:  1.1,
		GBPToUSD:  1.25,
	}
}

// scaleDivisors convert a raw number under the given scale to billions.
// Unrecognized scales are treated as raw units.
var scaleDivisors = map[model.Scale]float64{
	model.ScaleThousands: 1e6,
	model.ScaleMillions:  1e3,
	model.ScaleBillions:  1,
	model.ScaleCrores:    100,
	model.ScaleLakhs:     10000,
	model.ScaleUnits:     1e9,
}

// ConvertToCanonical converts a raw document number to billions USD: the
// scale divisor applies first, then the currency multiplier. The result is
// rounded to 3 decimal places.
func ConvertToCanonical(value float64, scale model.Scale, currency model.Currency, rates ConversionRates) float64 {
	divisor, ok := scaleDivisors[scale]
	if !ok {
		divisor = 1e9
	}
	v := value / divisor

	// A zero or negative configured rate would silently zero or flip every
	// converted value, so each path falls back to no conversion instead.
	switch currency {
	case model.CurrencyINR:
		if rates.INRPerUSD > 0 {
			v /= rates.INRPerUSD
		}
	case model.CurrencyEUR:
		if rates.EURToUSD > 0 {
			v *= rates.EURToUSD
		}
	case model.CurrencyGBP:
		if rates.GBPToUSD > 0 {
			v *= rates.GBPToUSD
		}
	}

	return Round3(v)
}

// Round3 rounds to 3 decimal places.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
