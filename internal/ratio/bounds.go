package ratio

import (
	"go.uber.org/zap"

	"github.com/crestline-labs/fincompare/internal/model"
)

// bound is an inclusive plausible range for one ratio.
type bound struct {
	lo, hi float64
}

// ratioBounds documents the plausible range per ratio. Values outside the
// range are coerced to nil rather than surfaced.
var ratioBounds = map[string]bound{
	model.RatioGrossMargin:       {-100, 100},
	model.RatioOperatingMargin:   {-100, 100},
	model.RatioProfitMargin:      {-100, 100},
	model.RatioROE:               {-100, 200},
	model.RatioROA:               {-100, 100},
	model.RatioROIC:              {-100, 200},
	model.RatioCurrentRatio:      {0, 50},
	model.RatioQuickRatio:        {0, 50},
	model.RatioCashRatio:         {0, 50},
	model.RatioDebtToEquity:      {0, 50},
	model.RatioDebtToAssets:      {0, 100},
	model.RatioEPS:               {-1000, 1000},
	model.RatioBookValuePerShare: {-1000, 10000},
	model.RatioPriceToEarnings:   {-1000, 1000},
	model.RatioPriceToBook:       {0, 100},
}

// AllRatioNames returns the ratio names in a fixed order.
func AllRatioNames() []string {
	return []string{
		model.RatioGrossMargin,
		model.RatioOperatingMargin,
		model.RatioProfitMargin,
		model.RatioROE,
		model.RatioROA,
		model.RatioROIC,
		model.RatioCurrentRatio,
		model.RatioQuickRatio,
		model.RatioCashRatio,
		model.RatioDebtToEquity,
		model.RatioDebtToAssets,
		model.RatioEPS,
		model.RatioBookValuePerShare,
		model.RatioPriceToEarnings,
		model.RatioPriceToBook,
	}
}

// Validate clamps each ratio to its documented plausible range, replacing
// out-of-range values with nil. The coercion is logged at debug and is the
// only signal for an implausible value.
func Validate(ratios model.CalculatedRatios) model.CalculatedRatios {
	out := make(model.CalculatedRatios, len(ratios))
	for name, v := range ratios {
		if v == nil {
			out[name] = nil
			continue
		}
		b, ok := ratioBounds[name]
		if !ok {
			out[name] = v
			continue
		}
		if *v < b.lo || *v > b.hi {
			zap.L().Debug("ratio: implausible value coerced to null",
				zap.String("ratio", name),
				zap.Float64("value", *v),
				zap.Float64("lo", b.lo),
				zap.Float64("hi", b.hi),
			)
			out[name] = nil
			continue
		}
		out[name] = v
	}
	return out
}
