package numparse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crestline-labs/fincompare/internal/model"
)

func TestDetectContext_Defaults(t *testing.T) {
	ctx := DetectContext("No financial markers here at all.")

	assert.Equal(t, model.ScaleUnits, ctx.Scale)
	assert.Equal(t, model.CurrencyUnknown, ctx.Currency)
	assert.Empty(t, ctx.Period)
	assert.False(t, ctx.IsQuarterly)
}

func TestDetectContext_ScaleWords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want model.Scale
	}{
		{"millions", "All amounts in millions unless otherwise stated", model.ScaleMillions},
		{"billions", "Figures expressed in billions of dollars", model.ScaleBillions},
		{"thousands", "(in thousands, except per share data)", model.ScaleThousands},
		{"crores", "Total revenue ₹8,300 crores for the period", model.ScaleCrores},
		{"lakhs", "Expenses of 450 lakhs were recorded", model.ScaleLakhs},
		{"first match wins", "in millions; later the report mentions billions", model.ScaleMillions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectContext(tt.text).Scale)
		})
	}
}

func TestDetectContext_Currency(t *testing.T) {
	tests := []struct {
		name string
		text string
		want model.Currency
	}{
		{"rupee symbol", "Total revenue ₹8,300 crores", model.CurrencyINR},
		{"Rs marker", "Revenue of Rs 8,300 crores", model.CurrencyINR},
		{"INR code", "Reported in INR millions", model.CurrencyINR},
		{"dollar", "Revenue was $10.5 billion", model.CurrencyUSD},
		{"euro", "Revenue was €4.2 billion", model.CurrencyEUR},
		{"pound", "Revenue was £3.1 billion", model.CurrencyGBP},
		{"usd code", "amounts in USD millions", model.CurrencyUSD},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectContext(tt.text).Currency)
		})
	}
}

func TestDetectContext_Period(t *testing.T) {
	ctx := DetectContext("For the quarter ended March 31, 2024, the company reported revenue.")

	assert.Contains(t, ctx.Period, "March 31, 2024")
	assert.True(t, ctx.IsQuarterly)
}

func TestDetectContext_FiscalYearNotQuarterly(t *testing.T) {
	ctx := DetectContext("For the fiscal year ended December 31, 2023.\nmore text")

	assert.Contains(t, ctx.Period, "December 31, 2023")
	assert.False(t, ctx.IsQuarterly)
}

func TestDetectContext_QuarterlyFlag(t *testing.T) {
	ctx := DetectContext("Q3 results exceeded guidance.")
	assert.True(t, ctx.IsQuarterly)
}
