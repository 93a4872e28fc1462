package ratio

import (
	"math"

	"github.com/crestline-labs/fincompare/internal/model"
)

// quickRatioInventoryFactor is the fixed conservative estimate standing in
// for inventory exclusion, since inventory is not separately tracked.
const quickRatioInventoryFactor = 0.7

// Calculator derives financial ratios from a normalized metrics bag.
// The zero value uses the default quick-ratio factor.
type Calculator struct {
	quickFactor float64
}

// NewCalculator creates a Calculator. A non-positive quickFactor falls back
// to the shipped default.
func NewCalculator(quickFactor float64) *Calculator {
	if quickFactor <= 0 {
		quickFactor = quickRatioInventoryFactor
	}
	return &Calculator{quickFactor: quickFactor}
}

// CalculateAll computes every ratio whose inputs are present and non-zero;
// anything else stays nil. Percentages are multiplied by 100 and all values
// rounded to 2 decimals. Monetary inputs are in billions USD and
// sharesOutstanding in millions, so per-share values bridge with a x1000
// factor.
func (c *Calculator) CalculateAll(in model.MetricsBag) model.CalculatedRatios {
	out := make(model.CalculatedRatios, 15)
	for _, name := range AllRatioNames() {
		out[name] = nil
	}

	// Every input must be present AND non-zero for a ratio to compute.
	get := func(names ...string) (float64, bool) {
		v, ok := in.First(names...)
		return v, ok && v != 0
	}

	revenue, hasRevenue := get(model.MetricRevenue)
	netIncome, hasNetIncome := get(model.MetricNetIncome)
	gross, hasGross := get(model.MetricGrossProfit)
	operating, hasOperating := get(model.MetricOperatingIncome)
	equity, hasEquity := get(model.MetricShareholdersEquity)
	totalAssets, hasAssets := get(model.MetricTotalAssets)
	debt, hasDebt := get(model.MetricTotalDebt, model.MetricDebt)
	currentAssets, hasCurAssets := get(model.MetricCurrentAssets)
	currentLiabilities, hasCurLiab := get(model.MetricCurrentLiabilities)
	cash, hasCash := get(model.MetricCashEquivalents)
	shares, hasShares := get(model.MetricSharesOutstanding)
	price, hasPrice := get(model.MetricStockPrice)

	if hasGross && hasRevenue {
		setRatio(out, model.RatioGrossMargin, gross/revenue*100)
	}
	if hasOperating && hasRevenue {
		setRatio(out, model.RatioOperatingMargin, operating/revenue*100)
	}
	if hasNetIncome && hasRevenue {
		setRatio(out, model.RatioProfitMargin, netIncome/revenue*100)
	}
	if hasNetIncome && hasEquity {
		setRatio(out, model.RatioROE, netIncome/equity*100)
	}
	if hasNetIncome && hasAssets {
		setRatio(out, model.RatioROA, netIncome/totalAssets*100)
	}
	if hasNetIncome && hasDebt && hasEquity && debt+equity != 0 {
		setRatio(out, model.RatioROIC, netIncome/(debt+equity)*100)
	}
	if hasCurAssets && hasCurLiab {
		setRatio(out, model.RatioCurrentRatio, currentAssets/currentLiabilities)
		setRatio(out, model.RatioQuickRatio, currentAssets*c.quickFactor/currentLiabilities)
	}
	if hasCash && hasCurLiab {
		setRatio(out, model.RatioCashRatio, cash/currentLiabilities)
	}
	if hasDebt && hasEquity {
		setRatio(out, model.RatioDebtToEquity, debt/equity)
	}
	if hasDebt && hasAssets {
		setRatio(out, model.RatioDebtToAssets, debt/totalAssets*100)
	}

	var eps, bvps float64
	var hasEPS, hasBVPS bool
	if hasNetIncome && hasShares {
		eps = netIncome * 1000 / shares
		hasEPS = true
		setRatio(out, model.RatioEPS, eps)
	}
	if hasEquity && hasShares {
		bvps = equity * 1000 / shares
		hasBVPS = true
		setRatio(out, model.RatioBookValuePerShare, bvps)
	}
	if hasPrice && hasEPS && eps != 0 {
		setRatio(out, model.RatioPriceToEarnings, price/eps)
	}
	if hasPrice && hasBVPS && bvps != 0 {
		setRatio(out, model.RatioPriceToBook, price/bvps)
	}

	return out
}

// setRatio stores a rounded value, dropping non-finite results.
func setRatio(r model.CalculatedRatios, name string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	rounded := math.Round(v*100) / 100
	r[name] = &rounded
}

// ConfidenceScore grades extraction completeness: the fraction of non-nil
// computed ratios plus presence bonuses for key input pairs, capped at 1.0.
func (c *Calculator) ConfidenceScore(in model.MetricsBag, ratios model.CalculatedRatios) float64 {
	total := len(AllRatioNames())
	present := 0
	for _, name := range AllRatioNames() {
		if _, ok := ratios.Get(name); ok {
			present++
		}
	}

	score := float64(present) / float64(total)

	if _, ok := in.Get(model.MetricRevenue); ok {
		if _, ok := in.Get(model.MetricNetIncome); ok {
			score += 0.2
		}
	}
	if _, ok := in.Get(model.MetricTotalAssets); ok {
		if _, ok := in.Get(model.MetricShareholdersEquity); ok {
			score += 0.15
		}
	}
	if _, ok := in.Get(model.MetricCurrentAssets); ok {
		if _, ok := in.Get(model.MetricCurrentLiabilities); ok {
			score += 0.1
		}
	}

	if score > 1 {
		score = 1
	}
	return score
}
