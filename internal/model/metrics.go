package model

import "math"

// Scale is the magnitude qualifier detected in a document.
type Scale string

const (
	ScaleThousands Scale = "thousands"
	ScaleMillions  Scale = "millions"
	ScaleBillions  Scale = "billions"
	ScaleCrores    Scale = "crores"
	ScaleLakhs     Scale = "lakhs"
	ScaleUnits     Scale = "units"
)

// Currency is the reporting currency detected in a document.
type Currency string

const (
	CurrencyUSD     Currency = "USD"
	CurrencyINR     Currency = "INR"
	CurrencyEUR     Currency = "EUR"
	CurrencyGBP     Currency = "GBP"
	CurrencyUnknown Currency = "unknown"
)

// Provenance records which extraction pass produced a value.
type Provenance string

const (
	ProvenanceHeuristic Provenance = "heuristic"
	ProvenanceAI        Provenance = "ai"
)

// FinancialContext is the document-wide scale/currency/period context,
// derived once per document and immutable afterward.
type FinancialContext struct {
	Scale       Scale    `json:"scale"`
	Currency    Currency `json:"currency"`
	Period      string   `json:"period,omitempty"`
	IsQuarterly bool     `json:"is_quarterly"`
}

// ExtractedNumber is one numeric candidate for a metric. Value is already
// converted to canonical units (billions USD).
type ExtractedNumber struct {
	Value      float64    `json:"value"`
	Raw        string     `json:"raw"`
	Confidence float64    `json:"confidence"`
	Scale      Scale      `json:"scale"`
	Currency   Currency   `json:"currency"`
	Provenance Provenance `json:"provenance"`
	Evidence   string     `json:"evidence,omitempty"`
}

// Canonical metric names. Monetary metrics are in billions USD,
// sharesOutstanding is in millions of shares, stockPrice is in dollars.
const (
	MetricRevenue            = "revenue"
	MetricNetIncome          = "netIncome"
	MetricGrossProfit        = "grossProfit"
	MetricOperatingIncome    = "operatingIncome"
	MetricEBITDA             = "ebitda"
	MetricTotalAssets        = "totalAssets"
	MetricCashEquivalents    = "cashEquivalents"
	MetricDebt               = "debt"
	MetricTotalDebt          = "totalDebt"
	MetricShareholdersEquity = "shareholdersEquity"
	MetricCurrentAssets      = "currentAssets"
	MetricCurrentLiabilities = "currentLiabilities"
	MetricSharesOutstanding  = "sharesOutstanding"
	MetricBookValue          = "bookValue"
	MetricStockPrice         = "stockPrice"
)

// MetricsBag maps canonical metric names to nullable numeric values.
// Invariant: every present value is finite, never NaN or Inf.
type MetricsBag map[string]*float64

// Get returns the value for name and whether it is present and non-nil.
func (b MetricsBag) Get(name string) (float64, bool) {
	v, ok := b[name]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// First returns the first present non-nil value among names.
func (b MetricsBag) First(names ...string) (float64, bool) {
	for _, n := range names {
		if v, ok := b.Get(n); ok {
			return v, true
		}
	}
	return 0, false
}

// Set stores a value, dropping non-finite inputs to preserve the bag
// invariant.
func (b MetricsBag) Set(name string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	b[name] = &v
}

// Clone returns a deep copy of the bag.
func (b MetricsBag) Clone() MetricsBag {
	out := make(MetricsBag, len(b))
	for k, v := range b {
		if v == nil {
			out[k] = nil
			continue
		}
		c := *v
		out[k] = &c
	}
	return out
}

// CalculatedRatios maps ratio names to nullable percentages or multiples.
type CalculatedRatios map[string]*float64

// Ratio names produced by the calculator.
const (
	RatioGrossMargin       = "grossMargin"
	RatioOperatingMargin   = "operatingMargin"
	RatioProfitMargin      = "profitMargin"
	RatioROE               = "returnOnEquity"
	RatioROA               = "returnOnAssets"
	RatioROIC              = "returnOnInvestedCapital"
	RatioCurrentRatio      = "currentRatio"
	RatioQuickRatio        = "quickRatio"
	RatioCashRatio         = "cashRatio"
	RatioDebtToEquity      = "debtToEquity"
	RatioDebtToAssets      = "debtToAssets"
	RatioEPS               = "earningsPerShare"
	RatioBookValuePerShare = "bookValuePerShare"
	RatioPriceToEarnings   = "priceToEarnings"
	RatioPriceToBook       = "priceToBook"
)

// Get returns the ratio value and whether it is present and non-nil.
func (r CalculatedRatios) Get(name string) (float64, bool) {
	v, ok := r[name]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// NameMatchResult is the outcome of comparing a user-entered company name
// against an extracted one.
type NameMatchResult struct {
	IsMatch        bool     `json:"is_match"`
	Confidence     float64  `json:"confidence"`
	NormalizedUser string   `json:"normalized_user"`
	NormalizedAI   string   `json:"normalized_ai"`
	Issues         []string `json:"issues,omitempty"`
}
