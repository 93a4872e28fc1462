// Package insights builds short deterministic narratives from extracted
// metrics and calculated ratios. No model calls: the same inputs always
// produce the same text, so analyses stay reproducible and diffable.
package insights

import (
	"fmt"
	"strings"

	"github.com/crestline-labs/fincompare/internal/model"
)

// Margin and liquidity thresholds used to phrase the narrative.
const (
	strongMarginPct  = 15.0
	thinMarginPct    = 5.0
	healthyCurrent   = 1.5
	stretchedCurrent = 1.0
	highLeverage     = 2.0
)

// BuildNarrative summarizes one company's analysis. Sections appear in a
// fixed order and only when their inputs are present.
func BuildNarrative(company string, metrics model.MetricsBag, ratios model.CalculatedRatios) string {
	var lines []string

	if revenue, ok := metrics.Get(model.MetricRevenue); ok {
		line := fmt.Sprintf("%s reported revenue of %s.", company, formatBillions(revenue))
		if netIncome, ok := metrics.Get(model.MetricNetIncome); ok {
			line = fmt.Sprintf("%s reported revenue of %s and net income of %s.",
				company, formatBillions(revenue), formatBillions(netIncome))
		}
		lines = append(lines, line)
	}

	if margin, ok := ratios.Get(model.RatioProfitMargin); ok {
		switch {
		case margin >= strongMarginPct:
			lines = append(lines, fmt.Sprintf("Profitability is strong with a %.1f%% net margin.", margin))
		case margin < thinMarginPct && margin >= 0:
			lines = append(lines, fmt.Sprintf("Margins are thin at %.1f%%.", margin))
		case margin < 0:
			lines = append(lines, fmt.Sprintf("The company is loss-making with a %.1f%% net margin.", margin))
		default:
			lines = append(lines, fmt.Sprintf("Net margin stands at %.1f%%.", margin))
		}
	}

	if current, ok := ratios.Get(model.RatioCurrentRatio); ok {
		switch {
		case current >= healthyCurrent:
			lines = append(lines, fmt.Sprintf("Liquidity looks healthy with a current ratio of %.2f.", current))
		case current < stretchedCurrent:
			lines = append(lines, fmt.Sprintf("Liquidity is stretched with a current ratio of %.2f.", current))
		default:
			lines = append(lines, fmt.Sprintf("The current ratio of %.2f is adequate.", current))
		}
	}

	if dte, ok := ratios.Get(model.RatioDebtToEquity); ok {
		if dte >= highLeverage {
			lines = append(lines, fmt.Sprintf("Leverage is elevated with debt at %.2fx equity.", dte))
		} else {
			lines = append(lines, fmt.Sprintf("Debt stands at %.2fx equity.", dte))
		}
	}

	if roe, ok := ratios.Get(model.RatioROE); ok {
		lines = append(lines, fmt.Sprintf("Return on equity is %.1f%%.", roe))
	}

	if pe, ok := ratios.Get(model.RatioPriceToEarnings); ok {
		lines = append(lines, fmt.Sprintf("Shares trade at %.1fx earnings.", pe))
	}

	if len(lines) == 0 {
		return fmt.Sprintf("Not enough extracted data to characterize %s.", company)
	}
	return strings.Join(lines, " ")
}

// narratedComparisonMetrics are the deltas worth a sentence, in the order
// they should appear.
var narratedComparisonMetrics = []string{
	model.MetricRevenue,
	model.MetricNetIncome,
	model.MetricTotalAssets,
}

// BuildComparisonNarrative summarizes the leader and spread for the
// headline metrics of a comparison.
func BuildComparisonNarrative(analyses []model.AnalysisResult, deltas []model.MetricDelta) string {
	if len(analyses) < 2 {
		return ""
	}

	byMetric := make(map[string]model.MetricDelta, len(deltas))
	for _, d := range deltas {
		byMetric[d.Metric] = d
	}

	var lines []string
	for _, metric := range narratedComparisonMetrics {
		d, ok := byMetric[metric]
		if !ok {
			continue
		}
		if d.SpreadPct != nil {
			lines = append(lines, fmt.Sprintf("On %s, %s leads %s by %.1f%% (%s vs %s).",
				metricPhrase(metric), d.Leader, d.Trailer, *d.SpreadPct,
				formatBillions(d.LeaderVal), formatBillions(d.TrailerVal)))
		} else {
			lines = append(lines, fmt.Sprintf("On %s, %s leads %s (%s vs %s).",
				metricPhrase(metric), d.Leader, d.Trailer,
				formatBillions(d.LeaderVal), formatBillions(d.TrailerVal)))
		}
	}

	if len(lines) == 0 {
		names := make([]string, len(analyses))
		for i, a := range analyses {
			names[i] = a.Company
		}
		return fmt.Sprintf("Compared %s with no overlapping metrics.", strings.Join(names, ", "))
	}
	return strings.Join(lines, " ")
}

func metricPhrase(metric string) string {
	switch metric {
	case model.MetricRevenue:
		return "revenue"
	case model.MetricNetIncome:
		return "net income"
	case model.MetricTotalAssets:
		return "total assets"
	default:
		return metric
	}
}

// formatBillions renders a canonical billions-USD value, switching to
// millions below 1.0 for readability.
func formatBillions(v float64) string {
	if v < 0 {
		return "-" + formatBillions(-v)
	}
	if v < 1.0 {
		return fmt.Sprintf("$%.0fM", v*1000)
	}
	return fmt.Sprintf("$%.2fB", v)
}
