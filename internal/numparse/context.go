package numparse

import (
	"regexp"
	"strings"

	"github.com/crestline-labs/fincompare/internal/model"
)

var (
	scaleRe    = regexp.MustCompile(`(?i)\b(thousands|millions|billions|crores|lakhs)\b`)
	currencyRe = regexp.MustCompile(`₹|Rs\.?\s|\bINR\b|\$|\bUSD\b|€|\bEUR\b|£|\bGBP\b`)
	periodRe   = regexp.MustCompile(`(?i)(quarter ended|three months ended|fiscal year ended)[\s:]+([^.\n;]{1,48})`)
	quarterRe  = regexp.MustCompile(`(?i)\bQ[1-4]\b|\bquarterly\b`)
)

// DetectContext scans the whole document once for scale words, currency
// markers, and a reporting-period phrase. The first match wins per category;
// absence yields defaults (units, unknown, empty period).
func DetectContext(text string) model.FinancialContext {
	ctx := model.FinancialContext{
		Scale:    model.ScaleUnits,
		Currency: model.CurrencyUnknown,
	}

	if m := scaleRe.FindString(text); m != "" {
		ctx.Scale = model.Scale(strings.ToLower(m))
	}

	if m := currencyRe.FindString(text); m != "" {
		ctx.Currency = classifyCurrency(m)
	}

	if m := periodRe.FindStringSubmatch(text); len(m) == 3 {
		ctx.Period = strings.TrimSpace(m[2])
		anchor := strings.ToLower(m[1])
		if strings.Contains(anchor, "quarter") || strings.Contains(anchor, "three months") {
			ctx.IsQuarterly = true
		}
	}
	if !ctx.IsQuarterly && quarterRe.MatchString(text) {
		ctx.IsQuarterly = true
	}

	return ctx
}

func classifyCurrency(marker string) model.Currency {
	switch strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(marker), ".")) {
	case "₹", "Rs", "INR":
		return model.CurrencyINR
	case "$", "USD":
		return model.CurrencyUSD
	case "€", "EUR":
		return model.CurrencyEUR
	case "£", "GBP":
		return model.CurrencyGBP
	default:
		return model.CurrencyUnknown
	}
}
