package kpinorm

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var valueCleaner = strings.NewReplacer("$", "", "₹", "", "€", "", "£", "", ",", "", " ", "", "\t", "")

var (
	billionSuffixRe = regexp.MustCompile(`(?i)(b|billion)$`)
	millionSuffixRe = regexp.MustCompile(`(?i)(m|million)$`)
)

// NormalizeMetricValue coerces heterogeneous numeric representations to a
// canonical billions value. Numbers pass through unchanged; strings are
// stripped of currency symbols and separators, with b/billion kept as-is
// and m/million divided down. Non-numeric input yields nil, never an error.
func NormalizeMetricValue(v any) *float64 {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return finite(float64(n))
	case int64:
		return finite(float64(n))
	case string:
		return normalizeStringValue(n)
	default:
		return nil
	}
}

func normalizeStringValue(s string) *float64 {
	cleaned := valueCleaner.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return nil
	}

	divisor := 1.0
	if billionSuffixRe.MatchString(cleaned) {
		cleaned = billionSuffixRe.ReplaceAllString(cleaned, "")
	} else if millionSuffixRe.MatchString(cleaned) {
		cleaned = millionSuffixRe.ReplaceAllString(cleaned, "")
		divisor = 1000
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return finite(f / divisor)
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
