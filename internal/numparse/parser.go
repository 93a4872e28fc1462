package numparse

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/crestline-labs/fincompare/internal/model"
)

const (
	baseConfidence = 0.7

	// Plausible magnitude window, in billions USD after conversion.
	plausibleMin = 0.001
	plausibleMax = 10000

	// Outside this envelope a candidate is considered far off and penalized.
	farOffMin = 1e-6
	farOffMax = 1e6

	maxEvidenceLen = 160
)

// termPattern anchors one canonical metric to sentences mentioning it.
type termPattern struct {
	metric  string
	label   string
	pattern *regexp.Regexp
}

var termPatterns = []termPattern{
	{model.MetricRevenue, "revenue", regexp.MustCompile(`(?i)\b(?:total\s+)?(?:revenue|revenues|net\s+sales|turnover)\b`)},
	{model.MetricNetIncome, "net income", regexp.MustCompile(`(?i)\bnet\s+(?:income|profit|earnings)\b|\bprofit\s+after\s+tax\b`)},
	{model.MetricTotalAssets, "total assets", regexp.MustCompile(`(?i)\btotal\s+assets\b`)},
	{model.MetricCashEquivalents, "cash", regexp.MustCompile(`(?i)\bcash\s+(?:and|&)\s+(?:cash\s+)?equivalents\b|\bcash\s+balance\b`)},
	{model.MetricTotalDebt, "debt", regexp.MustCompile(`(?i)\b(?:total\s+)?(?:debt|borrowings)\b`)},
	{model.MetricEBITDA, "ebitda", regexp.MustCompile(`(?i)\bEBITDA\b`)},
	{model.MetricGrossProfit, "gross profit", regexp.MustCompile(`(?i)\bgross\s+profit\b`)},
	{model.MetricOperatingIncome, "operating income", regexp.MustCompile(`(?i)\boperating\s+(?:income|profit)\b`)},
	{model.MetricSharesOutstanding, "shares outstanding", regexp.MustCompile(`(?i)\bshares\s+outstanding\b|\boutstanding\s+shares\b`)},
	{model.MetricBookValue, "book value", regexp.MustCompile(`(?i)\bbook\s+value\b`)},
}

// financialVocabRe marks sentences carrying generic financial vocabulary.
var financialVocabRe = regexp.MustCompile(`(?i)\b(fiscal|quarter|annual|income|profit|loss|assets|liabilities|equity|margin|earnings|consolidated)\b`)

// numberTokenRe matches monetary number tokens: optional parentheses for
// negatives, optional currency symbol, comma grouping, decimal fraction.
var numberTokenRe = regexp.MustCompile(`\(?\s*-?(?:[$₹€£]|Rs\.?\s*)?\d[\d,]*(?:\.\d+)?\s*\)?`)

var sentenceSplitRe = regexp.MustCompile(`[.!?;]\s+|\n+`)

var numberCleaner = strings.NewReplacer(",", "", "$", "", "₹", "", "€", "", "£", "", "Rs.", "", "Rs", "", " ", "")

// Parser extracts monetary value candidates near known financial-term
// anchors.
type Parser struct {
	rates ConversionRates
}

// NewParser creates a parser using the given conversion rates.
func NewParser(rates ConversionRates) *Parser {
	return &Parser{rates: rates}
}

// ExtractCandidates splits the document into sentences, tests each against
// the fixed financial-term patterns, and parses number tokens from matching
// sentences. Unparsable tokens are silently skipped; a sentence may yield
// zero or many candidates for the same metric. Candidates per metric are
// sorted by descending confidence.
func (p *Parser) ExtractCandidates(text string, ctx model.FinancialContext) map[string][]model.ExtractedNumber {
	out := make(map[string][]model.ExtractedNumber)
	sentences := sentenceSplitRe.Split(text, -1)

	for _, tp := range termPatterns {
		for _, sentence := range sentences {
			if !tp.pattern.MatchString(sentence) {
				continue
			}
			for _, token := range numberTokenRe.FindAllString(sentence, -1) {
				raw, value, ok := parseNumberToken(token)
				if !ok {
					continue
				}
				canonical := ConvertToCanonical(value, ctx.Scale, ctx.Currency, p.rates)
				out[tp.metric] = append(out[tp.metric], model.ExtractedNumber{
					Value:      canonical,
					Raw:        raw,
					Confidence: scoreCandidate(canonical, sentence, tp.label),
					Scale:      ctx.Scale,
					Currency:   ctx.Currency,
					Provenance: model.ProvenanceHeuristic,
					Evidence:   snippet(sentence),
				})
			}
		}
		sort.SliceStable(out[tp.metric], func(i, j int) bool {
			return out[tp.metric][i].Confidence > out[tp.metric][j].Confidence
		})
	}

	if len(out) > 0 {
		zap.L().Debug("numparse: heuristic candidates extracted",
			zap.Int("metrics", len(out)),
			zap.String("scale", string(ctx.Scale)),
			zap.String("currency", string(ctx.Currency)),
		)
	}
	return out
}

// parseNumberToken parses one matched token to a float, negating values
// enclosed in parentheses. Returns ok=false for tokens that do not survive
// cleaning (best-effort extraction drops them).
func parseNumberToken(token string) (string, float64, bool) {
	raw := strings.TrimSpace(token)
	body := raw
	negative := false
	if strings.HasPrefix(body, "(") && strings.HasSuffix(body, ")") {
		negative = true
		body = body[1 : len(body)-1]
	} else {
		// An unbalanced paren comes from prose like "(see note 3) revenue
		// was 5,000" where the partner sits outside the match. It carries
		// no sign, so drop it rather than the number.
		body = strings.TrimPrefix(body, "(")
		body = strings.TrimSuffix(body, ")")
	}

	body = numberCleaner.Replace(strings.TrimSpace(body))
	if body == "" || body == "-" {
		return raw, 0, false
	}

	value, err := strconv.ParseFloat(body, 64)
	if err != nil {
		return raw, 0, false
	}
	if negative {
		value = -value
	}
	return raw, value, true
}

// scoreCandidate computes extraction confidence: base 0.7, adjusted for
// magnitude plausibility, financial vocabulary, and a literal metric-name
// mention, clamped to [0,1].
func scoreCandidate(canonical float64, sentence, label string) float64 {
	conf := baseConfidence

	abs := canonical
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= plausibleMin && abs <= plausibleMax:
		conf += 0.1
	case abs != 0 && (abs < farOffMin || abs > farOffMax):
		conf -= 0.2
	}

	if financialVocabRe.MatchString(sentence) {
		conf += 0.1
	}
	if strings.Contains(strings.ToLower(sentence), label) {
		conf += 0.1
	}

	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}

func snippet(sentence string) string {
	s := strings.TrimSpace(sentence)
	if len(s) <= maxEvidenceLen {
		return s
	}
	r := []rune(s)
	if len(r) > maxEvidenceLen {
		r = r[:maxEvidenceLen]
	}
	return string(r)
}
