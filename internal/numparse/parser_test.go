package numparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestline-labs/fincompare/internal/model"
)

func TestExtractCandidates_CroresRupees(t *testing.T) {
	text := "Total revenue ₹8,300 crores was reported for the fiscal period."
	ctx := DetectContext(text)
	require.Equal(t, model.ScaleCrores, ctx.Scale)
	require.Equal(t, model.CurrencyINR, ctx.Currency)

	p := NewParser(DefaultRates())
	candidates := p.ExtractCandidates(text, ctx)

	require.NotEmpty(t, candidates[model.MetricRevenue])
	best := candidates[model.MetricRevenue][0]
	assert.InDelta(t, 1.0, best.Value, 0.0005) // 8300 / 100 / 83
	assert.Equal(t, model.ProvenanceHeuristic, best.Provenance)
	assert.Contains(t, best.Evidence, "8,300")
}

func TestExtractCandidates_ParenthesizedNegative(t *testing.T) {
	text := "In millions. Net income was $(250) for the quarter."
	p := NewParser(DefaultRates())
	ctx := DetectContext(text)

	candidates := p.ExtractCandidates(text, ctx)

	require.NotEmpty(t, candidates[model.MetricNetIncome])
	assert.InDelta(t, -0.25, candidates[model.MetricNetIncome][0].Value, 0.0005)
}

func TestExtractCandidates_UnparsableTokensSkipped(t *testing.T) {
	// The anchor sentence carries no parseable number token.
	text := "In millions. Revenue grew substantially year over year."
	p := NewParser(DefaultRates())

	candidates := p.ExtractCandidates(text, DetectContext(text))

	assert.Empty(t, candidates[model.MetricRevenue])
}

func TestExtractCandidates_UnbalancedParenInProse(t *testing.T) {
	// The opening paren of "(see note 3)" sits outside the number token, so
	// the stray close paren must not cost the sentence its real number.
	text := "In millions. Revenue (see note 3) was $5,000 for the fiscal year."
	p := NewParser(DefaultRates())

	candidates := p.ExtractCandidates(text, DetectContext(text))

	require.NotEmpty(t, candidates[model.MetricRevenue])
	values := make([]float64, 0, len(candidates[model.MetricRevenue]))
	for _, n := range candidates[model.MetricRevenue] {
		values = append(values, n.Value)
	}
	assert.Contains(t, values, 5.0)
}

func TestExtractCandidates_MultipleCandidatesSorted(t *testing.T) {
	text := "All figures in millions of USD. " +
		"Total revenue was $12,500 compared to 11,800 in the prior fiscal year. " +
		"Gross profit reached 4,100 for the year."
	p := NewParser(DefaultRates())

	candidates := p.ExtractCandidates(text, DetectContext(text))

	revs := candidates[model.MetricRevenue]
	require.GreaterOrEqual(t, len(revs), 2)
	for i := 1; i < len(revs); i++ {
		assert.GreaterOrEqual(t, revs[i-1].Confidence, revs[i].Confidence)
	}
	require.NotEmpty(t, candidates[model.MetricGrossProfit])
	assert.InDelta(t, 4.1, candidates[model.MetricGrossProfit][0].Value, 0.0005)
}

func TestExtractCandidates_NonMatchingSentencesIgnored(t *testing.T) {
	text := "In millions. The weather was nice with 72 degrees outside."
	p := NewParser(DefaultRates())

	candidates := p.ExtractCandidates(text, DetectContext(text))

	assert.Empty(t, candidates)
}

func TestExtractCandidates_ConfidenceBounds(t *testing.T) {
	text := "In millions. Revenue of $5,000 with strong operating income of 1,200 and net income of 900 for the fiscal year."
	p := NewParser(DefaultRates())

	for _, nums := range p.ExtractCandidates(text, DetectContext(text)) {
		for _, n := range nums {
			assert.GreaterOrEqual(t, n.Confidence, 0.0)
			assert.LessOrEqual(t, n.Confidence, 1.0)
		}
	}
}

func TestScoreCandidate(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		sentence string
		label    string
		want     float64
	}{
		{"plausible with vocab and label", 1.0, "total revenue for the fiscal year", "revenue", 1.0},
		{"plausible only", 1.0, "the number stands at", "revenue", 0.8},
		{"far outside window", 5e6, "the number stands at", "revenue", 0.5},
		{"negative plausible", -2.5, "net loss for the fiscal year", "net income", 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, scoreCandidate(tt.value, tt.sentence, tt.label), 1e-9)
		})
	}
}

func TestParseNumberToken(t *testing.T) {
	tests := []struct {
		token string
		want  float64
		ok    bool
	}{
		{"$12,500.75", 12500.75, true},
		{"(250)", -250, true},
		{"₹8,300", 8300, true},
		{"Rs 1,200", 1200, true},
		{"€450.5", 450.5, true},
		{"( 75 )", -75, true},
		{"3)", 3, true},
		{"(5,000", 5000, true},
		{"(-)", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			_, got, ok := parseNumberToken(tt.token)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}
