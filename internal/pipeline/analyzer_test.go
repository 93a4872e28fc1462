package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestline-labs/fincompare/internal/extractor"
	"github.com/crestline-labs/fincompare/internal/marketdata"
	"github.com/crestline-labs/fincompare/internal/model"
)

// stubChain returns a canned extraction per document text.
type stubChain struct {
	byText map[string]*extractor.Extraction
	err    error
}

func (s *stubChain) Extract(ctx context.Context, text string) (*extractor.Extraction, error) {
	if s.err != nil {
		return nil, s.err
	}
	if e, ok := s.byText[text]; ok {
		return e, nil
	}
	return &extractor.Extraction{Metrics: model.MetricsBag{}, Provider: "stub"}, nil
}

type stubQuotes struct {
	quote *marketdata.Quote
	err   error
	calls int
}

func (s *stubQuotes) GetQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.quote, nil
}

func aiExtraction(company string, metrics map[string]float64) *extractor.Extraction {
	bag := model.MetricsBag{}
	for k, v := range metrics {
		bag.Set(k, v)
	}
	return &extractor.Extraction{Metrics: bag, CompanyName: company, Provider: "anthropic"}
}

func TestAnalyze(t *testing.T) {
	doc := "Acme Corp reported revenue of $10.0 billion. Net income was $1.5 billion."
	chain := &stubChain{byText: map[string]*extractor.Extraction{
		doc: aiExtraction("Acme Corporation", map[string]float64{
			model.MetricRevenue:   10,
			model.MetricNetIncome: 1.5,
		}),
	}}
	a := NewAnalyzer(Options{Chain: chain})

	result, err := a.Analyze(context.Background(), AnalyzeRequest{
		Company: "Acme Corp",
		Text:    doc,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "Acme Corp", result.Company)
	assert.Equal(t, "anthropic", result.Extractor)
	assert.False(t, result.CreatedAt.IsZero())

	margin, ok := result.Ratios.Get(model.RatioProfitMargin)
	require.True(t, ok)
	assert.InDelta(t, 15.0, margin, 1e-9)

	require.NotNil(t, result.NameMatch)
	assert.True(t, result.NameMatch.IsMatch)
	assert.Greater(t, result.Confidence, 0.0)
	assert.Contains(t, result.Narrative, "Acme Corp")
}

func TestAnalyzeNameMismatch(t *testing.T) {
	chain := &stubChain{byText: map[string]*extractor.Extraction{
		"doc": aiExtraction("Globex Industries", map[string]float64{model.MetricRevenue: 10}),
	}}
	a := NewAnalyzer(Options{Chain: chain, MatchThreshold: 0.7})

	_, err := a.Analyze(context.Background(), AnalyzeRequest{Company: "Initech", Text: "doc"})
	assert.ErrorIs(t, err, ErrNameMismatch)
}

func TestAnalyzeFuzzyNameAccepted(t *testing.T) {
	chain := &stubChain{byText: map[string]*extractor.Extraction{
		"doc": aiExtraction("Tata Motors Limited", map[string]float64{model.MetricRevenue: 1.0}),
	}}
	a := NewAnalyzer(Options{Chain: chain, MatchThreshold: 0.7})

	result, err := a.Analyze(context.Background(), AnalyzeRequest{Company: "Tata Motoes", Text: "doc"})
	require.NoError(t, err)
	require.NotNil(t, result.NameMatch)
	assert.True(t, result.NameMatch.IsMatch)
	assert.GreaterOrEqual(t, result.NameMatch.Confidence, 0.7)
}

func TestAnalyzeNoExtractedName(t *testing.T) {
	chain := &stubChain{byText: map[string]*extractor.Extraction{
		"doc": {Metrics: model.MetricsBag{}, Provider: "heuristic"},
	}}
	a := NewAnalyzer(Options{Chain: chain})

	result, err := a.Analyze(context.Background(), AnalyzeRequest{Company: "Acme", Text: "doc"})
	require.NoError(t, err)
	assert.Nil(t, result.NameMatch, "no gate without an extracted name")
}

func TestAnalyzeMergesHeuristicGaps(t *testing.T) {
	// The AI misses revenue; the document text carries it for the
	// heuristic pass.
	doc := "All amounts in ₹ crores. Revenue from operations was ₹8,300 for the quarter."
	chain := &stubChain{byText: map[string]*extractor.Extraction{
		doc: aiExtraction("Tata Motors", map[string]float64{model.MetricNetIncome: 0.15}),
	}}
	a := NewAnalyzer(Options{Chain: chain})

	result, err := a.Analyze(context.Background(), AnalyzeRequest{Company: "Tata Motors", Text: doc})
	require.NoError(t, err)

	revenue, ok := result.Metrics.Get(model.MetricRevenue)
	require.True(t, ok, "heuristic candidate should fill the gap")
	assert.InDelta(t, 1.0, revenue, 1e-9)
	assert.Contains(t, result.Evidence, model.MetricRevenue)

	assert.Equal(t, model.ScaleCrores, result.Context.Scale)
	assert.Equal(t, model.CurrencyINR, result.Context.Currency)
}

func TestAnalyzeFillsStockPrice(t *testing.T) {
	chain := &stubChain{byText: map[string]*extractor.Extraction{
		"doc": aiExtraction("Acme", map[string]float64{
			model.MetricNetIncome:         1.5,
			model.MetricSharesOutstanding: 50,
		}),
	}}
	quotes := &stubQuotes{quote: &marketdata.Quote{Symbol: "ACME.US", Close: 60}}
	a := NewAnalyzer(Options{Chain: chain, Quotes: quotes})

	result, err := a.Analyze(context.Background(), AnalyzeRequest{
		Company: "Acme",
		Text:    "doc",
		Ticker:  "acme.us",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, quotes.calls)

	price, ok := result.Metrics.Get(model.MetricStockPrice)
	require.True(t, ok)
	assert.InDelta(t, 60.0, price, 1e-9)

	// EPS = 1.5 * 1000 / 50 = 30, P/E = 60 / 30 = 2.
	pe, ok := result.Ratios.Get(model.RatioPriceToEarnings)
	require.True(t, ok)
	assert.InDelta(t, 2.0, pe, 1e-9)
}

func TestAnalyzeQuoteFailureDegrades(t *testing.T) {
	chain := &stubChain{byText: map[string]*extractor.Extraction{
		"doc": aiExtraction("Acme", map[string]float64{model.MetricRevenue: 10}),
	}}
	quotes := &stubQuotes{err: eris.New("stooq down")}
	a := NewAnalyzer(Options{Chain: chain, Quotes: quotes})

	result, err := a.Analyze(context.Background(), AnalyzeRequest{
		Company: "Acme",
		Text:    "doc",
		Ticker:  "acme.us",
	})
	require.NoError(t, err, "quote failures must not fail the analysis")
	_, ok := result.Metrics.Get(model.MetricStockPrice)
	assert.False(t, ok)
}

func TestAnalyzeDoesNotLookUpPresentPrice(t *testing.T) {
	chain := &stubChain{byText: map[string]*extractor.Extraction{
		"doc": aiExtraction("Acme", map[string]float64{model.MetricStockPrice: 42}),
	}}
	quotes := &stubQuotes{quote: &marketdata.Quote{Close: 60}}
	a := NewAnalyzer(Options{Chain: chain, Quotes: quotes})

	result, err := a.Analyze(context.Background(), AnalyzeRequest{
		Company: "Acme",
		Text:    "doc",
		Ticker:  "acme.us",
	})
	require.NoError(t, err)
	assert.Zero(t, quotes.calls)

	price, _ := result.Metrics.Get(model.MetricStockPrice)
	assert.InDelta(t, 42.0, price, 1e-9)
}

func TestAnalyzeInputValidation(t *testing.T) {
	a := NewAnalyzer(Options{Chain: &stubChain{}})

	_, err := a.Analyze(context.Background(), AnalyzeRequest{Company: "", Text: "doc"})
	assert.Error(t, err)

	_, err = a.Analyze(context.Background(), AnalyzeRequest{Company: "Acme", Text: "   "})
	assert.Error(t, err)
}

func TestAnalyzeExtractionFailure(t *testing.T) {
	chain := &stubChain{err: eris.New("all providers unavailable")}
	a := NewAnalyzer(Options{Chain: chain})

	_, err := a.Analyze(context.Background(), AnalyzeRequest{Company: "Acme", Text: "doc"})
	assert.Error(t, err)
}
