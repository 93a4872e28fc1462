// Package pipeline orchestrates a document analysis end to end: context
// detection, heuristic candidate extraction, the model extraction chain,
// merge, ratio derivation, and the narrative. It owns the order of
// operations; the stages themselves live in their own packages.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/crestline-labs/fincompare/internal/extractor"
	"github.com/crestline-labs/fincompare/internal/insights"
	"github.com/crestline-labs/fincompare/internal/kpinorm"
	"github.com/crestline-labs/fincompare/internal/marketdata"
	"github.com/crestline-labs/fincompare/internal/merge"
	"github.com/crestline-labs/fincompare/internal/model"
	"github.com/crestline-labs/fincompare/internal/numparse"
	"github.com/crestline-labs/fincompare/internal/ratio"
)

// ErrNameMismatch is returned when the extracted company name fails the
// acceptance threshold against the caller-supplied name, so mislabeled
// documents never persist under the wrong company.
var ErrNameMismatch = eris.New("pipeline: extracted company name does not match")

// ExtractionChain is the slice of the extractor chain the analyzer needs.
type ExtractionChain interface {
	Extract(ctx context.Context, text string) (*extractor.Extraction, error)
}

// QuoteSource supplies a market quote for a ticker. Optional.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (*marketdata.Quote, error)
}

// Analyzer runs the full analysis pipeline for one document.
type Analyzer struct {
	parser         *numparse.Parser
	chain          ExtractionChain
	calc           *ratio.Calculator
	quotes         QuoteSource
	matchThreshold float64
}

// Options configures an Analyzer.
type Options struct {
	Parser     *numparse.Parser
	Chain      ExtractionChain
	Calculator *ratio.Calculator
	// Quotes is optional; without it a missing stockPrice stays missing.
	Quotes QuoteSource
	// MatchThreshold is the minimum name-match confidence to accept an
	// analysis. Non-positive falls back to 0.7.
	MatchThreshold float64
}

// NewAnalyzer wires an analyzer from its stages.
func NewAnalyzer(opts Options) *Analyzer {
	if opts.MatchThreshold <= 0 {
		opts.MatchThreshold = 0.7
	}
	if opts.Parser == nil {
		opts.Parser = numparse.NewParser(numparse.DefaultRates())
	}
	if opts.Calculator == nil {
		opts.Calculator = ratio.NewCalculator(0)
	}
	return &Analyzer{
		parser:         opts.Parser,
		chain:          opts.Chain,
		calc:           opts.Calculator,
		quotes:         opts.Quotes,
		matchThreshold: opts.MatchThreshold,
	}
}

// AnalyzeRequest is one document to analyze.
type AnalyzeRequest struct {
	// Company is the user-entered company name the document should belong to.
	Company string
	// Text is the raw document text.
	Text string
	// DocumentID links the result back to a stored upload. Optional.
	DocumentID string
	// Ticker enables a market-data lookup for stockPrice. Optional.
	Ticker string
}

// Analyze runs the pipeline: detect context, extract heuristic candidates,
// run the extraction chain, gate on the company name, merge, fill the stock
// price, derive ratios, score confidence, and build the narrative.
func (a *Analyzer) Analyze(ctx context.Context, req AnalyzeRequest) (*model.AnalysisResult, error) {
	company := strings.TrimSpace(req.Company)
	if company == "" {
		return nil, eris.New("pipeline: company name is required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, eris.New("pipeline: document text is empty")
	}
	if a.chain == nil {
		return nil, eris.New("pipeline: no extraction chain configured")
	}

	fctx := numparse.DetectContext(req.Text)
	candidates := a.parser.ExtractCandidates(req.Text, fctx)

	extraction, err := a.chain.Extract(ctx, req.Text)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: extraction")
	}

	var nameMatch *model.NameMatchResult
	if extraction.CompanyName != "" {
		nm := kpinorm.ValidateCompanyNameMatch(company, extraction.CompanyName)
		nameMatch = &nm
		if nm.Confidence < a.matchThreshold {
			zap.L().Warn("company name mismatch",
				zap.String("user_name", company),
				zap.String("extracted_name", extraction.CompanyName),
				zap.Float64("confidence", nm.Confidence),
				zap.Float64("threshold", a.matchThreshold),
				zap.Strings("issues", nm.Issues),
			)
			return nil, eris.Wrapf(ErrNameMismatch, "%q vs extracted %q (confidence %.2f, need %.2f)",
				company, extraction.CompanyName, nm.Confidence, a.matchThreshold)
		}
	}

	merged := merge.Merge(candidates, extraction.Metrics)
	a.fillStockPrice(ctx, req.Ticker, merged.Metrics)

	ratios := ratio.Validate(a.calc.CalculateAll(merged.Metrics))
	confidence := a.calc.ConfidenceScore(merged.Metrics, ratios)

	result := &model.AnalysisResult{
		ID:         uuid.NewString(),
		Company:    company,
		DocumentID: req.DocumentID,
		Context:    fctx,
		Metrics:    merged.Metrics,
		Evidence:   merged.Evidence,
		Ratios:     ratios,
		Confidence: confidence,
		NameMatch:  nameMatch,
		Narrative:  insights.BuildNarrative(company, merged.Metrics, ratios),
		Extractor:  extraction.Provider,
		CreatedAt:  time.Now().UTC(),
	}

	zap.L().Info("analysis complete",
		zap.String("analysis_id", result.ID),
		zap.String("company", company),
		zap.String("extractor", extraction.Provider),
		zap.Int("metrics", len(merged.Metrics)),
		zap.Float64("confidence", confidence),
	)
	return result, nil
}

// fillStockPrice looks up a quote when the document did not state a price.
// Lookup failures degrade to a missing metric, never a failed analysis.
func (a *Analyzer) fillStockPrice(ctx context.Context, ticker string, metrics model.MetricsBag) {
	if a.quotes == nil || strings.TrimSpace(ticker) == "" {
		return
	}
	if _, ok := metrics.Get(model.MetricStockPrice); ok {
		return
	}

	quote, err := a.quotes.GetQuote(ctx, ticker)
	if err != nil {
		zap.L().Warn("stock price lookup failed",
			zap.String("ticker", ticker),
			zap.Error(err),
		)
		return
	}
	metrics.Set(model.MetricStockPrice, quote.Close)
}
