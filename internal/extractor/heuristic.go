package extractor

import (
	"context"

	"go.uber.org/zap"

	"github.com/crestline-labs/fincompare/internal/model"
	"github.com/crestline-labs/fincompare/internal/numparse"
)

const heuristicProvider = "heuristic"

// HeuristicExtractor is the terminal extractor: regex candidate extraction
// over the document, taking the highest-confidence candidate per metric.
// It never fails, so a fully offline run still produces a result.
type HeuristicExtractor struct {
	parser *numparse.Parser
}

// NewHeuristicExtractor wires the deterministic fallback extractor.
func NewHeuristicExtractor(parser *numparse.Parser) *HeuristicExtractor {
	return &HeuristicExtractor{parser: parser}
}

func (e *HeuristicExtractor) Name() string { return heuristicProvider }

func (e *HeuristicExtractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	fctx := numparse.DetectContext(text)
	candidates := e.parser.ExtractCandidates(text, fctx)

	metrics := make(model.MetricsBag, len(candidates))
	for metric, nums := range candidates {
		if len(nums) == 0 {
			continue
		}
		// Candidates arrive sorted by descending confidence.
		metrics.Set(metric, nums[0].Value)
	}

	zap.L().Debug("heuristic extraction complete",
		zap.Int("metrics", len(metrics)),
		zap.String("scale", string(fctx.Scale)),
		zap.String("currency", string(fctx.Currency)),
	)
	return &Extraction{Metrics: metrics, Provider: heuristicProvider}, nil
}
