package pipeline

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crestline-labs/fincompare/internal/insights"
	"github.com/crestline-labs/fincompare/internal/model"
	"github.com/crestline-labs/fincompare/internal/numparse"
)

const (
	minCompareCompanies = 2
	maxCompareCompanies = 4
)

// comparedMetrics is the fixed order deltas are reported in.
var comparedMetrics = []string{
	model.MetricRevenue,
	model.MetricNetIncome,
	model.MetricGrossProfit,
	model.MetricOperatingIncome,
	model.MetricEBITDA,
	model.MetricTotalAssets,
	model.MetricCashEquivalents,
	model.MetricTotalDebt,
	model.MetricShareholdersEquity,
}

// CompareCompanies analyzes 2-4 documents concurrently and computes
// per-metric leader/trailer deltas across the companies. One failed
// analysis fails the whole comparison.
func (a *Analyzer) CompareCompanies(ctx context.Context, reqs []AnalyzeRequest) (*model.Comparison, error) {
	if len(reqs) < minCompareCompanies || len(reqs) > maxCompareCompanies {
		return nil, eris.Errorf("pipeline: compare needs %d-%d companies, got %d",
			minCompareCompanies, maxCompareCompanies, len(reqs))
	}

	analyses := make([]model.AnalysisResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			result, err := a.Analyze(gctx, req)
			if err != nil {
				return eris.Wrapf(err, "pipeline: analyze %s", req.Company)
			}
			analyses[i] = *result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	deltas := computeDeltas(analyses)
	comparison := &model.Comparison{
		ID:        uuid.NewString(),
		Analyses:  analyses,
		Deltas:    deltas,
		Narrative: insights.BuildComparisonNarrative(analyses, deltas),
		CreatedAt: time.Now().UTC(),
	}

	zap.L().Info("comparison complete",
		zap.String("comparison_id", comparison.ID),
		zap.Int("companies", len(analyses)),
		zap.Int("deltas", len(deltas)),
	)
	return comparison, nil
}

// computeDeltas finds, for each compared metric held by at least two
// companies, the highest and lowest values and the percentage spread
// between them.
func computeDeltas(analyses []model.AnalysisResult) []model.MetricDelta {
	var deltas []model.MetricDelta
	for _, metric := range comparedMetrics {
		delta, ok := deltaFor(metric, analyses)
		if ok {
			deltas = append(deltas, delta)
		}
	}
	return deltas
}

func deltaFor(metric string, analyses []model.AnalysisResult) (model.MetricDelta, bool) {
	type holding struct {
		company string
		value   float64
	}

	var holders []holding
	for _, a := range analyses {
		names := []string{metric}
		if metric == model.MetricTotalDebt {
			names = append(names, model.MetricDebt)
		}
		if v, ok := a.Metrics.First(names...); ok {
			holders = append(holders, holding{company: a.Company, value: v})
		}
	}
	if len(holders) < 2 {
		return model.MetricDelta{}, false
	}

	leader, trailer := holders[0], holders[0]
	for _, h := range holders[1:] {
		if h.value > leader.value {
			leader = h
		}
		if h.value < trailer.value {
			trailer = h
		}
	}

	delta := model.MetricDelta{
		Metric:     metric,
		Leader:     leader.company,
		LeaderVal:  leader.value,
		Trailer:    trailer.company,
		TrailerVal: trailer.value,
	}
	if trailer.value != 0 {
		spread := numparse.Round3((leader.value - trailer.value) / math.Abs(trailer.value) * 100)
		delta.SpreadPct = &spread
	}
	return delta, true
}
