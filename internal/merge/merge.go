// Package merge combines heuristic extraction candidates with LLM-returned
// metrics: the AI value wins when it is present, non-nil, and non-zero, and
// the best heuristic candidate fills the gap otherwise.
package merge

import (
	"go.uber.org/zap"

	"github.com/crestline-labs/fincompare/internal/model"
)

// Result is the merged metrics bag plus audit evidence for every metric the
// heuristic pass back-filled.
type Result struct {
	Metrics  model.MetricsBag
	Evidence map[string]string
}

// Merge applies the last-AI-wins, heuristic-fills-gaps policy. Back-filled
// metrics carry a sibling "<metric>_confidence" value in the bag and an
// evidence snippet in Result.Evidence. The policy is never reversed: a
// usable AI value is never replaced by a heuristic one.
func Merge(heuristic map[string][]model.ExtractedNumber, ai model.MetricsBag) Result {
	out := Result{
		Metrics:  ai.Clone(),
		Evidence: make(map[string]string),
	}
	if out.Metrics == nil {
		out.Metrics = make(model.MetricsBag)
	}

	filled := 0
	for metric, candidates := range heuristic {
		if len(candidates) == 0 {
			continue
		}
		if v, ok := out.Metrics.Get(metric); ok && v != 0 {
			continue
		}

		best := candidates[0]
		for _, c := range candidates[1:] {
			if c.Confidence > best.Confidence {
				best = c
			}
		}

		out.Metrics.Set(metric, best.Value)
		out.Metrics.Set(metric+"_confidence", best.Confidence)
		if best.Evidence != "" {
			out.Evidence[metric] = best.Evidence
		}
		filled++
	}

	if filled > 0 {
		zap.L().Debug("merge: heuristic candidates back-filled",
			zap.Int("filled", filled),
		)
	}
	return out
}
