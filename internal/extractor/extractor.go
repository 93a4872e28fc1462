// Package extractor pulls financial metrics out of document text. Model
// providers (Anthropic, Gemini) sit in front of a deterministic heuristic
// fallback; the chain advances past a provider only when it is unreachable,
// never when it gives a real answer.
package extractor

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/crestline-labs/fincompare/internal/kpinorm"
	"github.com/crestline-labs/fincompare/internal/model"
)

// Extraction is the normalized output of one extractor.
type Extraction struct {
	// Metrics holds canonical metric keys with values in billions of USD.
	Metrics model.MetricsBag
	// CompanyName is the company the extractor believes the document
	// describes. Empty when the extractor cannot tell.
	CompanyName string
	// Provider names the extractor that produced this result.
	Provider string
}

// MetricsExtractor extracts financial metrics from raw document text.
type MetricsExtractor interface {
	Name() string
	Extract(ctx context.Context, text string) (*Extraction, error)
}

const systemPrompt = `You are a financial analyst extracting metrics from company filings.
Respond with a single JSON object and nothing else:
{
  "company_name": "<company named in the document, or null>",
  "metrics": {
    "revenue": <number or null>,
    "netIncome": <number or null>,
    "grossProfit": <number or null>,
    "operatingIncome": <number or null>,
    "ebitda": <number or null>,
    "totalAssets": <number or null>,
    "cashEquivalents": <number or null>,
    "totalDebt": <number or null>,
    "shareholdersEquity": <number or null>,
    "currentAssets": <number or null>,
    "currentLiabilities": <number or null>,
    "sharesOutstanding": <number or null>,
    "stockPrice": <number or null>
  }
}
Convert every monetary value to billions of US dollars. Report
sharesOutstanding in millions of shares and stockPrice in dollars per share.
Use null for anything the document does not state. Never guess.`

// extractionPayload is the wire shape we ask the models for. Metric values
// arrive as any because models sometimes return formatted strings.
type extractionPayload struct {
	CompanyName string         `json:"company_name"`
	Metrics     map[string]any `json:"metrics"`
}

// parseExtraction decodes a model response into an Extraction, tolerating
// markdown fences, prose around the JSON object, string-formatted values,
// and non-canonical metric labels.
func parseExtraction(raw string, synonyms *kpinorm.SynonymTable) (*Extraction, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return nil, eris.New("extractor: no JSON object in model response")
	}

	var payload extractionPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, eris.Wrap(err, "extractor: decode model response")
	}

	metrics := make(model.MetricsBag, len(payload.Metrics))
	for key, value := range payload.Metrics {
		canonical := key
		if !isCanonicalMetric(key) {
			mapped, ok := synonyms.FindStandardKPI(key)
			if !ok {
				continue
			}
			canonical = mapped
		}
		if v := kpinorm.NormalizeMetricValue(value); v != nil {
			metrics[canonical] = v
		}
	}

	name := strings.TrimSpace(payload.CompanyName)
	if strings.EqualFold(name, "null") {
		name = ""
	}

	return &Extraction{Metrics: metrics, CompanyName: name}, nil
}

// extractJSONObject returns the outermost {...} span of s, stripping
// markdown code fences first.
func extractJSONObject(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

var canonicalMetrics = map[string]struct{}{
	model.MetricRevenue:            {},
	model.MetricNetIncome:          {},
	model.MetricGrossProfit:        {},
	model.MetricOperatingIncome:    {},
	model.MetricEBITDA:             {},
	model.MetricTotalAssets:        {},
	model.MetricCashEquivalents:    {},
	model.MetricDebt:               {},
	model.MetricTotalDebt:          {},
	model.MetricShareholdersEquity: {},
	model.MetricCurrentAssets:      {},
	model.MetricCurrentLiabilities: {},
	model.MetricSharesOutstanding:  {},
	model.MetricBookValue:          {},
	model.MetricStockPrice:         {},
}

func isCanonicalMetric(key string) bool {
	_, ok := canonicalMetrics[key]
	return ok
}
