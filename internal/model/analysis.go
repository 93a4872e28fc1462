package model

import "time"

// AnalysisResult is the final record for one document: merged metrics,
// derived ratios, confidence, and the narrative summary. It is the unit of
// persistence.
type AnalysisResult struct {
	ID         string            `json:"id"`
	Company    string            `json:"company"`
	DocumentID string            `json:"document_id,omitempty"`
	Context    FinancialContext  `json:"context"`
	Metrics    MetricsBag        `json:"metrics"`
	Evidence   map[string]string `json:"evidence,omitempty"`
	Ratios     CalculatedRatios  `json:"ratios"`
	Confidence float64           `json:"confidence"`
	NameMatch  *NameMatchResult  `json:"name_match,omitempty"`
	Narrative  string            `json:"narrative,omitempty"`
	Extractor  string            `json:"extractor,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// MetricDelta is one metric compared across two companies.
type MetricDelta struct {
	Metric     string   `json:"metric"`
	Leader     string   `json:"leader"`
	LeaderVal  float64  `json:"leader_value"`
	Trailer    string   `json:"trailer"`
	TrailerVal float64  `json:"trailer_value"`
	SpreadPct  *float64 `json:"spread_pct,omitempty"`
}

// Comparison is the side-by-side result for 2-4 companies.
type Comparison struct {
	ID        string           `json:"id"`
	Analyses  []AnalysisResult `json:"analyses"`
	Deltas    []MetricDelta    `json:"deltas"`
	Narrative string           `json:"narrative,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
