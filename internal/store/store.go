// Package store persists analyses and comparisons behind a small interface
// with SQLite and Postgres implementations.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/crestline-labs/fincompare/internal/model"
)

// ErrNotFound is returned when a requested record does not exist. Callers
// match it with eris.Is to map lookups onto 404s.
var ErrNotFound = eris.New("store: not found")

// AnalysisFilter specifies criteria for listing analyses.
type AnalysisFilter struct {
	Company string `json:"company,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for analysis results.
type Store interface {
	// Analyses
	SaveAnalysis(ctx context.Context, result *model.AnalysisResult) error
	GetAnalysis(ctx context.Context, id string) (*model.AnalysisResult, error)
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.AnalysisResult, error)

	// Comparisons
	SaveComparison(ctx context.Context, comparison *model.Comparison) error
	GetComparison(ctx context.Context, id string) (*model.Comparison, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
