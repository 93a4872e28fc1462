package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestline-labs/fincompare/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_SaveAnalysis(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO analyses`).
		WithArgs(pgxmock.AnyArg(), "Acme Corp", "doc-1", 0.82, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	in := sampleAnalysis("Acme Corp")
	err := s.SaveAnalysis(context.Background(), in)
	require.NoError(t, err)
	assert.NotEmpty(t, in.ID)
	assert.False(t, in.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAnalysis(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	stored := sampleAnalysis("Acme Corp")
	stored.ID = "analysis-1"
	stored.CreatedAt = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	payload, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT payload FROM analyses WHERE id = \$1`).
		WithArgs("analysis-1").
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	out, err := s.GetAnalysis(context.Background(), "analysis-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", out.Company)
	rev, ok := out.Metrics.Get(model.MetricRevenue)
	require.True(t, ok)
	assert.Equal(t, 10.0, rev)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAnalysis_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT payload FROM analyses WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetAnalysis(context.Background(), "missing")
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAnalyses(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	a := sampleAnalysis("Acme Corp")
	a.ID = "analysis-1"
	payloadA, err := json.Marshal(a)
	require.NoError(t, err)
	b := sampleAnalysis("Acme Corp")
	b.ID = "analysis-2"
	payloadB, err := json.Marshal(b)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT payload FROM analyses WHERE company = \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("Acme Corp", 2).
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payloadA).AddRow(payloadB))

	results, err := s.ListAnalyses(context.Background(), AnalysisFilter{Company: "Acme Corp", Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "analysis-1", results[0].ID)
	assert.Equal(t, "analysis-2", results[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ComparisonRoundTrip(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	in := &model.Comparison{
		Analyses: []model.AnalysisResult{*sampleAnalysis("Acme Corp"), *sampleAnalysis("Globex")},
	}

	mock.ExpectExec(`INSERT INTO comparisons`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SaveComparison(context.Background(), in))
	require.NotEmpty(t, in.ID)

	payload, err := json.Marshal(in)
	require.NoError(t, err)
	mock.ExpectQuery(`SELECT payload FROM comparisons WHERE id = \$1`).
		WithArgs(in.ID).
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	out, err := s.GetComparison(context.Background(), in.ID)
	require.NoError(t, err)
	require.Len(t, out.Analyses, 2)
	assert.Equal(t, "Globex", out.Analyses[1].Company)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetComparison_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT payload FROM comparisons WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetComparison(context.Background(), "missing")
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS analyses`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
