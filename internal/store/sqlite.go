package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/crestline-labs/fincompare/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id          TEXT PRIMARY KEY,
	company     TEXT NOT NULL,
	document_id TEXT,
	confidence  REAL NOT NULL,
	payload     TEXT NOT NULL,
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS comparisons (
	id         TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_company ON analyses(company);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, result *model.AnalysisResult) error {
	stampAnalysis(result)

	payload, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal analysis")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, company, document_id, confidence, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		result.ID, result.Company, result.DocumentID, result.Confidence, string(payload), result.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert analysis %s", result.ID)
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*model.AnalysisResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM analyses WHERE id = ?`, id,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "analysis %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", id)
	}

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode analysis %s", id)
	}
	return &result, nil
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.AnalysisResult, error) {
	query := `SELECT payload FROM analyses`
	args := []any{}
	if filter.Company != "" {
		query += ` WHERE company = ?`
		args = append(args, filter.Company)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close()

	var results []model.AnalysisResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		var result model.AnalysisResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, eris.Wrap(err, "sqlite: decode analysis")
		}
		results = append(results, result)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list analyses")
}

func (s *SQLiteStore) SaveComparison(ctx context.Context, comparison *model.Comparison) error {
	stampComparison(comparison)

	payload, err := json.Marshal(comparison)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal comparison")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO comparisons (id, payload, created_at) VALUES (?, ?, ?)`,
		comparison.ID, string(payload), comparison.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert comparison %s", comparison.ID)
}

func (s *SQLiteStore) GetComparison(ctx context.Context, id string) (*model.Comparison, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM comparisons WHERE id = ?`, id,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "comparison %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get comparison %s", id)
	}

	var comparison model.Comparison
	if err := json.Unmarshal([]byte(payload), &comparison); err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode comparison %s", id)
	}
	return &comparison, nil
}

// stampAnalysis fills identity and timestamp when the caller left them zero.
func stampAnalysis(result *model.AnalysisResult) {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
}

func stampComparison(comparison *model.Comparison) {
	if comparison.ID == "" {
		comparison.ID = uuid.NewString()
	}
	if comparison.CreatedAt.IsZero() {
		comparison.CreatedAt = time.Now().UTC()
	}
}
