package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/crestline-labs/fincompare/internal/model"
)

// Pool is the slice of pgxpool.Pool the store uses, satisfied by pgxmock
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the hot store operations.
var preparedStatements = map[string]string{
	"insert_analysis":   `INSERT INTO analyses (id, company, document_id, confidence, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"get_analysis":      `SELECT payload FROM analyses WHERE id = $1`,
	"insert_comparison": `INSERT INTO comparisons (id, payload, created_at) VALUES ($1, $2, $3)`,
	"get_comparison":    `SELECT payload FROM comparisons WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id          TEXT PRIMARY KEY,
	company     TEXT NOT NULL,
	document_id TEXT,
	confidence  DOUBLE PRECISION NOT NULL,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS comparisons (
	id         TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_company ON analyses(company);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, result *model.AnalysisResult) error {
	stampAnalysis(result)

	payload, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal analysis")
	}

	_, err = s.pool.Exec(ctx, preparedStatements["insert_analysis"],
		result.ID, result.Company, result.DocumentID, result.Confidence, payload, result.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert analysis %s", result.ID)
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*model.AnalysisResult, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, preparedStatements["get_analysis"], id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "analysis %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get analysis %s", id)
	}

	var result model.AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, eris.Wrapf(err, "postgres: decode analysis %s", id)
	}
	return &result, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.AnalysisResult, error) {
	query := `SELECT payload FROM analyses`
	args := []any{}
	argn := 1
	if filter.Company != "" {
		query += ` WHERE company = $1`
		args = append(args, filter.Company)
		argn++
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(argn)
		args = append(args, filter.Limit)
		argn++
	}
	if filter.Offset > 0 {
		query += ` OFFSET $` + strconv.Itoa(argn)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var results []model.AnalysisResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		var result model.AnalysisResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, eris.Wrap(err, "postgres: decode analysis")
		}
		results = append(results, result)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list analyses")
}

func (s *PostgresStore) SaveComparison(ctx context.Context, comparison *model.Comparison) error {
	stampComparison(comparison)

	payload, err := json.Marshal(comparison)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal comparison")
	}

	_, err = s.pool.Exec(ctx, preparedStatements["insert_comparison"],
		comparison.ID, payload, comparison.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert comparison %s", comparison.ID)
}

func (s *PostgresStore) GetComparison(ctx context.Context, id string) (*model.Comparison, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, preparedStatements["get_comparison"], id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "comparison %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get comparison %s", id)
	}

	var comparison model.Comparison
	if err := json.Unmarshal(payload, &comparison); err != nil {
		return nil, eris.Wrapf(err, "postgres: decode comparison %s", id)
	}
	return &comparison, nil
}
