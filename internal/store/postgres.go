package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/solar-scout/internal/db"
	"github.com/sells-group/solar-scout/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

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

// NewPostgresWithPool wraps an existing pool (tests use pgxmock here).
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id           TEXT PRIMARY KEY,
	request      JSONB NOT NULL,
	results      JSONB NOT NULL,
	warnings     JSONB,
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_started_at ON analyses(started_at);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// SaveAnalysis implements Store.
func (s *PostgresStore) SaveAnalysis(ctx context.Context, a *model.Analysis) error {
	requestJSON, err := json.Marshal(a.Request)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal request")
	}
	resultsJSON, err := json.Marshal(a.Results)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal results")
	}
	warningsJSON, err := json.Marshal(a.Warnings)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal warnings")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO analyses (id, request, results, warnings, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			request = EXCLUDED.request,
			results = EXCLUDED.results,
			warnings = EXCLUDED.warnings,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at`,
		a.ID, requestJSON, resultsJSON, warningsJSON, a.StartedAt.UTC(), a.CompletedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: save analysis %s", a.ID)
}

// GetAnalysis implements Store. A missing row returns (nil, nil).
func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, request, results, warnings, started_at, completed_at
		FROM analyses WHERE id = $1`, id)

	a, err := scanPgAnalysis(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get analysis %s", id)
	}
	return a, nil
}

// ListAnalyses implements Store, newest first.
func (s *PostgresStore) ListAnalyses(ctx context.Context, filter ListFilter) ([]model.Analysis, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, request, results, warnings, started_at, completed_at
		FROM analyses
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2`, limit, filter.Offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var out []model.Analysis
	for rows.Next() {
		a, err := scanPgAnalysis(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate analyses")
}

// scanPgAnalysis decodes one row; JSONB columns arrive as []byte.
func scanPgAnalysis(scan func(dest ...any) error) (*model.Analysis, error) {
	var a model.Analysis
	var requestJSON, resultsJSON []byte
	var warningsJSON []byte

	if err := scan(&a.ID, &requestJSON, &resultsJSON, &warningsJSON, &a.StartedAt, &a.CompletedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(requestJSON, &a.Request); err != nil {
		return nil, eris.Wrap(err, "store: decode request")
	}
	if err := json.Unmarshal(resultsJSON, &a.Results); err != nil {
		return nil, eris.Wrap(err, "store: decode results")
	}
	if len(warningsJSON) > 0 && string(warningsJSON) != "null" {
		if err := json.Unmarshal(warningsJSON, &a.Warnings); err != nil {
			return nil, eris.Wrap(err, "store: decode warnings")
		}
	}
	return &a, nil
}
