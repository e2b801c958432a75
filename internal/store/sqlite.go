package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/solar-scout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
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
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id           TEXT PRIMARY KEY,
	request      TEXT NOT NULL,
	results      TEXT NOT NULL,
	warnings     TEXT,
	started_at   DATETIME NOT NULL,
	completed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_started_at ON analyses(started_at);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveAnalysis implements Store.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, a *model.Analysis) error {
	requestJSON, err := json.Marshal(a.Request)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal request")
	}
	resultsJSON, err := json.Marshal(a.Results)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal results")
	}
	warningsJSON, err := json.Marshal(a.Warnings)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal warnings")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, request, results, warnings, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			request = excluded.request,
			results = excluded.results,
			warnings = excluded.warnings,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at`,
		a.ID, string(requestJSON), string(resultsJSON), string(warningsJSON),
		a.StartedAt.UTC(), a.CompletedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save analysis %s", a.ID)
}

// GetAnalysis implements Store. A missing row returns (nil, nil).
func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, request, results, warnings, started_at, completed_at
		FROM analyses WHERE id = ?`, id)

	a, err := scanAnalysis(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", id)
	}
	return a, nil
}

// ListAnalyses implements Store, newest first.
func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter ListFilter) ([]model.Analysis, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request, results, warnings, started_at, completed_at
		FROM analyses
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?`, limit, filter.Offset)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer func() { _ = rows.Close() }()

	var out []model.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate analyses")
}

// scanAnalysis decodes one SQLite row from a row or rows scan function.
func scanAnalysis(scan func(dest ...any) error) (*model.Analysis, error) {
	var a model.Analysis
	var requestJSON, resultsJSON string
	var warningsJSON sql.NullString

	if err := scan(&a.ID, &requestJSON, &resultsJSON, &warningsJSON, &a.StartedAt, &a.CompletedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(requestJSON), &a.Request); err != nil {
		return nil, eris.Wrap(err, "store: decode request")
	}
	if err := json.Unmarshal([]byte(resultsJSON), &a.Results); err != nil {
		return nil, eris.Wrap(err, "store: decode results")
	}
	if warningsJSON.Valid && warningsJSON.String != "" && warningsJSON.String != "null" {
		if err := json.Unmarshal([]byte(warningsJSON.String), &a.Warnings); err != nil {
			return nil, eris.Wrap(err, "store: decode warnings")
		}
	}
	return &a, nil
}
