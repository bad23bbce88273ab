package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"podcast-adscan/internal/types"
)

// PostgresStore persists results in a single upsert table. Segments and
// cost metrics are stored as JSONB; the normalized URL is the primary key,
// which also gives a multi-instance deployment last-writer-wins semantics.
type PostgresStore struct {
	db *sql.DB
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS episode_results (
	normalized_url TEXT PRIMARY KEY,
	title          TEXT NOT NULL DEFAULT '',
	segments       JSONB NOT NULL DEFAULT '[]',
	cost           JSONB NOT NULL DEFAULT '{}',
	analyzed_at    TIMESTAMPTZ NOT NULL
)`

// NewPostgresStore opens a pool on the DSN, verifies connectivity and
// ensures the results table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Get(ctx context.Context, normalizedURL string) (*types.EpisodeResult, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT normalized_url, title, segments, cost, analyzed_at
		 FROM episode_results WHERE normalized_url = $1`, normalizedURL)

	res, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", types.ErrPersistenceFailed, err)
	}
	return res, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, result *types.EpisodeResult) error {
	segments, err := json.Marshal(result.Segments)
	if err != nil {
		return fmt.Errorf("%w: encode segments: %v", types.ErrPersistenceFailed, err)
	}
	cost, err := json.Marshal(result.Cost)
	if err != nil {
		return fmt.Errorf("%w: encode cost: %v", types.ErrPersistenceFailed, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO episode_results (normalized_url, title, segments, cost, analyzed_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (normalized_url) DO UPDATE
		 SET title = EXCLUDED.title, segments = EXCLUDED.segments,
		     cost = EXCLUDED.cost, analyzed_at = EXCLUDED.analyzed_at`,
		result.NormalizedURL, result.Title, segments, cost, result.AnalyzedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrPersistenceFailed, err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]types.EpisodeResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT normalized_url, title, segments, cost, analyzed_at
		 FROM episode_results ORDER BY normalized_url`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPersistenceFailed, err)
	}
	defer rows.Close()

	var out []types.EpisodeResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrPersistenceFailed, err)
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPersistenceFailed, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*types.EpisodeResult, error) {
	var res types.EpisodeResult
	var segments, cost []byte
	if err := row.Scan(&res.NormalizedURL, &res.Title, &segments, &cost, &res.AnalyzedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(segments, &res.Segments); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cost, &res.Cost); err != nil {
		return nil, err
	}
	return &res, nil
}
