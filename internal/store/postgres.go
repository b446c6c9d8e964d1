package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datallboy/godl/internal/domain"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS outcomes (
		id          TEXT PRIMARY KEY,
		tag         TEXT,
		url         TEXT NOT NULL,
		destination TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		kind        TEXT NOT NULL,
		detail      TEXT,
		skipped     BOOLEAN NOT NULL DEFAULT FALSE,
		bytes       BIGINT NOT NULL DEFAULT 0,
		finished_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outcomes_url ON outcomes(url)`,
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("could not migrate database: %w", err)
		}
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) SaveOutcome(ctx context.Context, o domain.Outcome) error {
	var d outcomeDBO
	d.FromDomain(o)

	query := `INSERT INTO outcomes (` + outcomeColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
              ON CONFLICT (id) DO UPDATE SET
                status_code = EXCLUDED.status_code,
                kind = EXCLUDED.kind,
                detail = EXCLUDED.detail,
                skipped = EXCLUDED.skipped,
                bytes = EXCLUDED.bytes,
                finished_at = EXCLUDED.finished_at`

	_, err := s.pool.Exec(ctx, query,
		d.ID, d.Tag, d.URL, d.Destination, d.StatusCode,
		d.Kind, d.Detail, d.Skipped, d.Bytes, d.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save outcome %s: %w", o.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetOutcome(ctx context.Context, id string) (*domain.Outcome, error) {
	query := `SELECT ` + outcomeColumns + ` FROM outcomes WHERE id = $1 LIMIT 1`

	var d outcomeDBO
	err := s.pool.QueryRow(ctx, query, id).Scan(d.scanTargets()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch outcome: %w", err)
	}

	o := d.ToDomain()
	return &o, nil
}

func (s *PostgresStore) ListOutcomes(ctx context.Context, f Filter) ([]domain.Outcome, error) {
	var where []string
	var args []any

	if f.URL != "" {
		args = append(args, f.URL)
		where = append(where, fmt.Sprintf("url = $%d", len(args)))
	}
	if f.Kind != nil {
		args = append(args, f.Kind.Label())
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}

	query := `SELECT ` + outcomeColumns + ` FROM outcomes`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.limit())
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Outcome, 0)
	for rows.Next() {
		var d outcomeDBO
		if err := rows.Scan(d.scanTargets()...); err != nil {
			return nil, err
		}
		items = append(items, d.ToDomain())
	}

	return items, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
