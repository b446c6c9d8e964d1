package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/datallboy/godl/internal/domain"

	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS outcomes (
		id          TEXT PRIMARY KEY,
		tag         TEXT,
		url         TEXT NOT NULL,
		destination TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		kind        TEXT NOT NULL,
		detail      TEXT,
		skipped     INTEGER NOT NULL DEFAULT 0,
		bytes       INTEGER NOT NULL DEFAULT 0,
		finished_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outcomes_url ON outcomes(url)`,
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dbDir := filepath.Dir(dbPath)

	// Ensure the database directory exists
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Ping makes sure the file is actually accessible and the DSN is valid
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("could not migrate database: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveOutcome(ctx context.Context, o domain.Outcome) error {
	var d outcomeDBO
	d.FromDomain(o)

	query := `INSERT OR REPLACE INTO outcomes (` + outcomeColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		d.ID, d.Tag, d.URL, d.Destination, d.StatusCode,
		d.Kind, d.Detail, d.Skipped, d.Bytes, d.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save outcome %s: %w", o.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetOutcome(ctx context.Context, id string) (*domain.Outcome, error) {
	query := `SELECT ` + outcomeColumns + ` FROM outcomes WHERE id = ? LIMIT 1`

	var d outcomeDBO
	err := s.db.QueryRowContext(ctx, query, id).Scan(d.scanTargets()...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Return nil, nil to indicate "Not found"
		}
		return nil, fmt.Errorf("failed to fetch outcome: %w", err)
	}

	o := d.ToDomain()
	return &o, nil
}

func (s *SQLiteStore) ListOutcomes(ctx context.Context, f Filter) ([]domain.Outcome, error) {
	var where []string
	var args []any

	if f.URL != "" {
		where = append(where, "url = ?")
		args = append(args, f.URL)
	}
	if f.Kind != nil {
		where = append(where, "kind = ?")
		args = append(args, f.Kind.Label())
	}

	query := `SELECT ` + outcomeColumns + ` FROM outcomes`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	// KSUIDs sort chronologically
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, f.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
