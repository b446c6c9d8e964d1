package store

import (
	"context"
	"fmt"

	"github.com/datallboy/godl/internal/domain"
	"github.com/datallboy/godl/internal/infra/config"
)

const DefaultListLimit = 100

// Filter narrows ListOutcomes. Zero values mean "no filter".
type Filter struct {
	URL   string
	Kind  *domain.ErrorKind
	Limit int
}

// Store keeps the history of delivered outcomes.
type Store interface {
	SaveOutcome(ctx context.Context, o domain.Outcome) error
	// GetOutcome returns nil, nil when id is unknown.
	GetOutcome(ctx context.Context, id string) (*domain.Outcome, error)
	// ListOutcomes returns the newest outcomes first.
	ListOutcomes(ctx context.Context, f Filter) ([]domain.Outcome, error)
	Close() error
}

// Open picks the backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		return NewPostgresStore(ctx, cfg.PostgresDSN)
	case "none", "":
		return nopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// nopStore backs the "none" driver: nothing is kept.
type nopStore struct{}

func (nopStore) SaveOutcome(context.Context, domain.Outcome) error { return nil }
func (nopStore) GetOutcome(context.Context, string) (*domain.Outcome, error) {
	return nil, nil
}
func (nopStore) ListOutcomes(context.Context, Filter) ([]domain.Outcome, error) {
	return []domain.Outcome{}, nil
}
func (nopStore) Close() error { return nil }
