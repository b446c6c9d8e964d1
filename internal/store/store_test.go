package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datallboy/godl/internal/domain"
	"github.com/datallboy/godl/internal/infra/config"
)

func sampleOutcome(url string, kind domain.ErrorKind, at time.Time) domain.Outcome {
	id, err := ksuid.NewRandomWithTime(at)
	if err != nil {
		panic(err)
	}
	return domain.Outcome{
		ID:          id.String(),
		URL:         url,
		Destination: "/tmp/" + filepath.Base(url),
		StatusCode:  200,
		Kind:        kind,
		Bytes:       42,
		FinishedAt:  at,
	}
}

// exerciseStore runs the same checks against any backend.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond).UTC()

	first := sampleOutcome("http://host/a.zip", domain.KindSuccess, now)
	first.Tag = "nightly"
	first.Skipped = true
	require.NoError(t, s.SaveOutcome(ctx, first))

	second := sampleOutcome("http://host/b.zip", domain.KindResponse4xx, now.Add(time.Minute))
	second.StatusCode = 404
	second.Detail = "4xx failure"
	require.NoError(t, s.SaveOutcome(ctx, second))

	got, err := s.GetOutcome(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, first.FinishedAt.Equal(got.FinishedAt))
	got.FinishedAt = first.FinishedAt
	assert.Equal(t, first, *got)

	missing, err := s.GetOutcome(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := s.ListOutcomes(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")

	byURL, err := s.ListOutcomes(ctx, Filter{URL: "http://host/a.zip"})
	require.NoError(t, err)
	require.Len(t, byURL, 1)
	assert.Equal(t, first.ID, byURL[0].ID)

	kind := domain.KindResponse4xx
	byKind, err := s.ListOutcomes(ctx, Filter{Kind: &kind})
	require.NoError(t, err)
	require.Len(t, byKind, 1)
	assert.Equal(t, 404, byKind[0].StatusCode)

	limited, err := s.ListOutcomes(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	// Saving again replaces the record
	second.Detail = "retried"
	require.NoError(t, s.SaveOutcome(ctx, second))
	got, err = s.GetOutcome(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "retried", got.Detail)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "godl.db"))
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("GODL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GODL_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.pool.Exec(ctx, "TRUNCATE outcomes")
	require.NoError(t, err)

	exerciseStore(t, s)
}

func TestOpenDrivers(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{Driver: "none"})
	require.NoError(t, err)
	require.NoError(t, s.SaveOutcome(context.Background(), domain.Outcome{ID: "x"}))
	list, err := s.ListOutcomes(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	s, err = Open(context.Background(), config.StoreConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "h.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(context.Background(), config.StoreConfig{Driver: "mongo"})
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "godl.db"))
	require.NoError(t, err)
	defer s.Close()

	o := sampleOutcome("http://host/c", domain.KindStopped, time.Now())
	NewRecorder(s, nil).HandleOutcome(o)

	got, err := s.GetOutcome(context.Background(), o.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.KindStopped, got.Kind)
}
