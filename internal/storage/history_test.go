package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/observability"
)

func newRepo(t *testing.T) *HistoryRepository {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "nested", "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewHistoryRepository(db)
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Migrate(ctx), "migrate is idempotent")
	return repo
}

func TestHistoryRepository_SaveAndGet(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	run := &Run{
		OldPath:           "a.pdf",
		NewPath:           "b.pdf",
		Strategy:          "ratcliff",
		ExemptBoilerplate: true,
		Stats: domain.Statistics{
			TotalOld: 3, TotalNew: 3, ReplacedOld: 1, ReplacedNew: 1, Replaced: 1,
			ReplacedPct: 100.0 / 3,
		},
		Duration: 1500 * time.Millisecond,
	}
	require.NoError(t, repo.Save(ctx, run))
	require.NotEmpty(t, run.ID)

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Stats, got.Stats)
	assert.True(t, got.ExemptBoilerplate)
	assert.False(t, got.Empty)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Second)
}

func TestHistoryRepository_GetMissing(t *testing.T) {
	_, err := newRepo(t).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryRepository_ListNewestFirst(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Save(ctx, &Run{
			ID:        name,
			OldPath:   name + "-old.pdf",
			NewPath:   name + "-new.pdf",
			Strategy:  "myers",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "third", runs[0].ID)
	assert.Equal(t, "second", runs[1].ID)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x", nil)
	assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
}

func TestRetryWithBackoff(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

	attempts := 0
	err := retryWithBackoff(context.Background(), cfg, observability.Nop(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	boom := errors.New("down")
	err = retryWithBackoff(context.Background(), cfg, observability.Nop(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = retryWithBackoff(ctx, cfg, observability.Nop(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateBackoff(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, initialBackoff, calculateBackoff(0, cfg))
	assert.Equal(t, 2*initialBackoff, calculateBackoff(1, cfg))
	assert.Equal(t, maxBackoff, calculateBackoff(10, cfg))
}
