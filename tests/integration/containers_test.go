//go:build integration

// Package integration runs the comparison pipeline against real Postgres
// and Redis servers started with testcontainers.
package integration

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/spherical/pdf-diff/internal/cache"
	"github.com/spherical/pdf-diff/internal/compare"
	"github.com/spherical/pdf-diff/internal/config"
	"github.com/spherical/pdf-diff/internal/diff"
	"github.com/spherical/pdf-diff/internal/observability"
	"github.com/spherical/pdf-diff/internal/pdf"
	"github.com/spherical/pdf-diff/internal/storage"
)

var fixtures = filepath.Join("..", "..", "internal", "pdf", "testdata")

// containers holds the addresses of the started services.
type containers struct {
	PostgresDSN string
	RedisAddr   string
}

func setupContainers(t *testing.T) *containers {
	t.Helper()
	ctx := context.Background()

	pg, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("pdf_diff_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pg.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate postgres container: %v", err)
		}
	})

	pgHost, err := pg.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pg.MappedPort(ctx, "5432")
	require.NoError(t, err)

	rd, err := redis.Run(ctx,
		"redis:7.4-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := rd.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate redis container: %v", err)
		}
	})

	rdHost, err := rd.Host(ctx)
	require.NoError(t, err)
	rdPort, err := rd.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return &containers{
		PostgresDSN: fmt.Sprintf("postgres://test:test@%s:%s/pdf_diff_test?sslmode=disable", pgHost, pgPort.Port()),
		RedisAddr:   fmt.Sprintf("%s:%s", rdHost, rdPort.Port()),
	}
}

func TestCompareWithPostgresAndRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	c := setupContainers(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	logger := observability.Nop()

	db, err := storage.Open(ctx, "postgres", c.PostgresDSN, logger)
	require.NoError(t, err)
	defer db.Close()
	history := storage.NewHistoryRepository(db)
	require.NoError(t, history.Migrate(ctx))

	store, err := cache.Open(config.CacheConfig{
		Driver: "redis",
		Redis:  config.RedisConfig{Addr: c.RedisAddr, PoolSize: 4},
	})
	require.NoError(t, err)
	tokens := cache.NewTokenCache(store, time.Hour, logger)
	defer tokens.Close()

	svc := compare.NewService(
		cache.NewCachingExtractor(pdf.NewExtractor(pdf.NewGapTokenizer()), tokens, logger),
		diff.NewEngine(),
		compare.WithInspector(pdf.NewInspector(pdf.NewValidator(logger))),
		compare.WithHistory(history),
		compare.WithLogger(logger),
	)

	req := compare.Request{
		OldPath: filepath.Join(fixtures, "old.pdf"),
		NewPath: filepath.Join(fixtures, "new.pdf"),
	}
	first, err := svc.Compare(ctx, req, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Result.Stats.Added)

	// The second run reads both token streams back from Redis.
	second, err := svc.Compare(ctx, req, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Result.Stats, second.Result.Stats)

	runs, err := history.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	got, err := history.Get(ctx, first.RunID)
	require.NoError(t, err)
	assert.Equal(t, first.Result.Stats.Added, got.Stats.Added)
	assert.InDelta(t, first.Result.Stats.AddedPct, got.Stats.AddedPct, 1e-9)

	_, err = history.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
