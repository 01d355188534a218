package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/github-timeline/internal/domain"
)

func TestSQLiteStatsCache(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	cache, err := OpenStatsCache(path)
	require.NoError(t, err)
	require.IsType(t, &SQLiteStatsCache{}, cache)

	_, ok, err := cache.Get(ctx, "https://api.github.com/repos/u/r/commits/a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Put(ctx, "https://api.github.com/repos/u/r/commits/a", domain.LineStats{Additions: 4, Deletions: 1}))
	require.NoError(t, cache.Put(ctx, "https://api.github.com/repos/u/r/commits/a", domain.LineStats{Additions: 5, Deletions: 1}))
	require.NoError(t, cache.Close())

	// Reopen to make sure the value is durable.
	cache, err = OpenStatsCache(path)
	require.NoError(t, err)
	defer cache.Close()

	stats, ok, err := cache.Get(ctx, "https://api.github.com/repos/u/r/commits/a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.LineStats{Additions: 5, Deletions: 1}, stats)
}

func TestOpenStatsCache_EmptyPathDisablesCaching(t *testing.T) {
	cache, err := OpenStatsCache("")
	require.NoError(t, err)
	assert.IsType(t, NoopStatsCache{}, cache)

	require.NoError(t, cache.Put(context.Background(), "x", domain.LineStats{Additions: 1}))
	_, ok, err := cache.Get(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, ok)
}
