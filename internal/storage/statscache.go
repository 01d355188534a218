package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/naka-gawa/github-timeline/internal/domain"
	_ "modernc.org/sqlite" // SQLite driver
)

const createStatsTable = `
	CREATE TABLE IF NOT EXISTS commit_stats (
		commit_url TEXT PRIMARY KEY,
		additions INTEGER NOT NULL,
		deletions INTEGER NOT NULL,
		cached_at INTEGER NOT NULL
	);
`

// StatsCache remembers commit line stats across runs. Commits are immutable, so entries never expire.
type StatsCache interface {
	Get(ctx context.Context, commitURL string) (domain.LineStats, bool, error)
	Put(ctx context.Context, commitURL string, stats domain.LineStats) error
	Close() error
}

// NoopStatsCache is used when caching is disabled.
type NoopStatsCache struct{}

func (NoopStatsCache) Get(context.Context, string) (domain.LineStats, bool, error) {
	return domain.LineStats{}, false, nil
}

func (NoopStatsCache) Put(context.Context, string, domain.LineStats) error { return nil }

func (NoopStatsCache) Close() error { return nil }

// SQLiteStatsCache stores commit stats in a local SQLite file.
type SQLiteStatsCache struct {
	db *sql.DB
}

var _ StatsCache = &SQLiteStatsCache{} // Compile-time check

// OpenStatsCache returns a SQLite cache at path, or a no-op cache when path is empty.
func OpenStatsCache(path string) (StatsCache, error) {
	if path == "" {
		return NoopStatsCache{}, nil
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats cache at %q: %w", path, err)
	}
	// A single connection avoids "database is locked" under concurrent fetches.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(createStatsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create stats cache table: %w", err)
	}
	return &SQLiteStatsCache{db: db}, nil
}

// Get looks up the stats of a commit.
func (c *SQLiteStatsCache) Get(ctx context.Context, commitURL string) (domain.LineStats, bool, error) {
	var stats domain.LineStats
	err := c.db.QueryRowContext(ctx,
		`SELECT additions, deletions FROM commit_stats WHERE commit_url = ?`, commitURL,
	).Scan(&stats.Additions, &stats.Deletions)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LineStats{}, false, nil
	}
	if err != nil {
		return domain.LineStats{}, false, fmt.Errorf("failed to read stats cache: %w", err)
	}
	return stats, true, nil
}

// Put stores the stats of a commit, replacing any previous value.
func (c *SQLiteStatsCache) Put(ctx context.Context, commitURL string, stats domain.LineStats) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO commit_stats (commit_url, additions, deletions, cached_at) VALUES (?, ?, ?, ?)`,
		commitURL, stats.Additions, stats.Deletions, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to write stats cache: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (c *SQLiteStatsCache) Close() error {
	return c.db.Close()
}
