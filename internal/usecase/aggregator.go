// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/github-timeline/internal/domain"
	"github.com/naka-gawa/github-timeline/internal/gateway"
	"github.com/naka-gawa/github-timeline/internal/metrics"
	"github.com/naka-gawa/github-timeline/internal/storage"
)

// DefaultConcurrency bounds the parallel commit detail fetches of one event.
const DefaultConcurrency = 4

// Aggregator is the use case for turning raw events into per-day activity.
// It orchestrates the compare and commit detail fetches.
type Aggregator struct {
	fetcher     gateway.Fetcher
	cache       storage.StatsCache
	metrics     *metrics.Metrics
	retries     int
	concurrency int
	logger      zerolog.Logger
}

// AggregatorOption customizes an Aggregator.
type AggregatorOption func(*Aggregator)

// WithStatsCache makes the aggregator consult cache before fetching commit details.
func WithStatsCache(cache storage.StatsCache) AggregatorOption {
	return func(a *Aggregator) { a.cache = cache }
}

// WithConcurrency sets how many commit details are fetched at once.
func WithConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithRetries sets how often a failed per-item fetch is retried.
func WithRetries(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n >= 0 {
			a.retries = n
		}
	}
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(fetcher gateway.Fetcher, m *metrics.Metrics, logger zerolog.Logger, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		fetcher:     fetcher,
		cache:       storage.NoopStatsCache{},
		metrics:     m,
		concurrency: DefaultConcurrency,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate groups the push events by day. Per-event and per-commit failures are logged and
// skipped; Aggregate itself only fails when ctx is done.
func (a *Aggregator) Aggregate(ctx context.Context, events []domain.Event) (domain.ActivityByDate, error) {
	a.logger.Info().Int("events", len(events)).Msg("[2/4] Aggregating push activity...")
	activity := make(domain.ActivityByDate)

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a.metrics.Events.WithLabelValues(ev.Type).Inc()
		if ev.Type != domain.PushEventType {
			continue
		}

		day := activity.Day(domain.DateKey(ev.CreatedAt))
		commits := a.resolveCommits(ctx, ev)
		stats := a.fetchStats(ctx, commits)

		for i, c := range commits {
			day.AddCommit(ev.RepoName, c.Message)
			a.metrics.Commits.Inc()
			if stats[i] != nil {
				day.AddStats(*stats[i])
			}
		}
		day.AddRepo(ev.RepoName)
	}

	a.logger.Debug().Int("days", len(activity)).Msg("Aggregation complete.")
	return activity, nil
}

// resolveCommits prefers the compare range, which lists every commit of the push, and falls
// back to the inline payload stubs.
func (a *Aggregator) resolveCommits(ctx context.Context, ev domain.Event) []domain.Commit {
	if ev.Before == "" || ev.Head == "" {
		return ev.Commits
	}
	var commits []domain.Commit
	err := retry(ctx, a.retries, func() error {
		var err error
		commits, err = a.fetcher.FetchCompare(ctx, ev.RepoName, ev.Before, ev.Head)
		return err
	})
	if err != nil {
		a.metrics.FetchFailures.WithLabelValues(metrics.KindCompare).Inc()
		a.logger.Warn().Err(err).
			Str("repo", ev.RepoName).
			Int("inline_commits", len(ev.Commits)).
			Msg("compare failed, using push payload commits")
		return ev.Commits
	}
	return commits
}

// fetchStats returns one entry per commit, nil where the stats are unknown.
// The fetches run concurrently; results stay indexed by commit position.
func (a *Aggregator) fetchStats(ctx context.Context, commits []domain.Commit) []*domain.LineStats {
	results := make([]*domain.LineStats, len(commits))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(a.concurrency)

	for i, c := range commits {
		if c.URL == "" {
			continue
		}
		eg.Go(func() error {
			stats, err := a.commitStats(egCtx, c)
			if err != nil {
				a.metrics.FetchFailures.WithLabelValues(metrics.KindStats).Inc()
				a.logger.Warn().Err(err).Str("sha", c.SHA).Msg("failed to fetch commit details")
				return nil
			}
			results[i] = &stats
			return nil
		})
	}
	_ = eg.Wait() // workers never return errors
	return results
}

func (a *Aggregator) commitStats(ctx context.Context, c domain.Commit) (domain.LineStats, error) {
	if stats, ok, err := a.cache.Get(ctx, c.URL); err != nil {
		a.metrics.FetchFailures.WithLabelValues(metrics.KindCache).Inc()
		a.logger.Debug().Err(err).Str("sha", c.SHA).Msg("stats cache lookup failed")
	} else if ok {
		return stats, nil
	}

	var stats domain.LineStats
	err := retry(ctx, a.retries, func() error {
		var err error
		stats, err = a.fetcher.FetchCommitStats(ctx, c.URL)
		if errors.Is(err, domain.ErrNoStats) {
			return permanent(err)
		}
		return err
	})
	if err != nil {
		return domain.LineStats{}, err
	}
	if err := a.cache.Put(ctx, c.URL, stats); err != nil {
		a.metrics.FetchFailures.WithLabelValues(metrics.KindCache).Inc()
		a.logger.Debug().Err(err).Str("sha", c.SHA).Msg("stats cache write failed")
	}
	return stats, nil
}
