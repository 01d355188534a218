package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/github-timeline/internal/domain"
	"github.com/naka-gawa/github-timeline/internal/metrics"
)

func init() {
	retryInitialInterval = time.Millisecond
}

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
// It allows us to simulate the behavior of the GitHub gateway without making real API calls.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchEvents(ctx context.Context, user string) ([]domain.Event, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *mockFetcher) FetchCompare(ctx context.Context, repoName, before, head string) ([]domain.Commit, error) {
	args := m.Called(ctx, repoName, before, head)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Commit), args.Error(1)
}

func (m *mockFetcher) FetchCommitStats(ctx context.Context, commitURL string) (domain.LineStats, error) {
	args := m.Called(ctx, commitURL)
	return args.Get(0).(domain.LineStats), args.Error(1)
}

// memCache is an in-memory storage.StatsCache.
type memCache struct {
	mu    sync.Mutex
	stats map[string]domain.LineStats
}

func (c *memCache) Get(_ context.Context, url string) (domain.LineStats, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stats[url]
	return s, ok, nil
}

func (c *memCache) Put(_ context.Context, url string, s domain.LineStats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats[url] = s
	return nil
}

func (c *memCache) Close() error { return nil }

func pushEvent(createdAt, repo string, commits ...domain.Commit) domain.Event {
	return domain.Event{
		Type:      domain.PushEventType,
		CreatedAt: createdAt,
		RepoName:  repo,
		RepoURL:   "https://api.github.com/repos/" + repo,
		Commits:   commits,
	}
}

func TestAggregator_Aggregate(t *testing.T) {
	testCases := []struct {
		name     string
		events   []domain.Event
		setup    func(f *mockFetcher)
		expected map[string]domain.DailyActivity
	}{
		{
			name: "events on the same calendar day share a record",
			events: []domain.Event{
				pushEvent("2024-05-01T08:00:00Z", "user/repoA", domain.Commit{SHA: "a", Message: "fix bug"}),
				pushEvent("2024-05-01T23:59:00Z", "user/repoA", domain.Commit{SHA: "b", Message: "add feature"}),
				pushEvent("2024-05-02T00:00:01Z", "user/repoB", domain.Commit{SHA: "c", Message: "next day"}),
			},
			expected: map[string]domain.DailyActivity{
				"2024-05-01": {
					Date: "2024-05-01", Commits: 2, Repos: []string{"user/repoA"},
					Messages: []string{"user/repoA: fix bug", "user/repoA: add feature"},
				},
				"2024-05-02": {
					Date: "2024-05-02", Commits: 1, Repos: []string{"user/repoB"},
					Messages: []string{"user/repoB: next day"},
				},
			},
		},
		{
			name: "non-push events contribute nothing",
			events: []domain.Event{
				pushEvent("2024-05-01T08:00:00Z", "user/repoA", domain.Commit{SHA: "a", Message: "fix bug"}),
				{Type: "WatchEvent", CreatedAt: "2024-05-01T09:00:00Z", RepoName: "other/starred"},
				{Type: "WatchEvent", CreatedAt: "2024-05-03T09:00:00Z", RepoName: "other/starred"},
				pushEvent("2024-05-01T10:00:00Z", "user/repoB", domain.Commit{SHA: "b", Message: "docs"}),
			},
			expected: map[string]domain.DailyActivity{
				"2024-05-01": {
					Date: "2024-05-01", Commits: 2, Repos: []string{"user/repoA", "user/repoB"},
					Messages: []string{"user/repoA: fix bug", "user/repoB: docs"},
				},
			},
		},
		{
			name: "date key ignores the timezone offset",
			events: []domain.Event{
				pushEvent("2024-05-01T23:30:00-07:00", "user/repoA", domain.Commit{SHA: "a", Message: "late"}),
			},
			expected: map[string]domain.DailyActivity{
				"2024-05-01": {
					Date: "2024-05-01", Commits: 1, Repos: []string{"user/repoA"},
					Messages: []string{"user/repoA: late"},
				},
			},
		},
		{
			name: "compare range replaces the inline commits",
			events: []domain.Event{func() domain.Event {
				ev := pushEvent("2024-05-01T08:00:00Z", "user/repoA", domain.Commit{SHA: "squashed", Message: "squashed"})
				ev.Before, ev.Head = "before", "head"
				return ev
			}()},
			setup: func(f *mockFetcher) {
				f.On("FetchCompare", mock.Anything, "user/repoA", "before", "head").Return([]domain.Commit{
					{SHA: "c1", Message: "first", URL: "https://api/c1"},
					{SHA: "c2", Message: "second", URL: "https://api/c2"},
				}, nil)
				f.On("FetchCommitStats", mock.Anything, "https://api/c1").Return(domain.LineStats{Additions: 10, Deletions: 1}, nil)
				f.On("FetchCommitStats", mock.Anything, "https://api/c2").Return(domain.LineStats{Additions: 5, Deletions: 4}, nil)
			},
			expected: map[string]domain.DailyActivity{
				"2024-05-01": {
					Date: "2024-05-01", Commits: 2, Additions: 15, Deletions: 5, Repos: []string{"user/repoA"},
					Messages: []string{"user/repoA: first", "user/repoA: second"},
				},
			},
		},
		{
			name: "compare failure falls back to inline commits",
			events: []domain.Event{func() domain.Event {
				ev := pushEvent("2024-05-01T08:00:00Z", "user/repoA", domain.Commit{SHA: "a", Message: "inline"})
				ev.Before, ev.Head = "before", "head"
				return ev
			}()},
			setup: func(f *mockFetcher) {
				f.On("FetchCompare", mock.Anything, "user/repoA", "before", "head").Return(nil, errors.New("404 Not Found"))
			},
			expected: map[string]domain.DailyActivity{
				"2024-05-01": {
					Date: "2024-05-01", Commits: 1, Repos: []string{"user/repoA"},
					Messages: []string{"user/repoA: inline"},
				},
			},
		},
		{
			name: "a failed stats fetch still counts the commit",
			events: []domain.Event{
				pushEvent("2024-05-01T08:00:00Z", "user/repoA",
					domain.Commit{SHA: "ok", Message: "good", URL: "https://api/ok"},
					domain.Commit{SHA: "bad", Message: "broken", URL: "https://api/bad"},
					domain.Commit{SHA: "ok2", Message: "also good", URL: "https://api/ok2"},
				),
			},
			setup: func(f *mockFetcher) {
				f.On("FetchCommitStats", mock.Anything, "https://api/ok").Return(domain.LineStats{Additions: 3, Deletions: 1}, nil)
				f.On("FetchCommitStats", mock.Anything, "https://api/bad").Return(domain.LineStats{}, errors.New("500 Internal Server Error"))
				f.On("FetchCommitStats", mock.Anything, "https://api/ok2").Return(domain.LineStats{Additions: 7, Deletions: 2}, nil)
			},
			expected: map[string]domain.DailyActivity{
				"2024-05-01": {
					Date: "2024-05-01", Commits: 3, Additions: 10, Deletions: 3, Repos: []string{"user/repoA"},
					Messages: []string{"user/repoA: good", "user/repoA: broken", "user/repoA: also good"},
				},
			},
		},
		{
			name:     "empty feed",
			events:   []domain.Event{},
			expected: map[string]domain.DailyActivity{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := new(mockFetcher)
			if tc.setup != nil {
				tc.setup(fetcher)
			}
			aggregator := NewAggregator(fetcher, metrics.New(), zerolog.Nop())

			activity, err := aggregator.Aggregate(context.Background(), tc.events)
			require.NoError(t, err)

			got := make(map[string]domain.DailyActivity, len(activity))
			for date, day := range activity {
				got[date] = domain.DailyActivity{
					Date: day.Date, Commits: day.Commits, Additions: day.Additions, Deletions: day.Deletions,
					Repos: day.Repos, Messages: day.Messages,
				}
			}
			assert.Equal(t, tc.expected, got)
			fetcher.AssertExpectations(t)
		})
	}
}

func TestAggregator_RetriesAndCache(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchCommitStats", mock.Anything, "https://api/flaky").Return(domain.LineStats{}, errors.New("502")).Once()
	fetcher.On("FetchCommitStats", mock.Anything, "https://api/flaky").Return(domain.LineStats{Additions: 2}, nil).Once()

	cache := &memCache{stats: map[string]domain.LineStats{"https://api/cached": {Additions: 40, Deletions: 8}}}
	m := metrics.New()
	aggregator := NewAggregator(fetcher, m, zerolog.Nop(), WithRetries(1), WithStatsCache(cache), WithConcurrency(2))

	activity, err := aggregator.Aggregate(context.Background(), []domain.Event{
		pushEvent("2024-05-01T08:00:00Z", "user/repoA",
			domain.Commit{SHA: "flaky", Message: "one", URL: "https://api/flaky"},
			domain.Commit{SHA: "cached", Message: "two", URL: "https://api/cached"},
		),
	})
	require.NoError(t, err)

	day := activity["2024-05-01"]
	require.NotNil(t, day)
	assert.Equal(t, 42, day.Additions)
	assert.Equal(t, 8, day.Deletions)
	assert.Equal(t, domain.LineStats{Additions: 2}, cache.stats["https://api/flaky"])
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Commits))
	assert.Zero(t, testutil.ToFloat64(m.FetchFailures.WithLabelValues(metrics.KindStats)))
	fetcher.AssertExpectations(t)
}

func TestAggregator_NoStatsIsNotRetried(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchCommitStats", mock.Anything, "https://api/x").Return(domain.LineStats{}, domain.ErrNoStats).Once()

	m := metrics.New()
	aggregator := NewAggregator(fetcher, m, zerolog.Nop(), WithRetries(3))
	activity, err := aggregator.Aggregate(context.Background(), []domain.Event{
		pushEvent("2024-05-01T08:00:00Z", "user/repoA", domain.Commit{SHA: "x", Message: "m", URL: "https://api/x"}),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, activity["2024-05-01"].Commits)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchFailures.WithLabelValues(metrics.KindStats)))
	fetcher.AssertExpectations(t)
}

func TestAggregator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	aggregator := NewAggregator(new(mockFetcher), metrics.New(), zerolog.Nop())
	_, err := aggregator.Aggregate(ctx, []domain.Event{pushEvent("2024-05-01T08:00:00Z", "user/repoA")})
	assert.ErrorIs(t, err, context.Canceled)
}
