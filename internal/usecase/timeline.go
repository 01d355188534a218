package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/naka-gawa/github-timeline/internal/domain"
	"github.com/naka-gawa/github-timeline/internal/gateway"
	"github.com/naka-gawa/github-timeline/internal/metrics"
)

// HistoryRepository loads and saves the persisted timeline.
type HistoryRepository interface {
	Load() (domain.History, error)
	Save(history domain.History) error
}

// RunResult describes what a Timeline run did.
type RunResult struct {
	Days    int // distinct active days in the event feed
	Dirty   int // days that needed a new summary
	Updated int // days whose entry was written
	Failed  int // days whose summary generation failed
	Written bool
	History domain.History
}

// Timeline runs the fetch, aggregate, merge and summarize stages and persists the result.
type Timeline struct {
	fetcher    gateway.Fetcher
	aggregator *Aggregator
	merger     *Merger
	narrator   Narrator
	store      HistoryRepository
	metrics    *metrics.Metrics
	retries    int
	logger     zerolog.Logger
}

// NewTimeline wires the pipeline stages together.
func NewTimeline(
	fetcher gateway.Fetcher,
	aggregator *Aggregator,
	merger *Merger,
	narrator Narrator,
	store HistoryRepository,
	m *metrics.Metrics,
	retries int,
	logger zerolog.Logger,
) *Timeline {
	return &Timeline{
		fetcher:    fetcher,
		aggregator: aggregator,
		merger:     merger,
		narrator:   narrator,
		store:      store,
		metrics:    m,
		retries:    retries,
		logger:     logger,
	}
}

// Run executes one pipeline pass for user. It fails only when the event feed, the history
// file or the final write fails; per-day generation failures are logged and counted.
func (t *Timeline) Run(ctx context.Context, user string) (*RunResult, error) {
	events, err := t.fetcher.FetchEvents(ctx, user)
	if err != nil {
		return nil, err
	}
	activity, err := t.aggregator.Aggregate(ctx, events)
	if err != nil {
		return nil, err
	}

	t.logger.Info().Msg("[3/4] Merging with stored history...")
	loaded, err := t.store.Load()
	if err != nil {
		return nil, err
	}
	history := loaded.Clone()
	result := &RunResult{Days: len(activity)}
	dirty := t.merger.DirtyDays(history, activity)
	result.Dirty = len(dirty)
	t.metrics.Summaries.WithLabelValues(metrics.StatusSkipped).Add(float64(len(activity) - len(dirty)))

	t.logger.Info().Int("dirty", len(dirty)).Msg("[4/4] Generating summaries...")
	for _, day := range dirty {
		summary, err := t.summarize(ctx, day)
		if err != nil {
			result.Failed++
			t.metrics.Summaries.WithLabelValues(metrics.StatusFailed).Inc()
			t.logger.Warn().Err(err).Str("date", day.Date).Msg("failed to generate summary, keeping previous entry")
			continue
		}
		t.metrics.Summaries.WithLabelValues(metrics.StatusGenerated).Inc()
		t.logger.Info().Str("date", day.Date).Str("summary", summary).Msg("generated summary")
		history = history.Upsert(domain.NewHistoryEntry(day, summary))
		result.Updated++
	}

	history, _ = t.merger.Finalize(history)
	result.History = history

	// The file is rewritten only when its content would change.
	if history.Equal(loaded) {
		t.logger.Info().Msg("No new activity to update.")
		return result, nil
	}
	if err := t.store.Save(history); err != nil {
		return nil, fmt.Errorf("failed to persist history: %w", err)
	}
	t.metrics.HistoryWrites.Inc()
	result.Written = true
	t.logger.Info().Int("entries", len(history)).Msg("timeline updated")
	return result, nil
}

func (t *Timeline) summarize(ctx context.Context, day *domain.DailyActivity) (string, error) {
	var summary string
	err := retry(ctx, t.retries, func() error {
		var err error
		summary, err = t.narrator.Narrate(ctx, day)
		return err
	})
	return summary, err
}
