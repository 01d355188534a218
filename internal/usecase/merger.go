package usecase

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/naka-gawa/github-timeline/internal/domain"
)

// Merger decides which days need a new summary and keeps the history bounded.
type Merger struct {
	maxDays int
	logger  zerolog.Logger
}

// NewMerger creates a Merger keeping at most maxDays entries.
func NewMerger(maxDays int, logger zerolog.Logger) *Merger {
	if maxDays <= 0 {
		maxDays = domain.DefaultMaxDays
	}
	return &Merger{maxDays: maxDays, logger: logger}
}

// DirtyDays returns the days whose stats differ from their stored entry, newest first.
// Days that would not survive Finalize are never returned.
func (m *Merger) DirtyDays(history domain.History, activity domain.ActivityByDate) []*domain.DailyActivity {
	retained := m.retainedDates(history, activity)
	var dirty []*domain.DailyActivity
	for _, date := range activity.DatesDesc() {
		day := activity[date]
		if !retained[date] {
			m.logger.Debug().Str("date", date).Msg("older than the kept window, skipping")
			continue
		}
		if unchanged(history.Find(date), day) {
			m.logger.Debug().Str("date", date).Int("commits", day.Commits).Msg("unchanged, skipping")
			continue
		}
		dirty = append(dirty, day)
	}
	return dirty
}

// retainedDates returns the maxDays newest dates across the stored and fresh days.
func (m *Merger) retainedDates(history domain.History, activity domain.ActivityByDate) map[string]bool {
	seen := make(map[string]bool, len(history)+len(activity))
	dates := make([]string, 0, len(history)+len(activity))
	add := func(date string) {
		if !seen[date] {
			seen[date] = true
			dates = append(dates, date)
		}
	}
	for _, e := range history {
		add(e.Date)
	}
	for date := range activity {
		add(date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if len(dates) > m.maxDays {
		dates = dates[:m.maxDays]
	}

	retained := make(map[string]bool, len(dates))
	for _, date := range dates {
		retained[date] = true
	}
	return retained
}

// unchanged reports whether the stored entry already reflects day.
// A missing additions field in an older entry counts as zero.
func unchanged(existing *domain.HistoryEntry, day *domain.DailyActivity) bool {
	if existing == nil {
		return false
	}
	return existing.Commits == day.Commits && existing.GetAdditions() == day.Additions
}

// Finalize sorts newest first and drops everything past the bound.
// The flag is true when entries were dropped.
func (m *Merger) Finalize(history domain.History) (domain.History, bool) {
	history.SortDesc()
	kept, truncated := history.Truncate(m.maxDays)
	if truncated {
		m.logger.Debug().Int("dropped", len(history)-len(kept)).Msg("truncated history")
	}
	return kept, truncated
}
