package domain

import (
	"slices"
	"sort"
)

// DefaultMaxDays is how many active days the timeline keeps.
const DefaultMaxDays = 7

// HistoryEntry is one persisted day of the timeline.
// Additions and Deletions are pointers so files written before they existed round-trip unchanged.
type HistoryEntry struct {
	Date      string   `json:"date"`
	Commits   int      `json:"commits"`
	Additions *int     `json:"additions,omitempty"`
	Deletions *int     `json:"deletions,omitempty"`
	Repos     []string `json:"repos"`
	Summary   string   `json:"summary"`
}

// GetAdditions returns the stored additions, or zero when absent.
func (e *HistoryEntry) GetAdditions() int {
	if e == nil || e.Additions == nil {
		return 0
	}
	return *e.Additions
}

// GetDeletions returns the stored deletions, or zero when absent.
func (e *HistoryEntry) GetDeletions() int {
	if e == nil || e.Deletions == nil {
		return 0
	}
	return *e.Deletions
}

// NewHistoryEntry builds the persisted form of a day's activity.
func NewHistoryEntry(day *DailyActivity, summary string) HistoryEntry {
	additions, deletions := day.Additions, day.Deletions
	repos := make([]string, len(day.Repos))
	copy(repos, day.Repos)
	return HistoryEntry{
		Date:      day.Date,
		Commits:   day.Commits,
		Additions: &additions,
		Deletions: &deletions,
		Repos:     repos,
		Summary:   summary,
	}
}

// History is the persisted timeline.
type History []HistoryEntry

// Find returns the entry for date, or nil.
func (h History) Find(date string) *HistoryEntry {
	for i := range h {
		if h[i].Date == date {
			return &h[i]
		}
	}
	return nil
}

// Upsert replaces the entry with the same date in place, or appends it.
func (h History) Upsert(entry HistoryEntry) History {
	for i := range h {
		if h[i].Date == entry.Date {
			h[i] = entry
			return h
		}
	}
	return append(h, entry)
}

// SortDesc orders entries newest first.
func (h History) SortDesc() {
	sort.SliceStable(h, func(i, j int) bool {
		return h[i].Date > h[j].Date
	})
}

// Truncate keeps the first max entries and reports whether anything was dropped.
func (h History) Truncate(max int) (History, bool) {
	if max <= 0 || len(h) <= max {
		return h, false
	}
	return h[:max], true
}

// Clone returns a deep copy of h.
func (h History) Clone() History {
	if h == nil {
		return nil
	}
	out := make(History, len(h))
	for i, e := range h {
		out[i] = e
		out[i].Additions = cloneInt(e.Additions)
		out[i].Deletions = cloneInt(e.Deletions)
		out[i].Repos = slices.Clone(e.Repos)
	}
	return out
}

// Equal reports whether h and other hold the same entries in the same order.
// A missing line count differs from a stored zero, since the two serialize differently.
func (h History) Equal(other History) bool {
	return slices.EqualFunc(h, other, func(a, b HistoryEntry) bool {
		return a.Date == b.Date &&
			a.Commits == b.Commits &&
			a.Summary == b.Summary &&
			equalInt(a.Additions, b.Additions) &&
			equalInt(a.Deletions, b.Deletions) &&
			slices.Equal(a.Repos, b.Repos)
	})
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
