// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// PushEventType is the only event type the timeline cares about.
const PushEventType = "PushEvent"

// ErrNoStats is returned when a commit detail response carries no line statistics.
var ErrNoStats = errors.New("commit has no stats")

// Event is one entry of a user's event feed, reduced to the fields the pipeline reads.
type Event struct {
	Type      string
	CreatedAt string // ISO-8601 with the offset GitHub sent
	RepoName  string
	RepoURL   string
	Before    string
	Head      string
	Commits   []Commit
}

// Commit is a single commit reference, from either a push payload or a compare range.
type Commit struct {
	SHA     string
	Message string
	URL     string // commit detail resource; may be empty
}

// LineStats holds the line-level change counts of one commit.
type LineStats struct {
	Additions int
	Deletions int
}

// DateKey returns the calendar date portion of an ISO-8601 timestamp.
// No timezone conversion happens: the date is whatever precedes the "T".
func DateKey(timestamp string) string {
	date, _, _ := strings.Cut(timestamp, "T")
	return date
}

// DailyActivity accumulates the push activity of a single calendar day.
type DailyActivity struct {
	Date      string
	Commits   int
	Additions int
	Deletions int
	Repos     []string
	Messages  []string

	seen map[string]struct{}
}

// AddRepo records a repository, ignoring duplicates and keeping first-seen order.
func (d *DailyActivity) AddRepo(name string) {
	if d.seen == nil {
		d.seen = make(map[string]struct{})
	}
	if _, ok := d.seen[name]; ok {
		return
	}
	d.seen[name] = struct{}{}
	d.Repos = append(d.Repos, name)
}

// AddCommit counts one commit and records its message.
func (d *DailyActivity) AddCommit(repoName, message string) {
	d.Commits++
	d.Messages = append(d.Messages, fmt.Sprintf("%s: %s", repoName, message))
}

// AddStats adds a commit's line counts to the day's totals.
func (d *DailyActivity) AddStats(s LineStats) {
	d.Additions += s.Additions
	d.Deletions += s.Deletions
}

// ActivityByDate is the per-run aggregation state, keyed by YYYY-MM-DD.
type ActivityByDate map[string]*DailyActivity

// Day returns the record for date, creating it on first use.
func (m ActivityByDate) Day(date string) *DailyActivity {
	day, ok := m[date]
	if !ok {
		day = &DailyActivity{Date: date}
		m[date] = day
	}
	return day
}

// DatesDesc returns the dates newest first.
func (m ActivityByDate) DatesDesc() []string {
	dates := make([]string, 0, len(m))
	for date := range m {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}
