// Package report renders activity and timeline tables for the terminal.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"

	"github.com/naka-gawa/github-timeline/internal/domain"
)

// PrintActivity writes one row per active day, newest first. With messages set, each
// day's commit messages follow the table.
func PrintActivity(w io.Writer, activity domain.ActivityByDate, messages bool) error {
	dates := activity.DatesDesc()
	if len(dates) == 0 {
		_, err := fmt.Fprintln(w, "No PushEvent activity found in the fetched events.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Date", "Commits", "Additions", "Deletions", "Repos"})
	var data [][]string
	for _, date := range dates {
		day := activity[date]
		data = append(data, []string{
			day.Date,
			strconv.Itoa(day.Commits),
			"+" + strconv.Itoa(day.Additions),
			"-" + strconv.Itoa(day.Deletions),
			strings.Join(day.Repos, ", "),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if !messages {
		return nil
	}
	for _, date := range dates {
		day := activity[date]
		if _, err := fmt.Fprintf(w, "\n%s (%d messages)\n", day.Date, len(day.Messages)); err != nil {
			return err
		}
		for _, msg := range day.Messages {
			if _, err := fmt.Fprintf(w, "  - %s\n", msg); err != nil {
				return err
			}
		}
	}
	return nil
}

// Summary holds aggregate figures over a timeline.
type Summary struct {
	Days          int
	MeanCommits   float64
	MedianCommits float64
	MaxCommits    float64
	LinesChanged  int
}

// Summarize computes the timeline footer figures.
func Summarize(history domain.History) (Summary, error) {
	s := Summary{Days: len(history)}
	if len(history) == 0 {
		return s, nil
	}
	commits := make([]int, 0, len(history))
	for i := range history {
		commits = append(commits, history[i].Commits)
		s.LinesChanged += history[i].GetAdditions() + history[i].GetDeletions()
	}
	data := stats.LoadRawData(commits)

	var err error
	if s.MeanCommits, err = stats.Mean(data); err != nil {
		return s, fmt.Errorf("mean commits: %w", err)
	}
	if s.MedianCommits, err = stats.Median(data); err != nil {
		return s, fmt.Errorf("median commits: %w", err)
	}
	if s.MaxCommits, err = stats.Max(data); err != nil {
		return s, fmt.Errorf("max commits: %w", err)
	}
	return s, nil
}

// PrintHistory writes the persisted timeline with a statistics footer.
func PrintHistory(w io.Writer, history domain.History) error {
	if len(history) == 0 {
		_, err := fmt.Fprintln(w, "Timeline is empty.")
		return err
	}
	summary, err := Summarize(history)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Date", "Commits", "Lines", "Repos", "Summary"})
	var data [][]string
	for i := range history {
		e := &history[i]
		data = append(data, []string{
			e.Date,
			strconv.Itoa(e.Commits),
			fmt.Sprintf("+%d/-%d", e.GetAdditions(), e.GetDeletions()),
			strings.Join(e.Repos, ", "),
			e.Summary,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	table.Footer([]string{
		fmt.Sprintf("%d days", summary.Days),
		fmt.Sprintf("mean %.1f", summary.MeanCommits),
		fmt.Sprintf("%d lines", summary.LinesChanged),
		fmt.Sprintf("median %.1f", summary.MedianCommits),
		fmt.Sprintf("max %.0f", summary.MaxCommits),
	})
	return table.Render()
}
