package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDateKey(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{"2024-05-01T08:00:00Z", "2024-05-01"},
		{"2024-05-01T23:59:00Z", "2024-05-01"},
		{"2024-05-02T00:00:01Z", "2024-05-02"},
		{"2024-05-01T23:30:00-07:00", "2024-05-01"},
		{"2024-05-01", "2024-05-01"},
		{"", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, DateKey(tc.in))
		})
	}
}

func TestDailyActivity_Accumulates(t *testing.T) {
	activity := make(ActivityByDate)
	day := activity.Day("2024-05-01")
	day.AddRepo("user/repoA")
	day.AddCommit("user/repoA", "fix bug")
	day.AddStats(LineStats{Additions: 3, Deletions: 1})

	same := activity.Day("2024-05-01")
	assert.Same(t, day, same)
	same.AddRepo("user/repoB")
	same.AddRepo("user/repoA")
	same.AddCommit("user/repoB", "add feature")
	same.AddStats(LineStats{Additions: 2})

	assert.Equal(t, 2, day.Commits)
	assert.Equal(t, 5, day.Additions)
	assert.Equal(t, 1, day.Deletions)
	assert.Equal(t, []string{"user/repoA", "user/repoB"}, day.Repos)
	assert.Equal(t, []string{"user/repoA: fix bug", "user/repoB: add feature"}, day.Messages)
}

func TestActivityByDate_DatesDesc(t *testing.T) {
	activity := make(ActivityByDate)
	for _, d := range []string{"2024-05-02", "2024-04-30", "2024-05-10"} {
		activity.Day(d)
	}
	assert.Equal(t, []string{"2024-05-10", "2024-05-02", "2024-04-30"}, activity.DatesDesc())
}
