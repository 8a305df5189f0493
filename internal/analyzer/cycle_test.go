package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
)

func TestFindContinuableWithinGap(t *testing.T) {
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	ongoing := []database.EventRow{
		{EndTimestamp: base},
	}
	rg := rawGroup{StartTime: base.Add(5 * time.Minute)}

	idx := findContinuable(ongoing, rg, 10*time.Minute)
	require.Equal(t, 0, idx)
}

func TestFindContinuableBeyondGap(t *testing.T) {
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	ongoing := []database.EventRow{
		{EndTimestamp: base},
	}
	rg := rawGroup{StartTime: base.Add(20 * time.Minute)}

	idx := findContinuable(ongoing, rg, 10*time.Minute)
	require.Equal(t, -1, idx)
}

func TestFindContinuableRejectsGroupsThatStartBeforeEventEnds(t *testing.T) {
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	ongoing := []database.EventRow{
		{EndTimestamp: base},
	}
	rg := rawGroup{StartTime: base.Add(-time.Minute)}

	idx := findContinuable(ongoing, rg, 10*time.Minute)
	require.Equal(t, -1, idx)
}

func TestRemoveAt(t *testing.T) {
	events := []database.EventRow{{Title: "a"}, {Title: "b"}, {Title: "c"}}
	out := removeAt(events, 1)
	require.Len(t, out, 2)
	require.Equal(t, "a", out[0].Title)
	require.Equal(t, "c", out[1].Title)
}

func TestFormatTimeRangeSameDay(t *testing.T) {
	start := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	require.Equal(t, "Jul 1 09:00-10:30", formatTimeRange(start, end))
}

func TestFormatTimeRangeAcrossDays(t *testing.T) {
	start := time.Date(2026, 7, 1, 23, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	require.Equal(t, "Jul 1 23:00 - Jul 2 01:00", formatTimeRange(start, end))
}

func TestFallbackOngoingIsDeterministic(t *testing.T) {
	a := fallbackOngoing()
	b := fallbackOngoing()
	require.Equal(t, a, b)
	require.NotEmpty(t, a.EventTitle)
}

func TestFallbackCompletedDefaults(t *testing.T) {
	fb := fallbackCompleted()
	require.Equal(t, "unspecified", fb.Location)
	require.Equal(t, "unknown", fb.ActivityType)
	require.Equal(t, 7.0, fb.MoodScore)
}
