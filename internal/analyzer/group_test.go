package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
)

func TestGroupByUserAndDateSplitsOnUserAndDay(t *testing.T) {
	mk := func(user string, t time.Time) database.TranscriptionResultRow {
		return database.TranscriptionResultRow{Username: user, StartTime: t, EndTime: t.Add(time.Minute)}
	}

	items := []database.TranscriptionResultRow{
		mk("alice", time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)),
		mk("alice", time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)),
		mk("alice", time.Date(2026, 7, 2, 9, 0, 0, 0, time.UTC)),
		mk("bob", time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)),
	}

	groups := groupByUserAndDate(items)
	require.Len(t, groups, 3)

	byKey := make(map[string]transcriptGroup)
	for _, g := range groups {
		byKey[g.Username+"|"+g.LocalDate] = g
	}

	require.Len(t, byKey["alice|2026-07-01"].Items, 2)
	require.Len(t, byKey["alice|2026-07-02"].Items, 1)
	require.Len(t, byKey["bob|2026-07-01"].Items, 1)
}

func TestLocalDateUTCIgnoresNonUTCOffset(t *testing.T) {
	loc := time.FixedZone("test", -7*3600)
	// 2026-07-01 23:30 -07:00 is 2026-07-02 06:30 UTC.
	ts := time.Date(2026, 7, 1, 23, 30, 0, 0, loc)
	require.Equal(t, "2026-07-02", localDateUTC(ts))
}
