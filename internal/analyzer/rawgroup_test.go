package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
)

func TestBuildRawGroupsSplitsOnGap(t *testing.T) {
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	items := []database.TranscriptionResultRow{
		{StartTime: base, EndTime: base.Add(5 * time.Minute), TranscriptText: "first"},
		{StartTime: base.Add(8 * time.Minute), EndTime: base.Add(12 * time.Minute), TranscriptText: "second"},
		{StartTime: base.Add(45 * time.Minute), EndTime: base.Add(50 * time.Minute), TranscriptText: "third"},
	}

	groups := buildRawGroups(items, 10*time.Minute)
	require.Len(t, groups, 2)
	require.Contains(t, groups[0].Text, "first")
	require.Contains(t, groups[0].Text, "second")
	require.Contains(t, groups[1].Text, "third")
	require.Equal(t, base, groups[0].StartTime)
	require.Equal(t, base.Add(12*time.Minute), groups[0].EndTime)
}

func TestBuildRawGroupsEmptyInput(t *testing.T) {
	require.Nil(t, buildRawGroups(nil, time.Minute))
}

func TestBuildRawGroupsSingleItem(t *testing.T) {
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	items := []database.TranscriptionResultRow{
		{StartTime: base, EndTime: base.Add(time.Minute), TranscriptText: "only"},
	}
	groups := buildRawGroups(items, time.Minute)
	require.Len(t, groups, 1)
	require.Contains(t, groups[0].Text, "only")
}
