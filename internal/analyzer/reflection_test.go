package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
)

func TestDayNarrativeSkipsNonCompletedEvents(t *testing.T) {
	events := []database.EventRow{
		{EventStatus: "completed", TimeRange: "Jul 1 09:00-10:00", Title: "Coffee", OneSentenceSummary: "Had coffee with a friend."},
		{EventStatus: "ongoing", TimeRange: "Jul 1 11:00-11:30", Title: "Meeting"},
	}

	narrative := dayNarrative(events)
	require.Contains(t, narrative, "Coffee")
	require.NotContains(t, narrative, "Meeting")
}

func TestDayNarrativeEmpty(t *testing.T) {
	require.Equal(t, "", dayNarrative(nil))
}

func TestFallbackReflectionIsEmpty(t *testing.T) {
	fb := fallbackReflection()
	require.Empty(t, fb.Gratitude)
	require.Empty(t, fb.Learning)
}
