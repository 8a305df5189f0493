package mentalstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBaselineWeekendMultiplier(t *testing.T) {
	// 2026-07-04 is a Saturday.
	weekend := time.Date(2026, 7, 4, 11, 0, 0, 0, time.UTC)
	weekday := time.Date(2026, 7, 3, 11, 0, 0, 0, time.UTC)

	we, ws := Baseline(weekend)
	de, ds := Baseline(weekday)

	require.True(t, isWeekend(weekend))
	require.False(t, isWeekend(weekday))
	require.InDelta(t, de*1.1, we, 0.001)
	require.InDelta(t, ds*0.7, ws, 0.001)
}

func TestBaselineInterpolatesBetweenHours(t *testing.T) {
	t1 := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 7, 1, 9, 30, 0, 0, time.UTC)
	t3 := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

	e1, _ := Baseline(t1)
	e2, _ := Baseline(t2)
	e3, _ := Baseline(t3)

	require.InDelta(t, (e1+e3)/2, e2, 0.001)
}

func TestDayType(t *testing.T) {
	require.Equal(t, "weekend", dayType(time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, "weekday", dayType(time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC)))
}
