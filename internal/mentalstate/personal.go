package mentalstate

import (
	"time"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
)

// personalAdjustment implements §4.4 layer 3: look up historical samples for
// the same hour-of-day (±1) and day-type over the last 30 days, require at
// least 3, and scale the delta from baseline at 0.3. Returns zero when there
// are too few matching samples. Callers are expected to have already scoped
// `samples` to the last 30 days.
func personalAdjustment(t time.Time, samples []database.HistoricalSample) (energyAdj, stressAdj float64) {
	hour := t.Hour()
	weekend := isWeekend(t)

	var sumE, sumS float64
	var n int
	for _, s := range samples {
		if !hourWithinOne(hour, s.Timestamp.Hour()) {
			continue
		}
		if isWeekend(s.Timestamp) != weekend {
			continue
		}
		sumE += s.Energy
		sumS += s.Stress
		n++
	}
	if n < 3 {
		return 0, 0
	}

	meanE := sumE / float64(n)
	meanS := sumS / float64(n)
	baseE, baseS := baselineAtHour(hour, weekend)

	return 0.3 * (meanE - baseE), 0.3 * (meanS - baseS)
}

func hourWithinOne(a, b int) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	if diff == 23 {
		diff = 1
	}
	return diff <= 1
}
