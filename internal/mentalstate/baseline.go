// Package mentalstate implements the on-demand mental-state calculator: a
// three-layer model (natural baseline, event impacts, personal adjustment)
// combined into a timeline of energy/stress samples, plus the daily stats,
// pattern detection, recommendations, and risk indicators derived from it.
// Laid out as one small file per pipeline stage rather than one large file.
package mentalstate

import "time"

// energyCurve and stressCurve are fixed hourly baseline values (0-10),
// energy peaking around 11:00 with a dip 13:00-15:00, stress peaking around
// 15:00 and low in the early morning (§4.4 layer 1).
var energyCurve = [24]float64{
	3.0, 2.5, 2.2, 2.0, 2.2, 3.0,
	4.5, 6.0, 7.2, 8.0, 8.6, 9.0,
	7.5, 5.5, 5.0, 5.2, 6.5, 7.0,
	6.5, 6.0, 5.2, 4.5, 3.8, 3.2,
}

var stressCurve = [24]float64{
	2.0, 1.8, 1.6, 1.5, 1.6, 2.0,
	3.0, 4.0, 4.8, 5.2, 5.5, 5.8,
	6.2, 6.6, 7.0, 7.2, 7.0, 6.5,
	5.8, 5.0, 4.2, 3.5, 3.0, 2.5,
}

// Baseline returns the natural baseline (energy, stress) at t, interpolated
// linearly between hour marks and with the weekend multiplier applied
// (stress x0.7, energy x1.1).
func Baseline(t time.Time) (energy, stress float64) {
	hour := t.Hour()
	next := (hour + 1) % 24
	frac := float64(t.Minute()) / 60.0

	energy = lerp(energyCurve[hour], energyCurve[next], frac)
	stress = lerp(stressCurve[hour], stressCurve[next], frac)

	if isWeekend(t) {
		stress *= 0.7
		energy *= 1.1
	}
	return energy, stress
}

// baselineAtHour is the non-interpolated curve value at an exact hour,
// used by the personal-adjustment layer which reasons in whole hours.
func baselineAtHour(hour int, weekend bool) (energy, stress float64) {
	energy = energyCurve[hour%24]
	stress = stressCurve[hour%24]
	if weekend {
		stress *= 0.7
		energy *= 1.1
	}
	return energy, stress
}

func lerp(a, b, frac float64) float64 {
	return a + (b-a)*frac
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func dayType(t time.Time) string {
	if isWeekend(t) {
		return "weekend"
	}
	return "weekday"
}
