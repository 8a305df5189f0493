package mentalstate

import (
	"time"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
)

// Timeline24h returns exactly 48 samples at 30-minute resolution, from
// now-23h30m up to and including now; it never steps past now (§4.4
// "Timeline assembly", §8 boundary behaviors).
func Timeline24h(now time.Time, events []database.EventRow, historical []database.HistoricalSample) []Sample {
	return buildTimeline(now, 30*time.Minute, 24*time.Hour, events, historical)
}

// Timeline7Day returns the last 7 days at hourly resolution.
func Timeline7Day(now time.Time, events []database.EventRow, historical []database.HistoricalSample) []Sample {
	return buildTimeline(now, time.Hour, 7*24*time.Hour, events, historical)
}

func buildTimeline(now time.Time, step, lookback time.Duration, events []database.EventRow, historical []database.HistoricalSample) []Sample {
	start := now.Add(-lookback)
	var samples []Sample
	for t := start.Add(step); !t.After(now); t = t.Add(step) {
		samples = append(samples, computeSample(t, events, historical))
	}
	return samples
}

// filterToday keeps only the samples whose timestamp falls on the same
// calendar date as now, both read in loc, used to scope "today's stats" out
// of the rolling 24h timeline.
func filterToday(samples []Sample, loc *time.Location, now time.Time) []Sample {
	y, m, d := now.In(loc).Date()
	var out []Sample
	for _, s := range samples {
		sy, sm, sd := s.Timestamp.In(loc).Date()
		if sy == y && sm == m && sd == d {
			out = append(out, s)
		}
	}
	return out
}
