package mentalstate

import (
	"math"
	"time"
)

// DailyStats is the derived-output summary for "today" (§4.4 "Derived
// outputs: Daily stats").
type DailyStats struct {
	AvgEnergy       float64
	AvgStress       float64
	PeakEnergyAt    time.Time
	PeakStressAt    time.Time
	OptimalMinutes  int
	BurnoutMinutes  int
	RecoveryPeriods int
}

// computeDailyStats assumes samples are ordered by time at a fixed
// 30-minute resolution (each sample counts as 30 minutes), matching the steps
// Timeline24h/filterToday produce.
func computeDailyStats(samples []Sample) DailyStats {
	var stats DailyStats
	if len(samples) == 0 {
		return stats
	}

	var sumE, sumS float64
	maxE, maxS := math.Inf(-1), math.Inf(-1)

	for _, s := range samples {
		sumE += s.Energy
		sumS += s.Stress

		if s.Energy > maxE {
			maxE = s.Energy
			stats.PeakEnergyAt = s.Timestamp
		}
		if s.Stress > maxS {
			maxS = s.Stress
			stats.PeakStressAt = s.Timestamp
		}

		if isOptimal(s) {
			stats.OptimalMinutes += 30
		}
		if isBurnout(s) {
			stats.BurnoutMinutes += 30
		}
	}

	stats.AvgEnergy = sumE / float64(len(samples))
	stats.AvgStress = sumS / float64(len(samples))

	for i := 1; i < len(samples); i++ {
		if samples[i-1].Stress-samples[i].Stress >= 2 {
			stats.RecoveryPeriods++
		}
	}
	return stats
}

func isOptimal(s Sample) bool {
	return s.Energy > 7 && s.Stress < 3
}

func isBurnout(s Sample) bool {
	return s.Energy < 3 && s.Stress > 7
}
