package mentalstate

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
)

// Sample is one computed (energy, stress) point on a timeline (§4.4
// "Combine and clamp").
type Sample struct {
	Timestamp  time.Time
	Energy     float64
	Stress     float64
	Confidence float64
	DataSource string // event | interpolated | baseline
	EventID    *uuid.UUID
}

// computeSample runs all three layers for one (user-implicit, t) point,
// given the events and historical samples already scoped to the caller's
// relevant windows.
func computeSample(t time.Time, events []database.EventRow, historical []database.HistoricalSample) Sample {
	baseEnergy, baseStress := Baseline(t)
	impact := computeEventImpacts(t, events)
	adjEnergy, adjStress := personalAdjustment(t, historical)

	energy := baseEnergy + impact.EnergyDelta + adjEnergy
	stress := baseStress + impact.StressDelta + adjStress

	energy, stress = applyInteraction(energy, stress)
	energy = clamp(energy, 0, 10)
	stress = clamp(stress, 0, 10)

	return Sample{
		Timestamp:  t,
		Energy:     energy,
		Stress:     stress,
		Confidence: confidenceFor(t, events, impact),
		DataSource: dataSourceFor(impact),
		EventID:    impact.CurrentEventID,
	}
}

// applyInteraction runs the four interaction rules in order; each rule sees
// the output of the ones before it rather than all four applying
// independently to the original values.
func applyInteraction(energy, stress float64) (float64, float64) {
	if stress > 7 {
		energy -= (stress - 7) * 0.3
	}
	if energy < 3 {
		stress += (3 - energy) * 0.2
	}
	if energy > 7 && stress < 3 {
		energy *= 1.1
		stress *= 0.9
	}
	if energy < 3 && stress > 7 {
		energy *= 0.9
		stress *= 1.1
	}
	return energy, stress
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func dataSourceFor(impact Impact) string {
	if impact.CurrentEventID != nil {
		return "event"
	}
	if impact.EnergyDelta != 0 || impact.StressDelta != 0 {
		return "interpolated"
	}
	return "baseline"
}

// confidenceFor implements the tiered confidence rule (§4.4 "Confidence"),
// based on distance in hours to the nearest event window edge.
func confidenceFor(t time.Time, events []database.EventRow, impact Impact) float64 {
	if impact.CurrentEventID != nil {
		return 0.95
	}

	nearest := math.Inf(1)
	for _, e := range events {
		var dist float64
		switch {
		case t.Before(e.StartTimestamp):
			dist = e.StartTimestamp.Sub(t).Hours()
		case t.After(e.EndTimestamp):
			dist = t.Sub(e.EndTimestamp).Hours()
		default:
			dist = 0
		}
		if dist < nearest {
			nearest = dist
		}
	}

	switch {
	case nearest <= 0.5:
		return 0.85
	case nearest <= 2:
		return 0.70
	case nearest <= 4:
		return 0.50
	default:
		return 0.30
	}
}
