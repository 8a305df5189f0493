package mentalstate

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
)

// Impact is the summed delta contributed by overlapping events at t
// (§4.4 layer 2).
type Impact struct {
	EnergyDelta    float64
	StressDelta    float64
	CurrentEventID *uuid.UUID
}

// computeEventImpacts sums the per-event impact of every event whose window
// overlaps [t-6h, t+6h]; events outside that window are skipped.
func computeEventImpacts(t time.Time, events []database.EventRow) Impact {
	var total Impact
	windowStart, windowEnd := t.Add(-6*time.Hour), t.Add(6*time.Hour)
	for _, e := range events {
		if e.EndTimestamp.Before(windowStart) || e.StartTimestamp.After(windowEnd) {
			continue
		}
		d := eventImpact(t, e)
		total.EnergyDelta += d.EnergyDelta
		total.StressDelta += d.StressDelta
		if d.CurrentEventID != nil {
			total.CurrentEventID = d.CurrentEventID
		}
	}
	return total
}

func eventImpact(t time.Time, e database.EventRow) Impact {
	switch {
	case !t.Before(e.StartTimestamp) && !t.After(e.EndTimestamp):
		id := e.ID
		return Impact{
			EnergyDelta:    e.EnergyLevel - 5.5,
			StressDelta:    e.StressLevel - 5.0,
			CurrentEventID: &id,
		}

	case t.After(e.EndTimestamp):
		hoursSince := t.Sub(e.EndTimestamp).Hours()
		decay := math.Exp(-0.5 * hoursSince)
		return Impact{
			EnergyDelta: (e.EnergyLevel - 5.5) * decay,
			StressDelta: (e.StressLevel - 5.0) * decay * 1.3,
		}

	default: // t.Before(e.StartTimestamp)
		hoursUntil := e.StartTimestamp.Sub(t).Hours()
		if hoursUntil > 1 {
			return Impact{}
		}
		var energyDelta, stressDelta float64
		activity := strings.ToLower(e.ActivityType)
		if activity == "work" {
			stressDelta += 0.5
		}
		if activity == "social" {
			energyDelta += 0.3
		}
		if strings.ToLower(e.InteractionDynamic) == "tense" {
			stressDelta += 0.4
		}
		return Impact{EnergyDelta: energyDelta, StressDelta: stressDelta}
	}
}
