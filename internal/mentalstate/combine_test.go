package mentalstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
)

func TestComputeSampleInEventUsesEventDeltasAndHighConfidence(t *testing.T) {
	now := time.Date(2026, 7, 1, 14, 0, 0, 0, time.UTC)
	noEventSample := computeSample(now, nil, nil)

	events := []database.EventRow{
		{
			StartTimestamp: now.Add(-10 * time.Minute),
			EndTimestamp:   now,
			EnergyLevel:    9,
			StressLevel:    2,
		},
	}

	s := computeSample(now, events, nil)
	require.Equal(t, "event", s.DataSource)
	require.Equal(t, 0.95, s.Confidence)
	require.NotNil(t, s.EventID)
	// A high-energy, low-stress event should push the sample above the
	// no-event baseline on energy and below it on stress.
	require.Greater(t, s.Energy, noEventSample.Energy)
	require.Less(t, s.Stress, noEventSample.Stress)
}

func TestComputeSampleNoEventsIsBaseline(t *testing.T) {
	now := time.Date(2026, 7, 6, 3, 0, 0, 0, time.UTC)
	s := computeSample(now, nil, nil)
	require.Equal(t, "baseline", s.DataSource)
	require.Equal(t, 0.30, s.Confidence)
	require.GreaterOrEqual(t, s.Energy, 0.0)
	require.LessOrEqual(t, s.Energy, 10.0)
}

func TestApplyInteractionHighStressLowersEnergy(t *testing.T) {
	energy, stress := applyInteraction(6, 8)
	require.Less(t, energy, 6.0)
	require.Equal(t, 8.0, stress)
}

func TestApplyInteractionLowEnergyRaisesStress(t *testing.T) {
	energy, stress := applyInteraction(2, 4)
	require.Equal(t, 2.0, energy)
	require.Greater(t, stress, 4.0)
}

func TestApplyInteractionOptimalZoneBoost(t *testing.T) {
	energy, stress := applyInteraction(8, 2)
	require.InDelta(t, 8.8, energy, 0.001)
	require.InDelta(t, 1.8, stress, 0.001)
}

func TestClamp(t *testing.T) {
	require.Equal(t, 0.0, clamp(-5, 0, 10))
	require.Equal(t, 10.0, clamp(15, 0, 10))
	require.Equal(t, 5.0, clamp(5, 0, 10))
}

func TestConfidenceForDecaysWithDistance(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	events := []database.EventRow{
		{StartTimestamp: now.Add(-3 * time.Hour), EndTimestamp: now.Add(-3 * time.Hour).Add(10 * time.Minute)},
	}
	impact := Impact{}
	c := confidenceFor(now, events, impact)
	require.Equal(t, 0.50, c)
}
