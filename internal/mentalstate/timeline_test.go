package mentalstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeline24hReturnsExactly48Samples(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	samples := Timeline24h(now, nil, nil)
	require.Len(t, samples, 48)
	require.False(t, samples[len(samples)-1].Timestamp.After(now))
	require.Equal(t, now, samples[len(samples)-1].Timestamp)
}

func TestTimeline7DayReturnsExactly168Samples(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	samples := Timeline7Day(now, nil, nil)
	require.Len(t, samples, 168)
	require.False(t, samples[len(samples)-1].Timestamp.After(now))
	require.Equal(t, now, samples[len(samples)-1].Timestamp)
}
