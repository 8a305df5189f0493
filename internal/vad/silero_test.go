package vad

import "testing"

func TestProbabilitiesToIntervalsBridgesShortSilenceGap(t *testing.T) {
	params := DefaultParams()
	params.SampleRate = 16000
	params.MinSpeechMS = 250
	params.MinSilenceMS = 100
	params.PadMS = 0
	windowSeconds := float64(sileroWindowSamples) / float64(params.SampleRate)

	speechWindows := int(0.5 / windowSeconds)
	gapWindows := int((float64(params.MinSilenceMS)/1000 - windowSeconds) / windowSeconds)
	if gapWindows < 1 {
		gapWindows = 1
	}

	probs := make([]float64, 0, 2*speechWindows+gapWindows)
	for i := 0; i < speechWindows; i++ {
		probs = append(probs, 0.9)
	}
	for i := 0; i < gapWindows; i++ {
		probs = append(probs, 0.01)
	}
	for i := 0; i < speechWindows; i++ {
		probs = append(probs, 0.9)
	}

	intervals := probabilitiesToIntervals(probs, sileroWindowSamples, true, params)
	if len(intervals) != 1 {
		t.Fatalf("expected the short silence gap to be bridged into one interval, got %v", intervals)
	}
}

func TestProbabilitiesToIntervalsKeepsLongSilenceGapSeparate(t *testing.T) {
	params := DefaultParams()
	params.SampleRate = 16000
	params.MinSpeechMS = 250
	params.MinSilenceMS = 100
	params.PadMS = 0
	windowSeconds := float64(sileroWindowSamples) / float64(params.SampleRate)

	speechWindows := int(0.5 / windowSeconds)
	longGapWindows := int(1.0 / windowSeconds) // 1s, far beyond MinSilenceMS

	probs := make([]float64, 0, 2*speechWindows+longGapWindows)
	for i := 0; i < speechWindows; i++ {
		probs = append(probs, 0.9)
	}
	for i := 0; i < longGapWindows; i++ {
		probs = append(probs, 0.01)
	}
	for i := 0; i < speechWindows; i++ {
		probs = append(probs, 0.9)
	}

	intervals := probabilitiesToIntervals(probs, sileroWindowSamples, true, params)
	if len(intervals) != 2 {
		t.Fatalf("expected a long silence gap to split into two intervals, got %v", intervals)
	}
}
