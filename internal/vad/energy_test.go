package vad

import (
	"math"
	"testing"
)

func tone(seconds float64, sampleRate int, amplitude float64) []int16 {
	n := int(seconds * float64(sampleRate))
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amplitude * 32767 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
	}
	return out
}

func silence(seconds float64, sampleRate int) []int16 {
	return make([]int16, int(seconds*float64(sampleRate)))
}

func TestEnergyDetectorSilenceProducesNoIntervals(t *testing.T) {
	d := NewEnergyDetector()
	pcm := silence(2, 16000)

	intervals, err := d.Detect(pcm, DefaultParams())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(intervals) != 0 {
		t.Errorf("expected no intervals in silence, got %v", intervals)
	}
}

func TestEnergyDetectorFindsSpeechBetweenSilence(t *testing.T) {
	d := NewEnergyDetector()
	params := DefaultParams()

	var pcm []int16
	pcm = append(pcm, silence(1, params.SampleRate)...)
	pcm = append(pcm, tone(1, params.SampleRate, 0.8)...)
	pcm = append(pcm, silence(1, params.SampleRate)...)

	intervals, err := d.Detect(pcm, params)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(intervals) != 1 {
		t.Fatalf("expected exactly one interval, got %v", intervals)
	}

	iv := intervals[0]
	// The tone runs from 1.0s to 2.0s; padding widens it by PadMS on each side.
	padSeconds := float64(params.PadMS) / 1000
	if iv.StartSeconds > 1.0+0.05 || iv.StartSeconds < 1.0-padSeconds-0.05 {
		t.Errorf("interval start = %v, want near 1.0s", iv.StartSeconds)
	}
	if iv.EndSeconds < 2.0-0.05 || iv.EndSeconds > 2.0+padSeconds+0.05 {
		t.Errorf("interval end = %v, want near 2.0s", iv.EndSeconds)
	}
}

func TestEnergyDetectorRejectsSpeechShorterThanMinSpeech(t *testing.T) {
	d := NewEnergyDetector()
	params := DefaultParams()
	params.MinSpeechMS = 500

	var pcm []int16
	pcm = append(pcm, silence(1, params.SampleRate)...)
	pcm = append(pcm, tone(0.1, params.SampleRate, 0.8)...) // shorter than MinSpeechMS
	pcm = append(pcm, silence(1, params.SampleRate)...)

	intervals, err := d.Detect(pcm, params)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(intervals) != 0 {
		t.Errorf("expected short blip to be rejected, got %v", intervals)
	}
}

func TestSpeechDuration(t *testing.T) {
	intervals := []Interval{{StartSeconds: 1, EndSeconds: 3}, {StartSeconds: 5, EndSeconds: 5.5}}
	got := SpeechDuration(intervals)
	if got != 2.5 {
		t.Errorf("SpeechDuration = %v, want 2.5", got)
	}
}
