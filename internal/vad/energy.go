package vad

import "math"

// EnergyDetector is a dependency-free RMS-threshold VAD, used when no Silero
// model path is configured and in unit tests that don't want to load ONNX.
// It windows the signal, computes normalized RMS energy per window, and
// merges windows above Threshold into intervals, applying the same
// min-speech/min-silence/pad rules as the Silero path so callers can treat
// both detectors identically.
type EnergyDetector struct{}

func NewEnergyDetector() *EnergyDetector { return &EnergyDetector{} }

func (d *EnergyDetector) Name() string { return "energy-threshold" }

func (d *EnergyDetector) Detect(pcm []int16, params Params) ([]Interval, error) {
	if len(pcm) == 0 || params.SampleRate <= 0 {
		return nil, nil
	}

	windowSize := params.SampleRate / 100 // 10ms windows
	if windowSize < 1 {
		windowSize = 1
	}

	var active []bool
	for start := 0; start < len(pcm); start += windowSize {
		end := start + windowSize
		if end > len(pcm) {
			end = len(pcm)
		}
		active = append(active, rms(pcm[start:end]) > params.Threshold)
	}

	windowSeconds := float64(windowSize) / float64(params.SampleRate)
	minSpeechWindows := int(math.Ceil(float64(params.MinSpeechMS) / 1000 / windowSeconds))
	minSilenceWindows := int(math.Ceil(float64(params.MinSilenceMS) / 1000 / windowSeconds))
	padSeconds := float64(params.PadMS) / 1000

	var raw []Interval
	i := 0
	for i < len(active) {
		if !active[i] {
			i++
			continue
		}
		start := i
		for i < len(active) && active[i] {
			i++
		}
		// Bridge short silence gaps back into the same run before measuring length.
		for i < len(active) {
			gapStart := i
			for i < len(active) && !active[i] {
				i++
			}
			gapLen := i - gapStart
			if gapLen > 0 && gapLen < minSilenceWindows && i < len(active) {
				continue // absorb the gap, keep extending the run
			}
			i = gapStart
			break
		}
		end := i
		if end-start >= minSpeechWindows {
			raw = append(raw, Interval{
				StartSeconds: float64(start) * windowSeconds,
				EndSeconds:   float64(end) * windowSeconds,
			})
		}
	}

	clipEnd := float64(len(pcm)) / float64(params.SampleRate)
	padded := make([]Interval, len(raw))
	for i, iv := range raw {
		s := iv.StartSeconds - padSeconds
		if s < 0 {
			s = 0
		}
		e := iv.EndSeconds + padSeconds
		if e > clipEnd {
			e = clipEnd
		}
		padded[i] = Interval{StartSeconds: s, EndSeconds: e}
	}
	return mergeOverlapping(padded), nil
}

func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSquares float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		sumSquares += v * v
	}
	return math.Sqrt(sumSquares / float64(len(samples)))
}

func mergeOverlapping(intervals []Interval) []Interval {
	if len(intervals) < 2 {
		return intervals
	}
	merged := []Interval{intervals[0]}
	for _, iv := range intervals[1:] {
		last := &merged[len(merged)-1]
		if iv.StartSeconds <= last.EndSeconds {
			if iv.EndSeconds > last.EndSeconds {
				last.EndSeconds = iv.EndSeconds
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}
