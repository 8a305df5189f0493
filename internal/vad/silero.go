package vad

import (
	"fmt"
	"math"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// sileroWindowSamples is the fixed input window Silero's published ONNX
// graph expects at 16 kHz — 512 samples (32 ms). Grounded on the VAD window
// constant used for Silero inference in the broader example pack.
const sileroWindowSamples = 512

// Silero runs Silero VAD's ONNX graph frame-by-frame over 512-sample windows,
// producing a speech probability per window that's thresholded and merged
// into intervals using the same min-speech/min-silence/pad rules as
// EnergyDetector.
type Silero struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	state   *ort.Tensor[float32]
}

// NewSilero loads the Silero VAD ONNX model from modelPath. The caller must
// have called ort.SetSharedLibraryPath and ort.InitializeEnvironment once
// per process before constructing a Silero detector.
func NewSilero(modelPath string) (*Silero, error) {
	input, err := ort.NewTensor(ort.NewShape(1, sileroWindowSamples), make([]float32, sileroWindowSamples))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	state, err := ort.NewTensor(ort.NewShape(2, 1, 128), make([]float32, 2*128))
	if err != nil {
		return nil, fmt.Errorf("create state tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input", "state"},
		[]string{"output"},
		[]ort.Value{input, state},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("load silero model %q: %w", modelPath, err)
	}

	return &Silero{session: session, input: input, output: output, state: state}, nil
}

func (s *Silero) Name() string { return "silero-onnx" }

func (s *Silero) Close() error {
	return s.session.Destroy()
}

func (s *Silero) Detect(pcm []int16, params Params) ([]Interval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	probs := make([]float64, 0, len(pcm)/sileroWindowSamples+1)
	inData := s.input.GetData()

	for start := 0; start < len(pcm); start += sileroWindowSamples {
		end := start + sileroWindowSamples
		for i := range inData {
			if start+i < end && start+i < len(pcm) {
				inData[i] = float32(pcm[start+i]) / 32768.0
			} else {
				inData[i] = 0
			}
		}
		if err := s.session.Run(); err != nil {
			return nil, fmt.Errorf("run silero session: %w", err)
		}
		probs = append(probs, float64(s.output.GetData()[0]))
	}

	return probabilitiesToIntervals(probs, sileroWindowSamples, probs != nil, params), nil
}

func probabilitiesToIntervals(probs []float64, windowSamples int, _ bool, params Params) []Interval {
	active := make([]bool, len(probs))
	for i, p := range probs {
		active[i] = p > params.Threshold
	}

	windowSeconds := float64(windowSamples) / float64(params.SampleRate)
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

	clipEnd := float64(len(probs)) * windowSeconds
	padded := make([]Interval, len(raw))
	for idx, iv := range raw {
		s := iv.StartSeconds - padSeconds
		if s < 0 {
			s = 0
		}
		e := iv.EndSeconds + padSeconds
		if e > clipEnd {
			e = clipEnd
		}
		padded[idx] = Interval{StartSeconds: s, EndSeconds: e}
	}
	return mergeOverlapping(padded)
}
