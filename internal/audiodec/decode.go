// Package audiodec provides the small amount of raw-PCM plumbing shared by
// VAD (C2) and batch concatenation (C3): decode an uploaded audio object to
// mono 16-bit PCM, slice out speech intervals, and re-encode a concatenated
// waveform as WAV. Grounded on the other example repos' go-audio/wav usage
// for Whisper audio prep, adapted here to mono 16 kHz throughout since that
// is the fixed rate VAD and the transcription vendor both require (§4.1,
// §4.2). Uploaded audio is assumed to already arrive at 16 kHz mono, as
// produced by the on-device recorder (out of scope, §1) — no resampling is
// implemented.
package audiodec

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// DecodeToPCM16 reads a WAV file and returns its samples as mono 16-bit PCM,
// downmixing multi-channel input by averaging channels.
func DecodeToPCM16(path string, expectedSampleRate int) ([]int16, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels == 0 {
		return nil, 0, fmt.Errorf("wav file missing format info")
	}

	pcm := downmix(buf)
	return pcm, len(pcm), nil
}

func downmix(buf *audio.IntBuffer) []int16 {
	ch := buf.Format.NumChannels
	if ch <= 1 {
		out := make([]int16, len(buf.Data))
		for i, v := range buf.Data {
			out[i] = clampInt16(v)
		}
		return out
	}

	frames := len(buf.Data) / ch
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < ch; c++ {
			sum += buf.Data[i*ch+c]
		}
		out[i] = clampInt16(sum / ch)
	}
	return out
}

func clampInt16(v int) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// EncodeWAV writes mono 16-bit PCM as a WAV file at the given sample rate.
func EncodeWAV(path string, pcm []int16, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	data := make([]int, len(pcm))
	for i, s := range pcm {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

// SliceInterval extracts the [startS, endS) sub-range of pcm sampled at
// sampleRate, clamped to the buffer's bounds.
func SliceInterval(pcm []int16, sampleRate int, startS, endS float64) []int16 {
	start := int(startS * float64(sampleRate))
	end := int(endS * float64(sampleRate))
	if start < 0 {
		start = 0
	}
	if end > len(pcm) {
		end = len(pcm)
	}
	if start >= end {
		return nil
	}
	return pcm[start:end]
}
