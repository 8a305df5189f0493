package transcribe

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/nirva-labs/nirva-pipeline/internal/audiodec"
	"github.com/nirva-labs/nirva-pipeline/internal/database"
	"github.com/nirva-labs/nirva-pipeline/internal/storage"
)

// ConcatResult is the product of concatenating a batch's speech intervals.
type ConcatResult struct {
	PCM        []int16
	SampleRate int
	Duration   float64
}

// Concatenate downloads each file's object, slices out its recorded speech
// intervals, and concatenates them into one mono waveform (§4.2 step 2).
// Files that fail to download are skipped with a logged error rather than
// aborting the whole batch.
func Concatenate(ctx context.Context, store *storage.Store, files []database.AudioFileRow, sampleRate int, log zerolog.Logger) (*ConcatResult, int, error) {
	var out []int16
	survived := 0

	for _, f := range files {
		scratch, err := downloadScratch(ctx, store, f.ObjectKey)
		if err != nil {
			log.Error().Err(err).Str("key", f.ObjectKey).Msg("download failed, skipping file")
			continue
		}

		pcm, _, err := audiodec.DecodeToPCM16(scratch, sampleRate)
		os.Remove(scratch)
		if err != nil {
			log.Error().Err(err).Str("key", f.ObjectKey).Msg("decode failed, skipping file")
			continue
		}

		for _, seg := range f.SpeechSegments {
			out = append(out, audiodec.SliceInterval(pcm, sampleRate, seg.StartSeconds, seg.EndSeconds)...)
		}
		survived++
	}

	if survived == 0 {
		return nil, 0, nil
	}

	return &ConcatResult{
		PCM:        out,
		SampleRate: sampleRate,
		Duration:   float64(len(out)) / float64(sampleRate),
	}, survived, nil
}

func downloadScratch(ctx context.Context, store *storage.Store, key string) (string, error) {
	rc, err := store.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	f, err := os.CreateTemp("", "nirva-concat-*.audio")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, rc); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// UploadScratchWAV encodes pcm as a WAV file, uploads it to a temporary key,
// and returns a signed GET URL for vendor consumption (§4.2 step 3: a
// 1-hour signed GET URL, per §6).
func UploadScratchWAV(ctx context.Context, store *storage.Store, batchKey string, pcm []int16, sampleRate int) (string, error) {
	scratch, err := os.CreateTemp("", "nirva-upload-*.wav")
	if err != nil {
		return "", fmt.Errorf("create scratch wav: %w", err)
	}
	path := scratch.Name()
	scratch.Close()
	defer os.Remove(path)

	if err := audiodec.EncodeWAV(path, pcm, sampleRate); err != nil {
		return "", fmt.Errorf("encode wav: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read scratch wav: %w", err)
	}
	if err := store.Save(ctx, batchKey, data, "audio/wav"); err != nil {
		return "", fmt.Errorf("upload scratch wav: %w", err)
	}

	return store.PresignURL(ctx, batchKey, time.Hour)
}
