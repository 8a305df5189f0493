package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
	"github.com/nirva-labs/nirva-pipeline/internal/metrics"
	"github.com/nirva-labs/nirva-pipeline/internal/storage"
)

const sampleRate = 16000

// Monitor ticks every 10s, claims timed-out accumulating batches, and runs
// each through the per-batch pipeline as an independent task: a scheduler
// loop that claims work and hands it to a goroutine directly, rather than a
// fixed worker pool, since batches are already coarse-grained units of work.
type Monitor struct {
	db         *database.DB
	store      *storage.Store
	transcript TranscriptVendor
	diarize    DiarizationVendor
	timeouts   VendorTimeouts
	gapS       float64
	timeout    time.Duration
	log        zerolog.Logger
}

type MonitorOptions struct {
	DB                *database.DB
	Store             *storage.Store
	TranscriptVendor  TranscriptVendor
	DiarizationVendor DiarizationVendor
	Timeouts          VendorTimeouts
	SentenceGapS      float64
	BatchTimeout      time.Duration
	Log               zerolog.Logger
}

func NewMonitor(opts MonitorOptions) *Monitor {
	return &Monitor{
		db:         opts.DB,
		store:      opts.Store,
		transcript: opts.TranscriptVendor,
		diarize:    opts.DiarizationVendor,
		timeouts:   opts.Timeouts,
		gapS:       opts.SentenceGapS,
		timeout:    opts.BatchTimeout,
		log:        opts.Log.With().Str("component", "transcribe.monitor").Logger(),
	}
}

func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	ready, err := m.db.ListBatchesReadyForProcessing(ctx, m.timeout, time.Now().UTC())
	if err != nil {
		m.log.Error().Err(err).Msg("list ready batches failed")
		return
	}
	for _, b := range ready {
		claimed, err := m.db.MarkBatchProcessing(ctx, b.ID)
		if err != nil {
			m.log.Error().Err(err).Str("batch_id", b.ID.String()).Msg("claim batch failed")
			continue
		}
		if !claimed {
			continue // another worker raced us
		}
		go m.processBatch(context.Background(), b)
	}
}

// processBatch runs §4.2 steps 1-8 for one claimed batch.
func (m *Monitor) processBatch(ctx context.Context, batch database.BatchRow) {
	log := m.log.With().Str("batch_id", batch.ID.String()).Logger()

	files, err := m.db.ListFilesForBatch(ctx, batch.ID)
	if err != nil {
		log.Error().Err(err).Msg("list files failed")
		m.fail(ctx, batch.ID)
		return
	}

	result, survived, err := Concatenate(ctx, m.store, files, sampleRate, log)
	if err != nil {
		log.Error().Err(err).Msg("concatenation failed")
		m.fail(ctx, batch.ID)
		return
	}
	if survived == 0 {
		log.Warn().Msg("no files survived download, completing batch with no transcript")
		_ = m.db.MarkBatchCompleted(ctx, batch.ID, time.Now().UTC())
		metrics.BatchesClosedTotal.WithLabelValues("completed").Inc()
		return
	}

	tempKey := fmt.Sprintf("temp-diarization/%s.wav", batch.ID.String())
	defer func() { _ = m.store.Delete(context.Background(), tempKey) }()

	signedURL, err := UploadScratchWAV(ctx, m.store, tempKey, result.PCM, sampleRate)
	if err != nil {
		log.Error().Err(err).Msg("upload scratch wav failed")
		m.fail(ctx, batch.ID)
		return
	}

	transcriptCtx, cancel := context.WithTimeout(ctx, m.timeouts.Transcription)
	vt, err := m.transcript.Transcribe(transcriptCtx, signedURL)
	cancel()
	if err != nil {
		log.Error().Err(err).Msg("transcription vendor failed")
		m.fail(ctx, batch.ID)
		return
	}

	diarizeCtx, cancel := context.WithTimeout(ctx, m.timeouts.DiarizePoll)
	segments, err := m.diarize.Diarize(diarizeCtx, signedURL)
	cancel()
	if err != nil {
		log.Error().Err(err).Msg("diarization vendor failed")
		m.fail(ctx, batch.ID)
		return
	}

	words := make([]VendorWord, len(vt.Words))
	copy(words, vt.Words)
	sentences := Merge(words, segments, MergeOptions{SentenceGapS: m.gapS})

	tzOffset := tzOffsetFromMeta(files)
	text := RenderTranscript(sentences, batch.FirstSegmentAt, tzOffset)

	if nonWhitespaceLen(text) <= 1 {
		log.Info().Msg("merged transcript empty, completing batch without a transcription result")
		_ = m.db.MarkFilesTranscribed(ctx, batch.ID)
		_ = m.db.MarkBatchCompleted(ctx, batch.ID, time.Now().UTC())
		metrics.BatchesClosedTotal.WithLabelValues("completed").Inc()
		return
	}

	endTime := batch.LastSegmentAt.Add(time.Duration(result.Duration * float64(time.Second)))
	sentiment, _ := json.Marshal(vt.Sentiment)
	topics, _ := json.Marshal(vt.Topics)
	intents, _ := json.Marshal(vt.Intents)

	_, err = m.db.InsertTranscriptionResult(ctx, database.TranscriptionResultRow{
		Username:       batch.Username,
		BatchID:        batch.ID,
		StartTime:      batch.FirstSegmentAt,
		EndTime:        endTime,
		TranscriptText: text,
		Language:       vt.Language,
		Sentiment:      sentiment,
		Topics:         topics,
		Intents:        intents,
		SegmentCount:   len(sentences),
	})
	if err != nil {
		log.Error().Err(err).Msg("persist transcription result failed")
		m.fail(ctx, batch.ID)
		return
	}

	if err := m.db.MarkFilesTranscribed(ctx, batch.ID); err != nil {
		log.Error().Err(err).Msg("mark files transcribed failed")
	}
	if err := m.db.MarkBatchCompleted(ctx, batch.ID, time.Now().UTC()); err != nil {
		log.Error().Err(err).Msg("mark batch completed failed")
	}
	metrics.BatchesClosedTotal.WithLabelValues("completed").Inc()
}

func (m *Monitor) fail(ctx context.Context, batchID uuid.UUID) {
	_ = m.db.MarkBatchFailed(ctx, batchID)
	metrics.BatchesClosedTotal.WithLabelValues("failed").Inc()
}

func nonWhitespaceLen(s string) int {
	n := 0
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			n++
		}
	}
	return n
}

// tzOffsetFromMeta is a placeholder hook for upload-metadata timezone offset
// (§4.2 step 5); batches carry no per-file timezone today so this returns 0
// (UTC), matching the "else UTC" fallback.
func tzOffsetFromMeta(files []database.AudioFileRow) time.Duration {
	return 0
}
